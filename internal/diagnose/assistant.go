package diagnose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agridetect/internal/llmclient"
	"agridetect/internal/prompt"
)

var ErrNoQuestion = errors.New("question is required")

// Assistant answers follow-up questions about a diagnosis. The grounding
// context (disease, plant type, initial remedy) is fixed for the whole
// conversation; only the question and the history vary between turns.
type Assistant struct {
	LLM llmclient.Client
}

// AssistantRequest folds the fixed diagnosis context, the accumulated
// history, and one new question into a single call. History must be in
// original chronological order; it is replayed verbatim, never reordered
// or deduplicated.
type AssistantRequest struct {
	Disease       string
	PlantType     string
	InitialRemedy string
	Question      string
	History       []ChatTurn
}

var assistantPrompt = prompt.Spec{
	Purpose: "You are a friendly and helpful gardening assistant. The user has been given a diagnosis for their plant and has a follow-up question.",
	Background: "Answer the user's question based on the diagnosis context in the input. " +
		"Be conversational and clear. The conversationHistory lists prior turns in chronological order.",
	OutputFields: []prompt.Field{
		{Name: "answer", Type: "string", Required: true, Description: "The conversational answer to the user's question."},
	},
	Rules: []string{
		"Stay on the topic of the diagnosed disease and its treatment.",
		"Do not contradict the initial remedy without explaining why.",
	},
}

type assistantInput struct {
	Disease             string     `json:"disease"`
	PlantType           string     `json:"plantType"`
	InitialRemedy       string     `json:"initialRemedy"`
	Question            string     `json:"question"`
	ConversationHistory []ChatTurn `json:"conversationHistory,omitempty"`
}

type assistantOutput struct {
	Answer string `json:"answer"`
}

func (s *Assistant) Ask(ctx context.Context, req AssistantRequest) (string, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", ErrNoQuestion
	}
	p, err := assistantPrompt.Render()
	if err != nil {
		return "", err
	}
	raw, err := s.LLM.GenerateJSON(ctx, p, assistantInput{
		Disease:             req.Disease,
		PlantType:           req.PlantType,
		InitialRemedy:       req.InitialRemedy,
		Question:            req.Question,
		ConversationHistory: req.History,
	})
	if err != nil {
		return "", fmt.Errorf("remedy assistant: %w", err)
	}
	out, err := prompt.Decode[assistantOutput](raw)
	if err != nil {
		return "", fmt.Errorf("remedy assistant: %w", err)
	}
	if strings.TrimSpace(out.Answer) == "" {
		return "", fmt.Errorf("remedy assistant: %w", llmclient.ErrInvalidJSON)
	}
	return out.Answer, nil
}
