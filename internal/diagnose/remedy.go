package diagnose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agridetect/internal/llmclient"
	"agridetect/internal/prompt"
)

var (
	ErrNoDisease   = errors.New("disease name is required")
	ErrEmptyRemedy = errors.New("model returned no remedy text")
)

// RemedySuggester turns a disease name plus plant type into prose guidance.
// When a region is given the advice is localized to its climate and resource
// assumptions; otherwise it stays general.
type RemedySuggester struct {
	LLM llmclient.Client
}

var remedyPrompt = prompt.Spec{
	Purpose: "You are an expert in plant diseases and their remedies. Given the identified disease, plant type, and region, suggest specific precautions and remedies.",
	OutputFields: []prompt.Field{
		{Name: "remedies", Type: "string", Required: true, Description: "Specific precautions and remedies for the identified disease, considering the region."},
	},
	Rules: []string{
		"When a region is provided, tailor the advice to its climate and locally available resources.",
		"When no region is provided, give general advice that works anywhere.",
	},
}

type remedyInput struct {
	Disease   string `json:"disease"`
	PlantType string `json:"plantType"`
	Region    string `json:"region,omitempty"`
}

type remedyOutput struct {
	Remedies string `json:"remedies"`
}

func (s *RemedySuggester) Suggest(ctx context.Context, disease, plantType, region string) (string, error) {
	if strings.TrimSpace(disease) == "" {
		return "", ErrNoDisease
	}
	p, err := remedyPrompt.Render()
	if err != nil {
		return "", err
	}
	raw, err := s.LLM.GenerateJSON(ctx, p, remedyInput{Disease: disease, PlantType: plantType, Region: region})
	if err != nil {
		return "", fmt.Errorf("suggest remedies: %w", err)
	}
	out, err := prompt.Decode[remedyOutput](raw)
	if err != nil {
		return "", fmt.Errorf("suggest remedies: %w", err)
	}
	if strings.TrimSpace(out.Remedies) == "" {
		return "", ErrEmptyRemedy
	}
	return out.Remedies, nil
}
