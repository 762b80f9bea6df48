package diagnose

import (
	"context"
	"errors"
	"fmt"

	"agridetect/internal/llmclient"
	"agridetect/internal/prompt"
)

var ErrNoImage = errors.New("image is required")

// Identifier recognizes whether an image contains a plant and names it.
// A "not a plant" outcome is a valid result (IsPlant false), never an error;
// errors are reserved for completion-client failures.
type Identifier struct {
	LLM llmclient.Client
}

var identifyPrompt = prompt.Spec{
	Purpose: "You are an expert botanist. Determine whether the attached photo contains a plant, and if so identify it.",
	OutputFields: []prompt.Field{
		{Name: "isPlant", Type: "bool", Required: true, Description: "Whether the image contains a plant."},
		{Name: "commonName", Type: "string", Description: "The common name of the plant. Only when isPlant is true."},
		{Name: "latinName", Type: "string", Description: "The Latin (scientific) name of the plant. Only when isPlant is true."},
	},
	Rules: []string{
		"If the image does not clearly contain a plant, set isPlant to false and omit the name fields.",
		"Prefer the most widely used common name.",
	},
}

func (s *Identifier) Identify(ctx context.Context, img llmclient.Image) (PlantIdentity, error) {
	if len(img.Data) == 0 {
		return PlantIdentity{}, ErrNoImage
	}
	p, err := identifyPrompt.Render()
	if err != nil {
		return PlantIdentity{}, err
	}
	raw, err := s.LLM.GenerateJSON(ctx, p, nil, img)
	if err != nil {
		return PlantIdentity{}, fmt.Errorf("identify plant: %w", err)
	}
	id, err := prompt.Decode[PlantIdentity](raw)
	if err != nil {
		return PlantIdentity{}, fmt.Errorf("identify plant: %w", err)
	}
	if !id.IsPlant {
		id.CommonName = ""
		id.LatinName = ""
	}
	return id, nil
}
