package diagnose

import (
	"context"
	"errors"
	"fmt"

	"agridetect/internal/llmclient"
	"agridetect/internal/prompt"
)

var ErrNoPlantName = errors.New("plant name is required")

// DiseaseDiagnoser produces ranked disease hypotheses for a named plant.
// The plant name comes from the identification step; grounding the model in
// a named taxon is why diagnosis is sequenced strictly after identification.
type DiseaseDiagnoser struct {
	LLM llmclient.Client
}

func diseasePrompt(plantName string) prompt.Spec {
	return prompt.Spec{
		Purpose: "You are an expert in plant pathology. The user has uploaded a photo of a plant they say is a \"" + plantName + "\".",
		Background: "First, briefly confirm the image does seem to contain a " + plantName + ". " +
			"Then identify potential diseases affecting the plant in the photo, most likely first, with a confidence score for each.",
		OutputFields: []prompt.Field{
			{Name: "diseaseDiagnoses", Type: "[]object{diseaseName, confidenceScore, reason, precaution, remedy}", Required: true,
				Description: "Candidate diseases ordered most-likely-first. confidenceScore is a number in [0,1]; reason explains the diagnosis; precaution and remedy give actionable guidance."},
			{Name: "isHealthy", Type: "bool", Description: "Set to true when the plant appears healthy."},
		},
		Rules: []string{
			"If the plant appears healthy, set isHealthy to true and return a single diagnosis object with diseaseName \"" + HealthySentinel + "\" whose reason field carries general care tips.",
			"Confidence scores must be between 0 and 1.",
		},
	}
}

func (s *DiseaseDiagnoser) Diagnose(ctx context.Context, img llmclient.Image, plantName string) (DiagnosisResult, error) {
	if len(img.Data) == 0 {
		return DiagnosisResult{}, ErrNoImage
	}
	if plantName == "" {
		return DiagnosisResult{}, ErrNoPlantName
	}
	p, err := diseasePrompt(plantName).Render()
	if err != nil {
		return DiagnosisResult{}, err
	}
	input := struct {
		PlantName string `json:"plantName"`
	}{PlantName: plantName}
	raw, err := s.LLM.GenerateJSON(ctx, p, input, img)
	if err != nil {
		return DiagnosisResult{}, fmt.Errorf("diagnose disease: %w", err)
	}
	result, err := prompt.Decode[DiagnosisResult](raw)
	if err != nil {
		return DiagnosisResult{}, fmt.Errorf("diagnose disease: %w", err)
	}
	result.normalize()
	return result, nil
}
