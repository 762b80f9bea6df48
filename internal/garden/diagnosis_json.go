package garden

import (
	"encoding/json"

	"agridetect/internal/diagnose"
)

func marshalDiagnosis(d *diagnose.DiagnosisResult) (any, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalDiagnosis(s string) (*diagnose.DiagnosisResult, error) {
	if s == "" {
		return nil, nil
	}
	var d diagnose.DiagnosisResult
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil, err
	}
	return &d, nil
}
