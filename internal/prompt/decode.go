package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decode parses a model response into the typed output contract.
// Validation happens once at the step boundary: the raw payload either
// unmarshals into T or the whole step fails.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	trimmed := stripFences(string(raw))
	if strings.TrimSpace(trimmed) == "" {
		return out, fmt.Errorf("prompt: empty response")
	}
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return out, fmt.Errorf("prompt: decode response: %w", err)
	}
	return out, nil
}

// stripFences removes a surrounding markdown code fence if the model
// ignored the JSON-only instruction.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
