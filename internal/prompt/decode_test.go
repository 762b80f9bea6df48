package prompt

import (
	"encoding/json"
	"testing"
)

type decodeTarget struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want decodeTarget
	}{
		{"plain", `{"name":"rust","score":0.8}`, decodeTarget{"rust", 0.8}},
		{"fenced", "```json\n{\"name\":\"rust\",\"score\":0.8}\n```", decodeTarget{"rust", 0.8}},
		{"fenced bare", "```\n{\"name\":\"rust\",\"score\":0.8}\n```", decodeTarget{"rust", 0.8}},
		{"padded", "  \n{\"name\":\"rust\",\"score\":0.8}\n  ", decodeTarget{"rust", 0.8}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode[decodeTarget](json.RawMessage(tc.raw))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode[decodeTarget](json.RawMessage("")); err == nil {
		t.Fatalf("expected error for empty response")
	}
	if _, err := Decode[decodeTarget](json.RawMessage("not json at all")); err == nil {
		t.Fatalf("expected error for malformed response")
	}
}
