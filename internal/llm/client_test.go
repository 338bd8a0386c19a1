package llm

import (
	"context"
	"errors"
	"testing"
)

func TestNewClientWithoutKey(t *testing.T) {
	client := NewClient("", "claude-3-5-sonnet-latest")

	if client.Available() {
		t.Error("expected client without key to be unavailable")
	}
	if _, err := client.Complete(context.Background(), "hello"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, false},
		{"bare array", `[1, 2]`, `[1, 2]`, false},
		{"prose around object", `Here is the problem: {"a": 1} hope it helps`, `{"a": 1}`, false},
		{"markdown fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`, false},
		{"plain fence", "```\n[1, 2]\n```", `[1, 2]`, false},
		{"array before object", `[{"a": 1}]`, `[{"a": 1}]`, false},
		{"no json", "sorry, I cannot do that", "", true},
		{"unterminated", `{"a": 1`, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("ExtractJSON = %q, want %q", got, tc.want)
			}
		})
	}
}
