package patchutil

import "testing"

func TestSanitizePrompt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips repo link block",
			input: "Fix the bug.\n\n**Repo Link:** [octo/repo](https://github.com/octo/repo)\n\nDetails here.",
			want:  "Fix the bug.\n\nDetails here.",
		},
		{
			name:  "redacts remaining github url",
			input: "See https://github.com/octo/repo/pull/1 for context.",
			want:  "See [REDACTED] for context.",
		},
		{
			name:  "redacts gitlab and gitee urls case-insensitively",
			input: "a HTTPS://GITLAB.com/x/y and http://gitee.com/a/b",
			want:  "a [REDACTED] and [REDACTED]",
		},
		{
			name:  "collapses excess blank lines",
			input: "one\n\n\n\n\ntwo",
			want:  "one\n\ntwo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizePrompt(tt.input)
			if got != tt.want {
				t.Fatalf("SanitizePrompt(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizePromptIdempotent(t *testing.T) {
	input := "Fix the bug.\n\n**Repo Link:** [x](https://github.com/a/b)\n\n\n\nSee https://gitlab.com/x/y too."
	once := SanitizePrompt(input)
	twice := SanitizePrompt(once)
	if once != twice {
		t.Fatalf("SanitizePrompt is not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}
