package evaluator

import "testing"

func TestInferProviderExplicitWins(t *testing.T) {
	name, warning := inferProvider("Anthropic", "gpt-4o")
	if name != "anthropic" || warning != "" {
		t.Fatalf("name=%q warning=%q", name, warning)
	}
}

func TestInferProviderFromModelPrefix(t *testing.T) {
	cases := map[string]string{
		"gpt-4o":            "openai",
		"o1-preview":        "openai",
		"deepseek-chat":     "openai",
		"claude-3-5-sonnet": "anthropic",
	}
	for model, want := range cases {
		name, warning := inferProvider("", model)
		if name != want {
			t.Errorf("inferProvider(%q) = %q, want %q", model, name, want)
		}
		if warning != "" {
			t.Errorf("unexpected warning for recognized prefix %q: %s", model, warning)
		}
	}
}

func TestInferProviderUnknownPrefixWarnsAndDefaultsToOpenAI(t *testing.T) {
	name, warning := inferProvider("", "mystery-model-9000")
	if name != "openai" {
		t.Fatalf("name = %q, want openai default", name)
	}
	if warning == "" {
		t.Fatalf("expected a warning for an unrecognized model prefix")
	}
}
