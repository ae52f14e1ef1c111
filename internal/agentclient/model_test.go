package agentclient

import "testing"

func TestParseModelSpec(t *testing.T) {
	tests := []struct {
		name         string
		spec         string
		wantProvider string
		wantModel    string
		wantOk       bool
	}{
		{
			name:         "colon separator",
			spec:         "openrouter:anthropic/claude-sonnet-4",
			wantProvider: "openrouter",
			wantModel:    "anthropic/claude-sonnet-4",
			wantOk:       true,
		},
		{
			name:         "slash separator first",
			spec:         "openrouter/deepseek/deepseek-r1:free",
			wantProvider: "openrouter",
			wantModel:    "deepseek/deepseek-r1:free",
			wantOk:       true,
		},
		{
			name:   "no separator",
			spec:   "gpt-4",
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, model, ok := ParseModelSpec(tt.spec)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && (provider != tt.wantProvider || model != tt.wantModel) {
				t.Fatalf("got (%q, %q), want (%q, %q)", provider, model, tt.wantProvider, tt.wantModel)
			}
		})
	}
}

func TestCatalogResolveListShape(t *testing.T) {
	decoded := []interface{}{
		map[string]interface{}{
			"id": "openrouter",
			"models": []interface{}{
				map[string]interface{}{"id": "claude-sonnet-4", "name": "Claude Sonnet 4"},
			},
		},
	}
	cat := parseCatalog(decoded)
	if cat == nil {
		t.Fatalf("expected catalog to parse")
	}
	ref := cat.resolve("openrouter", "claude-sonnet-4")
	if ref == nil || ref.ProviderID != "openrouter" || ref.ModelID != "claude-sonnet-4" {
		t.Fatalf("resolve by id failed: %+v", ref)
	}
	ref = cat.resolve("openrouter", "Claude Sonnet 4")
	if ref == nil || ref.ModelID != "claude-sonnet-4" {
		t.Fatalf("resolve by display name failed: %+v", ref)
	}
}

func TestCatalogResolveMapShape(t *testing.T) {
	decoded := map[string]interface{}{
		"openrouter": map[string]interface{}{
			"models": map[string]interface{}{
				"claude-sonnet-4": map[string]interface{}{"aliases": []interface{}{"sonnet"}},
			},
		},
	}
	cat := parseCatalog(decoded)
	if cat == nil {
		t.Fatalf("expected catalog to parse")
	}
	ref := cat.resolve("openrouter", "sonnet")
	if ref == nil || ref.ModelID != "claude-sonnet-4" {
		t.Fatalf("resolve by alias failed: %+v", ref)
	}
}

func TestParseCatalogUnrecognizedShape(t *testing.T) {
	if cat := parseCatalog("just a string"); cat != nil {
		t.Fatalf("expected nil catalog for unrecognized shape")
	}
	if cat := parseCatalog(map[string]interface{}{"unrelated": 1}); cat != nil {
		t.Fatalf("expected nil catalog when no provider entries parse")
	}
}
