package agentclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseModelSpec splits a configured "provider<sep>model" string on
// whichever of ':' or '/' appears first, so "openrouter:anthropic/claude-
// sonnet-4" and "openrouter/deepseek/deepseek-r1:free" both resolve
// correctly.
func ParseModelSpec(spec string) (provider, model string, ok bool) {
	colonIdx := strings.IndexByte(spec, ':')
	slashIdx := strings.IndexByte(spec, '/')

	sep := -1
	switch {
	case colonIdx < 0 && slashIdx < 0:
		return "", "", false
	case colonIdx < 0:
		sep = slashIdx
	case slashIdx < 0:
		sep = colonIdx
	case colonIdx < slashIdx:
		sep = colonIdx
	default:
		sep = slashIdx
	}

	return spec[:sep], spec[sep+1:], true
}

// ResolveModel fetches the server's provider/model catalog and resolves
// spec against it. On any failure — network error, unrecognized catalog
// shape, or no match — it degrades to the server default with a warning
// rather than raising; model resolution never throws.
func (c *Client) ResolveModel(ctx context.Context, spec string) (*ModelRef, string) {
	if spec == "" {
		return nil, ""
	}

	provider, model, ok := ParseModelSpec(spec)
	if !ok {
		return nil, fmt.Sprintf("could not parse model spec %q, using server default", spec)
	}

	resp, err := c.get(ctx, "/config/providers")
	if err != nil {
		return nil, fmt.Sprintf("fetching model catalog: %v, using server default", err)
	}
	defer resp.Body.Close()

	var decoded interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Sprintf("decoding model catalog: %v, using server default", err)
	}

	catalog := parseCatalog(decoded)
	if catalog == nil {
		return nil, "unrecognized model catalog shape, using server default"
	}

	if ref := catalog.resolve(provider, model); ref != nil {
		return ref, ""
	}
	return nil, fmt.Sprintf("model %q not found in server catalog, using server default", spec)
}

// modelCatalog is the normalized form of any of the three known JSON
// shapes the server may return.
type modelCatalog struct {
	providers map[string]providerEntry
}

type providerEntry struct {
	id     string
	models map[string]modelEntry // keyed by canonical id, lowercased
}

type modelEntry struct {
	id      string
	aliases []string
	display string
}

func (cat *modelCatalog) resolve(provider, model string) *ModelRef {
	p, ok := cat.providers[strings.ToLower(provider)]
	if !ok {
		return nil
	}
	modelLower := strings.ToLower(model)
	if m, ok := p.models[modelLower]; ok {
		return &ModelRef{ProviderID: p.id, ModelID: m.id}
	}
	for _, m := range p.models {
		if strings.ToLower(m.display) == modelLower {
			return &ModelRef{ProviderID: p.id, ModelID: m.id}
		}
		for _, alias := range m.aliases {
			if strings.ToLower(alias) == modelLower {
				return &ModelRef{ProviderID: p.id, ModelID: m.id}
			}
		}
	}
	return nil
}

// parseCatalog accepts three known shapes:
//  1. {providers:[{id, models:[...]}], default:{provider:model}}
//  2. {providerID: {models: {...}}}
//  3. [{id, models: [...]}]
//
// Anything else returns nil so the caller degrades to the server default.
func parseCatalog(decoded interface{}) *modelCatalog {
	switch v := decoded.(type) {
	case map[string]interface{}:
		if rawProviders, ok := v["providers"]; ok {
			if list, ok := rawProviders.([]interface{}); ok {
				return catalogFromList(list)
			}
		}
		return catalogFromMap(v)
	case []interface{}:
		return catalogFromList(v)
	default:
		return nil
	}
}

func catalogFromList(list []interface{}) *modelCatalog {
	cat := &modelCatalog{providers: map[string]providerEntry{}}
	for _, raw := range list {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := obj["id"].(string)
		if id == "" {
			continue
		}
		cat.providers[strings.ToLower(id)] = providerEntry{id: id, models: modelsFrom(obj["models"])}
	}
	if len(cat.providers) == 0 {
		return nil
	}
	return cat
}

func catalogFromMap(v map[string]interface{}) *modelCatalog {
	cat := &modelCatalog{providers: map[string]providerEntry{}}
	for id, raw := range v {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		modelsRaw, hasModels := obj["models"]
		if !hasModels {
			continue
		}
		cat.providers[strings.ToLower(id)] = providerEntry{id: id, models: modelsFrom(modelsRaw)}
	}
	if len(cat.providers) == 0 {
		return nil
	}
	return cat
}

func modelsFrom(raw interface{}) map[string]modelEntry {
	out := map[string]modelEntry{}
	switch v := raw.(type) {
	case []interface{}:
		for _, m := range v {
			entry := parseModelEntry(m)
			if entry.id != "" {
				out[strings.ToLower(entry.id)] = entry
			}
		}
	case map[string]interface{}:
		for id, m := range v {
			entry := parseModelEntry(m)
			if entry.id == "" {
				entry.id = id
			}
			out[strings.ToLower(entry.id)] = entry
		}
	}
	return out
}

func parseModelEntry(raw interface{}) modelEntry {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		if s, ok := raw.(string); ok {
			return modelEntry{id: s}
		}
		return modelEntry{}
	}
	entry := modelEntry{}
	entry.id, _ = obj["id"].(string)
	entry.display, _ = obj["name"].(string)
	if aliases, ok := obj["aliases"].([]interface{}); ok {
		for _, a := range aliases {
			if s, ok := a.(string); ok {
				entry.aliases = append(entry.aliases, s)
			}
		}
	}
	return entry
}
