package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/maruel/genai"
	"github.com/maruel/genai/providers/anthropic"
	"github.com/maruel/genai/providers/openaicompatible"
)

// judgeClient is the minimal surface this package needs from a provider,
// kept narrow so the genai wiring lives entirely in this file.
type judgeClient interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// inferProvider maps a model name prefix to its provider family. An
// explicit Provider on the request always wins.
func inferProvider(explicit, model string) (name string, warning string) {
	if explicit != "" {
		return strings.ToLower(explicit), ""
	}
	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "claude-"):
		return "anthropic", ""
	case strings.HasPrefix(lower, "gpt-"), strings.HasPrefix(lower, "o1-"), strings.HasPrefix(lower, "deepseek-"):
		return "openai", ""
	default:
		return "openai", fmt.Sprintf("could not infer judge provider from model %q, defaulting to openai-compatible", model)
	}
}

// newJudgeClient builds the provider-abstracted client used to call the judge.
// The genai transport isn't exercised anywhere else in this codebase, so
// its wiring is confined to this one file — everything downstream talks to
// the narrow judgeClient interface above. warning is non-empty only when
// the provider had to be inferred and the inference fell through to the
// openai-compatible default.
func newJudgeClient(req Request) (client judgeClient, warning string, err error) {
	name, warning := inferProvider(req.Provider, req.Model)

	opts := &genai.ProviderOptions{
		APIKey:  req.APIKey,
		Model:   req.Model,
		BaseURL: req.BaseURL,
	}

	switch name {
	case "anthropic":
		c, err := anthropic.New(opts, nil)
		if err != nil {
			return nil, warning, fmt.Errorf("constructing anthropic client: %w", err)
		}
		return &genaiClient{provider: c}, warning, nil
	default:
		c, err := openaicompatible.New(opts, nil)
		if err != nil {
			return nil, warning, fmt.Errorf("constructing openai-compatible client: %w", err)
		}
		return &genaiClient{provider: c}, warning, nil
	}
}

// genaiClient adapts a genai.Provider to judgeClient.
type genaiClient struct {
	provider genai.Provider
}

func (g *genaiClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	msgs := genai.Messages{genai.NewTextMessage(genai.User, prompt)}
	result, err := g.provider.GenSync(ctx, msgs, &genai.OptionsText{
		Temperature: temperature,
		MaxTokens:   int64(maxTokens),
	})
	if err != nil {
		return "", err
	}
	return result.AsText(), nil
}
