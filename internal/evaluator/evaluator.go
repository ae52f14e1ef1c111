// Package evaluator scores a candidate patch against a ground-truth patch
// using an LLM judge. It is stateless beyond the HTTP client the judge call
// delegates to: validate inputs, build the prompt, call the judge, extract
// and validate its JSON verdict.
package evaluator

import (
	"context"
	"fmt"
	"strings"
)

// Request is everything one evaluation needs.
type Request struct {
	APIKey           string
	IssueStatement   string
	CandidatePatch   string
	GroundTruthPatch string
	OptionalNotes    string
	Provider         string // "", "openai", "anthropic" — "" infers from Model
	Model            string
	BaseURL          string
	Temperature      float64
	MaxTokens        int
}

// Result is the judge's verdict, ready to print or persist.
type Result struct {
	Verdict         string                 `json:"verdict"`
	OverallScore    float64                `json:"overall_score"`
	Scores          map[string]interface{} `json:"scores"`
	Raw             map[string]interface{} `json:"-"`
	SchemaOK        bool                   `json:"-"`
	RawText         string                 `json:"-"`
	ProviderWarning string                 `json:"-"`
}

// Evaluate runs the full judging pipeline: validate, build prompt, call the
// judge, extract JSON, clamp scores. It never panics on a malformed judge
// response — a schema failure is reported via Result.SchemaOK and
// Result.RawText, not an error. err is non-nil only for input-validation
// failures, transport failures, or a response containing no parseable JSON
// at all.
func Evaluate(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	prompt := buildPrompt(req.IssueStatement, req.CandidatePatch, req.GroundTruthPatch, req.OptionalNotes)

	client, providerWarning, err := newJudgeClient(req)
	if err != nil {
		return nil, err
	}
	return evaluateWithClient(ctx, req, prompt, client, providerWarning)
}

// evaluateWithClient is Evaluate's pipeline from "prompt built" onward,
// taking the judge client as a parameter so tests can supply a fake one
// without a network round trip.
func evaluateWithClient(ctx context.Context, req Request, prompt string, client judgeClient, providerWarning string) (*Result, error) {
	text, err := client.Complete(ctx, prompt, req.Temperature, req.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("judge call: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("judge returned an empty response")
	}

	obj, ok, err := ExtractVerdict(text)
	if err != nil {
		return nil, fmt.Errorf("extracting verdict: %w", err)
	}

	res := &Result{Raw: obj, SchemaOK: ok, RawText: text, ProviderWarning: providerWarning}
	if !ok {
		return res, nil
	}

	ApplyScoreCorrection(obj)

	if v, _ := obj["verdict"].(string); v != "" {
		canonical := strings.ToUpper(v)
		obj["verdict"] = canonical
		res.Verdict = canonical
	}
	if s, ok := obj["overall_score"].(float64); ok {
		res.OverallScore = s
	}
	if scores, ok := obj["scores"].(map[string]interface{}); ok {
		res.Scores = scores
	}
	return res, nil
}
