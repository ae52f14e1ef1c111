package evaluator

import (
	"context"
	"errors"
	"testing"
)

type fakeClient struct {
	text string
	err  error
}

func (f *fakeClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	return f.text, f.err
}

func validRequest() Request {
	return Request{
		APIKey:           "key",
		IssueStatement:   "fix the bug",
		CandidatePatch:   "diff a",
		GroundTruthPatch: "diff b",
	}
}

func TestEvaluateWithClientHappyPath(t *testing.T) {
	client := &fakeClient{text: `{"verdict":"pass","overall_score":80,"scores":{"functional_correctness":5,"completeness_coverage":5,"equivalence_to_ground_truth":5}}`}
	res, err := evaluateWithClient(context.Background(), validRequest(), "prompt", client, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.SchemaOK {
		t.Fatalf("expected schema match")
	}
	if res.Verdict != "PASS" {
		t.Fatalf("verdict = %q, want canonicalized PASS", res.Verdict)
	}
	if res.OverallScore != 100 {
		t.Fatalf("overall_score = %v, want 100 after correction", res.OverallScore)
	}
}

func TestEvaluateWithClientEmptyResponseIsError(t *testing.T) {
	client := &fakeClient{text: "   "}
	_, err := evaluateWithClient(context.Background(), validRequest(), "prompt", client, "")
	if err == nil {
		t.Fatalf("expected error on empty judge response")
	}
}

func TestEvaluateWithClientTransportErrorIsWrapped(t *testing.T) {
	client := &fakeClient{err: errors.New("connection reset")}
	_, err := evaluateWithClient(context.Background(), validRequest(), "prompt", client, "")
	if err == nil {
		t.Fatalf("expected transport error to propagate")
	}
}

func TestEvaluateWithClientSchemaMismatchReturnsRawTextNoError(t *testing.T) {
	client := &fakeClient{text: `{"note":"not an evaluation object"}`}
	res, err := evaluateWithClient(context.Background(), validRequest(), "prompt", client, "")
	if err != nil {
		t.Fatalf("schema mismatch should not be an error: %v", err)
	}
	if res.SchemaOK {
		t.Fatalf("expected SchemaOK false")
	}
	if res.RawText == "" {
		t.Fatalf("expected raw text to be preserved for inspection")
	}
}

func TestEvaluateRejectsInvalidInputBeforeAnyNetworkCall(t *testing.T) {
	req := validRequest()
	req.IssueStatement = ""
	_, err := Evaluate(context.Background(), req)
	if err == nil {
		t.Fatalf("expected validation error")
	}
}
