package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/patchbench/harness/internal/config"
	"github.com/patchbench/harness/internal/evaluator"
	"github.com/spf13/cobra"
)

// judgeTimeout is the default bound on the judge HTTP call.
const judgeTimeout = 60 * time.Second

var (
	evalAgentPatch     string
	evalGTPatch        string
	evalIssueStatement string
	evalModel          string
	evalOutput         string
)

func init() {
	evaluateCmd.Flags().StringVar(&evalAgentPatch, "agent-patch", "", "candidate patch file (required)")
	evaluateCmd.Flags().StringVar(&evalGTPatch, "gt-patch", "", "ground-truth patch file (required)")
	evaluateCmd.Flags().StringVar(&evalIssueStatement, "issue-statement", "", "issue statement text (required)")
	evaluateCmd.Flags().StringVar(&evalModel, "eval-model", "", "override EVAL_MODEL for this invocation")
	evaluateCmd.Flags().StringVar(&evalOutput, "eval-output", "", "write the evaluation JSON here instead of stdout")
	_ = evaluateCmd.MarkFlagRequired("agent-patch")
	_ = evaluateCmd.MarkFlagRequired("gt-patch")
	_ = evaluateCmd.MarkFlagRequired("issue-statement")
	rootCmd.AddCommand(evaluateCmd)
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a candidate patch against the ground truth with an LLM judge",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := config.Load()
		if err != nil {
			statusError("%s", err)
			return err
		}
		if err := env.RequireEvalAPIKey(); err != nil {
			statusError("%s", err)
			return err
		}

		candidate, err := os.ReadFile(evalAgentPatch)
		if err != nil {
			statusError("reading agent patch: %s", err)
			return err
		}
		groundTruth, err := os.ReadFile(evalGTPatch)
		if err != nil {
			statusError("reading ground-truth patch: %s", err)
			return err
		}

		model := env.EvalModel
		if evalModel != "" {
			model = evalModel
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), judgeTimeout)
		defer cancel()

		result, err := evaluator.Evaluate(ctx, evaluator.Request{
			APIKey:           env.EvalAPIKey,
			IssueStatement:   evalIssueStatement,
			CandidatePatch:   string(candidate),
			GroundTruthPatch: string(groundTruth),
			Provider:         env.EvalProvider,
			Model:            model,
			BaseURL:          env.EvalBaseURL,
			Temperature:      env.EvalTemperature,
			MaxTokens:        env.EvalMaxTokens,
		})
		if err != nil {
			statusError("%s", err)
			return err
		}

		if result.ProviderWarning != "" {
			statusWarn("%s", result.ProviderWarning)
		}

		return writeEvaluationResult(result)
	},
}

// writeEvaluationResult prints the handler output: a schema match prints
// verdict and score; a mismatch warns and emits the raw text so tooling
// can still inspect it.
func writeEvaluationResult(result *evaluator.Result) error {
	if !result.SchemaOK {
		statusWarn("judge response did not match the evaluation schema")
		fmt.Println(result.RawText)
		return nil
	}

	statusOK("verdict=%s overall_score=%.0f", result.Verdict, result.OverallScore)

	payload := map[string]interface{}{
		"verdict":       result.Verdict,
		"overall_score": result.OverallScore,
		"scores":        result.Scores,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	if evalOutput == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(evalOutput, data, 0o644)
}
