package evaluator

import "strings"

// promptTemplate is the judge's instruction set. It names the four known
// placeholders exactly once each; duplicates in a future revision would
// still be substituted correctly since Replacer rewrites every occurrence
// from the same single left-to-right scan.
const promptTemplate = `You are grading a candidate patch against a known-good ground truth patch for the following issue.

Issue statement:
{ISSUE_STATEMENT}

Candidate patch:
{GENERATED_PATCH}

Ground truth patch:
{GROUND_TRUTH_PATCH}

Additional notes:
{OPTIONAL_NOTES}

Respond with a single JSON object with the keys "verdict" (one of "pass", "partial", "fail"), "overall_score" (0-100), and "scores" (an object with numeric "functional_correctness", "completeness_coverage", and "equivalence_to_ground_truth" keys, each 0-5).`

// buildPrompt substitutes the four placeholders in a single non-chained
// pass. strings.Replacer never re-scans its own output, so an issue
// statement containing the literal "{GENERATED_PATCH}" is inserted as
// inert text, not substituted a second time.
func buildPrompt(issue, candidate, groundTruth, notes string) string {
	r := strings.NewReplacer(
		"{ISSUE_STATEMENT}", issue,
		"{GENERATED_PATCH}", candidate,
		"{GROUND_TRUTH_PATCH}", groundTruth,
		"{OPTIONAL_NOTES}", notes,
	)
	return r.Replace(promptTemplate)
}
