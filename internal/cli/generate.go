package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
)

// generate is linear glue around an external collaborator treated here as
// an interface only: PR-URL parsing, diff-to-file extraction, and
// LLM-driven rewriting/simplification of the task description. What
// belongs to this codebase is just the externally observable contract —
// three graded markdown variants written to prompt_variants/<project>/ —
// built here directly from the supplied patch file and URLs, with no
// network access and no LLM call.
var (
	generateRepoURL   string
	generatePRURL     string
	generatePatchPath string
	generateOutputDir string
)

func init() {
	generateCmd.Flags().StringVar(&generateRepoURL, "repo-url", "", "source repository URL (required)")
	generateCmd.Flags().StringVar(&generatePRURL, "pr-url", "", "pull request URL (required)")
	generateCmd.Flags().StringVar(&generatePatchPath, "patch", "", "ground-truth patch file (required)")
	generateCmd.Flags().StringVar(&generateOutputDir, "output-dir", ".", "root directory for prompt_variants/")
	_ = generateCmd.MarkFlagRequired("repo-url")
	_ = generateCmd.MarkFlagRequired("pr-url")
	_ = generateCmd.MarkFlagRequired("patch")
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Synthesize graded prompt variants describing a PR's task",
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := os.ReadFile(generatePatchPath)
		if err != nil {
			statusError("reading patch file: %s", err)
			return err
		}

		project := projectNameFromRepoURL(generateRepoURL)
		prNumber := prNumberFromURL(generatePRURL)

		dir := filepath.Join(generateOutputDir, "prompt_variants", project)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			statusError("%s", err)
			return err
		}

		variants := promptVariants(generateRepoURL, generatePRURL, string(patch))
		for i, content := range variants {
			name := fmt.Sprintf("pr_%s_v%d.md", prNumber, i+1)
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				statusError("writing %s: %s", path, err)
				return err
			}
		}

		statusOK("wrote %d prompt variant(s) to %s", len(variants), dir)
		return nil
	},
}

var repoNameRe = regexp.MustCompile(`/([^/]+?)(\.git)?/?$`)

func projectNameFromRepoURL(repoURL string) string {
	if m := repoNameRe.FindStringSubmatch(repoURL); m != nil {
		return m[1]
	}
	return "unknown-project"
}

var prNumberRe = regexp.MustCompile(`/pull/(\d+)`)

func prNumberFromURL(prURL string) string {
	if m := prNumberRe.FindStringSubmatch(prURL); m != nil {
		return m[1]
	}
	return "0"
}

// promptVariants returns three graded task descriptions, from terse to
// fully-specified, each built from the same inputs so their grading
// differs only in how much of the ground-truth diff is disclosed.
func promptVariants(repoURL, prURL, patch string) [3]string {
	files := strings.Join(filesTouchedBy(patch), ", ")

	v1 := fmt.Sprintf(
		"# Task\n\nFix the issue described by the pull request at %s in the repository %s.\n",
		prURL, repoURL,
	)
	v2 := v1 + fmt.Sprintf("\nThe fix touches the following file(s): %s.\n", files)
	v3 := v2 + fmt.Sprintf("\nReference patch for grading (do not apply verbatim):\n\n```diff\n%s\n```\n", patch)

	return [3]string{v1, v2, v3}
}

var diffGitLineRe = regexp.MustCompile(`(?m)^diff --git a/(.+) b/(.+)$`)

func filesTouchedBy(patch string) []string {
	var files []string
	for _, m := range diffGitLineRe.FindAllStringSubmatch(patch, -1) {
		files = append(files, m[2])
	}
	return files
}
