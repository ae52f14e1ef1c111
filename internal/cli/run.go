package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/patchbench/harness/internal/agentclient"
	"github.com/patchbench/harness/internal/config"
	"github.com/patchbench/harness/internal/orchestrator"
	"github.com/spf13/cobra"
)

var (
	runDirectory  string
	runPromptFile string
	runBranch     string
	runGTPatch    string
	runProject    string
	runVersion    string
	runOutputDir  string
	runVerbose    bool
)

func init() {
	runCmd.Flags().StringVarP(&runDirectory, "directory", "d", "", "target repository directory (required)")
	runCmd.Flags().StringVarP(&runPromptFile, "prompt-file", "f", "", "file containing the task prompt (required)")
	runCmd.Flags().StringVar(&runBranch, "branch", "", "branch or ref to check out before evaluating")
	runCmd.Flags().StringVar(&runGTPatch, "gt-patch", "", "ground-truth patch file establishing the pre-fix baseline (a URL is not downloaded)")
	runCmd.Flags().StringVar(&runProject, "project", "", "project name for output paths (default: directory basename)")
	runCmd.Flags().StringVar(&runVersion, "version", "", "version label for output paths (default: next vN)")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", ".", "root directory for generated_patches/")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "log every agent-server HTTP request")
	_ = runCmd.MarkFlagRequired("directory")
	_ = runCmd.MarkFlagRequired("prompt-file")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive an agent against a sandboxed baseline and record the resulting patch",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := config.Load()
		if err != nil {
			statusError("%s", err)
			return err
		}

		promptBytes, err := os.ReadFile(runPromptFile)
		if err != nil {
			statusError("reading prompt file: %s", err)
			return err
		}

		project := runProject
		if project == "" {
			abs, err := filepath.Abs(runDirectory)
			if err != nil {
				return err
			}
			project = filepath.Base(abs)
		}
		version := runVersion
		if version == "" {
			version = nextVersion(runOutputDir, project)
		}

		agent := agentclient.New(env.AgentBaseURL, env.AgentUsername, env.AgentPassword, runVerbose, statusProgress)
		orch := orchestrator.New(agent, env, runOutputDir, statusProgress)

		result, err := orch.Run(cmd.Context(), orchestrator.Request{
			Directory: runDirectory,
			Prompt:    string(promptBytes),
			Branch:    runBranch,
			GTPatch:   runGTPatch,
			Project:   project,
			Version:   version,
		})
		if err != nil {
			statusError("%s", err)
			return err
		}

		reportRunResult(result)

		if result.RestoreError != nil {
			os.Exit(orchestrator.ExitRestoreFailed)
		}
		if result.ExitCode != orchestrator.ExitSuccess {
			os.Exit(result.ExitCode)
		}
		return nil
	},
}

// reportRunResult prints the run's outcome in the [ok]/[warn]/[error]
// single-line format.
func reportRunResult(result *orchestrator.Result) {
	switch {
	case result.RestoreError != nil:
		statusError("restore failed: %s", result.RestoreError)
	case result.ExitCode == orchestrator.ExitSuccess:
		statusOK("patch written to %s (trajectory: %s)", result.PatchPath, result.TrajectoryPath)
	default:
		statusWarn("no valid patch produced after %d attempt(s); trajectory: %s", len(result.Attempts), result.TrajectoryPath)
	}
}

func statusProgress(line string) {
	fmt.Println(line)
}

var versionFileRe = regexp.MustCompile(`^v(\d+)\.patch$`)

// nextVersion scans <outputDir>/generated_patches/patch/<project>/ for the
// highest existing vN.patch and returns the next one, or "v1" if none
// exist.
func nextVersion(outputDir, project string) string {
	dir := filepath.Join(outputDir, "generated_patches", "patch", project)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "v1"
	}
	highest := 0
	for _, entry := range entries {
		m := versionFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("v%d", highest+1)
}
