package cli

import (
	"fmt"
	"os"

	"github.com/patchbench/harness/internal/agentclient"
	"github.com/patchbench/harness/internal/config"
	"github.com/patchbench/harness/internal/orchestrator"
	"github.com/spf13/cobra"
)

var (
	suiteFile      string
	suiteOutputDir string
)

func init() {
	suiteCmd.Flags().StringVar(&suiteFile, "file", "", "suite YAML file listing run targets (required)")
	suiteCmd.Flags().StringVar(&suiteOutputDir, "output-dir", ".", "root directory for generated_patches/")
	_ = suiteCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(suiteCmd)
}

var suiteCmd = &cobra.Command{
	Use:   "suite",
	Short: "Run every target in a suite file sequentially",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.LoadSuite(suiteFile)
		if err != nil {
			statusError("%s", err)
			return err
		}

		env, err := config.Load()
		if err != nil {
			statusError("%s", err)
			return err
		}

		agent := agentclient.New(env.AgentBaseURL, env.AgentUsername, env.AgentPassword, false, statusProgress)
		orch := orchestrator.New(agent, env, suiteOutputDir, statusProgress)

		allOK := true
		fmt.Println("entry  directory                      exit")
		for i, entry := range s.Entries {
			promptBytes, err := os.ReadFile(entry.PromptFile)
			if err != nil {
				statusError("runs[%d]: reading prompt file: %s", i, err)
				allOK = false
				fmt.Printf("%-6d %-30s %d\n", i, entry.Directory, orchestrator.ExitNoFinalPatch)
				continue
			}

			project := fmt.Sprintf("suite-entry-%d", i)
			version := nextVersion(suiteOutputDir, project)

			result, err := orch.Run(cmd.Context(), orchestrator.Request{
				Directory: entry.Directory,
				Prompt:    string(promptBytes),
				Branch:    entry.Branch,
				GTPatch:   entry.GTPatch,
				Project:   project,
				Version:   version,
			})
			exitCode := orchestrator.ExitNoFinalPatch
			if err != nil {
				statusError("runs[%d]: %s", i, err)
			} else {
				exitCode = result.ExitCode
				if result.RestoreError != nil {
					exitCode = orchestrator.ExitRestoreFailed
				}
			}
			if exitCode != orchestrator.ExitSuccess {
				allOK = false
			}
			fmt.Printf("%-6d %-30s %d\n", i, entry.Directory, exitCode)
		}

		if !allOK {
			return fmt.Errorf("one or more suite entries did not exit 0")
		}
		statusOK("all %d suite entries exited 0", len(s.Entries))
		return nil
	},
}
