// Package orchestrator drives one evaluation run end to end: validates
// inputs, prepares the repository's starting point, retries the agent
// against it, writes the final patch and trajectory, and guarantees the
// repository is restored to its pre-run state no matter how the run ends.
// It is pure sequencing over internal/gitlifecycle, internal/agentclient,
// internal/patchutil, and internal/trajectory.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patchbench/harness/internal/agentclient"
	"github.com/patchbench/harness/internal/config"
	"github.com/patchbench/harness/internal/gitlifecycle"
	"github.com/patchbench/harness/internal/patchutil"
	"github.com/patchbench/harness/internal/trajectory"
)

// DefaultMaxAttempts is the retry budget for the attempt loop.
const DefaultMaxAttempts = 3

// Exit codes for the run command.
const (
	ExitSuccess       = 0
	ExitNoFinalPatch  = 1
	ExitRestoreFailed = 2
)

// Request is one run target: a repository, a prompt, and the optional
// branch/ground-truth-patch pair the setup phase uses to build the
// synthetic pre-fix baseline.
type Request struct {
	Directory   string
	Prompt      string // already read from the prompt file by the caller
	Branch      string
	GTPatch     string
	RemoteURL   string
	Project     string
	Version     string
	MaxAttempts int // 0 means DefaultMaxAttempts
}

// Attempt is the per-retry record.
type Attempt struct {
	Index       int                    `json:"index"`
	SessionID   string                 `json:"session_id,omitempty"`
	Valid       bool                   `json:"valid"`
	Reason      string                 `json:"reason,omitempty"`
	PatchLength int                    `json:"patch_length"`
	Error       string                 `json:"error,omitempty"`
	Duration    time.Duration          `json:"duration"`
	Trajectory  *trajectory.Trajectory `json:"trajectory,omitempty"`
}

// Result is what Run returns: the exit code the command surface should use,
// the attempt history, and the paths written (empty if nothing was
// written).
type Result struct {
	ExitCode       int
	Attempts       []Attempt
	FinalPatch     string
	PatchPath      string
	TrajectoryPath string
	RestoreError   error
}

// Orchestrator holds the long-lived collaborators a run needs.
type Orchestrator struct {
	Agent     *agentclient.Client
	Env       *config.Env
	OutputDir string // root for generated_patches/; defaults to "." when empty
	Progress  func(string)
}

// New builds an Orchestrator. progress may be nil to discard status lines.
func New(agent *agentclient.Client, env *config.Env, outputDir string, progress func(string)) *Orchestrator {
	if progress == nil {
		progress = func(string) {}
	}
	if outputDir == "" {
		outputDir = "."
	}
	return &Orchestrator{Agent: agent, Env: env, OutputDir: outputDir, Progress: progress}
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	o.Progress(fmt.Sprintf(format, args...))
}

// Run executes the full validate-setup-retry-restore lifecycle against req.
// When input validation (phase 1) or recording the pre-setup ref (phase 2)
// fails, it returns a nil *Result and the error. From then on it returns a
// non-nil *Result, even when the run failed before producing a patch;
// check Result.ExitCode rather than the error for the command surface's
// process exit status. After phase 2 the returned error is non-nil only
// when setup fails — restore failures are reported via Result.RestoreError
// and ExitRestoreFailed, not this return value.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	// Phase 1: validate inputs.
	if strings.TrimSpace(req.Directory) == "" {
		return nil, fmt.Errorf("directory is required")
	}
	if _, err := os.Stat(req.Directory); err != nil {
		return nil, fmt.Errorf("target directory: %w", err)
	}
	if req.GTPatch != "" && !looksLikeURL(req.GTPatch) {
		if _, err := os.Stat(req.GTPatch); err != nil {
			return nil, fmt.Errorf("ground-truth patch: %w", err)
		}
	}
	prompt := patchutil.SanitizePrompt(req.Prompt)

	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	repo := gitlifecycle.NewRepo(req.Directory)

	// Phase 2: record the pre-setup ref for worst-case cleanup.
	preSetupRef, err := repo.CurrentRef()
	if err != nil {
		return nil, fmt.Errorf("recording pre-setup ref: %w", err)
	}

	result := &Result{ExitCode: ExitNoFinalPatch}

	// Phase 7 runs no matter how the function returns below.
	var setupDone bool
	var mutated bool
	var setup *gitlifecycle.SetupResult
	defer func() {
		result.ExitCode, result.RestoreError = o.restore(req.Directory, preSetupRef, setupDone, mutated, setup, result.ExitCode)
	}()

	// Phase 3: resolve model (never fatal; degrades to server default).
	modelRef, warning := o.Agent.ResolveModel(ctx, o.Env.AgentModel)
	if warning != "" {
		o.log("model resolution: %s", warning)
	}

	// Phase 4: setup.
	setup, mutated, err = gitlifecycle.SetupStartingPoint(req.Directory, req.Branch, req.GTPatch, req.RemoteURL, true)
	if err != nil {
		return result, fmt.Errorf("setup: %w", err)
	}
	setupDone = true
	trustedBackupDir := gitlifecycle.TrustedBackupDir(setup.Token)

	// Phase 5: retry loop.
	var finalAttempt *Attempt
	for i := 1; i <= maxAttempts; i++ {
		attempt := o.runAttempt(ctx, req, repo, setup.BaselineCommit, trustedBackupDir, i, modelRef, prompt)
		result.Attempts = append(result.Attempts, attempt)
		finalAttempt = &result.Attempts[len(result.Attempts)-1]

		if attempt.Error == agentDidNotRunMarker || attempt.Valid {
			break
		}
	}

	if finalAttempt == nil {
		return result, nil
	}

	// Phase 6: write outputs. The final trajectory is always the last
	// attempt's (success or failure) — never a blend of two attempts.
	if finalAttempt.Trajectory != nil {
		finalAttempt.Trajectory.RetrySummary = retrySummaryOf(result.Attempts)
	}
	if finalAttempt.Valid {
		result.FinalPatch = finalAttempt.Trajectory.FinalPatch
		result.ExitCode = ExitSuccess
	}
	patchPath, trajPath, werr := o.writeOutputs(req.Project, req.Version, result.FinalPatch, finalAttempt.Valid, finalAttempt.Trajectory)
	if werr != nil {
		o.log("writing outputs: %v", werr)
	} else {
		result.PatchPath = patchPath
		result.TrajectoryPath = trajPath
	}

	return result, nil
}

func retrySummaryOf(attempts []Attempt) []trajectory.RetryNote {
	notes := make([]trajectory.RetryNote, 0, len(attempts))
	for _, a := range attempts {
		outcome := "failed"
		reason := a.Reason
		switch {
		case a.Valid:
			outcome = "succeeded"
		case a.Error == agentDidNotRunMarker:
			outcome = "agent_did_not_run"
			reason = ""
		case a.Error != "":
			reason = a.Error
		}
		notes = append(notes, trajectory.RetryNote{Attempt: a.Index, Outcome: outcome, Reason: reason})
	}
	return notes
}

const agentDidNotRunMarker = "__agent_did_not_run__"

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// writeOutputs persists the final trajectory, and the final patch when the
// run succeeded, under
// <OutputDir>/generated_patches/{patch,trajectory}/<project>/<version>.{patch,json}.
// A failed run (writePatch false) writes only the trajectory, matching exit
// code 1's "no final patch" semantics.
func (o *Orchestrator) writeOutputs(project, version, patch string, writePatch bool, traj *trajectory.Trajectory) (patchPath, trajPath string, err error) {
	if project == "" {
		project = "unknown-project"
	}
	if version == "" {
		version = "v1"
	}

	if writePatch {
		patchDir := filepath.Join(o.OutputDir, "generated_patches", "patch", project)
		if err := os.MkdirAll(patchDir, 0o755); err != nil {
			return "", "", err
		}
		patchPath = filepath.Join(patchDir, version+".patch")
		if err := os.WriteFile(patchPath, []byte(patch), 0o644); err != nil {
			return "", "", err
		}
	}

	if traj == nil {
		return patchPath, "", nil
	}
	trajDir := filepath.Join(o.OutputDir, "generated_patches", "trajectory", project)
	if err := os.MkdirAll(trajDir, 0o755); err != nil {
		return patchPath, "", err
	}
	trajPath = filepath.Join(trajDir, version+".json")
	data, err := marshalTrajectory(traj)
	if err != nil {
		return patchPath, "", err
	}
	if err := os.WriteFile(trajPath, data, 0o644); err != nil {
		return patchPath, "", err
	}
	return patchPath, trajPath, nil
}
