package orchestrator

import (
	"context"
	"time"

	"github.com/patchbench/harness/internal/agentclient"
	"github.com/patchbench/harness/internal/gitlifecycle"
	"github.com/patchbench/harness/internal/patchutil"
	"github.com/patchbench/harness/internal/trajectory"
)

// runAttempt executes one retry iteration: reset-to-baseline (for i>1),
// create a session, send the task, extract and validate the patch, and
// collect the attempt's trajectory before the session is torn down. It
// never returns an error — every failure mode is represented in the
// returned Attempt so the caller's retry loop can inspect it uniformly.
func (o *Orchestrator) runAttempt(ctx context.Context, req Request, repo *gitlifecycle.Repo, baselineCommit, trustedBackupDir string, index int, model *agentclient.ModelRef, prompt string) Attempt {
	started := time.Now()
	attempt := Attempt{Index: index}

	if index > 1 {
		if err := gitlifecycle.ResetToBaseline(req.Directory, baselineCommit, trustedBackupDir); err != nil {
			attempt.Error = err.Error()
			attempt.Duration = time.Since(started)
			return attempt
		}
	}

	sessionID, err := o.Agent.CreateSession(ctx, req.Directory)
	if err != nil {
		attempt.Error = err.Error()
		attempt.Duration = time.Since(started)
		return attempt
	}
	attempt.SessionID = sessionID
	o.log("attempt %d: session %s created", index, sessionID)

	_, sendErr := o.Agent.SendTask(ctx, sessionID, prompt, req.Directory, o.Env.AgentName, model)

	finishedAt := time.Now()
	traj := o.collectTrajectory(ctx, sessionID, req.Directory, started, finishedAt)

	if sendErr != nil {
		if _, ok := sendErr.(*agentclient.AgentDidNotRun); ok {
			attempt.Error = agentDidNotRunMarker
			traj.FinalError = sendErr.Error()
			attempt.Trajectory = &traj
			attempt.Duration = time.Since(started)
			_ = o.Agent.CleanupSession(ctx, sessionID, req.Directory)
			return attempt
		}
		attempt.Error = sendErr.Error()
		traj.FinalError = sendErr.Error()
		attempt.Trajectory = &traj
		attempt.Duration = time.Since(started)
		_ = o.Agent.CleanupSession(ctx, sessionID, req.Directory)
		return attempt
	}

	changed, err := repo.HasChanges()
	if err != nil {
		attempt.Error = err.Error()
		attempt.Trajectory = &traj
		attempt.Duration = time.Since(started)
		_ = o.Agent.CleanupSession(ctx, sessionID, req.Directory)
		return attempt
	}
	if !changed {
		attempt.Reason = "agent produced no changes"
		attempt.Trajectory = &traj
		attempt.Duration = time.Since(started)
		_ = o.Agent.CleanupSession(ctx, sessionID, req.Directory)
		return attempt
	}

	patch, err := patchutil.GetPatch(req.Directory, o.Env.IgnoreFileName)
	if err != nil {
		attempt.Error = err.Error()
		attempt.Trajectory = &traj
		attempt.Duration = time.Since(started)
		_ = o.Agent.CleanupSession(ctx, sessionID, req.Directory)
		return attempt
	}
	attempt.PatchLength = len(patch)
	traj.FinalPatch = patch

	verdict := patchutil.ValidatePatch(patch)
	attempt.Valid = verdict.Ok
	attempt.Reason = verdict.Reason
	attempt.Trajectory = &traj
	attempt.Duration = time.Since(started)

	if !attempt.Valid {
		_ = o.Agent.CleanupSession(ctx, sessionID, req.Directory)
	}
	return attempt
}

// collectTrajectory fetches the full message list for sessionID and
// assembles a Trajectory. It tolerates every auxiliary call failing —
// trajectory collection is telemetry, never a reason to fail the attempt.
func (o *Orchestrator) collectTrajectory(ctx context.Context, sessionID, directory string, startedAt, finishedAt time.Time) trajectory.Trajectory {
	messages, _ := o.Agent.GetMessages(ctx, sessionID, directory)

	raw := make([]trajectory.RawMessage, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		parts := make([]interface{}, 0, len(m.Parts))
		for _, p := range m.Parts {
			parts = append(parts, p)
		}
		raw = append(raw, trajectory.RawMessage{Role: m.Role, Info: m.Info, Parts: parts})
	}

	return trajectory.Build(trajectory.NewRunID(), sessionID, directory, startedAt, finishedAt, raw, "", "", nil)
}
