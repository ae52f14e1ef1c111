package orchestrator

import "github.com/patchbench/harness/internal/gitlifecycle"

// restore implements phase 7 (guaranteed restore) and folds in phase 8's
// exit-code rule that a restore failure always trumps a patch failure. It
// is called from a defer in Run registered after phase 2, covering every
// return path from phase 3 on; the phase 1-2 errors return before it.
func (o *Orchestrator) restore(directory, preSetupRef string, setupDone, mutated bool, setup *gitlifecycle.SetupResult, currentExit int) (exitCode int, restoreErr error) {
	switch {
	case setupDone:
		// (a) setup completed: full restore_repo.
		restoreErr = gitlifecycle.RestoreRepo(directory, setup.Token, setup.BaselineCommit)
	case !mutated:
		// (b) setup failed before any mutation: nothing to undo.
		restoreErr = nil
	default:
		// (c) setup partially mutated: best-effort cleanup. A recovered
		// backup path is surfaced to the user, never copied back in.
		backupPath, err := gitlifecycle.BestEffortPartialCleanup(directory, preSetupRef)
		restoreErr = err
		if backupPath != "" {
			o.log("partial cleanup: recovered git backup left at %s for manual inspection", backupPath)
		}
	}

	if restoreErr != nil {
		o.log("restore failed: %v", restoreErr)
		return ExitRestoreFailed, restoreErr
	}
	return currentExit, nil
}
