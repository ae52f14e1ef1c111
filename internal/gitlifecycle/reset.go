package gitlifecycle

import "fmt"

// ResetToBaseline resets the working tree to the baseline commit between
// retries. trustedBackupDir is the token-derived backup directory, if
// sanitization is active; pass "" when it is not.
func ResetToBaseline(repoDir, baselineCommit, trustedBackupDir string) error {
	r := NewRepo(repoDir)

	if err := r.ResetHard(baselineCommit); err != nil {
		return fmt.Errorf("resetting to baseline: %w", err)
	}
	if err := r.CleanFD(); err != nil {
		return fmt.Errorf("cleaning working tree: %w", err)
	}

	sc, _ := readSidecar(repoDir, trustedBackupDir)
	if sc == nil || sc.BackupDir == "" {
		return nil
	}

	restoreIgnored(repoDir, sc)
	return nil
}
