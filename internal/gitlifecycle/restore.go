package gitlifecycle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/patchbench/harness/internal/patchutil"
)

// RestoreRepo is the guaranteed final step of a run.
func RestoreRepo(repoDir string, token OriginalRefToken, baselineCommit string) error {
	payload, sanitized := decodeToken(token)
	if sanitized {
		return restoreSanitized(repoDir, payload)
	}
	return restoreNonSanitized(repoDir, baselineCommit, string(token))
}

func restoreSanitized(repoDir string, payload tokenPayload) error {
	r := NewRepo(repoDir)

	// Read the sidecar before any cleanup: cleanup below removes the hint
	// file and the in-repo copy this read might otherwise have depended on.
	sc, _ := readSidecar(repoDir, payload.BackupDir)

	backupGitPath := filepath.Join(payload.BackupDir, ".git")
	if _, err := os.Stat(backupGitPath); err != nil {
		// History is lost. Best-effort clean and surface the loss instead of
		// silently pretending the repo is intact.
		_ = r.CleanFD()
		return fmt.Errorf("backup .git missing at %s, original history is lost: %w", backupGitPath, err)
	}

	gitDir, err := resolvedGitDir(r)
	if err != nil {
		return fmt.Errorf("resolving .git before restore: %w", err)
	}
	if err := os.RemoveAll(gitDir); err != nil {
		return fmt.Errorf("removing sanitized .git: %w", err)
	}
	if err := copyTree(backupGitPath, gitDir); err != nil {
		return fmt.Errorf("restoring original .git: %w", err)
	}

	if payload.PreSanitizeHead != "" {
		if err := r.ResetHard(payload.PreSanitizeHead); err != nil {
			return fmt.Errorf("resetting to pre-sanitize head: %w", err)
		}
	}
	if err := r.CleanFD(); err != nil {
		return fmt.Errorf("cleaning working tree: %w", err)
	}

	if sc != nil && sc.BackupDir != "" {
		restoreIgnored(repoDir, sc)
	}

	// Only now delete the backup directory — restoreIgnored above still
	// needed to read from it. lockBackup left the ignored/ directories
	// read-only, so give them write permission back first or their entries
	// cannot be unlinked.
	_ = filepath.Walk(filepath.Join(payload.BackupDir, ignoredSnapshotDir), func(path string, info os.FileInfo, err error) error {
		if err == nil && info.IsDir() {
			_ = os.Chmod(path, 0o755)
		}
		return nil
	})
	if err := os.RemoveAll(payload.BackupDir); err != nil {
		return fmt.Errorf("removing backup directory: %w", err)
	}

	if current, err := r.CurrentRef(); err == nil && current != payload.SavedRef {
		if err := r.Checkout(payload.SavedRef); err != nil {
			return fmt.Errorf("checking out saved ref %q: %w", payload.SavedRef, err)
		}
	}

	return nil
}

func restoreNonSanitized(repoDir, baselineCommit, originalRef string) error {
	r := NewRepo(repoDir)

	currentHead, err := r.HeadCommit("HEAD")
	if err != nil {
		return fmt.Errorf("reading current HEAD: %w", err)
	}

	if currentHead != baselineCommit {
		if err := r.ResetHard(baselineCommit); err != nil {
			return fmt.Errorf("resetting to baseline: %w", err)
		}
		if err := r.CleanFD(); err != nil {
			return fmt.Errorf("cleaning working tree: %w", err)
		}
	}

	if subject, err := r.CommitSubject(baselineCommit); err == nil && subject == BaselineSentinelMessage {
		if err := r.ResetHard(baselineCommit + "^"); err != nil {
			return fmt.Errorf("resetting past synthetic baseline commit: %w", err)
		}
	}

	if movedRef, err := r.CurrentRef(); err == nil && movedRef != originalRef {
		if err := r.Checkout(originalRef); err != nil {
			return fmt.Errorf("checking out original ref %q: %w", originalRef, err)
		}
	}

	// Remove any stray in-repo sidecar — it would otherwise surface as an
	// untracked file in the restored, non-sanitized repo.
	strayPath := filepath.Join(repoDir, patchutil.SidecarFileName)
	if _, err := os.Stat(strayPath); err == nil {
		_ = os.Remove(strayPath)
	}

	return nil
}

// BestEffortPartialCleanup handles the case where setup mutated the
// repo but failed before completing, and sanitization never happened (so
// there is no trustworthy backup to restore from). It resets to whatever
// HEAD currently is, strips a stray synthetic baseline commit, and checks
// out the pre-setup ref — but it never copies a recovered .git backup back
// into the repo, since a forged backup's hooks/pre-commit would execute on
// the next git operation. Any backup path is only reported back to the
// caller for manual inspection.
func BestEffortPartialCleanup(repoDir, preSetupRef string) (reportedBackupPath string, err error) {
	r := NewRepo(repoDir)

	if err := r.ResetHard("HEAD"); err != nil {
		return "", fmt.Errorf("resetting HEAD: %w", err)
	}
	if err := r.CleanFD(); err != nil {
		return "", fmt.Errorf("cleaning working tree: %w", err)
	}

	if head, err := r.HeadCommit("HEAD"); err == nil {
		if subject, err := r.CommitSubject(head); err == nil && subject == BaselineSentinelMessage {
			if err := r.ResetHard(head + "^"); err != nil {
				return "", fmt.Errorf("resetting past stray baseline commit: %w", err)
			}
		}
	}

	if current, err := r.CurrentRef(); err == nil && current != preSetupRef {
		if err := r.Checkout(preSetupRef); err != nil {
			return "", fmt.Errorf("checking out pre-setup ref %q: %w", preSetupRef, err)
		}
	}

	if sc, backupPath := readSidecar(repoDir, ""); sc != nil {
		reportedBackupPath = backupPath
	}

	return reportedBackupPath, nil
}
