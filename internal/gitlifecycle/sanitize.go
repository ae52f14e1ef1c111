package gitlifecycle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/patchbench/harness/internal/patchutil"
)

// sanitizeHistory replaces the repo's .git with a
// single-commit history that carries no remotes, no prior refs, and no
// reflog entries pre-dating the new commit — defending against an agent
// that inspects .git for the PR URL, the ground-truth patch, or any other
// commit the original history would have revealed.
//
// If reinitializing the history fails after the original .git has been
// removed, the backup is copied back in place before the error is
// returned. A failure in any later step returns without copying it back;
// the backup directory is left on disk.
func sanitizeHistory(repoDir string) (newHead, backupDir string, err error) {
	tmpRoot := os.TempDir()
	backupDir, err = os.MkdirTemp(tmpRoot, BackupDirPrefix)
	if err != nil {
		return "", "", fmt.Errorf("creating backup directory: %w", err)
	}

	r := NewRepo(repoDir)
	gitDir, err := resolvedGitDir(r)
	if err != nil {
		return "", "", fmt.Errorf("resolving .git: %w", err)
	}

	backupGitPath := filepath.Join(backupDir, ".git")
	if err := copyTree(gitDir, backupGitPath); err != nil {
		return "", "", fmt.Errorf("backing up .git: %w", err)
	}

	if err := os.RemoveAll(gitDir); err != nil {
		return "", "", fmt.Errorf("removing original .git: %w", err)
	}

	if err := reinitHistory(r); err != nil {
		if restoreErr := copyTree(backupGitPath, gitDir); restoreErr != nil {
			return "", "", fmt.Errorf("reinit failed (%v) and restoring original .git also failed: %w", err, restoreErr)
		}
		return "", "", fmt.Errorf("reinitializing history, original .git restored: %w", err)
	}

	head, err := r.HeadCommit("HEAD")
	if err != nil {
		return "", "", fmt.Errorf("resolving new HEAD: %w", err)
	}

	// The sidecar filename must never appear in a candidate patch; exclude
	// it before the ignored-file snapshot so the snapshot pass itself
	// doesn't pick up a stray sidecar from a previous run.
	if err := r.AppendExclude(patchutil.SidecarFileName); err != nil {
		return "", "", fmt.Errorf("excluding sidecar file: %w", err)
	}

	ignoredPaths, err := r.ListIgnored()
	if err != nil {
		return "", "", fmt.Errorf("listing ignored files: %w", err)
	}
	modes, err := snapshotIgnored(repoDir, backupDir, ignoredPaths)
	if err != nil {
		return "", "", fmt.Errorf("snapshotting ignored files: %w", err)
	}

	if _, err := writeSidecar(repoDir, backupDir, ignoredPaths, modes); err != nil {
		return "", "", fmt.Errorf("writing sidecar: %w", err)
	}

	if err := lockBackup(backupDir); err != nil {
		return "", "", fmt.Errorf("locking backup: %w", err)
	}

	return head, backupDir, nil
}

func reinitHistory(r *Repo) error {
	if err := r.Init(); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	if err := r.AddAll(); err != nil {
		return fmt.Errorf("git add -A: %w", err)
	}
	if _, err := r.CommitAs("base", commitAuthorName, commitAuthorEmail, true); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

// lockBackup chmods sidecar.json and the ignored/ subtree to read-only.
// This blocks naive tampering; an agent running as the same UID can chmod
// it back, so the Gates in ignored.go do not depend on this lock holding.
func lockBackup(backupDir string) error {
	if err := os.Chmod(filepath.Join(backupDir, sidecarBackupFile), 0o444); err != nil {
		return err
	}
	ignoredDir := filepath.Join(backupDir, ignoredSnapshotDir)
	return filepath.Walk(ignoredDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return os.Chmod(path, 0o555)
		}
		return os.Chmod(path, 0o444)
	})
}

// copyTree copies src to dst, handling both a real .git directory and a
// worktree-style .git *file* (which just contains "gitdir: <path>" and
// whose target this function does not follow — preserving the file as-is
// is correct for worktree repos too).
func copyTree(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dst)
	}

	if !info.IsDir() {
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, data, info.Mode())
	}

	if err := os.MkdirAll(dst, info.Mode()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := copyTree(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
