package gitlifecycle

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGateSafeRelPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"plain relative path", "a/b.txt", true},
		{"absolute path rejected", "/etc/passwd", false},
		{"parent escape rejected", "../outside.txt", false},
		{"nested parent escape rejected", "a/../../outside.txt", false},
		{"dot-git itself rejected", ".git", false},
		{"dot-git child rejected", ".git/hooks/pre-commit", false},
		{"empty rejected", "", false},
		{"lookalike dotgit-suffix file allowed", ".gitignore", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gateSafeRelPath(tt.path); got != tt.want {
				t.Fatalf("gateSafeRelPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestGateParentInsideRepo(t *testing.T) {
	repoDir := t.TempDir()
	insideChild := filepath.Join(repoDir, "sub")
	if err := os.MkdirAll(insideChild, 0o755); err != nil {
		t.Fatal(err)
	}

	outsideDir := t.TempDir()
	escapeLink := filepath.Join(repoDir, "escape")
	if err := os.Symlink(outsideDir, escapeLink); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	repoReal, err := filepath.EvalSymlinks(repoDir)
	if err != nil {
		t.Fatal(err)
	}

	if !gateParentInsideRepo(repoReal, insideChild) {
		t.Fatalf("expected parent inside repo to be accepted")
	}
	if !gateParentInsideRepo(repoReal, repoDir) {
		t.Fatalf("expected the repo root itself to be accepted")
	}
	if gateParentInsideRepo(repoReal, escapeLink) {
		t.Fatalf("expected a symlinked escape to be rejected")
	}
}

func TestGateRemoveNoFollow(t *testing.T) {
	dir := t.TempDir()

	regular := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(regular, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := gateRemoveNoFollow(regular); err != nil {
		t.Fatalf("removing regular file: %v", err)
	}
	if _, err := os.Lstat(regular); !os.IsNotExist(err) {
		t.Fatalf("expected regular file to be removed")
	}

	realDir := filepath.Join(dir, "realdir")
	if err := os.MkdirAll(filepath.Join(realDir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := gateRemoveNoFollow(realDir); err != nil {
		t.Fatalf("removing real directory: %v", err)
	}
	if _, err := os.Lstat(realDir); !os.IsNotExist(err) {
		t.Fatalf("expected directory to be removed")
	}

	outsideTarget := filepath.Join(dir, "sensitive")
	if err := os.MkdirAll(outsideTarget, 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(outsideTarget, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := gateRemoveNoFollow(link); err != nil {
		t.Fatalf("removing symlink: %v", err)
	}
	if _, err := os.Lstat(link); !os.IsNotExist(err) {
		t.Fatalf("expected symlink itself to be removed")
	}
	if _, err := os.Lstat(outsideTarget); err != nil {
		t.Fatalf("expected symlink target to survive untouched: %v", err)
	}
}

func TestPlausibleBackupDir(t *testing.T) {
	if plausibleBackupDir("") {
		t.Fatalf("empty path must not be plausible")
	}
	if plausibleBackupDir("/definitely/does/not/exist/agent_eval_git_bak_x") {
		t.Fatalf("nonexistent path must not be plausible")
	}

	// A directory in the temp root with the right prefix but no .git child
	// must be rejected.
	dir, err := os.MkdirTemp("", BackupDirPrefix)
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	if plausibleBackupDir(dir) {
		t.Fatalf("backup dir without a .git child must not be plausible")
	}

	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if !plausibleBackupDir(dir) {
		t.Fatalf("well-formed backup dir should be plausible")
	}

	// Wrong prefix, same parent, has .git child: still rejected.
	wrongPrefix, err := os.MkdirTemp("", "not_a_backup_")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(wrongPrefix)
	if err := os.MkdirAll(filepath.Join(wrongPrefix, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if plausibleBackupDir(wrongPrefix) {
		t.Fatalf("backup dir with wrong prefix must not be plausible")
	}
}
