package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindGitRootWalksUpToGitDir(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if got := findGitRoot(nested); got != root {
		t.Fatalf("got %q, want %q", got, root)
	}
}

func TestFindGitRootReturnsEmptyWhenNoneFound(t *testing.T) {
	dir := t.TempDir()
	if got := findGitRoot(dir); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
