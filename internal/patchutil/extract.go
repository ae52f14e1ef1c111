package patchutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
)

// SidecarFileName is the internal file the git lifecycle manager writes
// inside a sanitized repo. It must never appear in a candidate patch.
const SidecarFileName = ".eval-sidecar.json"

// addTimeout and gitTimeout bound the subprocesses GetPatch spawns, per the
// suspension-point budget: 30s for add, 60s for other git calls.
const (
	addTimeout = 30 * time.Second
	gitTimeout = 60 * time.Second
)

// GetPatch stages every tracked modification, deletion, and untracked file,
// diffs it against HEAD, then unstages — the unstage always runs, even on
// error, so the working tree is left exactly as GetPatch found it. The
// resulting diff has any block touching an internal file filtered out.
func GetPatch(repoDir string, extraIgnoreFileName string) (string, error) {
	if _, err := runGitTimeout(repoDir, addTimeout, "add", "-A"); err != nil {
		_, _ = runGitTimeout(repoDir, gitTimeout, "reset", "HEAD")
		return "", fmt.Errorf("staging changes: %w", err)
	}

	diff, diffErr := runGitTimeout(repoDir, gitTimeout, "diff", "--cached", "HEAD")

	if _, err := runGitTimeout(repoDir, gitTimeout, "reset", "HEAD"); err != nil {
		if diffErr != nil {
			return "", fmt.Errorf("diffing: %w (also failed to unstage: %s)", diffErr, err)
		}
		return "", fmt.Errorf("unstaging after diff: %w", err)
	}

	if diffErr != nil {
		return "", fmt.Errorf("diffing staged changes: %w", diffErr)
	}

	extraMatcher := loadExtraIgnore(repoDir, extraIgnoreFileName)
	return FilterInternalFiles(diff, extraMatcher, extraIgnoreFileName), nil
}

// FilterInternalFiles removes any per-file block from patch whose
// "diff --git" header touches the sidecar file, the extra-ignore file
// itself, or (when matcher is non-nil) a path the matcher declares ignored.
// "Touches" is anchored: the header must contain "a/F b/" or end with
// "b/F" — no substring matching on e.g. ".F-backup".
func FilterInternalFiles(patch string, matcher *ignore.GitIgnore, extraIgnoreFileName string) string {
	if patch == "" {
		return ""
	}

	blocks := splitBlocks(patch)
	var kept []string
	for _, block := range blocks {
		header := firstLine(block)
		if touchesFile(header, SidecarFileName) {
			continue
		}
		if extraIgnoreFileName != "" && touchesFile(header, extraIgnoreFileName) {
			continue
		}
		if matcher != nil {
			if path, ok := headerPath(header); ok && matcher.MatchesPath(path) {
				continue
			}
		}
		kept = append(kept, block)
	}

	return strings.Join(kept, "\n")
}

func firstLine(block string) string {
	if i := strings.IndexByte(block, '\n'); i >= 0 {
		return block[:i]
	}
	return block
}

// touchesFile reports whether a "diff --git" header line references file F
// as either side of the diff, anchored to path-segment boundaries.
func touchesFile(header, f string) bool {
	if f == "" {
		return false
	}
	if strings.Contains(header, "a/"+f+" b/") {
		return true
	}
	if strings.HasSuffix(header, "b/"+f) {
		return true
	}
	return false
}

// headerPath extracts the "a/" side file path from a diff --git header,
// using the symmetric split preferred over the rightmost " b/" occurrence:
// "diff --git a/src/a b/c.txt b/src/a b/c.txt" -> "src/a b/c.txt".
func headerPath(header string) (string, bool) {
	rest := strings.TrimPrefix(header, diffGitPrefix)
	if rest == header {
		return "", false
	}
	if !strings.HasPrefix(rest, "a/") {
		return "", false
	}
	rest = rest[2:]

	// A symmetric "path b/path" layout has the " b/" separator starting at
	// (n-3)/2, so both halves around it have equal length.
	n := len(rest)
	if n >= 3 && (n-3)%2 == 0 {
		mid := (n - 3) / 2
		if rest[mid:mid+3] == " b/" && rest[:mid] == rest[mid+3:] {
			return rest[:mid], true
		}
	}

	// Fall back to the rightmost " b/" split when the symmetric split
	// doesn't apply (e.g. renamed paths of different lengths).
	if idx := strings.LastIndex(rest, " b/"); idx >= 0 {
		return rest[:idx], true
	}
	return rest, true
}

func loadExtraIgnore(repoDir, fileName string) *ignore.GitIgnore {
	if fileName == "" {
		return nil
	}
	data, err := os.ReadFile(repoDir + "/" + fileName)
	if err != nil || len(data) == 0 {
		return nil
	}
	lines := strings.Split(string(data), "\n")
	return ignore.CompileIgnoreLines(lines...)
}

func runGitTimeout(dir string, timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(errBuf.String()), err)
	}
	return strings.TrimRight(out.String(), "\n"), nil
}
