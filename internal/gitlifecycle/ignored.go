package gitlifecycle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// gateSafeRelPath is Gate A: accepts only a non-empty, non-absolute relpath
// that does not escape the repo after normalization and does not target
// .git itself. Blocking .git/** keeps a tampered pre_agent_ignored entry
// like ".git/hooks/pre-commit" from ever being treated as a restorable
// path — that would be a code-execution vector on the next git invocation.
func gateSafeRelPath(relpath string) bool {
	if relpath == "" || filepath.IsAbs(relpath) {
		return false
	}
	clean := filepath.Clean(relpath)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return false
	}
	if clean == ".git" || strings.HasPrefix(clean, ".git"+string(filepath.Separator)) {
		return false
	}
	return true
}

// gateNotTracked is Gate B: a path currently tracked by git at HEAD must
// never be overwritten by a restore, since that would let a tampered
// sidecar clobber repository-controlled content.
func gateNotTracked(r *Repo, relpath string) bool {
	return !r.IsTracked(relpath)
}

// gateParentInsideRepo is Gate C: after mkdir -p on dest's parent, the
// parent must still resolve (through symlinks) inside the repo. This
// catches a symlink the agent planted to redirect a restore write outside
// the repository.
func gateParentInsideRepo(repoRealpath, parent string) bool {
	parentReal, err := filepath.EvalSymlinks(parent)
	if err != nil {
		return false
	}
	if parentReal == repoRealpath {
		return true
	}
	return strings.HasPrefix(parentReal, repoRealpath+string(filepath.Separator))
}

// gateRemoveNoFollow is Gate D: clears whatever currently occupies dest
// without ever following a symlink — a single unlink for any link or
// regular file, RemoveAll only for a real directory.
func gateRemoveNoFollow(dest string) error {
	info, err := os.Lstat(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 || !info.IsDir() {
		return os.Remove(dest)
	}
	return os.RemoveAll(dest)
}

// pathIndexFile records the relpath -> content-addressed-blob digest
// mapping inside backupDir/ignored, so restore can find each file's bytes
// without recomputing hashes or re-reading the (by-then agent-modified)
// working tree.
const pathIndexFile = "index.json"

// snapshotIgnored copies every path in paths (relative to repoDir) into
// backupDir/ignored as content-addressed blobs, recording their relative
// path and POSIX mode. Used only at sanitize time, before the agent runs,
// so no gating is needed on the source side — these paths came straight
// from git itself, not from an attacker-controlled sidecar.
func snapshotIgnored(repoDir, backupDir string, paths []string) (map[string]int64, error) {
	modes := map[string]int64{}
	index := map[string]string{}
	snapDir := filepath.Join(backupDir, ignoredSnapshotDir)
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		return nil, err
	}

	for _, relpath := range paths {
		if relpath == "" {
			continue
		}
		srcPath := filepath.Join(repoDir, relpath)
		info, err := os.Lstat(srcPath)
		if err != nil {
			continue // vanished between listing and snapshot; nothing to save
		}
		if info.Mode()&os.ModeSymlink != 0 || !info.Mode().IsRegular() {
			continue // only plain files are part of this snapshot contract
		}

		data, err := os.ReadFile(srcPath)
		if err != nil {
			return nil, fmt.Errorf("snapshotting %s: %w", relpath, err)
		}
		sum := sha256.Sum256(data)
		digest := hex.EncodeToString(sum[:])
		blobPath := filepath.Join(snapDir, digest)
		if _, err := os.Stat(blobPath); err != nil {
			if err := os.WriteFile(blobPath, data, 0o644); err != nil {
				return nil, fmt.Errorf("writing blob for %s: %w", relpath, err)
			}
		}

		index[relpath] = digest
		modes[relpath] = int64(info.Mode().Perm())
	}

	if err := writeJSONFile(filepath.Join(snapDir, pathIndexFile), index); err != nil {
		return nil, err
	}

	return modes, nil
}

// restoreIgnored implements the ignored-file restore contract: recorded paths are
// recreated from their snapshot bytes, anything currently ignored but
// absent from the snapshot is treated as agent-created and removed. Every
// write goes through Gates A-D.
func restoreIgnored(repoDir string, sc *Sidecar) []string {
	var warnings []string
	r := NewRepo(repoDir)
	repoReal, err := filepath.EvalSymlinks(repoDir)
	if err != nil {
		repoReal = repoDir
	}

	snapDir := filepath.Join(sc.BackupDir, ignoredSnapshotDir)
	index := map[string]string{}
	_ = readJSONFile(filepath.Join(snapDir, pathIndexFile), &index)

	// The snapshot directory's own index is the authoritative complement
	// to PreAgentIgnored: a path present here is treated as pre-existing
	// even if the sidecar's list was tampered down to empty.
	known := map[string]bool{}
	for relpath := range index {
		known[relpath] = true
	}
	for _, relpath := range sc.PreAgentIgnored {
		known[relpath] = true
	}

	for relpath := range known {
		if !gateSafeRelPath(relpath) {
			warnings = append(warnings, fmt.Sprintf("refusing unsafe sidecar path %q", relpath))
			continue
		}
		if !gateNotTracked(r, relpath) {
			warnings = append(warnings, fmt.Sprintf("refusing to restore tracked path %q", relpath))
			continue
		}

		digest, haveBlob := index[relpath]
		dest := filepath.Join(repoDir, relpath)

		if !haveBlob {
			// Recorded as pre-existing but no blob saved (e.g. it wasn't a
			// regular file at snapshot time) — leave whatever is there now.
			continue
		}

		parent := filepath.Dir(dest)
		if err := os.MkdirAll(parent, 0o755); err != nil {
			warnings = append(warnings, fmt.Sprintf("creating parent for %q: %v", relpath, err))
			continue
		}
		if !gateParentInsideRepo(repoReal, parent) {
			warnings = append(warnings, fmt.Sprintf("refusing write escaping repo for %q", relpath))
			continue
		}

		// Only safe to clear the destination now that the parent has been
		// re-resolved past mkdir and confirmed inside the repo.
		if err := gateRemoveNoFollow(dest); err != nil {
			warnings = append(warnings, fmt.Sprintf("clearing %q: %v", relpath, err))
			continue
		}

		data, err := os.ReadFile(filepath.Join(snapDir, digest))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("reading snapshot blob for %q: %v", relpath, err))
			continue
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			warnings = append(warnings, fmt.Sprintf("writing %q: %v", relpath, err))
			continue
		}

		mode := os.FileMode(sc.PreAgentModes[relpath]&0o777) | 0o200 // force user-write
		if err := os.Chmod(dest, mode); err != nil {
			warnings = append(warnings, fmt.Sprintf("chmod %q: %v", relpath, err))
		}
	}

	// Anything currently ignored-and-untracked that isn't in `known` is
	// agent-created and gets removed.
	currentlyIgnored, err := r.ListIgnored()
	if err == nil {
		for _, relpath := range currentlyIgnored {
			if relpath == "" || known[relpath] || !gateSafeRelPath(relpath) {
				continue
			}
			dest := filepath.Join(repoDir, relpath)
			if err := gateRemoveNoFollow(dest); err != nil {
				warnings = append(warnings, fmt.Sprintf("removing agent-created %q: %v", relpath, err))
			}
		}
	}

	return warnings
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
