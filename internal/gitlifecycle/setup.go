package gitlifecycle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

var prBranchRe = regexp.MustCompile(`pr[_-]?(\d+)`)

// SetupStartingPoint prepares the baseline commit the agent will see as
// HEAD. mutated reports, on return, whether any destructive git command
// ran — the Orchestrator uses this to choose between a full restore and
// a no-op when setup fails partway through.
func SetupStartingPoint(repoDir string, branch string, gtPatch string, remoteURL string, sanitize bool) (result *SetupResult, mutated bool, err error) {
	r := NewRepo(repoDir)

	// 1. Pre-mutation validation.
	var safeGtPatch string
	if gtPatch != "" {
		abs, err := filepath.Abs(gtPatch)
		if err != nil {
			return nil, false, fmt.Errorf("resolving gt_patch path: %w", err)
		}
		if _, statErr := os.Stat(abs); statErr != nil {
			return nil, false, fmt.Errorf("gt_patch %q does not exist: %w", abs, statErr)
		}
		safeGtPatch = abs
	}

	// 2. Record original ref.
	originalRef, err := r.CurrentRef()
	if err != nil {
		return nil, false, fmt.Errorf("recording original ref: %w", err)
	}

	// 3. Checkout target branch if requested.
	if branch != "" {
		if !r.BranchExistsLocally(branch) {
			url := r.ConfiguredOriginURL()
			if url == "" {
				url = remoteURL
			}
			if url == "" {
				return nil, false, fmt.Errorf("branch %q not found locally and no remote URL available", branch)
			}
			if fetchErr := r.Fetch(url, branch+":"+branch); fetchErr != nil {
				if m := prBranchRe.FindStringSubmatch(branch); m != nil {
					refspec := fmt.Sprintf("pull/%s/head:%s", m[1], branch)
					if retryErr := r.Fetch(url, refspec); retryErr != nil {
						return nil, false, fmt.Errorf("fetching branch %q: %w (pr-ref retry also failed: %v)", branch, fetchErr, retryErr)
					}
				} else {
					return nil, false, fmt.Errorf("fetching branch %q: %w", branch, fetchErr)
				}
			}
		}
		if err := r.Checkout(branch); err != nil {
			return nil, false, fmt.Errorf("checking out branch %q: %w", branch, err)
		}
		mutated = true
	}

	// 4. Safety-copy gt_patch before any reset, since the in-repo original
	// may be wiped by step 5.
	if safeGtPatch != "" {
		if isInsideDir(safeGtPatch, repoDir) {
			copyPath, copyErr := copyToTemp(safeGtPatch)
			if copyErr != nil {
				return nil, mutated, fmt.Errorf("safety-copying gt_patch: %w", copyErr)
			}
			defer os.Remove(copyPath)
			safeGtPatch = copyPath
		}
	}

	// 5. Hard reset working tree + index.
	if err := r.ResetHard("HEAD"); err != nil {
		return nil, mutated, fmt.Errorf("resetting working tree: %w", err)
	}
	mutated = true
	if err := r.CleanFD(); err != nil {
		return nil, mutated, fmt.Errorf("cleaning working tree: %w", err)
	}

	// 6. Reverse-apply ground truth, if supplied.
	appliedChanges := false
	if safeGtPatch != "" {
		if err := r.ApplyReverse(safeGtPatch); err != nil {
			return nil, mutated, fmt.Errorf("reverse-applying ground truth patch: %w", err)
		}
		appliedChanges = true
	}

	// 7. Commit the baseline.
	baselineCommit, err := r.HeadCommit("HEAD")
	if err != nil {
		return nil, mutated, fmt.Errorf("resolving HEAD before baseline commit: %w", err)
	}
	preBaselineHead := baselineCommit
	if appliedChanges {
		if changed, hcErr := r.HasChanges(); hcErr == nil && changed {
			if err := r.AddAll(); err != nil {
				return nil, mutated, fmt.Errorf("staging baseline: %w", err)
			}
			commit, err := r.CommitAs(BaselineSentinelMessage, commitAuthorName, commitAuthorEmail, false)
			if err != nil {
				return nil, mutated, fmt.Errorf("committing baseline: %w", err)
			}
			baselineCommit = commit
		}
	}

	payload := tokenPayload{
		SavedRef:        originalRef,
		PreSanitizeHead: preBaselineHead,
	}

	// 8. Sanitize history, if requested.
	if sanitize {
		newHead, backupDir, err := sanitizeHistory(repoDir)
		if err != nil {
			return nil, mutated, fmt.Errorf("sanitizing history: %w", err)
		}
		payload.BackupDir = backupDir
		baselineCommit = newHead
	}

	var token OriginalRefToken
	if sanitize {
		token, err = encodeToken(payload)
		if err != nil {
			return nil, mutated, fmt.Errorf("encoding original-ref token: %w", err)
		}
	} else {
		token = OriginalRefToken(originalRef)
	}

	return &SetupResult{Token: token, BaselineCommit: baselineCommit}, mutated, nil
}

func encodeToken(p tokenPayload) (OriginalRefToken, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return OriginalRefToken(sanitizedTokenPrefix + string(data)), nil
}

// TrustedBackupDir extracts the backup directory carried in token, if any.
// This is the only backup_dir value the rest of the package ever trusts
// outright — it came from the orchestrator's own in-memory token, not from
// anything the agent could have written.
func TrustedBackupDir(token OriginalRefToken) string {
	p, ok := decodeToken(token)
	if !ok {
		return ""
	}
	return p.BackupDir
}

func decodeToken(token OriginalRefToken) (tokenPayload, bool) {
	s := string(token)
	if len(s) < len(sanitizedTokenPrefix) || s[:len(sanitizedTokenPrefix)] != sanitizedTokenPrefix {
		return tokenPayload{}, false
	}
	var p tokenPayload
	if err := json.Unmarshal([]byte(s[len(sanitizedTokenPrefix):]), &p); err != nil {
		return tokenPayload{}, false
	}
	return p, true
}

func isInsideDir(path, dir string) bool {
	dirReal, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	pathReal, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dirReal, pathReal)
	if err != nil {
		return false
	}
	return rel != ".." && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[:2] == ".." && (len(rel) == 2 || rel[2] == filepath.Separator)
}

func copyToTemp(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.CreateTemp("", "gt_patch_safety_copy_*")
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}
