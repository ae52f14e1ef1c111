package gitlifecycle

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/patchbench/harness/internal/patchutil"
)

// rawSidecar mirrors Sidecar but with untyped fields so unmarshal never
// fails on attacker-supplied garbage; sanitize() converts it to a trusted
// Sidecar.
type rawSidecar struct {
	BackupDir       interface{} `json:"backup_dir"`
	PreAgentIgnored interface{} `json:"pre_agent_ignored"`
	PreAgentModes   interface{} `json:"pre_agent_modes"`
}

// sanitize converts attacker-controlled JSON into a Sidecar with every
// field coerced to its expected shape, dropping anything that doesn't fit
// rather than failing the whole read.
func (raw *rawSidecar) sanitize() *Sidecar {
	s := &Sidecar{PreAgentModes: map[string]int64{}}

	if bd, ok := raw.BackupDir.(string); ok {
		s.BackupDir = bd
	}

	if list, ok := raw.PreAgentIgnored.([]interface{}); ok {
		for _, v := range list {
			if str, ok := v.(string); ok {
				s.PreAgentIgnored = append(s.PreAgentIgnored, str)
			}
		}
	}

	if modes, ok := raw.PreAgentModes.(map[string]interface{}); ok {
		for k, v := range modes {
			switch n := v.(type) {
			case float64:
				if math.IsNaN(n) || math.IsInf(n, 0) {
					continue
				}
				s.PreAgentModes[k] = int64(n)
			case json.Number:
				f, err := n.Float64()
				if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
					continue
				}
				s.PreAgentModes[k] = int64(f)
			}
		}
	}

	return s
}

func parseSidecarBytes(data []byte) (*Sidecar, error) {
	var raw rawSidecar
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw.sanitize(), nil
}

// readSidecar consults sources in strict descending trust:
// (1) the explicit backup_dir's sidecar.json, known in-memory from the
// original-ref token and therefore unspoofable by the agent; (2) the
// .git/info/sidecar_backup hint, which the agent can retarget; (3) the
// in-repo sidecar, which the agent can edit freely.
//
// In every case the returned Sidecar.BackupDir is overwritten with the path
// this function actually resolved the data from (or, for the in-repo
// fallback, only accepted after an explicit plausibility check) — the
// backup_dir field inside the JSON itself is never trusted verbatim, since
// even the durable copy can be edited by an agent that chmods it back to
// writable.
func readSidecar(repoDir string, trustedBackupDir string) (*Sidecar, string) {
	if trustedBackupDir != "" {
		if data, err := os.ReadFile(filepath.Join(trustedBackupDir, sidecarBackupFile)); err == nil {
			if sc, err := parseSidecarBytes(data); err == nil {
				sc.BackupDir = trustedBackupDir
				return sc, trustedBackupDir
			}
		}
	}

	r := NewRepo(repoDir)
	if gitDir, err := resolvedGitDir(r); err == nil {
		hintPath := filepath.Join(gitDir, sidecarHintRelPath)
		if hintBytes, err := os.ReadFile(hintPath); err == nil {
			durablePath := strings.TrimSpace(string(hintBytes))
			if plausibleBackupDir(durablePath) {
				if data, err := os.ReadFile(filepath.Join(durablePath, sidecarBackupFile)); err == nil {
					if sc, err := parseSidecarBytes(data); err == nil {
						sc.BackupDir = durablePath
						return sc, durablePath
					}
				}
			}
		}
	}

	inRepoPath := filepath.Join(repoDir, patchutil.SidecarFileName)
	if data, err := os.ReadFile(inRepoPath); err == nil {
		if sc, err := parseSidecarBytes(data); err == nil {
			if !plausibleBackupDir(sc.BackupDir) {
				sc.BackupDir = ""
				return sc, ""
			}
			return sc, sc.BackupDir
		}
	}

	return nil, ""
}

// resolvedGitDir returns the absolute .git directory for repoDir.
func resolvedGitDir(r *Repo) (string, error) {
	gitDir, err := r.GitDir()
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(r.Dir, gitDir)
	}
	return gitDir, nil
}

// plausibleBackupDir implements the backup-dir plausibility check:
// the path must exist, its basename must carry the known prefix, its
// parent must resolve to the system temp root, and it must contain a .git
// child. An untrusted sidecar can report any path as backup_dir; this is
// the gate that keeps restore from trusting an attacker-chosen directory.
func plausibleBackupDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if !strings.HasPrefix(filepath.Base(path), BackupDirPrefix) {
		return false
	}

	parent := filepath.Dir(path)
	parentReal, err := filepath.EvalSymlinks(parent)
	if err != nil {
		return false
	}
	tempReal, err := filepath.EvalSymlinks(os.TempDir())
	if err != nil {
		tempReal = os.TempDir()
	}
	if parentReal != tempReal {
		return false
	}

	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return false
	}
	return true
}

func writeSidecar(repoDir, backupDir string, ignored []string, modes map[string]int64) (*Sidecar, error) {
	sc := &Sidecar{
		BackupDir:       backupDir,
		PreAgentIgnored: ignored,
		PreAgentModes:   modes,
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(filepath.Join(repoDir, patchutil.SidecarFileName), data, 0o644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(backupDir, sidecarBackupFile), data, 0o644); err != nil {
		return nil, err
	}

	r := NewRepo(repoDir)
	gitDir, err := resolvedGitDir(r)
	if err != nil {
		return nil, err
	}
	hintPath := filepath.Join(gitDir, sidecarHintRelPath)
	if err := os.MkdirAll(filepath.Dir(hintPath), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(hintPath, []byte(backupDir), 0o644); err != nil {
		return nil, err
	}

	return sc, nil
}
