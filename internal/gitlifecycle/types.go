package gitlifecycle

// BaselineSentinelMessage is the exact commit message stamped onto the
// synthetic baseline commit. Restore logic matches against this literal to
// tell a real pre-run commit apart from one the harness created.
const BaselineSentinelMessage = "baseline: pre-patch starting point (auto-generated)"

// BackupDirPrefix names the recognizable prefix every sanitization backup
// directory carries, so a backup path reported by an untrusted sidecar can
// be sanity-checked against it (backup-dir plausibility).
const BackupDirPrefix = "agent_eval_git_bak_"

const commitAuthorName = "agent-eval-harness"
const commitAuthorEmail = "agent-eval-harness@localhost"

// OriginalRefToken is the opaque string the Orchestrator carries between
// SetupStartingPoint and RestoreRepo. It is never persisted inside the
// repo; internally it is the literal prefix below followed by a JSON
// object, but callers must treat it as opaque.
type OriginalRefToken string

const sanitizedTokenPrefix = "__sanitized__:"

type tokenPayload struct {
	SavedRef        string `json:"saved_ref"`
	BackupDir       string `json:"backup_dir"`
	PreSanitizeHead string `json:"pre_sanitize_head"`
}

// SetupResult is returned by SetupStartingPoint.
type SetupResult struct {
	Token          OriginalRefToken
	BaselineCommit string
}

// Sidecar is the JSON object written into (and read back from) a sanitized
// repo. Every field is attacker-controlled once read back — see sanitize()
// and the Gate functions in ignored.go.
type Sidecar struct {
	BackupDir       string           `json:"backup_dir"`
	PreAgentIgnored []string         `json:"pre_agent_ignored"`
	PreAgentModes   map[string]int64 `json:"pre_agent_modes"`
}

// sidecarHintRelPath is the relative path (inside .git) of the file pointing
// at the durable sidecar copy.
const sidecarHintRelPath = "info/sidecar_backup"

// ignoredSnapshotDir is the backup-directory subpath holding content-
// addressed copies of pre-run ignored files.
const ignoredSnapshotDir = "ignored"

// sidecarBackupFile is the backup-directory filename for the durable
// sidecar copy.
const sidecarBackupFile = "sidecar.json"
