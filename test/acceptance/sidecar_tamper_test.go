package acceptance_test

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/patchbench/harness/internal/gitlifecycle"
)

// readBackupSidecar reads and unmarshals the backup directory's durable
// sidecar copy as a generic map, ignoring the chmod-0444 lock sanitizeHistory
// applies — an agent running as the same UID can chmod it back, so a
// restore-path defense cannot rely on that lock holding.
func readBackupSidecar(backupDir string) map[string]interface{} {
	path := filepath.Join(backupDir, "sidecar.json")
	ExpectWithOffset(1, os.Chmod(path, 0o644)).To(Succeed())
	var m map[string]interface{}
	ExpectWithOffset(1, json.Unmarshal([]byte(readFile(path)), &m)).To(Succeed())
	return m
}

func writeBackupSidecar(backupDir string, m map[string]interface{}) {
	path := filepath.Join(backupDir, "sidecar.json")
	data, err := json.Marshal(m)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	ExpectWithOffset(1, os.WriteFile(path, data, 0o644)).To(Succeed())
}

var _ = Describe("restore path defenses against a tampered sidecar", func() {
	var tmpDir, repoDir string

	AfterEach(func() {
		cleanupTestRepo(tmpDir)
	})

	It("does not touch an absolute path the attacker adds to pre_agent_ignored", func() {
		tmpDir, repoDir = initGitRepo("harness-sidecar-abs-")

		writeFile(filepath.Join(repoDir, ".gitignore"), ".env\n")
		writeFile(filepath.Join(repoDir, "readme.txt"), "hello\n")
		runGit(repoDir, "add", "-A")
		runGit(repoDir, "commit", "-m", "initial")
		writeFile(filepath.Join(repoDir, ".env"), "SECRET=original")

		externalDir, err := os.MkdirTemp("", "harness-precious-")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(externalDir)
		precious := filepath.Join(externalDir, "precious.txt")
		writeFile(precious, "do not touch")

		setup, _, err := gitlifecycle.SetupStartingPoint(repoDir, "", "", "", true)
		Expect(err).NotTo(HaveOccurred())
		backupDir := gitlifecycle.TrustedBackupDir(setup.Token)

		sc := readBackupSidecar(backupDir)
		sc["pre_agent_ignored"] = []string{".env", precious}
		writeBackupSidecar(backupDir, sc)

		Expect(gitlifecycle.RestoreRepo(repoDir, setup.Token, setup.BaselineCommit)).To(Succeed())

		Expect(readFile(precious)).To(Equal("do not touch"))
		Expect(readFile(filepath.Join(repoDir, ".env"))).To(Equal("SECRET=original"))
	})

	It("does not overwrite a tracked file from a forged ignored-file backup entry", func() {
		tmpDir, repoDir = initGitRepo("harness-sidecar-tracked-")

		writeFile(filepath.Join(repoDir, "tracked.txt"), "tracked content")
		writeFile(filepath.Join(repoDir, ".gitignore"), ".env\n")
		runGit(repoDir, "add", "-A")
		runGit(repoDir, "commit", "-m", "initial")
		writeFile(filepath.Join(repoDir, ".env"), "SECRET=original")

		setup, _, err := gitlifecycle.SetupStartingPoint(repoDir, "", "", "", true)
		Expect(err).NotTo(HaveOccurred())
		backupDir := gitlifecycle.TrustedBackupDir(setup.Token)

		payload := []byte("PAYLOAD")
		sum := sha256.Sum256(payload)
		digest := hex.EncodeToString(sum[:])
		blobPath := filepath.Join(backupDir, "ignored", digest)
		Expect(os.WriteFile(blobPath, payload, 0o644)).To(Succeed())

		indexPath := filepath.Join(backupDir, "ignored", "index.json")
		var index map[string]string
		Expect(json.Unmarshal([]byte(readFile(indexPath)), &index)).To(Succeed())
		index["tracked.txt"] = digest
		data, err := json.Marshal(index)
		Expect(err).NotTo(HaveOccurred())
		Expect(os.WriteFile(indexPath, data, 0o644)).To(Succeed())

		sc := readBackupSidecar(backupDir)
		sc["pre_agent_ignored"] = []string{".env", "tracked.txt"}
		writeBackupSidecar(backupDir, sc)

		Expect(gitlifecycle.ResetToBaseline(repoDir, setup.BaselineCommit, backupDir)).To(Succeed())

		Expect(readFile(filepath.Join(repoDir, "tracked.txt"))).To(Equal("tracked content"))
	})

	It("never writes an ignored file's content through a symlinked parent directory", func() {
		tmpDir, repoDir = initGitRepo("harness-sidecar-symlink-")

		writeFile(filepath.Join(repoDir, ".gitignore"), "config/\n")
		writeFile(filepath.Join(repoDir, "readme.txt"), "hello\n")
		runGit(repoDir, "add", "-A")
		runGit(repoDir, "commit", "-m", "initial")
		writeFile(filepath.Join(repoDir, "config", "settings.ini"), "setting=1")

		setup, _, err := gitlifecycle.SetupStartingPoint(repoDir, "", "", "", true)
		Expect(err).NotTo(HaveOccurred())

		externalDir, err := os.MkdirTemp("", "harness-external-")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(externalDir)

		// Simulate the agent swapping the whole ignored directory for a
		// symlink pointing outside the repository.
		Expect(os.RemoveAll(filepath.Join(repoDir, "config"))).To(Succeed())
		Expect(os.Symlink(externalDir, filepath.Join(repoDir, "config"))).To(Succeed())

		Expect(gitlifecycle.RestoreRepo(repoDir, setup.Token, setup.BaselineCommit)).To(Succeed())

		entries, err := os.ReadDir(externalDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("does not delete a colliding file already present behind a symlinked parent directory", func() {
		tmpDir, repoDir = initGitRepo("harness-sidecar-symlink-collide-")

		writeFile(filepath.Join(repoDir, ".gitignore"), "config/\n")
		writeFile(filepath.Join(repoDir, "readme.txt"), "hello\n")
		runGit(repoDir, "add", "-A")
		runGit(repoDir, "commit", "-m", "initial")
		writeFile(filepath.Join(repoDir, "config", "settings.ini"), "setting=1")

		setup, _, err := gitlifecycle.SetupStartingPoint(repoDir, "", "", "", true)
		Expect(err).NotTo(HaveOccurred())

		externalDir, err := os.MkdirTemp("", "harness-external-collide-")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(externalDir)
		// The external directory already contains a file with the same name
		// as the one being restored, so a naive lstat/remove on the full
		// relpath would delete this file by following the symlinked "config"
		// path component before ever reaching the gate that rejects the write.
		collide := filepath.Join(externalDir, "settings.ini")
		writeFile(collide, "do not delete")

		// Simulate the agent swapping the whole ignored directory for a
		// symlink pointing outside the repository.
		Expect(os.RemoveAll(filepath.Join(repoDir, "config"))).To(Succeed())
		Expect(os.Symlink(externalDir, filepath.Join(repoDir, "config"))).To(Succeed())

		Expect(gitlifecycle.RestoreRepo(repoDir, setup.Token, setup.BaselineCommit)).To(Succeed())

		Expect(readFile(collide)).To(Equal("do not delete"))
	})
})
