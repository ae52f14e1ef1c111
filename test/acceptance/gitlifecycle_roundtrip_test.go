package acceptance_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/patchbench/harness/internal/gitlifecycle"
)

var _ = Describe("setup then restore round trip", func() {
	var tmpDir, repoDir string

	AfterEach(func() {
		cleanupTestRepo(tmpDir)
	})

	It("is the identity on the repository, gt-patch supplied (happy path)", func() {
		tmpDir, repoDir = initGitRepo("harness-roundtrip-")

		writeFile(filepath.Join(repoDir, "a.txt"), "original\n")
		runGit(repoDir, "add", "-A")
		runGit(repoDir, "commit", "-m", "initial")

		writeFile(filepath.Join(repoDir, "a.txt"), "fixed\n")
		runGit(repoDir, "add", "-A")
		runGit(repoDir, "commit", "-m", "the fix")
		fixCommit := runGit(repoDir, "rev-parse", "HEAD")
		fixCommit = trimmed(fixCommit)

		originalRef := trimmed(runGit(repoDir, "rev-parse", "--abbrev-ref", "HEAD"))

		gtPatch := runGit(repoDir, "diff", "HEAD^", "HEAD")
		gtPatchPath := filepath.Join(tmpDir, "gt.patch")
		writeFile(gtPatchPath, gtPatch)

		setup, mutated, err := gitlifecycle.SetupStartingPoint(repoDir, "", gtPatchPath, "", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(mutated).To(BeTrue())

		By("the agent's baseline has the pre-fix content")
		Expect(readFile(filepath.Join(repoDir, "a.txt"))).To(Equal("original\n"))

		trustedBackupDir := gitlifecycle.TrustedBackupDir(setup.Token)
		Expect(trustedBackupDir).NotTo(BeEmpty())

		Expect(gitlifecycle.RestoreRepo(repoDir, setup.Token, setup.BaselineCommit)).To(Succeed())

		By("HEAD points back at the fix commit")
		Expect(trimmed(runGit(repoDir, "rev-parse", "HEAD"))).To(Equal(fixCommit))
		By("the working tree has the post-fix content")
		Expect(readFile(filepath.Join(repoDir, "a.txt"))).To(Equal("fixed\n"))
		By("the original ref is restored")
		Expect(trimmed(runGit(repoDir, "rev-parse", "--abbrev-ref", "HEAD"))).To(Equal(originalRef))
		By("no backup directory is left on disk")
		_, statErr := os.Stat(trustedBackupDir)
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})

	It("carries a plain unprefixed ref token when sanitization is off", func() {
		tmpDir, repoDir = initGitRepo("harness-roundtrip-nosanitize-")

		writeFile(filepath.Join(repoDir, "a.txt"), "hello\n")
		runGit(repoDir, "add", "-A")
		runGit(repoDir, "commit", "-m", "initial")
		beforeCommit := trimmed(runGit(repoDir, "rev-parse", "HEAD"))
		originalRef := trimmed(runGit(repoDir, "rev-parse", "--abbrev-ref", "HEAD"))

		setup, _, err := gitlifecycle.SetupStartingPoint(repoDir, "", "", "", false)
		Expect(err).NotTo(HaveOccurred())

		By("the token is the plain original ref, not a sanitized-JSON payload")
		Expect(string(setup.Token)).To(Equal(originalRef))
		By("no backup directory is trusted for a non-sanitized setup")
		Expect(gitlifecycle.TrustedBackupDir(setup.Token)).To(BeEmpty())

		Expect(gitlifecycle.RestoreRepo(repoDir, setup.Token, setup.BaselineCommit)).To(Succeed())

		Expect(trimmed(runGit(repoDir, "rev-parse", "HEAD"))).To(Equal(beforeCommit))
		Expect(trimmed(runGit(repoDir, "rev-parse", "--abbrev-ref", "HEAD"))).To(Equal(originalRef))
		status := runGit(repoDir, "status", "--porcelain")
		Expect(trimmed(status)).To(BeEmpty())
	})

	It("leaves no diff between start and end for a no-op setup/restore", func() {
		tmpDir, repoDir = initGitRepo("harness-roundtrip-noop-")

		writeFile(filepath.Join(repoDir, "a.txt"), "hello\n")
		runGit(repoDir, "add", "-A")
		runGit(repoDir, "commit", "-m", "initial")
		beforeCommit := trimmed(runGit(repoDir, "rev-parse", "HEAD"))

		setup, _, err := gitlifecycle.SetupStartingPoint(repoDir, "", "", "", true)
		Expect(err).NotTo(HaveOccurred())

		Expect(gitlifecycle.RestoreRepo(repoDir, setup.Token, setup.BaselineCommit)).To(Succeed())

		Expect(trimmed(runGit(repoDir, "rev-parse", "HEAD"))).To(Equal(beforeCommit))
		status := runGit(repoDir, "status", "--porcelain")
		Expect(trimmed(status)).To(BeEmpty())
	})
})

func trimmed(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
