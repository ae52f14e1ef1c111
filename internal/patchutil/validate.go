// Package patchutil holds the stateless operations on unified diffs that
// the git lifecycle manager depends on: well-formedness validation,
// working-tree-to-diff extraction, internal-file stripping, and prompt
// sanitization. None of it touches a git repository directly except
// GetPatch, which shells out to git the same way internal/gitlifecycle
// does.
package patchutil

import (
	"regexp"
	"strings"
)

const diffGitPrefix = "diff --git "

var hunkHeaderRe = regexp.MustCompile(`^@@ -\d+(,\d+)? \+\d+(,\d+)? @@`)

// ValidateResult is the outcome of ValidatePatch: Ok is true iff every block
// in the patch is well-formed; Reason explains the first failure.
type ValidateResult struct {
	Ok     bool
	Reason string
}

func invalid(reason string) ValidateResult { return ValidateResult{Ok: false, Reason: reason} }

var valid = ValidateResult{Ok: true}

// ValidatePatch checks that text is a well-formed unified diff made up of
// one or more per-file blocks, each either metadata-only (rename, mode
// change, binary) or containing at least one well-formed hunk.
func ValidatePatch(text string) ValidateResult {
	if strings.TrimSpace(text) == "" {
		return invalid("empty patch")
	}

	blocks := splitBlocks(text)
	if len(blocks) == 0 {
		return invalid("no 'diff --git' header found")
	}

	for i, block := range blocks {
		if res := validateBlock(block); !res.Ok {
			return invalid(indexedReason(i, res.Reason))
		}
	}

	return valid
}

func indexedReason(i int, reason string) string {
	return "block " + itoa(i) + ": " + reason
}

// itoa avoids importing strconv for a single call site used only in error
// strings.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// splitBlocks splits text into per-file blocks at each line beginning with
// "diff --git ", keeping that header line as part of the following block.
func splitBlocks(text string) []string {
	lines := strings.Split(text, "\n")
	var blocks []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range lines {
		if strings.HasPrefix(line, diffGitPrefix) {
			flush()
		}
		if len(current) == 0 && !strings.HasPrefix(line, diffGitPrefix) {
			// Content before the first header — ignore (e.g. leading blank
			// lines); it never starts a block of its own.
			continue
		}
		current = append(current, line)
	}
	flush()

	return blocks
}

func validateBlock(block string) ValidateResult {
	lines := strings.Split(block, "\n")

	hasRenameFrom, hasRenameTo := false, false
	hasOldMode, hasNewMode := false, false
	hasBinary := false
	hasMinus, hasPlus, hasHunk, hasHunkContent := false, false, false, false
	inHunk := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "rename from "):
			hasRenameFrom = true
		case strings.HasPrefix(line, "rename to "):
			hasRenameTo = true
		case strings.HasPrefix(line, "old mode "):
			hasOldMode = true
		case strings.HasPrefix(line, "new mode "):
			hasNewMode = true
		case strings.HasPrefix(line, "Binary files "):
			hasBinary = true
		}

		switch {
		case strings.HasPrefix(line, diffGitPrefix),
			strings.HasPrefix(line, "--- "),
			strings.HasPrefix(line, "+++ "),
			strings.HasPrefix(line, "index "),
			strings.HasPrefix(line, "new file"),
			strings.HasPrefix(line, "deleted file"):
			inHunk = false
		}

		if strings.HasPrefix(line, "--- ") {
			hasMinus = true
		}
		if strings.HasPrefix(line, "+++ ") {
			hasPlus = true
		}

		if hunkHeaderRe.MatchString(line) {
			hasHunk = true
			inHunk = true
			continue
		}

		if inHunk && len(line) > 0 {
			switch line[0] {
			case ' ', '+', '-', '\\':
				hasHunkContent = true
			}
		}
	}

	isRename := hasRenameFrom && hasRenameTo
	isModeChange := hasOldMode && hasNewMode
	isMetadataOnly := (isRename || isModeChange || hasBinary) && !hasHunk

	if isMetadataOnly {
		return valid
	}

	if !hasMinus {
		return invalid("missing '--- ' line")
	}
	if !hasPlus {
		return invalid("missing '+++ ' line")
	}
	if !hasHunk {
		return invalid("missing hunk header")
	}
	if !hasHunkContent {
		return invalid("hunk has no content lines")
	}

	return valid
}
