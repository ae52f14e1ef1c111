package patchutil

import "regexp"

// repoLinkBlockRe matches a "**Repo Link:** [url](url)" markdown block.
var repoLinkBlockRe = regexp.MustCompile(`(?m)^\*\*Repo Link:\*\*\s*\[[^\]]*\]\([^)]*\)\s*$\n?`)

// hostedGitURLRe matches any http(s) URL whose host contains one of the
// known git-forge domains, case-insensitively.
var hostedGitURLRe = regexp.MustCompile(`(?i)https?://[^\s)]*(github\.com|gitee\.com|gitlab\.com)[^\s)]*`)

// threeOrMoreNewlinesRe collapses runs of three or more newlines to two,
// i.e. at most one blank line between paragraphs.
var threeOrMoreNewlinesRe = regexp.MustCompile(`\n{3,}`)

// SanitizePrompt removes every "**Repo Link:** [url](url)" line, then
// redacts any remaining URL hosted on a known git forge, then collapses
// excess blank lines. It is idempotent: SanitizePrompt(SanitizePrompt(s))
// == SanitizePrompt(s).
func SanitizePrompt(text string) string {
	text = repoLinkBlockRe.ReplaceAllString(text, "")
	text = hostedGitURLRe.ReplaceAllString(text, "[REDACTED]")
	text = threeOrMoreNewlinesRe.ReplaceAllString(text, "\n\n")
	return text
}
