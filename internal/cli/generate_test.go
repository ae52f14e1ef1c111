package cli

import "testing"

func TestProjectNameFromRepoURL(t *testing.T) {
	cases := map[string]string{
		"https://github.com/acme/widgets":     "widgets",
		"https://github.com/acme/widgets.git": "widgets",
		"https://github.com/acme/widgets/":    "widgets",
		"not a url at all":                    "unknown-project",
	}
	for in, want := range cases {
		if got := projectNameFromRepoURL(in); got != want {
			t.Errorf("projectNameFromRepoURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPRNumberFromURL(t *testing.T) {
	if got := prNumberFromURL("https://github.com/acme/widgets/pull/42"); got != "42" {
		t.Fatalf("got %q, want 42", got)
	}
	if got := prNumberFromURL("not a pr url"); got != "0" {
		t.Fatalf("got %q, want fallback 0", got)
	}
}

func TestFilesTouchedBy(t *testing.T) {
	patch := "diff --git a/src/a.go b/src/a.go\n--- a/src/a.go\n+++ b/src/a.go\n" +
		"diff --git a/README.md b/README.md\n--- a/README.md\n+++ b/README.md\n"
	files := filesTouchedBy(patch)
	if len(files) != 2 || files[0] != "src/a.go" || files[1] != "README.md" {
		t.Fatalf("files = %v", files)
	}
}

func TestPromptVariantsEscalateDetail(t *testing.T) {
	variants := promptVariants("https://github.com/acme/widgets", "https://github.com/acme/widgets/pull/1", "diff --git a/x b/x\n")
	if len(variants[0]) >= len(variants[1]) || len(variants[1]) >= len(variants[2]) {
		t.Fatalf("expected strictly increasing detail across variants")
	}
}
