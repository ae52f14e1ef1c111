package evaluator

import (
	"fmt"
	"strings"
)

// validate rejects empty or whitespace-only required fields before any
// judge call is made.
func validate(req Request) error {
	checks := []struct {
		name  string
		value string
	}{
		{"api key", req.APIKey},
		{"issue statement", req.IssueStatement},
		{"candidate patch", req.CandidatePatch},
		{"ground truth patch", req.GroundTruthPatch},
	}
	for _, c := range checks {
		if strings.TrimSpace(c.value) == "" {
			return fmt.Errorf("%s must not be empty", c.name)
		}
	}
	return nil
}
