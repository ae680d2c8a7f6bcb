package versionstore

import (
	"fmt"
	"strings"
)

// ValidationIssue names one dangling cross-reference or malformed field,
// with the payload field path it was found at.
type ValidationIssue struct {
	Field  string
	Reason string
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Reason)
}

// ValidationError rejects a payload before any version is created. It
// carries every issue found so the caller can fix them in one pass.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "payload validation failed: " + e.Issues[0].String()
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("payload validation failed (%d issues): %s",
		len(e.Issues), strings.Join(parts, "; "))
}

// MergePatchError reports a malformed patch document during fork
type MergePatchError struct {
	Reason string
}

func (e *MergePatchError) Error() string {
	return "merge patch rejected: " + e.Reason
}
