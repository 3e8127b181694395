package writer

import (
	"fmt"
	"strings"

	"github.com/fillkit/mcp-pdf-formfill/internal/formfill/validate"
)

// InvalidAssignment describes one assignment that failed pre-validation.
type InvalidAssignment struct {
	Index   int    `json:"index"`
	FieldID string `json:"field_id"`
	Page    int    `json:"page"`
	Reason  string `json:"reason"`
}

// AssignmentError aggregates every invalid assignment found before a native
// commit. When it is returned, nothing has been written: the commit is
// all-or-nothing so one revision round can fix the whole batch.
type AssignmentError struct {
	Invalid []InvalidAssignment
}

func (e *AssignmentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d invalid assignment(s):", len(e.Invalid))
	for _, inv := range e.Invalid {
		fmt.Fprintf(&b, "\n  [%d] %s (page %d): %s", inv.Index, inv.FieldID, inv.Page, inv.Reason)
	}
	return b.String()
}

// NotValidatedError is returned by the visual writer when the spec set it
// was handed still carries geometric violations. Specs are mutable up to the
// write, so the writer re-checks rather than trusting the caller.
type NotValidatedError struct {
	Violations []validate.Violation
}

func (e *NotValidatedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "spec set not validated: %d violation(s):", len(e.Violations))
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\n  %s", v)
	}
	return b.String()
}
