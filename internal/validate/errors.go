package validate

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidPayload is wrapped by every contract violation.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrUnknownDrugID marks a claim that references a drug missing from the catalog.
	ErrUnknownDrugID = errors.New("unknown drug id")
)

// PayloadError describes one contract violation in a model response.
type PayloadError struct {
	Field   string // JSON path, e.g. "claims[1].articles[0]"
	ClaimID string
	DrugID  string
	Reason  string

	kind error
}

func (e *PayloadError) Error() string {
	var b strings.Builder
	b.WriteString("invalid payload")
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.ClaimID != "" {
		b.WriteString(" (claim ")
		b.WriteString(e.ClaimID)
		b.WriteString(")")
	}
	if e.DrugID != "" {
		b.WriteString(" (drug ")
		b.WriteString(e.DrugID)
		b.WriteString(")")
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// Unwrap lets errors.Is match ErrInvalidPayload and, where set, the
// more specific sentinel.
func (e *PayloadError) Unwrap() []error {
	if e.kind != nil {
		return []error{ErrInvalidPayload, e.kind}
	}
	return []error{ErrInvalidPayload}
}
