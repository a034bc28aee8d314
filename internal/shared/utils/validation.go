package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// Length limits
const (
	MaxReferenceLength  = 512
	MaxIdentifierLength = 128
)

// Regular expressions for validation
var (
	// IdentifierPattern allows one module or attribute name segment
	IdentifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$-]*$`)
	// ReferencePattern allows dotted module paths with an optional :attr.chain suffix
	ReferencePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.-]*(:[A-Za-z_$][A-Za-z0-9_$.]*)?$`)
)

// ValidationError describes a rejected value
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ValidateIdentifier checks a single dotted-path segment
func ValidateIdentifier(field, s string) error {
	if s == "" {
		return &ValidationError{Field: field, Value: s, Reason: "empty segment"}
	}
	if len(s) > MaxIdentifierLength {
		return &ValidationError{Field: field, Value: s, Reason: "too long"}
	}
	if !IdentifierPattern.MatchString(s) {
		return &ValidationError{Field: field, Value: s, Reason: "not an identifier"}
	}
	return nil
}

// ValidateReference checks the overall shape of an entry point reference
func ValidateReference(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return &ValidationError{Field: "reference", Value: ref, Reason: "empty"}
	}
	if len(ref) > MaxReferenceLength {
		return &ValidationError{Field: "reference", Value: ref, Reason: "too long"}
	}
	if !ReferencePattern.MatchString(ref) {
		return &ValidationError{Field: "reference", Value: ref, Reason: "expected module.path:attribute"}
	}
	return nil
}

// SplitDotted splits a dotted path and validates every segment
func SplitDotted(field, path string) ([]string, error) {
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if err := ValidateIdentifier(field, p); err != nil {
			return nil, err
		}
	}
	return parts, nil
}
