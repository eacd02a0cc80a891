package profile

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a profile name is not in the store.
var ErrNotFound = errors.New("profile not found")

// ValidationError reports a profile whose rules cannot be used. The whole
// profile is rejected.
type ValidationError struct {
	Profile string
	Source  string
	Rule    int // 1-based; 0 when no single rule is at fault
	Pattern string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Rule == 0 {
		return fmt.Sprintf("profile %q (%s): %v", e.Profile, e.Source, e.Err)
	}
	return fmt.Sprintf("profile %q (%s): rule %d %q: %v", e.Profile, e.Source, e.Rule, e.Pattern, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// SourceParseError reports a profile source file that could not be parsed.
// Only that source is skipped.
type SourceParseError struct {
	Source string
	Err    error
}

func (e *SourceParseError) Error() string {
	return fmt.Sprintf("profile source %s: %v", e.Source, e.Err)
}

func (e *SourceParseError) Unwrap() error { return e.Err }

// RuleError reports a rule that failed while being applied. The rule is
// skipped for that call; the other rules still run.
type RuleError struct {
	Profile string
	Rule    int
	Pattern string
	Err     error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("profile %q: rule %d %q skipped: %v", e.Profile, e.Rule, e.Pattern, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }
