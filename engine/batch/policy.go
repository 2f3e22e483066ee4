package batch

import (
	"fmt"
	"strings"
)

// Policy decides what a failed input does to the rest of the run.
type Policy int

const (
	// PolicyAbort stops the run at the first failing input.
	PolicyAbort Policy = iota
	// PolicyContinue leaves the failing input in place and moves on.
	PolicyContinue
)

func (p Policy) String() string {
	switch p {
	case PolicyContinue:
		return "continue"
	default:
		return "abort"
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return PolicyAbort, nil
	case "continue":
		return PolicyContinue, nil
	default:
		return PolicyAbort, fmt.Errorf("on_error must be %q or %q, got %q", PolicyAbort, PolicyContinue, s)
	}
}
