package harness

import (
	"errors"
	"fmt"
	"strings"
)

// AssertionError is returned when an expectation fails.
type AssertionError struct {
	Check    string // Expectation name, e.g. "divergent"
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// Check evaluates a scenario's expectations against its result and returns
// every failure joined, or nil.
func Check(expect Expect, result *Result) error {
	var errs []error

	if expect.ErrorContains != "" {
		if err := checkError(expect.ErrorContains, result); err != nil {
			errs = append(errs, err)
		}
	} else if result.Failed() {
		errs = append(errs, &AssertionError{
			Check:    "audit",
			Expected: "audit succeeds",
			Actual:   result.ErrText,
		})
	}

	if len(expect.Divergent) > 0 {
		got := result.Actions()
		if !equalStrings(expect.Divergent, got) {
			errs = append(errs, &AssertionError{
				Check:    "divergent",
				Expected: fmt.Sprintf("%q", expect.Divergent),
				Actual:   fmt.Sprintf("%q", got),
			})
		}
	}

	if expect.Deterministic && len(result.Divergences) > 0 {
		errs = append(errs, &AssertionError{
			Check:    "deterministic",
			Expected: "no non-deterministic actions",
			Actual:   fmt.Sprintf("%q", result.Actions()),
		})
	}

	if expect.Summary != nil && *expect.Summary != result.Summary {
		errs = append(errs, &AssertionError{
			Check:    "summary",
			Expected: fmt.Sprintf("%+v", *expect.Summary),
			Actual:   fmt.Sprintf("%+v", result.Summary),
		})
	}

	return errors.Join(errs...)
}

func checkError(want string, result *Result) error {
	if !result.Failed() {
		return &AssertionError{
			Check:    "error_contains",
			Expected: fmt.Sprintf("audit fails with %q", want),
			Actual:   "audit succeeded",
		}
	}
	if !strings.Contains(result.ErrText, want) {
		return &AssertionError{
			Check:    "error_contains",
			Expected: fmt.Sprintf("error containing %q", want),
			Actual:   result.ErrText,
		}
	}
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
