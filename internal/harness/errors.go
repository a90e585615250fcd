package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/urioracle/internal/migspec"
)

// Assertion types reported in AssertionMismatch.Type.
const (
	AssertExitCode     = "exit_code"
	AssertContains     = "stdout_contains"
	AssertForbidden    = "stdout_forbidden"
	AssertReport       = "report"
	AssertTableState   = "table_state"
	AssertMarker       = "marker"
	AssertStoreMatches = "store_matches"
)

// AssertionMismatch is returned when an observed outcome differs from the
// prediction. It aborts the current scenario only.
type AssertionMismatch struct {
	Type     string
	Scenario string
	Phase    Phase
	Args     migspec.Args
	Expected string
	Actual   string

	// Diff is a go-cmp diff (-expected +actual), when one applies.
	Diff string

	Stdout string
	Stderr string
}

// Error implements the error interface. The first line is a one-line
// summary; the rest is diagnostic detail.
func (e *AssertionMismatch) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Phase != "" {
		fmt.Fprintf(&buf, " (%s)", e.Phase)
	}
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Args) > 0 {
		fmt.Fprintf(&buf, "  Args: %s\n", e.Args)
	}

	if e.Diff != "" {
		fmt.Fprintf(&buf, "\nDiff (-expected +actual):\n%s", e.Diff)
	}

	if e.Stdout != "" {
		fmt.Fprintf(&buf, "\nStdout:\n%s", e.Stdout)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&buf, "\nStderr:\n%s", e.Stderr)
	}

	return buf.String()
}

// ExecutionFault means the harness could not do its job: the tool failed to
// launch or the store failed. It aborts the whole run.
type ExecutionFault struct {
	Scenario string
	Phase    Phase
	Err      error
}

func (e *ExecutionFault) Error() string {
	if e.Scenario == "" {
		return fmt.Sprintf("execution fault: %v", e.Err)
	}
	return fmt.Sprintf("execution fault in %s (%s): %v", e.Scenario, e.Phase, e.Err)
}

func (e *ExecutionFault) Unwrap() error {
	return e.Err
}

// PreconditionError means the store was not safe to use: a table the suite
// would create already exists. Nothing has been modified.
type PreconditionError struct {
	Table string
	Err   error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("table %s already exists; tests will be run against this table so use a database where %s does not exist",
		e.Table, e.Table)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// IsAssertionMismatch reports whether err is an AssertionMismatch.
func IsAssertionMismatch(err error) bool {
	var am *AssertionMismatch
	return errors.As(err, &am)
}

// IsExecutionFault reports whether err is an ExecutionFault.
func IsExecutionFault(err error) bool {
	var ef *ExecutionFault
	return errors.As(err, &ef)
}

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
