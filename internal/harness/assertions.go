package harness

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/procdriver"
	"github.com/roach88/urioracle/internal/refmodel"
)

// invocation is one completed tool run together with what is needed to
// explain a failed assertion about it.
type invocation struct {
	scenario string
	phase    Phase
	args     migspec.Args
	result   procdriver.Result
}

func (inv invocation) mismatch(typ, expected, actual string) *AssertionMismatch {
	return &AssertionMismatch{
		Type:     typ,
		Scenario: inv.scenario,
		Phase:    inv.phase,
		Args:     inv.args,
		Expected: expected,
		Actual:   actual,
		Stdout:   inv.result.Stdout,
		Stderr:   inv.result.Stderr,
	}
}

// assertExitCode checks the tool's exit status.
func (inv invocation) assertExitCode(want int) error {
	if inv.result.ExitCode == want {
		return nil
	}
	return inv.mismatch(AssertExitCode,
		fmt.Sprintf("exit code %d", want),
		fmt.Sprintf("exit code %d", inv.result.ExitCode))
}

// assertContains checks that every fragment appears in stdout.
func (inv invocation) assertContains(fragments ...string) error {
	for _, frag := range fragments {
		if !strings.Contains(inv.result.Stdout, frag) {
			return inv.mismatch(AssertContains,
				fmt.Sprintf("stdout containing %q", frag),
				"not found in stdout")
		}
	}
	return nil
}

// assertForbidden checks that no fragment appears in stdout.
func (inv invocation) assertForbidden(fragments ...string) error {
	for _, frag := range fragments {
		if strings.Contains(inv.result.Stdout, frag) {
			return inv.mismatch(AssertForbidden,
				fmt.Sprintf("stdout without %q", frag),
				"found in stdout")
		}
	}
	return nil
}

// assertReport checks that the record lines in stdout are exactly the
// predicted records. Progress lines are ignored and the comparison is on
// the canonical, id-ordered rendering.
func (inv invocation) assertReport(prediction []refmodel.MatchRecord) error {
	want := refmodel.Report(prediction)
	got := refmodel.Report(refmodel.ParseReport(inv.result.Stdout))
	if want == got {
		return nil
	}

	m := inv.mismatch(AssertReport,
		fmt.Sprintf("%d report record(s)", len(prediction)),
		fmt.Sprintf("%d report record(s)", len(refmodel.ParseReport(inv.result.Stdout))))
	m.Diff = cmp.Diff(reportLines(want), reportLines(got))
	return m
}

func reportLines(report string) []string {
	if report == "" {
		return []string{}
	}
	return strings.Split(report, "\n")
}

// assertTable checks that a table holds exactly want, in any order.
func (inv invocation) assertTable(table string, want, got []string) error {
	diff := cmp.Diff(want, got, cmpopts.SortSlices(func(a, b string) bool { return a < b }), cmpopts.EquateEmpty())
	if diff == "" {
		return nil
	}

	m := inv.mismatch(AssertTableState,
		fmt.Sprintf("table %s with %d expected row(s)", table, len(want)),
		fmt.Sprintf("table %s with %d row(s), differing", table, len(got)))
	m.Diff = diff
	return m
}
