package harness

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/storageuri"
)

// Messages the tool prints. Cases assert on these fragments.
const (
	MsgMandatoryMissing   = "At least one mandatory argument missing"
	MsgArgMissingFmt      = "%s missing from command line arguments."
	MsgInvalidEntryFmt    = "%s is not a valid entry for --%s"
	MsgAccountSrcMissing  = "Account types other than ADL set but AccountSrc missing from command line arguments."
	MsgADLAccountsMissing = "ADL cannot be specified as a source type without also specifying ADL account names to be moved"
	MsgADLSourceCloudFmt  = "Cannot include Azure Data Lake as a source type when working in non-default cloud: %s"
	MsgADLTargetCloudFmt  = "Cannot include Azure Data Lake as the target type when working in non-default cloud: %s"
	MsgAccountDestNoType  = "Destination account cannot be specified without destination account type"
	MsgTooManyEntries     = "Too many entries specified"
	MsgUnsupportedFlagFmt = "%s is an unsupported flag."
	MsgNoDestination      = "No destination attributes set. Nothing to do."
)

// ValidationCase is one input-validation check: a single tool invocation
// and assertions on its exit code and stdout. No store is involved.
type ValidationCase struct {
	Name string

	// NoArgs runs the tool with no arguments at all.
	NoArgs bool

	Overrides migspec.Args
	Deletions []string

	ExpectedExit int
	Contains     []string
	Forbidden    []string
}

// args renders the invocation arguments from base.
func (vc ValidationCase) args(base migspec.Args) migspec.Args {
	if vc.NoArgs {
		return migspec.Args{}
	}
	return base.With(vc.Overrides).Delete(vc.Deletions...)
}

// ValidationCases returns the built-in input-validation catalogue for the
// given base arguments.
func ValidationCases(base migspec.Args) []ValidationCase {
	var cases []ValidationCase

	cases = append(cases, ValidationCase{
		Name:         "no-arguments",
		NoArgs:       true,
		ExpectedExit: ExitBadArgs,
		Contains:     []string{MsgMandatoryMissing},
	})

	cases = append(cases, missingArgCases(base)...)
	cases = append(cases, invalidValueCases()...)
	cases = append(cases, invalidCombinationCases()...)
	cases = append(cases, tooManyEntriesCases()...)

	cases = append(cases,
		ValidationCase{
			Name:         "unsupported-flag",
			Overrides:    migspec.Pairs("--unsupportedTest", "argument"),
			ExpectedExit: ExitBadArgs,
			Contains:     []string{fmt.Sprintf(MsgUnsupportedFlagFmt, "unsupportedTest")},
		},
		ValidationCase{
			Name:         "no-destination",
			ExpectedExit: ExitNoChange,
			Contains:     []string{MsgNoDestination},
		},
	)

	return cases
}

// missingArgCases drops each base argument in turn. The tool must name the
// missing argument and no other.
func missingArgCases(base migspec.Args) []ValidationCase {
	var cases []ValidationCase
	for _, arg := range base {
		missing := displayName(arg.Flag)

		var forbidden []string
		for _, other := range base {
			if d := displayName(other.Flag); d != missing {
				forbidden = append(forbidden, fmt.Sprintf(MsgArgMissingFmt, d))
			}
		}

		cases = append(cases, ValidationCase{
			Name:         "missing-" + arg.Flag,
			Deletions:    []string{arg.Flag},
			ExpectedExit: ExitBadArgs,
			Contains:     []string{fmt.Sprintf(MsgArgMissingFmt, missing)},
			Forbidden:    forbidden,
		})
	}
	return cases
}

func displayName(flag string) string {
	if f, ok := migspec.LookupField(flag); ok {
		return f.DisplayName()
	}
	return flag
}

func invalidValueCases() []ValidationCase {
	invalid := []migspec.Arg{
		{Flag: migspec.FieldTarget.Flag(), Value: "invalidtarget"},
		{Flag: migspec.FieldEnvironment.Flag(), Value: "invalidenv"},
		{Flag: migspec.FieldTypeSrc.Flag(), Value: "invalidstoragetypesrc"},
		{Flag: migspec.FieldTypeDest.Flag(), Value: "invalidstoragetypedest"},
		{Flag: migspec.FieldQueryClient.Flag(), Value: "invalidqueryclient"},
	}

	cases := make([]ValidationCase, 0, len(invalid))
	for _, arg := range invalid {
		cases = append(cases, ValidationCase{
			Name:         "invalid-" + arg.Flag,
			Overrides:    migspec.Args{arg},
			ExpectedExit: ExitBadArgs,
			Contains:     []string{fmt.Sprintf(MsgInvalidEntryFmt, arg.Value, arg.Flag)},
		})
	}
	return cases
}

func invalidCombinationCases() []ValidationCase {
	cases := []ValidationCase{
		{
			Name:         "non-adl-source-without-accountsrc",
			Overrides:    migspec.Pairs("typesrc", "wasb"),
			Deletions:    []string{"accountsrc"},
			ExpectedExit: ExitBadArgs,
			Contains:     []string{MsgAccountSrcMissing},
		},
		{
			Name:         "adl-source-without-adlaccounts",
			Overrides:    migspec.Pairs("typesrc", "adl"),
			Deletions:    []string{"adlaccounts"},
			ExpectedExit: ExitBadArgs,
			Contains:     []string{MsgADLAccountsMissing},
		},
	}

	for _, cloud := range storageuri.Clouds() {
		if cloud.IsDefault() {
			continue
		}
		cases = append(cases, ValidationCase{
			Name:         "adl-source-in-" + cloud.Name,
			Overrides:    migspec.Pairs("typesrc", "adl", "adlaccounts", "foo", "environment", cloud.Name),
			ExpectedExit: ExitBadArgs,
			Contains:     []string{fmt.Sprintf(MsgADLSourceCloudFmt, cloud.Name)},
		})
	}
	for _, cloud := range storageuri.Clouds() {
		if cloud.IsDefault() {
			continue
		}
		cases = append(cases, ValidationCase{
			Name:         "adl-target-in-" + cloud.Name,
			Overrides:    migspec.Pairs("typedest", "adl", "environment", cloud.Name),
			ExpectedExit: ExitBadArgs,
			Contains:     []string{fmt.Sprintf(MsgADLTargetCloudFmt, cloud.Name)},
		})
	}

	cases = append(cases, ValidationCase{
		Name:         "accountdest-without-typedest",
		Overrides:    migspec.Pairs("accountdest", "foo"),
		Deletions:    []string{"typedest"},
		ExpectedExit: ExitBadArgs,
		Contains:     []string{MsgAccountDestNoType},
	})

	return cases
}

// tooManyEntriesCases puts one entry over the limit into each source list
// while the other lists are wildcards.
func tooManyEntriesCases() []ValidationCase {
	lists := []string{"accountsrc", "adlaccounts", "containersrc", "pathsrc"}

	entries := make([]string, migspec.MaxSelectorEntries+1)
	for i := range entries {
		entries[i] = strconv.Itoa(i)
	}
	oversized := strings.Join(entries, ",")

	cases := make([]ValidationCase, 0, len(lists))
	for _, list := range lists {
		overrides := migspec.Pairs("typesrc", "wasb,adl", list, oversized)
		for _, other := range lists {
			if other != list {
				overrides = overrides.Set(other, migspec.Wildcard)
			}
		}
		cases = append(cases, ValidationCase{
			Name:         "too-many-" + list,
			Overrides:    overrides,
			ExpectedExit: ExitBadArgs,
			Contains:     []string{MsgTooManyEntries},
		})
	}
	return cases
}

// runValidationCase invokes the tool once. The returned error is non-nil
// only for an execution fault; assertion failures are recorded on the
// result.
func (h *Harness) runValidationCase(ctx context.Context, vc ValidationCase) (*Result, error) {
	res := NewResult(vc.Name, SuiteInput)
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	args := vc.args(h.cfg.BaseArgs)
	h.logger.Debug("validation case", "name", vc.Name, "args", args.String())

	out, err := h.driver.Run(ctx, args)
	if err != nil {
		fault := &ExecutionFault{Scenario: vc.Name, Err: err}
		res.AddError(fault.Error())
		return res, fault
	}

	inv := invocation{scenario: vc.Name, args: args, result: out}
	for _, check := range []func() error{
		func() error { return inv.assertExitCode(vc.ExpectedExit) },
		func() error { return inv.assertContains(vc.Contains...) },
		func() error { return inv.assertForbidden(vc.Forbidden...) },
	} {
		if err := check(); err != nil {
			res.AddError(err.Error())
			h.logger.Warn("validation case failed", "name", vc.Name, "error", firstLine(err.Error()))
			break
		}
	}
	return res, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
