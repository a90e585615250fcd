package harness

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/store"
)

// Tool exit codes.
const (
	ExitSuccess       = 0
	ExitClientFailure = 25
	ExitBadArgs       = 50
	ExitNoChange      = 75
	ExitDryRun        = 100
)

const (
	// DefaultMarker is the stdout fragment at which failure injection kills
	// the tool. It is matched case-insensitively.
	DefaultMarker = "writing migration results"

	// DefaultStagingTable is the scratch table the tool leaves behind when
	// interrupted.
	DefaultStagingTable = "locationupdate"
)

// Suite names a group of scenarios.
type Suite string

const (
	SuiteInput Suite = "InputTests"
	SuiteExec  Suite = "ExecTests"
)

// ParseSuites parses a comma-separated suite list. "All" selects both.
// Suites always run input first regardless of order given.
func ParseSuites(raw string) ([]Suite, error) {
	var input, exec bool
	for _, part := range strings.Split(raw, ",") {
		switch strings.TrimSpace(part) {
		case "All", "all":
			input, exec = true, true
		case string(SuiteInput):
			input = true
		case string(SuiteExec):
			exec = true
		case "":
		default:
			return nil, fmt.Errorf("unknown suite %q: must be %s, %s or All", part, SuiteInput, SuiteExec)
		}
	}

	var out []Suite
	if input {
		out = append(out, SuiteInput)
	}
	if exec {
		out = append(out, SuiteExec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no suites selected")
	}
	return out, nil
}

// Phase is a step of the execution state machine.
type Phase string

const (
	PhaseInit           Phase = "INIT"
	PhaseSeed           Phase = "SEED"
	PhaseDryRun         Phase = "DRY_RUN"
	PhaseVerifyNoChange Phase = "VERIFY_NO_CHANGE"
	PhaseLiveRun        Phase = "LIVE_RUN"
	PhaseVerifyChange   Phase = "VERIFY_CHANGE"
	PhaseCleanup        Phase = "CLEANUP"
)

// Kind selects how an execution scenario drives the tool.
type Kind string

const (
	// KindMigration is a dry run followed by a live run.
	KindMigration Kind = "migration"
	// KindIdempotent repeats the migration against its own output.
	KindIdempotent Kind = "idempotent"
	// KindKill interrupts a live run at the marker line.
	KindKill Kind = "kill"
	// KindNoop expects the tool to refuse to act.
	KindNoop Kind = "noop"
)

// Kinds returns every scenario kind.
func Kinds() []Kind {
	return []Kind{KindMigration, KindIdempotent, KindKill, KindNoop}
}

// Config is everything a harness run needs.
type Config struct {
	// ToolPath is the migration tool executable.
	ToolPath string
	// ToolEnv is appended to the tool's inherited environment.
	ToolEnv []string

	// BaseArgs are the mandatory defaults every scenario starts from.
	BaseArgs migspec.Args
	// Dataset is seeded into every metastore table.
	Dataset migspec.Dataset

	// Store is how the oracle reaches the metastore. Non-empty Server,
	// Database, User and Password are also passed to the tool.
	Store store.Config

	// Cleanup drops the metastore tables when the execution suite ends.
	Cleanup bool

	// PollInterval bounds marker detection latency in kill scenarios.
	PollInterval time.Duration
	// Marker defaults to DefaultMarker.
	Marker string
	// StagingTable defaults to DefaultStagingTable.
	StagingTable string

	// Scenarios are appended to the built-in catalogues.
	Scenarios []*Scenario

	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.Marker == "" {
		c.Marker = DefaultMarker
	}
	if c.StagingTable == "" {
		c.StagingTable = DefaultStagingTable
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

func (c *Config) validate() error {
	if c.ToolPath == "" {
		return fmt.Errorf("tool path is required")
	}
	if len(c.BaseArgs) == 0 {
		return fmt.Errorf("base arguments are required")
	}
	return nil
}

// Result is the outcome of one scenario.
type Result struct {
	Name  string `json:"name"`
	Suite Suite  `json:"suite"`

	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Phase is the last phase reached. Empty for validation cases.
	Phase Phase `json:"phase,omitempty"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Duration time.Duration `json:"-"`
}

// NewResult creates a new passing result.
func NewResult(name string, suite Suite) *Result {
	return &Result{
		Name:   name,
		Suite:  suite,
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// SuiteReport aggregates the results of a harness run.
type SuiteReport struct {
	RunID   string    `json:"run_id"`
	Results []*Result `json:"scenarios"`
	Passed  int       `json:"passed"`
	Failed  int       `json:"failed"`
	Total   int       `json:"total"`

	// Fault is set when an execution fault or precondition error aborted
	// the run.
	Fault string `json:"fault,omitempty"`
}

// NewSuiteReport creates an empty report.
func NewSuiteReport(runID string) *SuiteReport {
	return &SuiteReport{RunID: runID, Results: []*Result{}}
}

// Add records a finished scenario.
func (r *SuiteReport) Add(res *Result) {
	r.Results = append(r.Results, res)
	r.Total++
	if res.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// OK reports whether every scenario passed and nothing aborted the run.
func (r *SuiteReport) OK() bool {
	return r.Failed == 0 && r.Fault == ""
}

// WriteText prints one line per scenario and a summary. With verbose set,
// failure diagnostics are included.
func (r *SuiteReport) WriteText(w io.Writer, verbose bool) {
	for _, res := range r.Results {
		if res.Pass {
			fmt.Fprintf(w, "✓ %s/%s\n", res.Suite, res.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s/%s\n", res.Suite, res.Name)
		for _, e := range res.Errors {
			if !verbose {
				e, _, _ = strings.Cut(e, "\n")
			}
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	if r.Fault != "" {
		fmt.Fprintf(w, "\nRun aborted: %s\n", r.Fault)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
}
