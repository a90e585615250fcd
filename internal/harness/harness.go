package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/urioracle/internal/procdriver"
)

// Harness runs the validation and execution suites against one migration
// tool executable.
type Harness struct {
	cfg    Config
	driver *procdriver.Driver
	logger *slog.Logger
	runID  string
}

// New checks cfg and prepares a harness. Every run gets a fresh UUIDv7 run
// id, attached to each log line.
func New(cfg Config) (*Harness, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid harness config: %w", err)
	}

	runID := uuid.Must(uuid.NewV7()).String()
	logger := cfg.Logger.With("run_id", runID)

	opts := []procdriver.Option{
		procdriver.WithEnv(cfg.ToolEnv...),
		procdriver.WithLogger(logger),
	}
	if cfg.PollInterval > 0 {
		opts = append(opts, procdriver.WithPollInterval(cfg.PollInterval))
	}

	return &Harness{
		cfg:    cfg,
		driver: procdriver.New(cfg.ToolPath, opts...),
		logger: logger,
		runID:  runID,
	}, nil
}

// RunID identifies this harness in logs and reports.
func (h *Harness) RunID() string {
	return h.runID
}

// Run executes the selected suites, input first. Assertion failures are
// recorded in the report and the run continues. An execution fault or
// precondition error stops the run; the partial report is returned with
// the error.
func (h *Harness) Run(ctx context.Context, suites []Suite) (*SuiteReport, error) {
	report := NewSuiteReport(h.runID)

	var input, exec bool
	for _, s := range suites {
		switch s {
		case SuiteInput:
			input = true
		case SuiteExec:
			exec = true
		default:
			return report, fmt.Errorf("unknown suite %q", s)
		}
	}

	if input {
		h.logger.Info("running suite", "suite", SuiteInput)
		if err := h.runInputSuite(ctx, h.validationCases(), report); err != nil {
			return h.abort(report, err)
		}
	}

	if exec {
		if len(h.cfg.Dataset) == 0 {
			return h.abort(report, &ExecutionFault{Err: fmt.Errorf("execution suite needs a non-empty dataset")})
		}
		h.logger.Info("running suite", "suite", SuiteExec)
		if err := h.runExecutionSuite(ctx, h.executionScenarios(), report); err != nil {
			return h.abort(report, err)
		}
	}

	h.logger.Info("run complete", "passed", report.Passed, "failed", report.Failed, "total", report.Total)
	return report, nil
}

func (h *Harness) abort(report *SuiteReport, err error) (*SuiteReport, error) {
	report.Fault = err.Error()
	h.logger.Error("run aborted", "error", err)
	return report, err
}

func (h *Harness) runInputSuite(ctx context.Context, cases []ValidationCase, report *SuiteReport) error {
	for _, vc := range cases {
		res, err := h.runValidationCase(ctx, vc)
		report.Add(res)
		if err != nil {
			return err
		}
	}
	return nil
}

// validationCases is the built-in catalogue followed by input scenarios
// from Config.Scenarios.
func (h *Harness) validationCases() []ValidationCase {
	cases := ValidationCases(h.cfg.BaseArgs)
	for _, s := range h.cfg.Scenarios {
		if s.Suite == ScenarioSuiteInput {
			cases = append(cases, s.ValidationCase())
		}
	}
	return cases
}

func (h *Harness) executionScenarios() []ExecutionScenario {
	scenarios := ExecutionScenarios()
	for _, s := range h.cfg.Scenarios {
		if s.Suite == ScenarioSuiteExec {
			scenarios = append(scenarios, s.ExecutionScenario())
		}
	}
	return scenarios
}
