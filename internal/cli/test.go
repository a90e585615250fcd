package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/urioracle/internal/harness"
	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/procdriver"
	"github.com/roach88/urioracle/internal/store"
)

// Default locations and settings for the test command.
const (
	DefaultFixturesDir = "test-resources"
	DefaultSuites      = "All"
)

// TestOptions holds the resolved settings of the test command.
type TestOptions struct {
	*RootOptions

	Tool         string
	ToolEnv      []string
	Suites       []harness.Suite
	FixturesDir  string
	ScenariosDir string
	Store        store.Config
	Cleanup      bool
	PollInterval time.Duration
	Marker       string
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the validation and execution suites against a migration tool",
		Long: `Run the oracle's test suites against a storage-URI migration tool.

InputTests invokes the tool with invalid arguments and checks its exit code
and messages. ExecTests seeds the metastore tables (FUNC_RU, DBS, SDS,
SKEWED_COL_VALUE_LOC_MAP), runs the tool dry and live, and checks its report
and the tables against the reference model. The execution suite refuses to
start if any of those tables already exists.

Every flag can also be set as URIORACLE_<FLAG> in the environment or as a key
in the --config file.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error or aborted run (tool not found, store failure, tables exist)

Examples:
  urioracle test --tool ./migrate --suites InputTests
  urioracle test --tool ./migrate --suites All --database ./metastore.db --cleanup
  urioracle test --tool ./migrate --driver pgx --server db:5432 --database hive \
      --user hive --password secret --scenarios ./scenarios --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			opts, err := resolveTestOptions(rootOpts, cmd, formatter)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTests(ctx, opts, cmd, formatter)
		},
	}

	f := cmd.Flags()
	f.String("tool", "", "migration tool executable (required)")
	f.StringSlice("tool-env", nil, "extra KEY=VALUE environment for the tool")
	f.String("suites", DefaultSuites, "InputTests, ExecTests or All")
	f.String("fixtures", DefaultFixturesDir, "directory holding "+migspec.BaseArgsFile+" and "+migspec.DatasetFile)
	f.String("scenarios", "", "directory of extra YAML scenarios")
	f.String("driver", store.DriverSQLite, fmt.Sprintf("metastore driver %v", store.Drivers()))
	f.String("server", "", "metastore server, host or host:port")
	f.String("database", "", "metastore database name (file path for sqlite3)")
	f.String("user", "", "metastore user")
	f.String("password", "", "metastore password")
	f.String("dsn", "", "full driver DSN, overriding the connection fields")
	f.Bool("cleanup", false, "drop the metastore tables when the execution suite ends")
	f.Duration("poll-interval", procdriver.DefaultPollInterval, "marker polling interval for failure injection")
	f.String("marker", harness.DefaultMarker, "stdout fragment at which failure injection kills the tool")

	return cmd
}

// resolveTestOptions merges flags, environment and config file.
func resolveTestOptions(rootOpts *RootOptions, cmd *cobra.Command, formatter *OutputFormatter) (*TestOptions, error) {
	v := rootOpts.Config()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, commandError(formatter, "E_CONFIG", "binding flags", err)
	}

	opts := &TestOptions{
		RootOptions:  rootOpts,
		Tool:         v.GetString("tool"),
		ToolEnv:      v.GetStringSlice("tool-env"),
		FixturesDir:  v.GetString("fixtures"),
		ScenariosDir: v.GetString("scenarios"),
		Store: store.Config{
			Driver:   v.GetString("driver"),
			Server:   v.GetString("server"),
			Database: v.GetString("database"),
			User:     v.GetString("user"),
			Password: v.GetString("password"),
			DSN:      v.GetString("dsn"),
		},
		Cleanup:      v.GetBool("cleanup"),
		PollInterval: v.GetDuration("poll-interval"),
		Marker:       v.GetString("marker"),
	}

	if opts.Tool == "" {
		return nil, commandError(formatter, "E_TOOL_MISSING", "--tool is required", nil)
	}
	if _, err := os.Stat(opts.Tool); err != nil {
		return nil, commandError(formatter, "E_TOOL_MISSING", fmt.Sprintf("tool not found: %s", opts.Tool), nil)
	}

	suites, err := harness.ParseSuites(v.GetString("suites"))
	if err != nil {
		return nil, commandError(formatter, "E_INVALID_ARGS", "invalid --suites", err)
	}
	opts.Suites = suites

	return opts, nil
}

func runTests(ctx context.Context, opts *TestOptions, cmd *cobra.Command, formatter *OutputFormatter) error {
	base, err := migspec.LoadBaseArgs(filepath.Join(opts.FixturesDir, migspec.BaseArgsFile))
	if err != nil {
		return commandError(formatter, "E_FIXTURES", "loading fixtures", err)
	}
	dataset, err := migspec.LoadDataset(filepath.Join(opts.FixturesDir, migspec.DatasetFile))
	if err != nil {
		return commandError(formatter, "E_FIXTURES", "loading fixtures", err)
	}

	var scenarios []*harness.Scenario
	if opts.ScenariosDir != "" {
		if _, err := os.Stat(opts.ScenariosDir); os.IsNotExist(err) {
			return commandError(formatter, "E_SCENARIOS", fmt.Sprintf("scenarios directory not found: %s", opts.ScenariosDir), nil)
		}
		scenarios, err = harness.LoadScenarios(opts.ScenariosDir)
		if err != nil {
			return commandError(formatter, "E_SCENARIOS", "loading scenarios", err)
		}
	}

	h, err := harness.New(harness.Config{
		ToolPath:     opts.Tool,
		ToolEnv:      opts.ToolEnv,
		BaseArgs:     base,
		Dataset:      dataset,
		Store:        opts.Store,
		Cleanup:      opts.Cleanup,
		PollInterval: opts.PollInterval,
		Marker:       opts.Marker,
		Scenarios:    scenarios,
		Logger:       newLogger(formatter.GetErrWriter(), opts.Verbose),
	})
	if err != nil {
		return commandError(formatter, "E_CONFIG", "configuring harness", err)
	}

	report, runErr := h.Run(ctx, opts.Suites)

	if opts.Format == "json" {
		if err := outputTestJSON(cmd, report); err != nil {
			return err
		}
	} else {
		outputTestText(cmd, report, opts.Verbose)
	}

	if runErr != nil {
		return WrapExitError(ExitCommandError, "run aborted", runErr)
	}
	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	return nil
}

// newLogger builds the text handler used by the CLI. Debug records are only
// emitted in verbose mode.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// outputTestJSON outputs the suite report as JSON.
func outputTestJSON(cmd *cobra.Command, report *harness.SuiteReport) error {
	response := CLIResponse{
		Status: "ok",
		Data:   report,
		RunID:  report.RunID,
	}

	switch {
	case report.Fault != "":
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_RUN_ABORTED",
			Message: report.Fault,
		}
	case report.Failed > 0:
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", report.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTestText outputs the suite report as text.
func outputTestText(cmd *cobra.Command, report *harness.SuiteReport, verbose bool) {
	w := cmd.OutOrStdout()
	report.WriteText(w, verbose)
	if report.OK() {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}
