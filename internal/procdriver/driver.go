// Package procdriver launches the migration tool and collects its output.
//
// Run is the synchronous path: start, wait, capture. RunMonitored watches
// stdout while the process runs and delivers a signal the first time a
// marker line appears, which is how failure injection interrupts a live
// migration partway through.
package procdriver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// DefaultPollInterval bounds how long a marker line can sit unread.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultWaitDelay bounds how long output is drained after the process
	// exits, in case a child still holds the pipes open.
	DefaultWaitDelay = 5 * time.Second
)

// ArgLister renders command-line arguments in order.
type ArgLister interface {
	Strings() []string
}

// Result is the outcome of one completed invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// LaunchError means the process could not be started at all. It is never
// returned for a process that ran and exited non-zero.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// IsLaunchError reports whether err wraps a LaunchError.
func IsLaunchError(err error) bool {
	var le *LaunchError
	return errors.As(err, &le)
}

// Driver runs one external command with varying arguments.
type Driver struct {
	path         string
	env          []string
	clock        clockwork.Clock
	pollInterval time.Duration
	waitDelay    time.Duration
	signal       os.Signal
	logger       *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithEnv appends KEY=VALUE entries to the inherited environment.
func WithEnv(env ...string) Option {
	return func(d *Driver) {
		d.env = append(d.env, env...)
	}
}

// WithClock replaces the clock that drives marker polling.
func WithClock(c clockwork.Clock) Option {
	return func(d *Driver) {
		d.clock = c
	}
}

// WithPollInterval sets how often RunMonitored inspects new output.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Driver) {
		if interval > 0 {
			d.pollInterval = interval
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// New returns a Driver for the executable at path.
func New(path string, opts ...Option) *Driver {
	d := &Driver{
		path:         path,
		clock:        clockwork.NewRealClock(),
		pollInterval: DefaultPollInterval,
		waitDelay:    DefaultWaitDelay,
		signal:       os.Kill,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Path returns the executable path.
func (d *Driver) Path() string {
	return d.path
}

// Run starts the command, waits for it and returns its exit code and
// output. A non-zero exit is a normal Result, not an error.
func (d *Driver) Run(ctx context.Context, args ArgLister, switches ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := d.command(ctx, args, switches)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	d.logger.Debug("running tool", "path", d.path, "args", cmd.Args[1:])

	if err := cmd.Start(); err != nil {
		return Result{}, &LaunchError{Command: d.path, Err: err}
	}

	waitErr := cmd.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("run %s: %w", d.path, err)
	}
	code, err := exitCode(waitErr, cmd)
	if err != nil {
		return Result{}, fmt.Errorf("wait %s: %w", d.path, err)
	}

	d.logger.Debug("tool exited", "path", d.path, "exit_code", code)

	return Result{ExitCode: code, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

func (d *Driver) command(ctx context.Context, args ArgLister, switches []string) *exec.Cmd {
	var argv []string
	if args != nil {
		argv = append(argv, args.Strings()...)
	}
	argv = append(argv, switches...)

	cmd := exec.CommandContext(ctx, d.path, argv...) //nolint:gosec
	cmd.WaitDelay = d.waitDelay
	if len(d.env) > 0 {
		cmd.Env = append(os.Environ(), d.env...)
	}
	return cmd
}

// exitCode extracts the exit status from the result of Wait. A process
// killed by a signal reports -1.
func exitCode(waitErr error, cmd *exec.Cmd) (int, error) {
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.As(waitErr, &exitErr), errors.Is(waitErr, exec.ErrWaitDelay):
		if cmd.ProcessState == nil {
			return 0, waitErr
		}
		return cmd.ProcessState.ExitCode(), nil
	default:
		return 0, waitErr
	}
}
