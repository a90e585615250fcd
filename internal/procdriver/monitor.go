package procdriver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
)

// State is a step of the monitor state machine.
type State string

const (
	StateWatching   State = "WATCHING"
	StateMarkerSeen State = "MARKER_SEEN"
	StateSignalSent State = "SIGNAL_SENT"
	StateDrained    State = "DRAINED"
)

// MonitoredResult extends Result with what the monitor observed.
type MonitoredResult struct {
	Result

	// MarkerSeen is true once a stdout line contained the marker.
	MarkerSeen bool
	// Signaled is true when the signal reached a live process.
	Signaled bool
	// MarkerLine is the first line that matched.
	MarkerLine string
	// States lists every state visited, in order.
	States []State
}

// RunMonitored starts the command and polls its stdout on every tick of the
// driver's clock. The first line containing marker, compared
// case-insensitively, triggers a kill. Output is drained
// until the process exits either way.
func (d *Driver) RunMonitored(ctx context.Context, args ArgLister, marker string, switches ...string) (MonitoredResult, error) {
	if marker == "" {
		return MonitoredResult{}, fmt.Errorf("run monitored %s: empty marker", d.path)
	}

	stdout := &lineBuffer{}
	var stderr bytes.Buffer
	cmd := d.command(ctx, args, switches)
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	d.logger.Debug("running monitored tool", "path", d.path, "args", cmd.Args[1:], "marker", marker)

	if err := cmd.Start(); err != nil {
		return MonitoredResult{}, &LaunchError{Command: d.path, Err: err}
	}

	m := &monitor{
		driver: d,
		cmd:    cmd,
		out:    stdout,
		fold:   cases.Fold(),
		state:  StateWatching,
		states: []State{StateWatching},
	}
	m.marker = m.fold.String(marker)

	exited := make(chan struct{})
	var waitErr error

	g := new(errgroup.Group)
	g.Go(func() error {
		defer close(exited)
		waitErr = cmd.Wait()
		return nil
	})
	g.Go(func() error {
		return m.watch(exited)
	})
	if err := g.Wait(); err != nil {
		return MonitoredResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return MonitoredResult{}, fmt.Errorf("run monitored %s: %w", d.path, err)
	}

	code, err := exitCode(waitErr, cmd)
	if err != nil {
		return MonitoredResult{}, fmt.Errorf("wait %s: %w", d.path, err)
	}
	m.enter(StateDrained)

	d.logger.Debug("monitored tool exited",
		"path", d.path,
		"exit_code", code,
		"marker_seen", m.markerLine != "",
		"signaled", m.signaled)

	return MonitoredResult{
		Result: Result{
			ExitCode: code,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		},
		MarkerSeen: m.markerLine != "",
		Signaled:   m.signaled,
		MarkerLine: m.markerLine,
		States:     m.states,
	}, nil
}

type monitor struct {
	driver *Driver
	cmd    *exec.Cmd
	out    *lineBuffer
	fold   cases.Caser
	marker string

	next       int
	state      State
	states     []State
	markerLine string
	signaled   bool
}

// watch runs until the process exits, checking new lines on every tick.
func (m *monitor) watch(exited <-chan struct{}) error {
	ticker := m.driver.clock.NewTicker(m.driver.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if err := m.poll(); err != nil {
				return err
			}
		case <-exited:
			// Lines written just before exit still count as seen, but
			// there is nothing left to signal.
			m.out.flush()
			if m.state == StateWatching {
				if line, ok := m.scan(); ok {
					m.markerLine = line
					m.enter(StateMarkerSeen)
				}
			}
			return nil
		}
	}
}

func (m *monitor) poll() error {
	if m.state != StateWatching {
		return nil
	}
	line, ok := m.scan()
	if !ok {
		return nil
	}

	m.markerLine = line
	m.enter(StateMarkerSeen)
	m.driver.logger.Debug("marker seen", "line", line)

	if err := m.cmd.Process.Signal(m.driver.signal); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("signal %s: %w", m.driver.path, err)
	}
	m.signaled = true
	m.enter(StateSignalSent)
	return nil
}

// scan consumes unread complete lines and returns the first that contains
// the marker.
func (m *monitor) scan() (string, bool) {
	lines := m.out.linesFrom(m.next)
	for i, line := range lines {
		if strings.Contains(m.fold.String(line), m.marker) {
			m.next += i + 1
			return line, true
		}
	}
	m.next += len(lines)
	return "", false
}

func (m *monitor) enter(s State) {
	m.state = s
	m.states = append(m.states, s)
}

// lineBuffer is an io.Writer that keeps both the raw output and the
// complete lines seen so far. The exec package writes to it from its own
// goroutine while the monitor reads.
type lineBuffer struct {
	mu      sync.Mutex
	raw     bytes.Buffer
	lines   []string
	partial []byte
}

func (b *lineBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.raw.Write(p)
	b.partial = append(b.partial, p...)
	for {
		i := bytes.IndexByte(b.partial, '\n')
		if i < 0 {
			break
		}
		b.lines = append(b.lines, strings.TrimRight(string(b.partial[:i]), "\r"))
		b.partial = b.partial[i+1:]
	}
	return len(p), nil
}

// linesFrom returns the complete lines from index i on.
func (b *lineBuffer) linesFrom(i int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i >= len(b.lines) {
		return nil
	}
	return append([]string(nil), b.lines[i:]...)
}

// flush promotes a trailing unterminated line to a complete one.
func (b *lineBuffer) flush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.partial) > 0 {
		b.lines = append(b.lines, string(b.partial))
		b.partial = nil
	}
}

func (b *lineBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.raw.String()
}
