// Package oneshot implements the One-Shot Runner: it acquires a
// Concurrency Gate permit, spawns a provider process for a single
// invocation, enforces a timeout with a grace-kill, captures
// stdout/stderr line-by-line, and emits Event Log Writer records
// (spec §4.4).
package oneshot

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/multiagents/multiagents/internal/errs"
	"github.com/multiagents/multiagents/internal/eventlog"
	"github.com/multiagents/multiagents/internal/gate"
	"github.com/multiagents/multiagents/internal/metrics"
	"github.com/multiagents/multiagents/internal/provider"
	"github.com/multiagents/multiagents/internal/sanitize"
)

// DefaultTimeout is the spec's default one-shot timeout (spec §6).
const DefaultTimeout = 120 * time.Second

// GraceKillDelay is how long the process gets to exit after its
// cancellation signal before Go force-kills it (spec §4.4 guarantee 4,
// §5 "cancellation & timeouts").
const GraceKillDelay = 500 * time.Millisecond

// Request describes one provider invocation.
type Request struct {
	ProjectID   string
	AgentRole   string
	AgentID     string
	ProviderKey provider.Key
	SessionID   string // conversation_id, for event tagging only
	BroadcastID string // optional, for event tagging only
	Template    provider.Template
	RenderCtx   provider.Context
	Timeout     time.Duration // zero means DefaultTimeout
}

// Result is the outcome of one Run call.
type Result struct {
	ExitCode            int
	Stderr              string // ANSI-stripped
	DurMS               int64
	ObservedNativeToken string // cursor-like chat id observed from the stream, if any
	Err                 error  // an *errs.Error classifying the outcome, nil on success
}

// Runner executes one-shot provider calls.
type Runner struct {
	gate *gate.Gate
	log  *eventlog.Writer
}

// New constructs a Runner sharing the given Gate and Event Log Writer.
func New(g *gate.Gate, log *eventlog.Writer) *Runner {
	return &Runner{gate: g, log: log}
}

// Run acquires a gate permit, spawns the provider, and returns a
// classified Result; Result.Err is nil on success. When no permit can be
// acquired or the process cannot be set up, it returns a nil *Result and
// the error.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	permit, err := r.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := req.Template.RenderOneshotArgs(req.RenderCtx)
	cmd := exec.CommandContext(runCtx, req.Template.Command, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = GraceKillDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	_ = r.log.Append(req.ProjectID, req.AgentRole, eventlog.Record{
		ProjectID: req.ProjectID, AgentRole: req.AgentRole, AgentID: req.AgentID,
		Provider: string(req.ProviderKey), SessionID: req.SessionID, BroadcastID: req.BroadcastID,
		Direction: eventlog.DirectionSystem, Event: eventlog.EventStart,
	})

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return r.finish(req, 0, "", "", start, errs.New(errs.CodeProviderUnavailable, "provider binary %q not found", req.Template.Command))
		}
		return r.finish(req, 0, "", "", start, errs.New(errs.CodeProviderUnavailable, "spawn %q: %v", req.Template.Command, err))
	}

	// Cursor-like calls force streaming JSON output (spec §4.3): parse
	// incremental assistant text fragments instead of forwarding raw
	// stdout lines, and capture the chat id the stream reveals.
	var streamParser *provider.StreamParser
	if req.Template.StreamOutput {
		streamParser = &provider.StreamParser{}
	}

	var wg sync.WaitGroup
	var stderrBuf stringBuf
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.forwardLines(req, stdout, eventlog.EventStdoutLine, nil, streamParser)
	}()
	go func() {
		defer wg.Done()
		r.forwardLines(req, stderr, eventlog.EventStderrLine, &stderrBuf, nil)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	cleanStderr := sanitize.StripANSI(stderrBuf.String())

	var observedToken string
	if streamParser != nil {
		observedToken = streamParser.ChatID()
	}

	if runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return r.finish(req, -1, cleanStderr, observedToken, start, errs.WithDetail(errs.CodeTimeout, cleanStderr, "provider timed out after %s", timeout))
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return r.finish(req, exitErr.ExitCode(), cleanStderr, observedToken, start, errs.WithDetail(errs.CodeProviderCLIError, cleanStderr, "provider exited %d", exitErr.ExitCode()))
		}
		return r.finish(req, -1, cleanStderr, observedToken, start, errs.WithDetail(errs.CodeGeneric, cleanStderr, "wait: %v", waitErr))
	}

	return r.finish(req, 0, cleanStderr, observedToken, start, nil)
}

func (r *Runner) finish(req Request, exitCode int, stderrText string, observedToken string, start time.Time, classified error) (*Result, error) {
	dur := time.Since(start)
	durMS := dur.Milliseconds()
	ec := exitCode
	_ = r.log.Append(req.ProjectID, req.AgentRole, eventlog.Record{
		ProjectID: req.ProjectID, AgentRole: req.AgentRole, AgentID: req.AgentID,
		Provider: string(req.ProviderKey), SessionID: req.SessionID, BroadcastID: req.BroadcastID,
		Direction: eventlog.DirectionSystem, Event: eventlog.EventEnd,
		DurMS: &durMS, ExitCode: &ec,
	})

	metrics.OneShotDuration.WithLabelValues(string(req.ProviderKey)).Observe(dur.Seconds())
	metrics.OneShotTotal.WithLabelValues(string(req.ProviderKey), errs.CodeOf(classified).String()).Inc()

	return &Result{ExitCode: exitCode, Stderr: stderrText, DurMS: durMS, ObservedNativeToken: observedToken, Err: classified}, nil
}

// forwardLines drains rc line by line. When parser is non-nil (a
// cursor-like stream-json call), each line is decoded and only its
// parsed assistant text fragments are emitted as ev records; otherwise
// every raw line is emitted verbatim (spec §4.3, §4.4).
func (r *Runner) forwardLines(req Request, rc io.Reader, ev eventlog.Event, capture *stringBuf, parser *provider.StreamParser) {
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if capture != nil {
			capture.writeLine(line)
		}

		if parser != nil {
			texts, _, _, _ := parser.ParseLine([]byte(line))
			for _, text := range texts {
				_ = r.log.Append(req.ProjectID, req.AgentRole, eventlog.Record{
					ProjectID: req.ProjectID, AgentRole: req.AgentRole, AgentID: req.AgentID,
					Provider: string(req.ProviderKey), SessionID: req.SessionID, BroadcastID: req.BroadcastID,
					Direction: eventlog.DirectionAgent, Event: ev, Text: text,
				})
			}
			continue
		}

		_ = r.log.Append(req.ProjectID, req.AgentRole, eventlog.Record{
			ProjectID: req.ProjectID, AgentRole: req.AgentRole, AgentID: req.AgentID,
			Provider: string(req.ProviderKey), SessionID: req.SessionID, BroadcastID: req.BroadcastID,
			Direction: eventlog.DirectionAgent, Event: ev, Text: line,
		})
	}
}

// stringBuf is a tiny concurrency-free line accumulator; forwardLines
// for stdout and stderr run on separate goroutines but each writes only
// to its own buffer, so no locking is needed here.
type stringBuf struct {
	lines []string
}

func (b *stringBuf) writeLine(s string) {
	b.lines = append(b.lines, s)
}

func (b *stringBuf) String() string {
	out := ""
	for i, l := range b.lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
