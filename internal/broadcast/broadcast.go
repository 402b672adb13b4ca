// Package broadcast implements the Broadcast Coordinator: it persists a
// fan-out request, then dispatches it to every target either through
// the One-Shot Runner (oneshot mode) or the Terminal Multiplexer Driver
// (repl mode), aggregating per-target outcomes under one broadcast_id
// (spec §4.9).
package broadcast

import (
	"context"
	"time"

	"github.com/multiagents/multiagents/internal/errs"
	"github.com/multiagents/multiagents/internal/eventlog"
	"github.com/multiagents/multiagents/internal/metrics"
	"github.com/multiagents/multiagents/internal/oneshot"
	"github.com/multiagents/multiagents/internal/provider"
	"github.com/multiagents/multiagents/internal/router"
	"github.com/multiagents/multiagents/internal/session"
	"github.com/multiagents/multiagents/internal/store"
	"github.com/multiagents/multiagents/internal/tmux"
)

// Outcome is a target's per-dispatch result classification.
type Outcome string

const (
	OutcomeOK                  Outcome = "ok"
	OutcomeProviderUnavailable Outcome = "provider_unavailable"
	OutcomeProviderCLIError    Outcome = "provider_cli_error"
	OutcomeTimeout             Outcome = "timeout"
	OutcomeMultiplexerError    Outcome = "multiplexer_error"
)

// TargetResult is one target's dispatch outcome.
type TargetResult struct {
	AgentName string
	Outcome   Outcome
	DurMS     int64
	Err       error
}

// Result aggregates a broadcast's dispatch across all targets.
type Result struct {
	BroadcastID string
	Mode        store.BroadcastMode
	Targets     []TargetResult
	ExitCode    errs.Code
}

// Coordinator wires the State Store, Session Resolver, Concurrency
// Gate-backed One-Shot Runner, and Terminal Multiplexer Driver together
// for fan-out dispatch.
type Coordinator struct {
	store    *store.Store
	sessions *session.Resolver
	oneshot  *oneshot.Runner
	tmux     *tmux.Driver
	registry provider.Registry
	log      *eventlog.Writer
}

// New constructs a Coordinator.
func New(s *store.Store, sessions *session.Resolver, runner *oneshot.Runner, driver *tmux.Driver, registry provider.Registry, log *eventlog.Writer) *Coordinator {
	return &Coordinator{store: s, sessions: sessions, oneshot: runner, tmux: driver, registry: registry, log: log}
}

// Dispatch persists the broadcast and its per-target messages, then fans
// out to every target per mode (spec §4.9). The broadcast row, each
// target's session and each message are written as separate statements,
// not in one transaction: a store failure part-way leaves the rows
// written so far in place. On such a failure Dispatch returns a nil
// *Result and the error; otherwise it returns a non-nil *Result and a nil
// error, with per-target failures recorded in the Result.
func (c *Coordinator) Dispatch(ctx context.Context, projectID string, targets []router.Target, message string, mode store.BroadcastMode, timeout time.Duration) (*Result, error) {
	ids := targetIDs(targets)

	b, err := c.store.CreateBroadcast(ctx, projectID, mode, ids)
	if err != nil {
		return nil, err
	}

	sessions := make([]*store.Session, len(targets))
	messageIDs := make([]string, len(targets))
	for i, t := range targets {
		sess, err := c.resolveTargetSession(ctx, projectID, t)
		if err != nil {
			return nil, err
		}
		sessions[i] = sess

		bid := b.ID
		msg, err := c.store.AppendMessage(ctx, store.AppendMessageParams{
			SessionID: sess.ID, Sender: store.SenderUser, Content: message, BroadcastID: &bid,
		})
		if err != nil {
			return nil, err
		}
		messageIDs[i] = msg.ID
	}

	var results []TargetResult
	switch mode {
	case store.BroadcastRepl:
		results = c.dispatchRepl(ctx, projectID, targets, sessions, messageIDs, message, b.ID)
	default:
		results = c.dispatchOneshot(ctx, projectID, targets, sessions, messageIDs, message, b.ID, timeout)
	}

	exitCode := aggregateExitCode(results)
	metrics.BroadcastsTotal.WithLabelValues(string(mode), exitCode.String()).Inc()
	metrics.BroadcastTargets.Observe(float64(len(targets)))

	return &Result{BroadcastID: b.ID, Mode: mode, Targets: results, ExitCode: exitCode}, nil
}

func (c *Coordinator) resolveTargetSession(ctx context.Context, projectID string, t router.Target) (*store.Session, error) {
	if t.Agent != nil {
		return c.sessions.Resolve(ctx, t.Agent, "")
	}
	return c.store.GetSession(ctx, t.ConversationID)
}

// dispatchOneshot runs every target through the One-Shot Runner, which
// itself serializes through the Concurrency Gate (spec §4.5); targets
// therefore run concurrently here with no additional cap.
func (c *Coordinator) dispatchOneshot(ctx context.Context, projectID string, targets []router.Target, sessions []*store.Session, messageIDs []string, message, broadcastID string, timeout time.Duration) []TargetResult {
	results := make([]TargetResult, len(targets))
	done := make(chan int, len(targets))

	for i, t := range targets {
		i, t := i, t
		go func() {
			results[i] = c.runOneshotTarget(ctx, t, sessions[i], messageIDs[i], message, broadcastID, timeout)
			done <- i
		}()
	}
	for range targets {
		<-done
	}
	return results
}

func (c *Coordinator) runOneshotTarget(ctx context.Context, t router.Target, sess *store.Session, messageID, message, broadcastID string, timeout time.Duration) TargetResult {
	agent := t.Agent
	if agent == nil {
		return TargetResult{AgentName: t.ConversationID, Outcome: OutcomeProviderCLIError, Err: errs.New(errs.CodeInvalidInput, "no agent bound to conversation %q", t.ConversationID)}
	}

	key := provider.Key(agent.ProviderKey)
	tmpl, ok := c.registry[key]
	if !ok {
		return TargetResult{AgentName: agent.Name, Outcome: OutcomeProviderUnavailable, Err: errs.New(errs.CodeProviderUnavailable, "unknown provider %q", agent.ProviderKey)}
	}

	renderCtx := provider.Context{
		Prompt: message, SessionID: session.NativeToken(key, sess),
		ChatID: session.NativeToken(key, sess), SystemPrompt: agent.SystemPrompt, AllowedTools: agent.AllowedTools,
	}

	res, err := c.oneshot.Run(ctx, oneshot.Request{
		ProjectID: agent.ProjectID, AgentRole: agent.Role, AgentID: agent.ID,
		ProviderKey: key, SessionID: sess.ID, BroadcastID: broadcastID,
		Template: tmpl, RenderCtx: renderCtx, Timeout: timeout,
	})
	if err != nil {
		return TargetResult{AgentName: agent.Name, Outcome: OutcomeProviderUnavailable, Err: err}
	}

	if _, sessErr := c.sessions.HandleProviderResult(ctx, key, sess, res.Stderr, res.ObservedNativeToken); sessErr != nil {
		// Session bookkeeping failure does not override the provider's own
		// outcome; it is surfaced only if nothing else already failed.
		if res.Err == nil {
			res.Err = sessErr
		}
	}

	_ = c.log.Append(agent.ProjectID, agent.Role, eventlog.Record{
		ProjectID: agent.ProjectID, AgentRole: agent.Role, AgentID: agent.ID,
		Provider: string(key), SessionID: sess.ID, BroadcastID: broadcastID, MessageID: messageID,
		Direction: eventlog.DirectionSystem, Event: eventlog.EventRouted,
		DurMS: &res.DurMS,
	})

	return TargetResult{AgentName: agent.Name, Outcome: outcomeFor(res.Err), DurMS: res.DurMS, Err: res.Err}
}

func outcomeFor(err error) Outcome {
	switch errs.CodeOf(err) {
	case errs.CodeOK:
		return OutcomeOK
	case errs.CodeProviderUnavailable:
		return OutcomeProviderUnavailable
	case errs.CodeTimeout:
		return OutcomeTimeout
	case errs.CodeMultiplexerError:
		return OutcomeMultiplexerError
	default:
		return OutcomeProviderCLIError
	}
}

// dispatchRepl resolves each target's window and injects the message;
// no concurrency cap applies since key injection is local and fast
// (spec §4.9).
func (c *Coordinator) dispatchRepl(ctx context.Context, projectID string, targets []router.Target, sessions []*store.Session, messageIDs []string, message, broadcastID string) []TargetResult {
	results := make([]TargetResult, len(targets))
	for i, t := range targets {
		results[i] = c.sendKeysTarget(ctx, t, sessions[i], messageIDs[i], message, broadcastID)
	}
	return results
}

func (c *Coordinator) sendKeysTarget(ctx context.Context, t router.Target, sess *store.Session, messageID, message, broadcastID string) TargetResult {
	agent := t.Agent
	if agent == nil {
		return TargetResult{AgentName: t.ConversationID, Outcome: OutcomeMultiplexerError, Err: errs.New(errs.CodeInvalidInput, "no agent bound to conversation %q", t.ConversationID)}
	}

	start := time.Now()
	err := c.tmux.SendKeys(ctx, agent.ProjectID, agent.Role, agent.Name, message)
	durMS := time.Since(start).Milliseconds()

	_ = c.log.Append(agent.ProjectID, agent.Role, eventlog.Record{
		ProjectID: agent.ProjectID, AgentRole: agent.Role, AgentID: agent.ID,
		Provider: agent.ProviderKey, SessionID: sess.ID, BroadcastID: broadcastID, MessageID: messageID,
		Direction: eventlog.DirectionSystem, Event: eventlog.EventRouted,
		DurMS: &durMS,
	})

	if err != nil {
		return TargetResult{AgentName: agent.Name, Outcome: OutcomeMultiplexerError, DurMS: durMS, Err: err}
	}
	return TargetResult{AgentName: agent.Name, Outcome: OutcomeOK, DurMS: durMS}
}

// aggregateExitCode implements spec §4.9's aggregation rule: 0 unless
// every target failed, in which case the most specific shared failure
// category is returned.
func aggregateExitCode(results []TargetResult) errs.Code {
	if len(results) == 0 {
		return errs.CodeOK
	}

	anyOK := false
	shared := errs.Code(-1)
	mixed := false
	for _, r := range results {
		if r.Outcome == OutcomeOK {
			anyOK = true
			continue
		}
		code := errs.CodeOf(r.Err)
		if shared == -1 {
			shared = code
		} else if shared != code {
			mixed = true
		}
	}
	if anyOK {
		return errs.CodeOK
	}
	if mixed || shared == -1 {
		return errs.CodeProviderCLIError
	}
	return shared
}

// targetIDs lists the agent id of each target, or the conversation id for
// a target that names a conversation rather than an agent.
func targetIDs(targets []router.Target) []string {
	ids := make([]string, len(targets))
	for i, t := range targets {
		if t.Agent != nil {
			ids[i] = t.Agent.ID
		} else {
			ids[i] = t.ConversationID
		}
	}
	return ids
}
