// Package session implements the Session Resolver: it turns an
// (agent, optional conversation_id) pair into an executable session
// context, optimistically validating native tokens and falling back to
// re-creation on provider-reported invalidity (spec §4.7).
package session

import (
	"context"
	"errors"
	"time"

	"github.com/multiagents/multiagents/internal/errs"
	"github.com/multiagents/multiagents/internal/id"
	"github.com/multiagents/multiagents/internal/provider"
	"github.com/multiagents/multiagents/internal/store"
)

// DefaultResumeTimeout bounds `session resume` resolution (spec §4.7,
// §6).
const DefaultResumeTimeout = 5 * time.Second

// Resolver resolves sessions against the State Store.
type Resolver struct {
	store *store.Store
}

// New constructs a Resolver over a Store.
func New(s *store.Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve implements spec §4.7's algorithm. If conversationID is empty,
// a new session is created for the agent. Otherwise the existing
// session is loaded; ErrInvalidInput-classified errors mean no such
// session exists. A conversation id is required when no agent is given
// to create one for (spec §4.7 step 1).
func (r *Resolver) Resolve(ctx context.Context, agent *store.Agent, conversationID string) (*store.Session, error) {
	if conversationID == "" {
		if agent == nil {
			return nil, errs.New(errs.CodeInvalidInput, "conversation id required")
		}
		return r.createSession(ctx, agent)
	}

	sess, err := r.store.GetSession(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errs.New(errs.CodeInvalidInput, "no session %q", conversationID)
		}
		return nil, err
	}
	return sess, nil
}

func (r *Resolver) createSession(ctx context.Context, agent *store.Agent) (*store.Session, error) {
	return r.store.CreateSession(ctx, store.CreateSessionParams{
		ProjectID:   agent.ProjectID,
		AgentID:     agent.ID,
		ProviderKey: agent.ProviderKey,
	})
}

// NativeToken is the provider-native resume token for claude-like and
// cursor-like providers; gemini-like providers have none (spec §4.3).
func NativeToken(key provider.Key, sess *store.Session) string {
	if sess.ProviderSessionID == nil {
		return ""
	}
	switch key {
	case provider.ClaudeLike, provider.CursorLike:
		return *sess.ProviderSessionID
	default:
		return ""
	}
}

// HandleProviderResult is called after a provider call using sess's
// native token. If the provider's stderr classifies the token as
// invalid/expired (spec §4.3's fallback signal), the resolver marks the
// session invalid, rewrites its provider_session_id to the observed
// native token (or, when none was supplied, to a freshly minted internal
// id), sets it back to active, and returns the reloaded session, keeping
// conversation_id stable (spec §4.7 step 3). When the result is not a
// fallback case, it records the observed native token if one was
// supplied and returns the reloaded session.
func (r *Resolver) HandleProviderResult(ctx context.Context, key provider.Key, sess *store.Session, stderrText string, observedNativeToken string) (*store.Session, error) {
	if provider.ClassifyError(key, stderrText) {
		if err := r.store.MarkSessionStatus(ctx, sess.ID, store.SessionInvalid); err != nil {
			return nil, err
		}
		newToken := observedNativeToken
		if newToken == "" {
			newToken = id.Generate()
		}
		if err := r.store.SetSessionProviderID(ctx, sess.ID, newToken); err != nil {
			return nil, err
		}
		if err := r.store.MarkSessionStatus(ctx, sess.ID, store.SessionActive); err != nil {
			return nil, err
		}
		refreshed, err := r.store.GetSession(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		return refreshed, nil
	}

	if observedNativeToken != "" {
		if err := r.store.SetSessionProviderID(ctx, sess.ID, observedNativeToken); err != nil {
			return nil, err
		}
	}
	if err := r.store.TouchSession(ctx, sess.ID); err != nil {
		return nil, err
	}
	refreshed, err := r.store.GetSession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return refreshed, nil
}
