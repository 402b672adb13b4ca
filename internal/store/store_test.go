package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/multiagents/multiagents/internal/errs"
	"github.com/multiagents/multiagents/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))
	return store.New(db)
}

func TestCreateProject_UniqueName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.CreateProject(ctx, "demo")
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)

	_, err = s.CreateProject(ctx, "demo")
	require.Error(t, err)
	require.Equal(t, errs.CodeInvalidInput, errs.CodeOf(err))
}

func TestGetProjectByName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.CreateProject(ctx, "alpha")
	require.NoError(t, err)

	got, err := s.GetProjectByName(ctx, "alpha")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
}

func TestDeleteProject_CascadesToAgents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.CreateProject(ctx, "cascade")
	require.NoError(t, err)

	_, err = s.CreateAgent(ctx, store.CreateAgentParams{
		ProjectID: p.ID, Name: "backend", Role: "engineer", ProviderKey: "claude-like", Model: "sonnet",
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteProject(ctx, p.ID))

	agents, err := s.ListAgents(ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, agents)
}

func TestCreateAgent_UniqueNamePerProject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.CreateProject(ctx, "proj")
	require.NoError(t, err)

	params := store.CreateAgentParams{
		ProjectID: p.ID, Name: "backend", Role: "engineer", ProviderKey: "claude-like", Model: "sonnet",
		AllowedTools: []string{"Read", "Write"},
	}
	_, err = s.CreateAgent(ctx, params)
	require.NoError(t, err)

	_, err = s.CreateAgent(ctx, params)
	require.Error(t, err)
}

func TestListAgentsByRole(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.CreateProject(ctx, "proj")
	require.NoError(t, err)

	_, err = s.CreateAgent(ctx, store.CreateAgentParams{ProjectID: p.ID, Name: "a1", Role: "engineer", ProviderKey: "claude-like"})
	require.NoError(t, err)
	_, err = s.CreateAgent(ctx, store.CreateAgentParams{ProjectID: p.ID, Name: "a2", Role: "reviewer", ProviderKey: "claude-like"})
	require.NoError(t, err)
	_, err = s.CreateAgent(ctx, store.CreateAgentParams{ProjectID: p.ID, Name: "a3", Role: "engineer", ProviderKey: "claude-like"})
	require.NoError(t, err)

	engineers, err := s.ListAgentsByRole(ctx, p.ID, "engineer")
	require.NoError(t, err)
	require.Len(t, engineers, 2)
}

func TestEnsureProjectFromConfig_IdempotentAndUpdates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	specs := []store.AgentConfigSpec{
		{Name: "backend", Role: "engineer", ProviderKey: "claude-like", Model: "sonnet", AllowedTools: []string{"Read"}},
	}
	p1, err := s.EnsureProjectFromConfig(ctx, "demo", specs)
	require.NoError(t, err)

	specs[0].Model = "opus"
	p2, err := s.EnsureProjectFromConfig(ctx, "demo", specs)
	require.NoError(t, err)
	require.Equal(t, p1.ID, p2.ID)

	agent, err := s.GetAgentByName(ctx, p1.ID, "backend")
	require.NoError(t, err)
	require.Equal(t, "opus", agent.Model)

	agents, err := s.ListAgents(ctx, p1.ID)
	require.NoError(t, err)
	require.Len(t, agents, 1)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.CreateProject(ctx, "proj")
	require.NoError(t, err)
	agent, err := s.CreateAgent(ctx, store.CreateAgentParams{ProjectID: p.ID, Name: "backend", Role: "engineer", ProviderKey: "claude-like"})
	require.NoError(t, err)

	sess, err := s.CreateSession(ctx, store.CreateSessionParams{ProjectID: p.ID, AgentID: agent.ID, ProviderKey: "claude-like"})
	require.NoError(t, err)
	require.Equal(t, store.SessionActive, sess.Status)

	found, err := s.FindActiveSessionByAgent(ctx, p.ID, agent.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, found.ID)

	require.NoError(t, s.TouchSession(ctx, sess.ID))
	require.NoError(t, s.SetSessionProviderID(ctx, sess.ID, "native-token-1"))

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ProviderSessionID)
	require.Equal(t, "native-token-1", *got.ProviderSessionID)

	require.NoError(t, s.MarkSessionStatus(ctx, sess.ID, store.SessionInvalid))
	got, err = s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, store.SessionInvalid, got.Status)
}

func TestListSessions_FiltersByAgentAndStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.CreateProject(ctx, "proj")
	require.NoError(t, err)
	a1, err := s.CreateAgent(ctx, store.CreateAgentParams{ProjectID: p.ID, Name: "a1", Role: "engineer", ProviderKey: "claude-like"})
	require.NoError(t, err)
	a2, err := s.CreateAgent(ctx, store.CreateAgentParams{ProjectID: p.ID, Name: "a2", Role: "reviewer", ProviderKey: "cursor-like"})
	require.NoError(t, err)

	_, err = s.CreateSession(ctx, store.CreateSessionParams{ProjectID: p.ID, AgentID: a1.ID, ProviderKey: "claude-like"})
	require.NoError(t, err)
	_, err = s.CreateSession(ctx, store.CreateSessionParams{ProjectID: p.ID, AgentID: a2.ID, ProviderKey: "cursor-like"})
	require.NoError(t, err)

	sessions, err := s.ListSessions(ctx, p.ID, store.SessionListFilter{Agent: "a1"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, a1.ID, sessions[0].AgentID)
}

func TestAppendMessage_AndListByBroadcast(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.CreateProject(ctx, "proj")
	require.NoError(t, err)
	agent, err := s.CreateAgent(ctx, store.CreateAgentParams{ProjectID: p.ID, Name: "backend", Role: "engineer", ProviderKey: "claude-like"})
	require.NoError(t, err)
	sess, err := s.CreateSession(ctx, store.CreateSessionParams{ProjectID: p.ID, AgentID: agent.ID, ProviderKey: "claude-like"})
	require.NoError(t, err)

	bc, err := s.CreateBroadcast(ctx, p.ID, store.BroadcastOneshot, []string{"backend"})
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, store.AppendMessageParams{SessionID: sess.ID, Sender: store.SenderUser, Content: "hello", BroadcastID: &bc.ID})
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, store.AppendMessageParams{SessionID: sess.ID, Sender: store.SenderAgent, Content: "hi back", BroadcastID: &bc.ID})
	require.NoError(t, err)

	msgs, err := s.ListMessages(ctx, sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	byBroadcast, err := s.ListMessagesByBroadcast(ctx, bc.ID)
	require.NoError(t, err)
	require.Len(t, byBroadcast, 2)
}

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.CreateProject(ctx, "proj")
	require.NoError(t, err)
	agent, err := s.CreateAgent(ctx, store.CreateAgentParams{ProjectID: p.ID, Name: "backend", Role: "engineer", ProviderKey: "claude-like"})
	require.NoError(t, err)

	task, err := s.CreateTask(ctx, p.ID, "ship feature")
	require.NoError(t, err)
	require.Equal(t, store.TaskTodo, task.Status)

	require.NoError(t, s.AssignTask(ctx, task.ID, agent.ID, store.TaskDoing))
	require.NoError(t, s.SetTaskStatus(ctx, task.ID, store.TaskDone))

	tasks, err := s.ListTasks(ctx, p.ID, store.TaskDone)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
}
