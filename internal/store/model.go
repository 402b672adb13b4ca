package store

import "time"

// SessionStatus is the lifecycle state of a Session (spec §3).
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionExpired SessionStatus = "expired"
	SessionInvalid SessionStatus = "invalid"
)

// MessageSender identifies who authored a Message.
type MessageSender string

const (
	SenderUser  MessageSender = "user"
	SenderAgent MessageSender = "agent"
	SenderSys   MessageSender = "system"
)

// BroadcastMode selects how a Broadcast fans out to its targets.
type BroadcastMode string

const (
	BroadcastOneshot BroadcastMode = "oneshot"
	BroadcastRepl    BroadcastMode = "repl"
)

// TaskStatus tracks a Task through the Kanban-style lifecycle consumed by
// the (out-of-core) sessions UI.
type TaskStatus string

const (
	TaskTodo  TaskStatus = "todo"
	TaskDoing TaskStatus = "doing"
	TaskDone  TaskStatus = "done"
)

// Project is the root of the entity graph; deleting one cascades to every
// Agent, Session, Message, Broadcast, and Task beneath it.
type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Agent is a named, role-bound assistant instance bound to one provider.
type Agent struct {
	ID           string
	ProjectID    string
	Name         string
	Role         string
	ProviderKey  string
	Model        string
	AllowedTools []string
	SystemPrompt string
	CreatedAt    time.Time
}

// Session maps an internal conversation id to a provider-native resume
// token (when the provider family has one).
type Session struct {
	ID                string
	ProjectID         string
	AgentID           string
	ProviderKey       string
	ProviderSessionID *string
	Status            SessionStatus
	CreatedAt         time.Time
	LastActivity      *time.Time
}

// Message is an append-only record of one turn in a session.
type Message struct {
	ID          string
	SessionID   string
	Sender      MessageSender
	Content     string
	BroadcastID *string
	CreatedAt   time.Time
}

// Broadcast correlates every per-target attempt of a fan-out operation.
type Broadcast struct {
	ID        string
	ProjectID string
	Mode      BroadcastMode
	Targets   []string
	CreatedAt time.Time
}

// Task is consumed by the (out-of-core) Kanban UI; the store still owns
// its lifecycle since every entity's rows live in one place.
type Task struct {
	ID              string
	ProjectID       string
	Title           string
	Status          TaskStatus
	AssigneeAgentID *string
	CreatedAt       time.Time
}

// SessionListFilter narrows list_sessions (spec §4.2). Zero values mean
// "no filter" except Status, which defaults to SessionActive, and Limit,
// which defaults to 50.
type SessionListFilter struct {
	Agent       string
	ProviderKey string
	Status      SessionStatus
	Limit       int
	Offset      int
}
