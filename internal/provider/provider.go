// Package provider translates a (provider, mode, context) triple into an
// argument vector and, for cursor-like one-shot calls, parses the
// provider's streaming JSON output into stdout_line events.
package provider

import "strings"

// Key identifies a provider family.
type Key string

const (
	ClaudeLike Key = "claude-like"
	CursorLike Key = "cursor-like"
	GeminiLike Key = "gemini-like"
)

// Placeholder tokens substituted into argument templates.
const (
	PlaceholderPrompt       = "{prompt}"
	PlaceholderSessionID    = "{session_id}"
	PlaceholderChatID       = "{chat_id}"
	PlaceholderSystemPrompt = "{system_prompt}"
	PlaceholderAllowedTools = "{allowed_tools}"
)

// Template describes one provider family's command line shape.
type Template struct {
	Command      string
	OneshotArgs  []string
	ReplArgs     []string
	ForbidFlags  []string
	StreamOutput bool // cursor-like one-shot forces streaming JSON output
}

// Context carries the substitution values available when rendering a
// template. AllowedTools is rendered as an ordered token sequence, never
// deduplicated or sorted, per the Agent entity's own ordering.
type Context struct {
	Prompt       string
	SessionID    string
	ChatID       string
	SystemPrompt string
	AllowedTools []string
}

// Registry maps a provider key to its template.
type Registry map[Key]Template

// DefaultRegistry returns the built-in template set for the three
// provider families named in spec §4.3.
func DefaultRegistry() Registry {
	return Registry{
		ClaudeLike: {
			Command:     "claude",
			OneshotArgs: []string{"-p", PlaceholderPrompt, "--session-id", PlaceholderSessionID},
			ReplArgs:    []string{"--resume", PlaceholderSessionID},
		},
		CursorLike: {
			Command:      "cursor-agent",
			OneshotArgs:  []string{PlaceholderPrompt, "--chat-id", PlaceholderChatID, "--output-format", "stream-json"},
			ReplArgs:     []string{"--resume", PlaceholderChatID},
			ForbidFlags:  []string{"--force"},
			StreamOutput: true,
		},
		GeminiLike: {
			Command:     "gemini",
			OneshotArgs: []string{"-p", PlaceholderPrompt},
			ReplArgs:    []string{"--system-prompt", PlaceholderSystemPrompt},
		},
	}
}

// RenderOneshotArgs substitutes placeholders into a one-shot argument
// vector. Missing context values leave the literal placeholder absent
// (the empty string), never the placeholder token itself.
func (t Template) RenderOneshotArgs(ctx Context) []string {
	return render(t.OneshotArgs, ctx)
}

// RenderReplArgs substitutes placeholders into a REPL-start argument
// vector.
func (t Template) RenderReplArgs(ctx Context) []string {
	return render(t.ReplArgs, ctx)
}

func render(args []string, ctx Context) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = substitute(a, ctx)
	}
	return out
}

func substitute(arg string, ctx Context) string {
	replacer := strings.NewReplacer(
		PlaceholderPrompt, ctx.Prompt,
		PlaceholderSessionID, ctx.SessionID,
		PlaceholderChatID, ctx.ChatID,
		PlaceholderSystemPrompt, ctx.SystemPrompt,
		PlaceholderAllowedTools, strings.Join(ctx.AllowedTools, ","),
	)
	return replacer.Replace(arg)
}

// ClassifyError maps a provider's own error text into whether its native
// session token should be treated as expired/invalid, triggering the
// Session Resolver's fallback-to-creation path (spec §4.3, §4.7).
func ClassifyError(key Key, stderrText string) bool {
	lower := strings.ToLower(stderrText)
	switch key {
	case ClaudeLike:
		return strings.Contains(lower, "no conversation found") ||
			strings.Contains(lower, "unknown session") ||
			strings.Contains(lower, "session not found")
	case CursorLike:
		return strings.Contains(lower, "chat not found") ||
			strings.Contains(lower, "invalid chat id")
	default:
		return false
	}
}
