// Package transport defines the Agent Transport contract: one live
// conversation with an LLM backed by a tool subprocess, abstracted behind
// open/submit/events/cancel/close so pkg/chatsession never needs to know
// whether the concrete variant is a local CLI child (pkg/agentllm) or a
// remote HTTP API (pkg/llmhttp).
package transport

// EventKind discriminates an Event. Exactly one of TurnComplete or
// TurnError ends the event stream for a turn; every other kind may repeat.
type EventKind string

const (
	EventAssistantText EventKind = "assistant_text"
	EventToolUse       EventKind = "tool_use"
	EventToolResult    EventKind = "tool_result"
	EventThinking      EventKind = "thinking"
	EventTurnComplete  EventKind = "turn_complete"
	EventTurnError     EventKind = "turn_error"
)

// Event is the typed record a Transport emits for the turn in progress.
// Only the fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	// Text carries AssistantText content.
	Text string

	// ToolName carries ToolUse's invoked "server.tool" name.
	ToolName string

	// ToolResultPayload carries ToolResult's result content.
	ToolResultPayload string

	// ThinkingSnippet carries Thinking's trace text.
	ThinkingSnippet string

	// ErrorKind/ErrorDetail carry TurnError's stable kind token (§ErrorKind
	// in errors.go) and a human-readable, pre-sanitized detail string.
	ErrorKind   ErrorKind
	ErrorDetail string
}

// AssistantText builds an Event for a streamed assistant text chunk.
func AssistantText(chunk string) Event { return Event{Kind: EventAssistantText, Text: chunk} }

// ToolUse builds an Event announcing a tool invocation.
func ToolUse(name string) Event { return Event{Kind: EventToolUse, ToolName: name} }

// ToolResult builds an Event carrying a tool's result payload.
func ToolResult(payload string) Event {
	return Event{Kind: EventToolResult, ToolResultPayload: payload}
}

// Thinking builds an Event carrying a thinking-trace snippet.
func Thinking(snippet string) Event { return Event{Kind: EventThinking, ThinkingSnippet: snippet} }

// TurnComplete builds the terminal success Event for a turn.
func TurnComplete() Event { return Event{Kind: EventTurnComplete} }

// TurnError builds the terminal failure Event for a turn. detail is
// sanitized before being placed in the Event — callers never need to
// sanitize again downstream. secrets are forwarded to Sanitize for
// exact-match redaction alongside its pattern-based checks.
func TurnError(kind ErrorKind, detail string, secrets ...string) Event {
	return Event{Kind: EventTurnError, ErrorKind: kind, ErrorDetail: Sanitize(detail, secrets...)}
}
