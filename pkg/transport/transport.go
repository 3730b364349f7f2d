package transport

import "context"

// Transport abstracts one live conversation with an LLM backed by a tool
// subprocess. A concrete variant owns the MCP child process and the LLM
// connection for its lifetime; pkg/chatsession never talks to either
// directly.
type Transport interface {
	// Open idempotently starts the MCP subprocess, then opens the LLM
	// session with the initial system directive, returning once both are
	// ready to accept a prompt. If either step fails, Open returns an error
	// and leaves no partial state — a failed Open need not be followed by
	// Close.
	Open(ctx context.Context) error

	// Submit delivers prompt to the LLM session. The caller must not call
	// Submit again until the previous turn's Events() stream has yielded a
	// TurnComplete or TurnError.
	Submit(ctx context.Context, prompt string) error

	// Events returns the channel of typed events for the turn in progress.
	// The channel yields exactly one of EventTurnComplete or EventTurnError
	// per turn, as its last event, and is safe to range over repeatedly
	// across turns — the same channel is reused.
	Events() <-chan Event

	// Cancel requests cooperative cancellation of the current turn. It does
	// not guarantee a TurnError(cancelled, ...) on Events: the subprocess
	// variant forwards an interrupt and the turn ends with whatever result
	// the agent subprocess reports next; the httpapi variant aborts the
	// turn's request, and the TurnError it then produces (whose kind depends
	// on where the request was cut off) is sent under the cancelled context
	// and may be dropped.
	Cancel()

	// Close tears down the LLM session and the MCP subprocess, ensuring
	// both are reaped. Safe to call in any state, including mid-turn or
	// after a failed Open. Never blocks indefinitely.
	Close() error
}
