package chatsession

import "context"

// Conn abstracts the WebSocket connection a Session drives, so the state
// machine can be unit-tested without a real socket. pkg/gateway's
// implementation wraps *websocket.Conn (github.com/coder/websocket).
type Conn interface {
	// Read blocks for the next client frame. It returns an error (including
	// ctx cancellation and a peer-initiated close) exactly once, after which
	// the Session tears down and no further calls are made.
	Read(ctx context.Context) ([]byte, error)

	// Write sends one server frame. Write is only ever called from the
	// Session's single writer goroutine.
	Write(ctx context.Context, data []byte) error

	// Close closes the underlying connection with reason as the close
	// message. Safe to call more than once.
	Close(reason string) error
}
