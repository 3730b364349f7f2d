package gateway

import (
	"context"
	"errors"

	"github.com/coder/websocket"
)

// errBinaryFrame is returned by Read when the peer sends a Binary-opcode
// frame. The client frame grammar (spec §4.1) is JSON text only; accepting
// Binary would let a payload that merely happens to decode as valid JSON
// bypass that rule.
var errBinaryFrame = errors.New("gateway: binary frames are rejected")

// wsConn adapts *websocket.Conn to chatsession.Conn and owns the
// message-type handling for the Session's reads and writes; accepting the
// upgrade and closing with a status code happen in server.go.
type wsConn struct {
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	if typ != websocket.MessageText {
		_ = c.conn.Close(websocket.StatusPolicyViolation, errBinaryFrame.Error())
		return nil, errBinaryFrame
	}
	return data, nil
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close(reason string) error {
	return c.conn.Close(websocket.StatusNormalClosure, reason)
}
