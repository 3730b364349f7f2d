package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBadFrame is the sentinel wrapped by every Decode failure — unparseable
// JSON, an unrecognized frame shape, or a chat frame with an empty message.
// Callers map this to a bad_frame error chunk and keep the connection open.
var ErrBadFrame = errors.New("bad client frame")

// Decode parses a raw client→server WebSocket message. It is strict about
// the frame's Type (unknown/unsupported values are rejected) but tolerant
// of extra JSON fields — the teacher's pkg/events.ClientMessage carries the
// same "ignore what you don't recognize, reject what's unrecognizable"
// split.
func Decode(raw []byte) (ClientFrame, error) {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return ClientFrame{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}

	if frame.Type == "" {
		frame.Type = string(ClientFrameChat)
	}

	switch ClientFrameType(frame.Type) {
	case ClientFrameChat:
		if frame.Message == "" {
			return ClientFrame{}, fmt.Errorf("%w: message must not be empty", ErrBadFrame)
		}
	case ClientFrameReset:
		// no further fields required
	case ClientFrameModelChange:
		if frame.Model == "" {
			return ClientFrame{}, fmt.Errorf("%w: model_change requires a model", ErrBadFrame)
		}
	default:
		return ClientFrame{}, fmt.Errorf("%w: unrecognized type %q", ErrBadFrame, frame.Type)
	}

	return frame, nil
}

// Encode serializes a StreamChunk to compact JSON for writing to the
// WebSocket. Encode only ever sees the constructors in types.go, so it
// never has an unknown-type chunk to worry about.
func Encode(chunk StreamChunk) ([]byte, error) {
	return json.Marshal(chunk)
}
