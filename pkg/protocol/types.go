// Package protocol defines the gateway's WebSocket wire types and the codec
// between them and the typed events produced by pkg/transport.
package protocol

// StreamChunk is a server→client wire frame. The codec never emits a type
// outside ChunkType* below.
type StreamChunk struct {
	Type      string         `json:"type"`
	Content   string         `json:"content,omitempty"`
	Completed bool           `json:"completed"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Chunk type tags. completed=true is only ever set on ChunkTypeText (marks
// end-of-turn success) or ChunkTypeError (marks end-of-turn failure); every
// other type always carries completed=false.
const (
	ChunkTypeConnected     = "connected"
	ChunkTypeText          = "text"
	ChunkTypeToolUse       = "tool_use"
	ChunkTypeToolResult    = "tool_result"
	ChunkTypeThinking      = "thinking"
	ChunkTypeError         = "error"
	ChunkTypeResetComplete = "reset_complete"
	ChunkTypeModelChanged  = "model_changed"
)

// ClientFrameType discriminates an inbound ClientFrame. A frame with an
// empty Type is a Prompt (the implicit "chat" shape from spec §3).
type ClientFrameType string

const (
	ClientFrameChat        ClientFrameType = "chat"
	ClientFrameReset       ClientFrameType = "reset"
	ClientFrameModelChange ClientFrameType = "model_change"
)

// ClientFrame is the client→server wire shape. Unknown JSON fields are
// tolerated; an unrecognized Type (after defaulting) is rejected by Decode.
type ClientFrame struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
	Model   string `json:"model,omitempty"`
}

// Connected builds the banner chunk sent as the first frame of every
// accepted WebSocket, before the client has spoken.
func Connected(banner, modelID, modelName string, isAuto bool) StreamChunk {
	return StreamChunk{
		Type:    ChunkTypeConnected,
		Content: banner,
		Metadata: map[string]any{
			"model": map[string]any{
				"id":     modelID,
				"name":   modelName,
				"isAuto": isAuto,
			},
		},
	}
}

// Text builds a streamed assistant-text chunk. completed marks end-of-turn.
func Text(content string, completed bool) StreamChunk {
	return StreamChunk{Type: ChunkTypeText, Content: content, Completed: completed}
}

// ToolUse builds a chunk announcing a tool invocation.
func ToolUse(name string) StreamChunk {
	return StreamChunk{Type: ChunkTypeToolUse, Content: name}
}

// ToolResult builds a chunk carrying a tool's result payload.
func ToolResult(payload string) StreamChunk {
	return StreamChunk{Type: ChunkTypeToolResult, Content: payload}
}

// Thinking builds a chunk carrying a thinking-trace snippet.
func Thinking(snippet string) StreamChunk {
	return StreamChunk{Type: ChunkTypeThinking, Content: snippet}
}

// Error builds the terminal error chunk for a failed turn, or a recovered
// per-frame error when completed=false. content is the bare kind token
// (e.g. "busy", "unknown_model") per the wire grammar; detail carries the
// human-readable explanation in metadata instead.
func Error(kind, detail string, completed bool) StreamChunk {
	return StreamChunk{
		Type:      ChunkTypeError,
		Content:   kind,
		Completed: completed,
		Metadata:  map[string]any{"kind": kind, "detail": detail},
	}
}

// ResetComplete builds the terminal chunk for an accepted reset frame.
func ResetComplete() StreamChunk {
	return StreamChunk{Type: ChunkTypeResetComplete, Content: "ok"}
}

// ModelChanged builds the terminal chunk for an accepted model_change frame.
// archivedMessages holds the content of any server-synthesized messages
// archived by the switch (typically empty; see spec §4.2).
func ModelChanged(modelID string, isAuto bool, previous string, archivedMessages []string) StreamChunk {
	if archivedMessages == nil {
		archivedMessages = []string{}
	}
	return StreamChunk{
		Type: ChunkTypeModelChanged,
		Metadata: map[string]any{
			"model":             map[string]any{"id": modelID, "isAuto": isAuto},
			"previous":          previous,
			"archived_messages": archivedMessages,
		},
	}
}
