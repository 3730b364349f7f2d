package llmhttp

import "encoding/json"

// chatMessage is one turn of conversation history sent in every request
// body, accumulated by the Transport across turns.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// toolDef describes one callable tool to the remote LLM service, mirroring
// the shape agentllm sends to the subprocess variant.
type toolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// chatRequest is the body of one POST to {baseURL}/v1/messages. Model is
// omitted entirely for "auto", letting the remote service choose.
type chatRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []chatMessage `json:"messages"`
	Tools    []toolDef     `json:"tools,omitempty"`
	System   string        `json:"system,omitempty"`
}

// delta carries incremental content for a content_block_delta event.
type delta struct {
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

// wireEvent is one newline-delimited JSON object in the streamed response
// body. Unrecognized Type values are dropped by the reader, matching the
// subprocess variant's vendor message handling (§4.3.4).
type wireEvent struct {
	Type string `json:"type"`

	// content_block_delta
	Delta *delta `json:"delta,omitempty"`

	// tool_use
	ToolUseID string `json:"id,omitempty"`
	ToolName  string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// error
	Error string `json:"error,omitempty"`
}

const (
	eventContentDelta = "content_block_delta"
	eventToolUse      = "tool_use"
	eventMessageStop  = "message_stop"
	eventError        = "error"
)

func decodeEvent(line []byte) (wireEvent, error) {
	var ev wireEvent
	err := json.Unmarshal(line, &ev)
	return ev, err
}
