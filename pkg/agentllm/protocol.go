package agentllm

import "encoding/json"

// controlMessage is a gateway→subprocess line of the control protocol,
// modeled on the retrieval pack's claude-agent-sdk-go Protocol (control
// messages framed as newline-delimited JSON over stdin) translated here
// from that SDK's internal transport into this gateway's own subprocess
// contract, since the vendor agent binary itself is an opaque collaborator
// (spec §1).
type controlMessage struct {
	Type string `json:"type"`

	// initialize
	Model        string `json:"model,omitempty"`
	Auto         bool   `json:"auto,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Tools        []tool `json:"tools,omitempty"`

	// query
	Prompt string `json:"prompt,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

const (
	controlInitialize = "initialize"
	controlQuery      = "query"
	controlInterrupt  = "interrupt"
	controlToolResult = "tool_result"
)

// vendorMessage is a subprocess→gateway line. Unknown Type values are
// dropped by the pump with a warning (spec §4.3.4) rather than surfaced.
type vendorMessage struct {
	Type string `json:"type"`

	// thinking / text
	Content string `json:"content,omitempty"`

	// tool_use
	ToolUseID string `json:"id,omitempty"`
	ToolName  string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// result
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

const (
	vendorThinking = "thinking"
	vendorText     = "text"
	vendorToolUse  = "tool_use"
	vendorResult   = "result"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

func encodeControl(msg controlMessage) ([]byte, error) {
	line, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

func decodeVendor(line []byte) (vendorMessage, error) {
	var msg vendorMessage
	err := json.Unmarshal(line, &msg)
	return msg, err
}
