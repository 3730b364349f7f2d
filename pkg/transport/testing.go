package transport

// FakeStepKind discriminates one synthetic step of a FakeTurnStep script.
type FakeStepKind string

const (
	// FakeStepText emits one assistant text chunk.
	FakeStepText FakeStepKind = "text"
	// FakeStepToolUse emits a tool invocation and waits for its real result
	// before the script continues, the same way the live wire protocols do.
	FakeStepToolUse FakeStepKind = "tool_use"
	// FakeStepError ends the turn with a terminal error, skipping the
	// implicit turn_complete a script otherwise ends with.
	FakeStepError FakeStepKind = "error"
)

// FakeTurnStep is one synthetic event a conformance fake backend replays.
// pkg/agentllm.NewForConformanceTest and pkg/llmhttp.NewForConformanceTest
// both consume the same []FakeTurnStep script, letting
// pkg/transport/conformance_test.go assert the two Transport variants
// produce equivalent Event sequences for identical scripted backends.
type FakeTurnStep struct {
	Kind FakeStepKind

	// Text carries FakeStepText's chunk.
	Text string

	// ToolName/Arguments carry FakeStepToolUse's invocation.
	ToolName  string
	Arguments string

	// ErrorText carries FakeStepError's detail.
	ErrorText string
}
