package agentllm

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/mcptool"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/modelregistry"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/transport"
)

// NewForConformanceTest builds a Transport wired to an in-process fake agent
// subprocess that replays script, instead of a real exec.Cmd — letting
// pkg/transport/conformance_test.go exercise this variant's Submit/Events
// contract without spawning a real vendor binary. mcp must already be
// connected (see pkg/mcptool.Client.InjectSession). The returned close func
// must be called once the test is done with the Transport.
func NewForConformanceTest(mcp *mcptool.Client, allowlist []string, script []transport.FakeTurnStep) (tr *Transport, closeFn func()) {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())

	t := &Transport{
		allowlist: allowlist,
		registry:  modelregistry.New(modelregistry.AutoModelID),
		modelID:   modelregistry.AutoModelID,
		logger:    slog.Default().With("component", "agentllm", "mode", "conformance-test"),
		mcp:       mcp,
		events:    make(chan transport.Event, 32),
		cancel:    cancel,
		opened:    true,
	}
	t.stdin = stdinW

	go runFakeAgentSubprocess(stdinR, stdoutW, script)
	go t.pumpLoop(ctx, bufio.NewScanner(stdoutR))

	return t, func() {
		cancel()
		_ = stdinW.Close()
		_ = stdoutR.Close()
	}
}

// runFakeAgentSubprocess stands in for the real vendor agent binary: it
// reads control messages from stdin and, on a query, replays script as
// vendor messages on stdout, pausing after a tool_use step until the pump's
// resulting tool_result control message arrives — exactly as the real
// subprocess would wait for a live tool round trip.
func runFakeAgentSubprocess(stdin io.Reader, stdout io.WriteCloser, script []transport.FakeTurnStep) {
	defer stdout.Close()
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		var msg controlMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.Type != controlQuery {
			continue
		}

		for _, step := range script {
			writeVendorStep(stdout, step)
			if step.Kind == transport.FakeStepError {
				return
			}
			if step.Kind == transport.FakeStepToolUse && !scanner.Scan() {
				return
			}
		}
		writeVendorLine(stdout, vendorMessage{Type: vendorResult, Status: resultSuccess})
		return
	}
}

func writeVendorStep(w io.Writer, step transport.FakeTurnStep) {
	switch step.Kind {
	case transport.FakeStepText:
		writeVendorLine(w, vendorMessage{Type: vendorText, Content: step.Text})
	case transport.FakeStepToolUse:
		writeVendorLine(w, vendorMessage{
			Type: vendorToolUse, ToolUseID: "conformance-call-1",
			ToolName: step.ToolName, Arguments: step.Arguments,
		})
	case transport.FakeStepError:
		writeVendorLine(w, vendorMessage{Type: vendorResult, Status: resultError, Error: step.ErrorText})
	}
}

func writeVendorLine(w io.Writer, msg vendorMessage) {
	line, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_, _ = w.Write(append(line, '\n'))
}
