package llmhttp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/mcptool"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/modelregistry"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/transport"
)

// NewForConformanceTest builds a Transport against an in-process httptest
// server that replays script as streamed NDJSON responses, exercising this
// variant's Submit/Events contract the same shape as
// pkg/agentllm.NewForConformanceTest does for the subprocess variant. mcp
// must already be connected. Callers must Close the returned server.
func NewForConformanceTest(mcp *mcptool.Client, allowlist []string, script []transport.FakeTurnStep) (tr *Transport, srv *httptest.Server) {
	var round int
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		for round < len(script) {
			step := script[round]
			round++
			fmt.Fprintln(w, wireEventLine(step))
			if step.Kind == transport.FakeStepToolUse || step.Kind == transport.FakeStepError {
				return
			}
		}
		fmt.Fprintln(w, `{"type":"message_stop"}`)
	}))

	tr = &Transport{
		baseURL:   srv.URL,
		apiKey:    "test-token",
		client:    &http.Client{Timeout: 5 * time.Second},
		registry:  modelregistry.New(modelregistry.AutoModelID),
		modelID:   modelregistry.AutoModelID,
		allowlist: allowlist,
		logger:    slog.Default().With("component", "llmhttp", "mode", "conformance-test"),
	}
	tr.mcp = mcp
	tr.events = make(chan transport.Event, 32)
	tr.opened = true
	return tr, srv
}

func wireEventLine(step transport.FakeTurnStep) string {
	var ev wireEvent
	switch step.Kind {
	case transport.FakeStepText:
		ev = wireEvent{Type: eventContentDelta, Delta: &delta{Text: step.Text}}
	case transport.FakeStepToolUse:
		ev = wireEvent{Type: eventToolUse, ToolUseID: "conformance-call-1", ToolName: step.ToolName, Arguments: step.Arguments}
	case transport.FakeStepError:
		ev = wireEvent{Type: eventError, Error: step.ErrorText}
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return "{}"
	}
	return string(line)
}
