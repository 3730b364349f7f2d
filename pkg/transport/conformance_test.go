package transport_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/agentllm"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/llmhttp"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/mcptool"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/transport"
)

var emptySchema = json.RawMessage(`{"type":"object"}`)

// startInMemoryToolServer mirrors the per-package helper of the same name in
// pkg/agentllm and pkg/llmhttp's own test files, duplicated here since an
// external _test package can't reach their unexported test helpers.
func startInMemoryToolServer(t *testing.T, tools map[string]mcpsdk.ToolHandler) *mcptool.Client {
	t.Helper()

	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "netbox-server", Version: "test"}, nil)
	for name, handler := range tools {
		server.AddTool(&mcpsdk.Tool{Name: name, Description: "test tool: " + name, InputSchema: emptySchema}, handler)
	}

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	go func() { _ = server.Run(context.Background(), serverTransport) }()

	client := mcptool.New("netbox", "unused", nil, nil)
	sdkClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "netbox-chat-gateway-test", Version: "test"}, nil)
	session, err := sdkClient.Connect(context.Background(), clientTransport, nil)
	require.NoError(t, err)
	client.InjectSession(sdkClient, session)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func drainUntilTerminal(t *testing.T, ch <-chan transport.Event) []transport.Event {
	t.Helper()
	var events []transport.Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			events = append(events, ev)
			if ev.Kind == transport.EventTurnComplete || ev.Kind == transport.EventTurnError {
				return events
			}
		case <-deadline:
			t.Fatal("timed out waiting for a terminal event")
		}
	}
}

// variantBuilder constructs one Transport variant against a shared
// FakeTurnStep script, returning the Transport and its teardown func.
type variantBuilder func(mcp *mcptool.Client, allowlist []string, script []transport.FakeTurnStep) (transport.Transport, func())

var variants = map[string]variantBuilder{
	"subprocess": func(mcp *mcptool.Client, allowlist []string, script []transport.FakeTurnStep) (transport.Transport, func()) {
		tr, closeFn := agentllm.NewForConformanceTest(mcp, allowlist, script)
		return tr, closeFn
	},
	"httpapi": func(mcp *mcptool.Client, allowlist []string, script []transport.FakeTurnStep) (transport.Transport, func()) {
		tr, srv := llmhttp.NewForConformanceTest(mcp, allowlist, script)
		return tr, srv.Close
	},
}

// scenario is one script replayed against every variant in variants, with
// the assertions that must hold for each.
type scenario struct {
	name      string
	script    []transport.FakeTurnStep
	tools     map[string]mcpsdk.ToolHandler
	allowlist []string
	assert    func(t *testing.T, events []transport.Event)
}

func assembleText(events []transport.Event) string {
	var out string
	for _, ev := range events {
		if ev.Kind == transport.EventAssistantText {
			out += ev.Text
		}
	}
	return out
}

var scenarios = []scenario{
	{
		name:   "simple text reply",
		script: []transport.FakeTurnStep{{Kind: transport.FakeStepText, Text: "hello "}, {Kind: transport.FakeStepText, Text: "there"}},
		assert: func(t *testing.T, events []transport.Event) {
			require.NotEmpty(t, events)
			assert.Equal(t, transport.EventTurnComplete, events[len(events)-1].Kind)
			assert.Equal(t, "hello there", assembleText(events))
		},
	},
	{
		name: "tool use round trip",
		script: []transport.FakeTurnStep{
			{Kind: transport.FakeStepToolUse, ToolName: "netbox.list_devices", Arguments: "{}"},
			{Kind: transport.FakeStepText, Text: "done"},
		},
		tools: map[string]mcpsdk.ToolHandler{
			"list_devices": func(_ context.Context, _ *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
				return &mcpsdk.CallToolResult{Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "3 devices"}}}, nil
			},
		},
		assert: func(t *testing.T, events []transport.Event) {
			var sawToolUse, sawToolResult bool
			for _, ev := range events {
				switch ev.Kind {
				case transport.EventToolUse:
					sawToolUse = true
					assert.Equal(t, "netbox.list_devices", ev.ToolName)
				case transport.EventToolResult:
					sawToolResult = true
					assert.Equal(t, "3 devices", ev.ToolResultPayload)
				}
			}
			assert.True(t, sawToolUse, "expected a tool_use event")
			assert.True(t, sawToolResult, "expected a tool_result event")
			assert.Equal(t, transport.EventTurnComplete, events[len(events)-1].Kind)
			assert.Equal(t, "done", assembleText(events))
		},
	},
	{
		name:      "tool not allowed",
		script:    []transport.FakeTurnStep{{Kind: transport.FakeStepToolUse, ToolName: "billing.charge_card", Arguments: "{}"}},
		allowlist: []string{"netbox."},
		assert: func(t *testing.T, events []transport.Event) {
			last := events[len(events)-1]
			assert.Equal(t, transport.EventTurnError, last.Kind)
			assert.Equal(t, transport.ErrorToolNotAllowed, last.ErrorKind)
		},
	},
}

// TestConformance_BothTransportVariants runs every scenario against both
// the subprocess (pkg/agentllm) and httpapi (pkg/llmhttp) Transport
// variants, asserting the Event sequence each produces for an identical
// scripted backend is equivalent — the "unchanged responsibility across
// variants" contract both packages are built to (spec §4.3.3).
func TestConformance_BothTransportVariants(t *testing.T) {
	for _, sc := range scenarios {
		sc := sc
		for name, build := range variants {
			build := build
			t.Run(sc.name+"/"+name, func(t *testing.T) {
				mcp := startInMemoryToolServer(t, sc.tools)
				tr, teardown := build(mcp, sc.allowlist, sc.script)
				defer teardown()

				require.NoError(t, tr.Submit(context.Background(), "do it"))
				events := drainUntilTerminal(t, tr.Events())
				sc.assert(t, events)
			})
		}
	}
}
