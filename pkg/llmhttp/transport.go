// Package llmhttp implements the proxy Agent Transport variant (§4.3.2): the
// LLM conversation is carried as streamed HTTP requests (one per turn, plus
// one more after each tool round trip) against a configured base URL, for deployments that run the LLM behind an
// HTTP-fronted service rather than a local CLI subprocess. It mirrors the
// request/response shape of the teacher's abandoned gRPC client
// (pkg/llm/client.go's ThinkingRequest/ThinkingChunk pair) translated to
// HTTP+NDJSON instead of protobuf+gRPC.
package llmhttp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/config"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/mcptool"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/modelregistry"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/transport"
)

const systemPrompt = `You are a NetBox operations assistant. Use the available tools to ` +
	`look up and modify NetBox inventory on the user's behalf. Be precise about what you changed.`

// maxToolRounds bounds how many tool-use/tool-result round trips a single
// turn may take before the transport gives up and fails the turn, so a
// misbehaving remote service cannot loop forever.
const maxToolRounds = 8

// Transport carries one conversation as a sequence of POST requests against
// Config.LLMAPIBaseURL, while owning the same MCP child process type the
// subprocess variant does.
type Transport struct {
	baseURL string
	apiKey  string
	client  *http.Client

	registry *modelregistry.Registry
	modelID  string

	toolCommand string
	toolArgs    []string
	toolEnv     map[string]string
	allowlist   []string

	// secrets holds the process's actual configured credential values,
	// passed to every TurnError for exact-match redaction alongside
	// Sanitize's pattern-based checks.
	secrets []string

	logger *slog.Logger

	mu         sync.Mutex
	mcp        *mcptool.Client
	sup        *mcptool.Supervisor
	history    []chatMessage
	events     chan transport.Event
	cancel     context.CancelFunc
	procCancel context.CancelFunc
	opened     bool
	closing    bool
}

// New constructs a Transport. Nothing is started until Open is called.
func New(cfg *config.Config, registry *modelregistry.Registry, modelID string) *Transport {
	return &Transport{
		baseURL:     strings.TrimRight(cfg.LLMAPIBaseURL, "/"),
		apiKey:      cfg.LLMAPIKey,
		client:      &http.Client{Timeout: cfg.LLMAPITimeout},
		registry:    registry,
		modelID:     modelID,
		toolCommand: cfg.ToolServerCommand,
		toolArgs:    cfg.ToolServerArgs,
		toolEnv:     cfg.ToolServerEnv,
		allowlist:   cfg.ToolAllowedPrefixes,
		secrets:     configSecrets(cfg),
		logger:      slog.Default().With("component", "llmhttp", "model", modelID),
	}
}

// configSecrets collects every credential value a Transport might
// otherwise leak into an error detail string, for exact-match redaction.
func configSecrets(cfg *config.Config) []string {
	secrets := []string{cfg.LLMAPIKey, cfg.ToolAuthToken}
	for _, v := range cfg.ToolServerEnv {
		secrets = append(secrets, v)
	}
	return secrets
}

// Open starts the MCP tool child. The remote LLM service itself is
// stateless between turns, so there is nothing else to open.
func (t *Transport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.opened {
		return nil
	}

	mcpClient := mcptool.New("tool-server", t.toolCommand, t.toolArgs, t.toolEnv)
	if err := mcpClient.Initialize(ctx); err != nil {
		return fmt.Errorf("llmhttp: starting tool server: %w", err)
	}
	procCtx, procCancel := context.WithCancel(context.Background())
	sup := mcptool.NewSupervisor(mcpClient)
	sup.Watch(procCtx)

	t.mcp = mcpClient
	t.sup = sup
	t.procCancel = procCancel
	t.events = make(chan transport.Event, 32)
	t.opened = true

	go t.watchToolServer(procCtx)
	return nil
}

// watchToolServer surfaces an unexpected tool-server exit as a TurnError,
// since a turn mid-flight that depends on it can no longer complete. This
// mirrors pkg/agentllm.Transport.watchToolServer for the httpapi variant.
func (t *Transport) watchToolServer(ctx context.Context) {
	select {
	case err, ok := <-t.sup.Dead():
		if !ok || err == nil {
			return
		}
		t.emit(ctx, transport.TurnError(transport.ErrorToolBackendUnavailable, err.Error(), t.secrets...))
	case <-ctx.Done():
	}
}

// Submit starts a new turn in a background goroutine; Events() delivers its
// progress and terminal outcome.
func (t *Transport) Submit(ctx context.Context, prompt string) error {
	t.mu.Lock()
	if !t.opened {
		t.mu.Unlock()
		return fmt.Errorf("llmhttp: transport not open")
	}
	turnCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.history = append(t.history, chatMessage{Role: "user", Content: prompt})
	history := append([]chatMessage(nil), t.history...)
	t.mu.Unlock()

	go t.runTurn(turnCtx, history)
	return nil
}

// Events returns the channel fed by turn goroutines.
func (t *Transport) Events() <-chan transport.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events
}

// Cancel aborts the in-flight HTTP request for the current turn, if any.
func (t *Transport) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
}

// Close tears down the MCP child. Safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closing {
		return nil
	}
	t.closing = true
	if t.cancel != nil {
		t.cancel()
	}
	if t.procCancel != nil {
		t.procCancel()
	}
	if t.mcp != nil {
		_ = t.mcp.Close()
	}
	return nil
}

// runTurn drives the POST/stream/tool-result loop for one turn, emitting
// Events as it goes and appending the final assistant reply to history.
func (t *Transport) runTurn(ctx context.Context, history []chatMessage) {
	tools, err := t.toolDefs(ctx)
	if err != nil {
		t.emit(ctx, transport.TurnError(transport.ErrorToolBackendUnavailable, err.Error(), t.secrets...))
		return
	}

	var assistantText strings.Builder
	for round := 0; round < maxToolRounds; round++ {
		ev, terminal, toolCall := t.streamOneRequest(ctx, history, tools, &assistantText)
		if terminal {
			if ev != nil && ev.Kind == transport.EventTurnComplete {
				t.appendAssistantReply(assistantText.String())
			}
			if ev != nil {
				t.emit(ctx, *ev)
			}
			return
		}
		if ev != nil {
			t.emit(ctx, *ev)
		}
		if toolCall == nil {
			continue
		}

		name := mcptool.NormalizeToolName(toolCall.ToolName)
		t.emit(ctx, transport.ToolUse(name))
		if !mcptool.Allowed(name, t.allowlist) {
			t.emit(ctx, transport.TurnError(transport.ErrorToolNotAllowed,
				fmt.Sprintf("tool %q is not on the allow-list", name), t.secrets...))
			return
		}
		_, toolName, err := mcptool.SplitToolName(name)
		if err != nil {
			t.emit(ctx, transport.TurnError(transport.ErrorToolNotAllowed, err.Error(), t.secrets...))
			return
		}
		params, err := mcptool.ParseActionInput(toolCall.Arguments)
		if err != nil {
			history = append(history, chatMessage{Role: "tool", Content: fmt.Sprintf("invalid arguments: %s", err)})
			continue
		}
		result, err := t.mcp.CallTool(ctx, toolName, params)
		if err != nil {
			t.emit(ctx, transport.TurnError(transport.ErrorToolBackendUnavailable, err.Error(), t.secrets...))
			return
		}
		content := mcptool.ExtractTextContent(result)
		t.emit(ctx, transport.ToolResult(content))
		history = append(history, chatMessage{Role: "tool", Content: content})
	}

	t.emit(ctx, transport.TurnError(transport.ErrorInternal, "tool round limit exceeded", t.secrets...))
}

// streamOneRequest issues one POST and reads its streamed response,
// returning at most one of: a pending toolCall to execute and continue the
// loop, or a terminal Event (turn_complete/turn_error) to emit and stop.
func (t *Transport) streamOneRequest(ctx context.Context, history []chatMessage, tools []toolDef, assistantText *strings.Builder) (ev *transport.Event, terminal bool, toolCall *wireEvent) {
	handle, _ := t.registry.VendorHandle(t.modelID)
	body, err := json.Marshal(chatRequest{
		Model:    handle,
		Messages: history,
		Tools:    tools,
		System:   systemPrompt,
	})
	if err != nil {
		e := transport.TurnError(transport.ErrorInternal, err.Error(), t.secrets...)
		return &e, true, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		e := transport.TurnError(transport.ErrorInternal, err.Error(), t.secrets...)
		return &e, true, nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			e := transport.TurnError(transport.ErrorCancelled, "turn cancelled", t.secrets...)
			return &e, true, nil
		}
		e := transport.TurnError(transport.ErrorModelUnavailable, err.Error(), t.secrets...)
		return &e, true, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e := transport.TurnError(transport.ErrorModelUnavailable, fmt.Sprintf("unexpected status %d", resp.StatusCode), t.secrets...)
		return &e, true, nil
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		wev, err := decodeEvent([]byte(line))
		if err != nil {
			continue
		}
		switch wev.Type {
		case eventContentDelta:
			if wev.Delta == nil {
				continue
			}
			if wev.Delta.Thinking != "" {
				t.emit(ctx, transport.Thinking(wev.Delta.Thinking))
			}
			if wev.Delta.Text != "" {
				assistantText.WriteString(wev.Delta.Text)
				t.emit(ctx, transport.AssistantText(wev.Delta.Text))
			}
		case eventToolUse:
			wevCopy := wev
			return nil, false, &wevCopy
		case eventMessageStop:
			e := transport.TurnComplete()
			return &e, true, nil
		case eventError:
			e := transport.TurnError(transport.ErrorInternal, wev.Error, t.secrets...)
			return &e, true, nil
		default:
			t.logger.Warn("dropping unrecognized vendor event", "type", wev.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		e := transport.TurnError(transport.ErrorInternal, err.Error(), t.secrets...)
		return &e, true, nil
	}

	e := transport.TurnError(transport.ErrorInternal, "response stream ended without a terminal event", t.secrets...)
	return &e, true, nil
}

func (t *Transport) appendAssistantReply(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append(t.history, chatMessage{Role: "assistant", Content: text})
}

func (t *Transport) emit(ctx context.Context, ev transport.Event) {
	select {
	case t.events <- ev:
	case <-ctx.Done():
	}
}

func (t *Transport) toolDefs(ctx context.Context) ([]toolDef, error) {
	tools, err := t.mcp.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]toolDef, 0, len(tools))
	for _, d := range tools {
		schema, err := json.Marshal(d.InputSchema)
		if err != nil {
			schema = nil
		}
		out = append(out, toolDef{Name: d.Name, Description: d.Description, InputSchema: schema})
	}
	return out, nil
}
