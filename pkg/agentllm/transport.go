// Package agentllm implements the subprocess Agent Transport variant: the
// gateway spawns the vendor agent CLI as a local child process and speaks
// the newline-delimited JSON control protocol defined in protocol.go over
// its stdin/stdout, while the MCP tool server runs as a second child
// supervised through pkg/mcptool. This is the "direct transport" named in
// spec §4.3.1, grounded in the retrieval pack's claude-agent-sdk-go
// (subprocess + protocol + message-pump architecture), though the wire
// format here is this gateway's own.
package agentllm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/config"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/mcptool"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/modelregistry"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/transport"
)

const systemPrompt = `You are a NetBox operations assistant. Use the available tools to ` +
	`look up and modify NetBox inventory on the user's behalf. Be precise about what you changed.`

// Transport spawns and owns one agent subprocess and one MCP tool
// subprocess for the lifetime of a chat session.
type Transport struct {
	agentCommand string
	agentArgs    []string

	toolCommand string
	toolArgs    []string
	toolEnv     map[string]string
	allowlist   []string

	// secrets holds the process's actual configured credential values
	// (LLM API key, tool auth token, tool-server env values), passed to
	// every TurnError for exact-match redaction alongside Sanitize's
	// pattern-based checks.
	secrets []string

	registry *modelregistry.Registry
	modelID  string

	logger *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	mcp     *mcptool.Client
	sup     *mcptool.Supervisor
	events  chan transport.Event
	cancel  context.CancelFunc
	opened  bool
	closing bool
}

// New constructs a Transport. cfg supplies both subprocess commands; the
// returned Transport does not start anything until Open is called.
func New(cfg *config.Config, registry *modelregistry.Registry, modelID string) *Transport {
	return &Transport{
		agentCommand: cfg.AgentCommand,
		agentArgs:    cfg.AgentArgs,
		toolCommand:  cfg.ToolServerCommand,
		toolArgs:     cfg.ToolServerArgs,
		toolEnv:      cfg.ToolServerEnv,
		allowlist:    cfg.ToolAllowedPrefixes,
		secrets:      configSecrets(cfg),
		registry:     registry,
		modelID:      modelID,
		logger:       slog.Default().With("component", "agentllm", "model", modelID),
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

// Open starts the MCP child, then the agent child, and sends the
// initialize control message. On any failure both children are reaped and
// Open returns an error with no partial state left behind.
func (t *Transport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.opened {
		return nil
	}

	mcpClient := mcptool.New("tool-server", t.toolCommand, t.toolArgs, t.toolEnv)
	if err := mcpClient.Initialize(ctx); err != nil {
		return fmt.Errorf("agentllm: starting tool server: %w", err)
	}

	procCtx, cancel := context.WithCancel(context.Background())
	sup := mcptool.NewSupervisor(mcpClient)
	sup.Watch(procCtx)

	cmd := exec.CommandContext(procCtx, t.agentCommand, t.agentArgs...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		_ = mcpClient.Close()
		return fmt.Errorf("agentllm: wiring agent stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		_ = mcpClient.Close()
		return fmt.Errorf("agentllm: wiring agent stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		_ = mcpClient.Close()
		return fmt.Errorf("agentllm: starting agent subprocess: %w", err)
	}

	t.cmd = cmd
	t.stdin = stdin
	t.mcp = mcpClient
	t.sup = sup
	t.cancel = cancel
	t.events = make(chan transport.Event, 32)

	tools, err := mcpClient.ListTools(ctx)
	if err != nil {
		t.closeLocked()
		return fmt.Errorf("agentllm: listing tools: %w", err)
	}

	handle, _ := t.registry.VendorHandle(t.modelID)
	init := controlMessage{
		Type:         controlInitialize,
		Model:        handle,
		Auto:         handle == "",
		SystemPrompt: systemPrompt,
		Tools:        toolDescriptors(tools),
	}
	if err := t.writeControl(init); err != nil {
		t.closeLocked()
		return fmt.Errorf("agentllm: sending initialize: %w", err)
	}

	go t.pumpLoop(procCtx, bufio.NewScanner(stdout))
	go t.watchToolServer(procCtx)

	t.opened = true
	return nil
}

// watchToolServer surfaces an unexpected tool-server exit as a TurnError,
// since a turn mid-flight that depends on it can no longer complete.
func (t *Transport) watchToolServer(ctx context.Context) {
	select {
	case err, ok := <-t.sup.Dead():
		if !ok || err == nil {
			return
		}
		emit(ctx, t.events, transport.TurnError(transport.ErrorToolBackendUnavailable, err.Error(), t.secrets...))
	case <-ctx.Done():
	}
}

// Submit sends a query control message carrying prompt.
func (t *Transport) Submit(ctx context.Context, prompt string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.opened {
		return fmt.Errorf("agentllm: transport not open")
	}
	return t.writeControl(controlMessage{Type: controlQuery, Prompt: prompt})
}

// Events returns the channel fed by the pump goroutine.
func (t *Transport) Events() <-chan transport.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events
}

// Cancel requests the agent subprocess interrupt the turn in progress.
func (t *Transport) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.opened {
		return
	}
	if err := t.writeControl(controlMessage{Type: controlInterrupt}); err != nil {
		t.logger.Warn("failed to deliver interrupt", "error", err)
	}
}

// Close tears down both children. Safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *Transport) closeLocked() error {
	if t.closing {
		return nil
	}
	t.closing = true
	if t.cancel != nil {
		t.cancel()
	}
	if t.stdin != nil {
		_ = t.stdin.Close()
	}
	if t.mcp != nil {
		_ = t.mcp.Close()
	}
	if t.cmd != nil && t.cmd.Process != nil {
		_ = t.cmd.Wait()
	}
	return nil
}

func (t *Transport) writeControl(msg controlMessage) error {
	line, err := encodeControl(msg)
	if err != nil {
		return err
	}
	_, err = t.stdin.Write(line)
	return err
}

// pumpLoop reads one vendor message per line from the agent subprocess's
// stdout and translates each into Events, dispatching tool_use messages
// through the MCP child and round-tripping their results.
func (t *Transport) pumpLoop(ctx context.Context, scanner *bufio.Scanner) {
	p := &pump{
		mcp:       t.mcp,
		allowlist: t.allowlist,
		send:      t.writeControl,
		logger:    t.logger,
		secrets:   t.secrets,
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		msg, err := decodeVendor([]byte(line))
		if err != nil {
			emit(ctx, t.events, transport.TurnError(transport.ErrorInternal,
				fmt.Sprintf("malformed vendor message: %s", err), t.secrets...))
			continue
		}
		if p.handle(ctx, msg, t.events) {
			continue
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case <-ctx.Done():
		default:
			emit(ctx, t.events, transport.TurnError(transport.ErrorInternal,
				fmt.Sprintf("agent subprocess stdout closed: %s", err), t.secrets...))
		}
	}
}

func toolDescriptors(tools []*mcpsdk.Tool) []tool {
	out := make([]tool, 0, len(tools))
	for _, d := range tools {
		schema, err := json.Marshal(d.InputSchema)
		if err != nil {
			schema = nil
		}
		out = append(out, tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: schema,
		})
	}
	return out
}
