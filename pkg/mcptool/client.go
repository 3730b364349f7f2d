// Package mcptool manages the single MCP inventory tool server subprocess
// a gateway Agent Transport talks to, and routes validated tool calls to it.
package mcptool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os/exec"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/version"
)

// Client manages one MCP SDK session against the configured tool server.
// Unlike the teacher's registry-backed client, a gateway Agent Transport
// has exactly one tool server to talk to (spec §1's collaborator table), so
// there is one session, not a map keyed by server id.
//
// Not safe for use by more than one Agent Transport at a time, but safe for
// concurrent ListTools/CallTool calls from the same Transport's pump and
// supervisor goroutines.
type Client struct {
	command string
	args    []string
	env     map[string]string
	// serverID is the prefix used in "server.tool" routing (e.g. "netbox"),
	// independent of the OS command name.
	serverID string

	mu        sync.RWMutex
	session   *mcpsdk.ClientSession
	sdkClient *mcpsdk.Client
	transport *mcpsdk.CommandTransport
	failure   string

	toolCache   []*mcpsdk.Tool
	toolCacheMu sync.RWMutex

	reinitMu sync.Mutex

	logger *slog.Logger
}

// New creates a Client for the given tool server command. serverID is the
// routing prefix tool calls must use ("server.tool").
func New(serverID, command string, args []string, env map[string]string) *Client {
	return &Client{
		serverID: serverID,
		command:  command,
		args:     args,
		env:      env,
		logger:   slog.Default().With("server", serverID),
	}
}

// Initialize connects to the tool server. Calling Initialize when already
// connected is a no-op.
func (c *Client) Initialize(ctx context.Context) error {
	c.reinitMu.Lock()
	defer c.reinitMu.Unlock()
	return c.initializeLocked(ctx)
}

// initializeLocked performs the actual connection. Caller must hold reinitMu.
func (c *Client) initializeLocked(ctx context.Context) error {
	c.mu.RLock()
	if c.session != nil {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	transport, err := newStdioTransport(c.command, c.args, c.env)
	if err != nil {
		return fmt.Errorf("create transport for %q: %w", c.serverID, err)
	}

	initCtx, cancel := context.WithTimeout(ctx, MCPInitTimeout)
	defer cancel()

	sdkClient := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    version.AppName,
		Version: version.GitCommit,
	}, nil)

	session, err := sdkClient.Connect(initCtx, transport, nil)
	if err != nil {
		if closer, ok := any(transport).(io.Closer); ok {
			_ = closer.Close()
		}
		c.mu.Lock()
		c.failure = err.Error()
		c.mu.Unlock()
		return fmt.Errorf("connect to %q: %w", c.serverID, err)
	}

	c.mu.Lock()
	c.session = session
	c.sdkClient = sdkClient
	c.transport = transport
	c.failure = ""
	c.mu.Unlock()

	c.logger.Info("tool server connected")
	return nil
}

// Command returns the underlying child process, for use by a supervisor
// goroutine that waits on its exit. Returns nil before Initialize succeeds.
func (c *Client) Command() *exec.Cmd {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.transport == nil {
		return nil
	}
	return c.transport.Command
}

// ListTools returns the tool server's tools, using the cache after the
// first successful call — a Client is short-lived (one per Transport), so
// the cache cannot go stale within its lifetime.
func (c *Client) ListTools(ctx context.Context) ([]*mcpsdk.Tool, error) {
	c.toolCacheMu.RLock()
	if c.toolCache != nil {
		cached := c.toolCache
		c.toolCacheMu.RUnlock()
		return cached, nil
	}
	c.toolCacheMu.RUnlock()

	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session == nil {
		return nil, fmt.Errorf("no session for %q", c.serverID)
	}

	opCtx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()

	result, err := session.ListTools(opCtx, nil)
	if err != nil {
		return nil, fmt.Errorf("list tools from %q: %w", c.serverID, err)
	}

	tools := result.Tools
	if tools == nil {
		tools = []*mcpsdk.Tool{}
	}
	c.toolCacheMu.Lock()
	c.toolCache = tools
	c.toolCacheMu.Unlock()

	return tools, nil
}

// CallTool executes toolName with args. On a recoverable transport failure
// it retries once, after recreating the session, per recovery.go's
// classification.
func (c *Client) CallTool(ctx context.Context, toolName string, args map[string]any) (*mcpsdk.CallToolResult, error) {
	params := &mcpsdk.CallToolParams{Name: toolName, Arguments: args}

	result, err := c.callToolOnce(ctx, params)
	if err == nil {
		return result, nil
	}

	action := ClassifyError(err)
	if action == NoRetry {
		return nil, err
	}

	c.logger.Info("tool call failed, retrying", "tool", toolName, "action", action, "error", err)

	backoff := RetryBackoffMin + time.Duration(rand.Int64N(int64(RetryBackoffMax-RetryBackoffMin)))
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if action == RetryNewSession {
		if err := c.recreateSession(ctx); err != nil {
			return nil, fmt.Errorf("session recreation failed for %q: %w", c.serverID, err)
		}
	}

	result, err = c.callToolOnce(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("retry failed for %q.%s: %w", c.serverID, toolName, err)
	}
	return result, nil
}

func (c *Client) callToolOnce(ctx context.Context, params *mcpsdk.CallToolParams) (*mcpsdk.CallToolResult, error) {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session == nil {
		return nil, fmt.Errorf("no session for %q", c.serverID)
	}

	opCtx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()

	return session.CallTool(opCtx, params)
}

func (c *Client) recreateSession(ctx context.Context) error {
	c.reinitMu.Lock()
	defer c.reinitMu.Unlock()

	c.mu.Lock()
	if c.session != nil {
		_ = c.session.Close()
		c.session = nil
		c.sdkClient = nil
		c.transport = nil
	}
	c.mu.Unlock()

	c.InvalidateToolCache()

	reinitCtx, cancel := context.WithTimeout(ctx, ReinitTimeout)
	defer cancel()

	return c.initializeLocked(reinitCtx)
}

// Close shuts down the session and its subprocess.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.session != nil {
		err = c.session.Close()
		c.session = nil
		c.sdkClient = nil
		c.transport = nil
	}

	c.toolCacheMu.Lock()
	c.toolCache = nil
	c.toolCacheMu.Unlock()

	return err
}

// InvalidateToolCache forces the next ListTools call to re-probe the server.
func (c *Client) InvalidateToolCache() {
	c.toolCacheMu.Lock()
	c.toolCache = nil
	c.toolCacheMu.Unlock()
}

// HasSession reports whether the tool server is currently connected.
func (c *Client) HasSession() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil
}

// Failure returns the last connection failure message, if any.
func (c *Client) Failure() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failure
}

// ServerID returns the routing prefix this client was constructed with.
func (c *Client) ServerID() string {
	return c.serverID
}

// ExtractTextContent concatenates a tool result's text content blocks,
// skipping non-text content (images, embedded resources) that neither
// Agent Transport variant forwards to the LLM.
func ExtractTextContent(result *mcpsdk.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
