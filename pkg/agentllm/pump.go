package agentllm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/mcptool"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/transport"
)

// pump translates one decoded vendorMessage into zero or more transport
// Events, executing tool calls against the MCP child as they arrive. It
// mirrors the teacher's llm.Client.GenerateStream switch over
// pb.ThinkingChunk's oneof variants, generalized from a protobuf union to
// this package's JSON vendorMessage union.
type pump struct {
	mcp       *mcptool.Client
	allowlist []string
	send      func(controlMessage) error
	logger    *slog.Logger
	secrets   []string
}

// handle processes one vendor message, emitting Events to out. It returns
// true once the turn has reached a terminal event (TurnComplete/TurnError)
// — the caller must stop reading vendor messages for this turn after that.
func (p *pump) handle(ctx context.Context, msg vendorMessage, out chan<- transport.Event) bool {
	switch msg.Type {
	case vendorThinking:
		emit(ctx, out, transport.Thinking(msg.Content))
		return false

	case vendorText:
		emit(ctx, out, transport.AssistantText(msg.Content))
		return false

	case vendorToolUse:
		return p.handleToolUse(ctx, msg, out)

	case vendorResult:
		if msg.Status == resultSuccess {
			emit(ctx, out, transport.TurnComplete())
		} else {
			emit(ctx, out, transport.TurnError(transport.ErrorInternal, msg.Error, p.secrets...))
		}
		return true

	default:
		p.logger.Warn("dropping unrecognized vendor message", "type", msg.Type)
		return false
	}
}

func (p *pump) handleToolUse(ctx context.Context, msg vendorMessage, out chan<- transport.Event) (terminal bool) {
	name := mcptool.NormalizeToolName(msg.ToolName)
	emit(ctx, out, transport.ToolUse(name))

	if !mcptool.Allowed(name, p.allowlist) {
		emit(ctx, out, transport.TurnError(transport.ErrorToolNotAllowed,
			fmt.Sprintf("tool %q is not on the allow-list", name), p.secrets...))
		return true
	}

	_, toolName, err := mcptool.SplitToolName(name)
	if err != nil {
		emit(ctx, out, transport.TurnError(transport.ErrorToolNotAllowed, err.Error(), p.secrets...))
		return true
	}

	params, err := mcptool.ParseActionInput(msg.Arguments)
	if err != nil {
		p.sendToolResult(msg.ToolUseID, fmt.Sprintf("failed to parse tool arguments: %s", err), true)
		return false
	}

	result, err := p.mcp.CallTool(ctx, toolName, params)
	if err != nil {
		emit(ctx, out, transport.TurnError(transport.ErrorToolBackendUnavailable, err.Error(), p.secrets...))
		return true
	}

	content := mcptool.ExtractTextContent(result)
	emit(ctx, out, transport.ToolResult(content))
	p.sendToolResult(msg.ToolUseID, content, result.IsError)
	return false
}

func (p *pump) sendToolResult(toolUseID, content string, isError bool) {
	if err := p.send(controlMessage{
		Type:      controlToolResult,
		ToolUseID: toolUseID,
		Content:   content,
		IsError:   isError,
	}); err != nil {
		p.logger.Warn("failed to deliver tool result to agent subprocess", "error", err)
	}
}

// emit writes ev to out, respecting ctx cancellation so a pump never blocks
// forever on a consumer that has stopped reading.
func emit(ctx context.Context, out chan<- transport.Event, ev transport.Event) {
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}
