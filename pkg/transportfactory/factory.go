// Package transportfactory constructs the concrete Agent Transport variant
// named by Config.AgentTransportKind. It lives apart from pkg/transport
// itself because both concrete variants (pkg/agentllm, pkg/llmhttp) import
// pkg/transport for its Event/Transport types; a constructor living inside
// pkg/transport that in turn imported both variants would be an import
// cycle. This split is recorded as a deliberate deviation in DESIGN.md.
package transportfactory

import (
	"fmt"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/agentllm"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/config"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/llmhttp"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/modelregistry"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/transport"
)

// New is the single construction point for a Transport, tagged and
// dispatched by cfg.AgentTransportKind rather than chosen by any runtime
// attribute lookup (design note §9). Both concrete variants independently
// own their own MCP child process; only how the LLM side of the
// conversation is carried differs between them.
func New(cfg *config.Config, registry *modelregistry.Registry, modelID string) (transport.Transport, error) {
	switch cfg.AgentTransportKind {
	case config.AgentTransportSubprocess:
		return agentllm.New(cfg, registry, modelID), nil
	case config.AgentTransportHTTPAPI:
		return llmhttp.New(cfg, registry, modelID), nil
	default:
		return nil, fmt.Errorf("transportfactory: unknown agent transport kind %q", cfg.AgentTransportKind)
	}
}
