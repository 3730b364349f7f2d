// Package config loads and validates the gateway's process-level configuration.
//
// Config is an immutable snapshot built once at startup by Load and passed
// explicitly to every constructor that needs it — there is no package-level
// mutable configuration state.
package config

import "time"

// AgentTransportKind selects which concrete Agent Transport variant a
// gateway process constructs. See pkg/transportfactory.New.
type AgentTransportKind string

const (
	// AgentTransportSubprocess runs the LLM conversation as a local CLI
	// child process speaking a control protocol over stdio.
	AgentTransportSubprocess AgentTransportKind = "subprocess"
	// AgentTransportHTTPAPI runs the LLM conversation as streamed HTTP
	// requests against a remote service.
	AgentTransportHTTPAPI AgentTransportKind = "httpapi"
)

// Config is the immutable configuration snapshot for one gateway process.
type Config struct {
	// LLMAPIKey is the credential for the LLM vendor. Required.
	LLMAPIKey string

	// AgentTransportKind selects the direct (subprocess) or proxy (httpapi)
	// Agent Transport variant. Defaults to AgentTransportSubprocess.
	AgentTransportKind AgentTransportKind

	// AgentCommand/AgentArgs launch the direct-transport LLM subprocess.
	// Required when AgentTransportKind is AgentTransportSubprocess.
	AgentCommand string
	AgentArgs    []string

	// LLMAPIBaseURL/LLMAPITimeout configure the proxy (httpapi) transport.
	// Required when AgentTransportKind is AgentTransportHTTPAPI.
	LLMAPIBaseURL string
	LLMAPITimeout time.Duration

	// ToolServerCommand/ToolServerArgs launch the MCP inventory tool
	// subprocess. Required.
	ToolServerCommand string
	ToolServerArgs    []string

	// ToolServerEnvAllowlist names exactly the environment keys the MCP
	// child process receives. Values come from ToolServerEnv, never from
	// the gateway's own process environment. See pkg/mcptool/transport.go.
	ToolServerEnvAllowlist []string

	// ToolBaseURL/ToolAuthToken are credentials/endpoint for the tool
	// server, delivered to the child only via allowlisted env keys — the
	// caller is expected to include their corresponding keys (e.g.
	// "NETBOX_URL", "NETBOX_TOKEN") in ToolServerEnvAllowlist and
	// ToolServerEnv.
	ToolBaseURL   string
	ToolAuthToken string

	// ToolServerEnv holds the resolved values for every key named in
	// ToolServerEnvAllowlist. Populated by Load from the process
	// environment; never a superset of ToolServerEnvAllowlist.
	ToolServerEnv map[string]string

	// ToolAllowedPrefixes restricts which "server.tool" names the LLM may
	// invoke, matched by prefix. Empty means no restriction.
	ToolAllowedPrefixes []string

	// AllowedOrigins is the CORS / WebSocket origin allow-list.
	AllowedOrigins []string

	// DefaultModelID is the model new Sessions start on. An unknown or
	// failed model switch leaves a Session on its current model rather than
	// falling back to this id.
	DefaultModelID string

	// TurnBudget is the per-turn wall-time ceiling.
	TurnBudget time.Duration

	// LogLevel controls diagnostic verbosity only; never alters behavior.
	LogLevel string

	// ListenAddr is the HTTP/WebSocket listen address, e.g. ":8080".
	ListenAddr string
}
