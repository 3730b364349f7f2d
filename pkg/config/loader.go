package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envLLMAPIKey           = "LLM_API_KEY"
	envAgentTransportKind  = "AGENT_TRANSPORT_KIND"
	envAgentCommand        = "AGENT_COMMAND"
	envAgentArgs           = "AGENT_ARGS"
	envLLMAPIBaseURL       = "LLM_API_BASE_URL"
	envLLMAPITimeout       = "LLM_API_TIMEOUT_SECONDS"
	envToolServerCommand   = "TOOL_SERVER_COMMAND"
	envToolServerArgs      = "TOOL_SERVER_ARGS"
	envToolServerEnvAllow  = "TOOL_SERVER_ENV_ALLOWLIST"
	envToolBaseURL         = "TOOL_BASE_URL"
	envToolAuthToken       = "TOOL_AUTH_TOKEN"
	envToolAllowedPrefixes = "TOOL_ALLOWED_PREFIXES"
	envAllowedOrigins      = "ALLOWED_ORIGINS"
	envDefaultModelID      = "DEFAULT_MODEL_ID"
	envTurnBudgetSeconds   = "TURN_BUDGET_SECONDS"
	envLogLevel            = "LOG_LEVEL"
	envListenAddr          = "LISTEN_ADDR"
)

// defaultTurnBudget is the recommended "small number of minutes" ceiling
// from spec §5 when TURN_BUDGET_SECONDS is not set.
const defaultTurnBudget = 3 * time.Minute

const defaultLLMAPITimeout = 60 * time.Second

// Load builds a Config from a .env file under configDir (if present) merged
// with the process environment, then validates it. Missing .env files are
// not an error — the process environment alone may be sufficient (e.g. in a
// container where secrets are injected directly).
func Load(configDir string) (*Config, error) {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Debug("no .env file loaded, continuing with process environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	cfg := &Config{
		LLMAPIKey:              os.Getenv(envLLMAPIKey),
		AgentTransportKind:     AgentTransportKind(getEnvDefault(envAgentTransportKind, string(AgentTransportSubprocess))),
		AgentCommand:           os.Getenv(envAgentCommand),
		AgentArgs:              splitList(os.Getenv(envAgentArgs)),
		LLMAPIBaseURL:          os.Getenv(envLLMAPIBaseURL),
		LLMAPITimeout:          getEnvDuration(envLLMAPITimeout, defaultLLMAPITimeout),
		ToolServerCommand:      os.Getenv(envToolServerCommand),
		ToolServerArgs:         splitList(os.Getenv(envToolServerArgs)),
		ToolServerEnvAllowlist: splitList(os.Getenv(envToolServerEnvAllow)),
		ToolBaseURL:            os.Getenv(envToolBaseURL),
		ToolAuthToken:          os.Getenv(envToolAuthToken),
		ToolAllowedPrefixes:    splitList(os.Getenv(envToolAllowedPrefixes)),
		AllowedOrigins:         splitList(os.Getenv(envAllowedOrigins)),
		DefaultModelID:         getEnvDefault(envDefaultModelID, "auto"),
		TurnBudget:             getEnvDuration(envTurnBudgetSeconds, defaultTurnBudget),
		LogLevel:               getEnvDefault(envLogLevel, "info"),
		ListenAddr:             getEnvDefault(envListenAddr, ":8080"),
	}

	// ToolServerEnv is resolved strictly from the allowlist: only the named
	// keys are read from the environment, and only those reach the child
	// process (pkg/mcptool/transport.go). This is the regression guard for
	// the inherited-environment defect described in spec.md §9.
	cfg.ToolServerEnv = make(map[string]string, len(cfg.ToolServerEnvAllowlist))
	for _, key := range cfg.ToolServerEnvAllowlist {
		cfg.ToolServerEnv[key] = os.Getenv(key)
	}

	// Tool-server argument templates (e.g. "--url=${NETBOX_URL}") reference
	// the allowlisted env values above, not the gateway's own environment —
	// expand them here, once, rather than at every subprocess spawn.
	expandLookup := make(map[string]string, len(cfg.ToolServerEnv)+2)
	for k, v := range cfg.ToolServerEnv {
		expandLookup[k] = v
	}
	expandLookup["TOOL_BASE_URL"] = cfg.ToolBaseURL
	expandLookup["TOOL_AUTH_TOKEN"] = cfg.ToolAuthToken
	cfg.ToolServerCommand = ExpandEnv(cfg.ToolServerCommand, expandLookup)
	for i, arg := range cfg.ToolServerArgs {
		cfg.ToolServerArgs[i] = ExpandEnv(arg, expandLookup)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

// splitList parses a comma-separated environment value into a trimmed,
// non-empty slice. An empty input yields a nil slice, not a one-element
// slice containing "".
func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
