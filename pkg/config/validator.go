package config

// Validate checks a Config for missing required fields, aggregating every
// problem it finds into a single *ValidationError rather than returning on
// the first failure — an operator fixing a fresh deployment wants the whole
// list at once.
func Validate(cfg *Config) error {
	verr := &ValidationError{}

	if cfg.LLMAPIKey == "" {
		verr.add("%s is required", envLLMAPIKey)
	}

	switch cfg.AgentTransportKind {
	case AgentTransportSubprocess:
		if cfg.AgentCommand == "" {
			verr.add("%s is required when %s=%s", envAgentCommand, envAgentTransportKind, AgentTransportSubprocess)
		}
	case AgentTransportHTTPAPI:
		if cfg.LLMAPIBaseURL == "" {
			verr.add("%s is required when %s=%s", envLLMAPIBaseURL, envAgentTransportKind, AgentTransportHTTPAPI)
		}
	default:
		verr.add("%s must be %q or %q, got %q", envAgentTransportKind, AgentTransportSubprocess, AgentTransportHTTPAPI, cfg.AgentTransportKind)
	}

	if cfg.ToolServerCommand == "" {
		verr.add("%s is required", envToolServerCommand)
	}

	if cfg.DefaultModelID == "" {
		verr.add("%s must not be empty", envDefaultModelID)
	}

	if cfg.TurnBudget <= 0 {
		verr.add("%s must be a positive duration", envTurnBudgetSeconds)
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}
