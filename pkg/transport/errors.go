package transport

import (
	"regexp"
	"strings"
)

// ErrorKind is a stable token surfaced in logs and in the error chunk's
// metadata.kind field. See spec §7 for the full taxonomy and recovery
// semantics of each kind.
type ErrorKind string

const (
	ErrorBadFrame               ErrorKind = "bad_frame"
	ErrorBusy                   ErrorKind = "busy"
	ErrorUnknownModel           ErrorKind = "unknown_model"
	ErrorModelUnavailable       ErrorKind = "model_unavailable"
	ErrorToolBackendUnavailable ErrorKind = "tool_backend_unavailable"
	ErrorToolNotAllowed         ErrorKind = "tool_not_allowed"
	ErrorTimeout                ErrorKind = "timeout"
	ErrorCancelled              ErrorKind = "cancelled"
	ErrorSlowConsumer           ErrorKind = "slow_consumer"
	ErrorInternal               ErrorKind = "internal"
)

// credentialPatterns match the shapes of secrets this gateway might
// otherwise leak into an error chunk's detail string: bearer tokens,
// API-key-like assignments (the value is replaced, the key label kept via
// capture group 1), and basic-auth style "user:password@" userinfo, with or
// without a URL scheme in front.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+[a-z0-9._\-]+`),
	regexp.MustCompile(`(?i)((?:api[_-]?key|token|secret|password)\s*[:=]\s*)\S+`),
	regexp.MustCompile(`[^/\s:@]+:[^/\s@]+@`),
}

const redacted = "[redacted]"

// Sanitize strips known credential and environment-value patterns from an
// error detail string before it can reach a log line or an error chunk.
// Every TurnError detail passes through this exactly once, at construction
// (see TurnError in event.go), so callers never need to sanitize again.
//
// secrets are the caller's actual configured credential values (LLM API
// key, tool auth token, tool-server env values, ...): pattern matching
// alone cannot guarantee catching a literal secret that doesn't happen to
// look like a bearer token or a key=value assignment, so every non-empty
// secret is additionally redacted by exact match.
func Sanitize(detail string, secrets ...string) string {
	out := detail
	for _, pattern := range credentialPatterns {
		out = pattern.ReplaceAllString(out, "${1}"+redacted)
	}
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		out = strings.ReplaceAll(out, secret, redacted)
	}
	return out
}
