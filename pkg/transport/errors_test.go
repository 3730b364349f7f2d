package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_RedactsKnownCredentialPatterns(t *testing.T) {
	assert.Equal(t, "authorization: [redacted]", Sanitize("authorization: Bearer abc.def-123"))
	assert.Equal(t, "got api_key: [redacted]", Sanitize("got api_key: sk-live-whatever"))
	assert.Equal(t, "dial tcp [redacted]example.com", Sanitize("dial tcp user:hunter2@example.com"))
}

func TestSanitize_RedactsExactSecretsNotMatchingAnyPattern(t *testing.T) {
	detail := "netbox returned 401 for token nb_plain_opaque_value_9f2"
	// This value doesn't look like a bearer token or a key=value assignment,
	// so the pattern-based pass alone would leave it intact.
	assert.Contains(t, detail, "nb_plain_opaque_value_9f2")

	out := Sanitize(detail, "nb_plain_opaque_value_9f2")
	assert.NotContains(t, out, "nb_plain_opaque_value_9f2")
	assert.Contains(t, out, redacted)
}

func TestSanitize_IgnoresEmptySecrets(t *testing.T) {
	assert.Equal(t, "no secrets here", Sanitize("no secrets here", "", ""))
}

func TestTurnError_RedactsConfiguredSecrets(t *testing.T) {
	ev := TurnError(ErrorToolBackendUnavailable, "upstream rejected credential sk-configured-abc", "sk-configured-abc")
	assert.NotContains(t, ev.ErrorDetail, "sk-configured-abc")
}
