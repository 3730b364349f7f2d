package mcptool

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewStdioTransport_EnvironmentIsNeverInherited is a regression test:
// the child process must see exactly the allowlisted keys, never anything
// from the gateway's own process environment, even when a colliding key
// name is set on both sides.
func TestNewStdioTransport_EnvironmentIsNeverInherited(t *testing.T) {
	t.Setenv("NETBOX_TOKEN", "gateway-process-value-must-not-leak")
	t.Setenv("UNRELATED_SECRET", "also-must-not-leak")
	require.Equal(t, "gateway-process-value-must-not-leak", os.Getenv("NETBOX_TOKEN"))

	transport, err := newStdioTransport("netbox-mcp-server", nil, map[string]string{
		"NETBOX_URL":   "https://netbox.example.com",
		"NETBOX_TOKEN": "scoped-token-value",
	})
	require.NoError(t, err)
	require.NotNil(t, transport)

	env := transport.Command.Env
	assert.Len(t, env, 2, "child environment must contain only the two allowlisted keys")

	got := map[string]string{}
	for _, kv := range env {
		for i := range kv {
			if kv[i] == '=' {
				got[kv[:i]] = kv[i+1:]
				break
			}
		}
	}

	assert.Equal(t, "https://netbox.example.com", got["NETBOX_URL"])
	assert.Equal(t, "scoped-token-value", got["NETBOX_TOKEN"])
	assert.NotContains(t, got, "UNRELATED_SECRET")
	assert.NotEqual(t, "gateway-process-value-must-not-leak", got["NETBOX_TOKEN"])
}

func TestNewStdioTransport_EmptyEnvAllowlistYieldsEmptyChildEnv(t *testing.T) {
	t.Setenv("SOME_AMBIENT_VAR", "must-not-leak")

	transport, err := newStdioTransport("netbox-mcp-server", []string{"--verbose"}, nil)
	require.NoError(t, err)
	assert.Empty(t, transport.Command.Env)
	assert.Equal(t, []string{"--verbose"}, transport.Command.Args[1:])
}

func TestNewStdioTransport_RequiresCommand(t *testing.T) {
	_, err := newStdioTransport("", nil, nil)
	require.Error(t, err)
}
