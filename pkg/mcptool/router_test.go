package mcptool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeToolName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"double underscore converts to dot", "netbox__list_devices", "netbox.list_devices"},
		{"already dotted passes through", "netbox.list_devices", "netbox.list_devices"},
		{"mixed form left alone", "netbox__list.devices", "netbox__list.devices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeToolName(tt.input))
		})
	}
}

func TestSplitToolName(t *testing.T) {
	t.Run("valid name splits", func(t *testing.T) {
		server, tool, err := SplitToolName("netbox.list_devices")
		require.NoError(t, err)
		assert.Equal(t, "netbox", server)
		assert.Equal(t, "list_devices", tool)
	})

	t.Run("missing dot rejected", func(t *testing.T) {
		_, _, err := SplitToolName("list_devices")
		assert.Error(t, err)
	})

	t.Run("empty server part rejected", func(t *testing.T) {
		_, _, err := SplitToolName(".list_devices")
		assert.Error(t, err)
	})
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name      string
		toolName  string
		allowlist []string
		want      bool
	}{
		{"empty allowlist allows everything", "netbox.list_devices", nil, true},
		{"exact match allowed", "netbox.list_devices", []string{"netbox.list_devices"}, true},
		{"server-level prefix allows all its tools", "netbox.list_devices", []string{"netbox."}, true},
		{"not on allowlist rejected", "netbox.delete_device", []string{"netbox.list_devices"}, false},
		{"different server rejected", "billing.charge_card", []string{"netbox."}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.toolName, tt.allowlist))
		})
	}
}
