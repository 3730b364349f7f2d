package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("implicit chat frame", func(t *testing.T) {
		frame, err := Decode([]byte(`{"message":"list all devices in rack 4"}`))
		require.NoError(t, err)
		assert.Equal(t, "list all devices in rack 4", frame.Message)
	})

	t.Run("explicit chat frame", func(t *testing.T) {
		frame, err := Decode([]byte(`{"type":"chat","message":"hello"}`))
		require.NoError(t, err)
		assert.Equal(t, string(ClientFrameChat), frame.Type)
	})

	t.Run("reset frame", func(t *testing.T) {
		frame, err := Decode([]byte(`{"type":"reset"}`))
		require.NoError(t, err)
		assert.Equal(t, string(ClientFrameReset), frame.Type)
	})

	t.Run("model_change frame", func(t *testing.T) {
		frame, err := Decode([]byte(`{"type":"model_change","model":"claude-sonnet"}`))
		require.NoError(t, err)
		assert.Equal(t, "claude-sonnet", frame.Model)
	})

	t.Run("unknown extra fields tolerated", func(t *testing.T) {
		frame, err := Decode([]byte(`{"message":"hi","client_version":"1.2.3"}`))
		require.NoError(t, err)
		assert.Equal(t, "hi", frame.Message)
	})

	t.Run("invalid json rejected", func(t *testing.T) {
		_, err := Decode([]byte(`not json`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBadFrame)
	})

	t.Run("empty message rejected", func(t *testing.T) {
		_, err := Decode([]byte(`{"message":""}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBadFrame)
	})

	t.Run("model_change without model rejected", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":"model_change"}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBadFrame)
	})

	t.Run("unrecognized type rejected", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":"teleport"}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBadFrame)
	})
}

func TestEncode(t *testing.T) {
	t.Run("text chunk marks completed on terminal", func(t *testing.T) {
		raw, err := Encode(Text("final answer", true))
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, ChunkTypeText, decoded["type"])
		assert.Equal(t, true, decoded["completed"])
	})

	t.Run("tool_use chunk never completes a turn", func(t *testing.T) {
		chunk := ToolUse("netbox.list_devices")
		assert.False(t, chunk.Completed)
		assert.Equal(t, ChunkTypeToolUse, chunk.Type)
	})

	t.Run("error chunk carries the bare kind token as content", func(t *testing.T) {
		chunk := Error("timeout", "turn exceeded budget", true)
		assert.True(t, chunk.Completed)
		assert.Equal(t, "timeout", chunk.Content)
		assert.Equal(t, "timeout", chunk.Metadata["kind"])
		assert.Equal(t, "turn exceeded budget", chunk.Metadata["detail"])
	})

	t.Run("connected chunk carries nested model metadata", func(t *testing.T) {
		chunk := Connected("welcome", "auto", "Automatic", true)
		assert.Equal(t, ChunkTypeConnected, chunk.Type)
		model, ok := chunk.Metadata["model"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "auto", model["id"])
		assert.Equal(t, "Automatic", model["name"])
		assert.Equal(t, true, model["isAuto"])
	})

	t.Run("reset_complete chunk carries ok content", func(t *testing.T) {
		chunk := ResetComplete()
		assert.Equal(t, "ok", chunk.Content)
	})
}
