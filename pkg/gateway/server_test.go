package gateway

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/config"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/modelregistry"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	cfg := &config.Config{
		AllowedOrigins: []string{"http://localhost:*"},
		DefaultModelID: modelregistry.AutoModelID,
		TurnBudget:     time.Minute,
	}
	reg := modelregistry.New(modelregistry.AutoModelID)
	s := NewServer(cfg, reg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = s.StartWithListener(ln) }()
	t.Cleanup(func() { _ = s.httpServer.Close() })

	return s, "http://" + ln.Addr().String()
}

func TestServer_Health_HealthyWithNoTurns(t *testing.T) {
	_, base := startTestServer(t)

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.NotEmpty(t, body.Service)
}

func TestServer_Health_DegradedAfterRepeatedFailures(t *testing.T) {
	s, base := startTestServer(t)
	for i := 0; i < auditWindow; i++ {
		s.auditor.RecordTurn("c", "t", "auto", "internal", time.Second)
	}

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
}

// TestServer_WSHandler_RejectsDisallowedOrigin guards the origin allow-list
// enforced at Upgrade time — spec §4.1's only gate on /ws/chat, since there
// is no separate authentication scheme.
func TestServer_WSHandler_RejectsDisallowedOrigin(t *testing.T) {
	_, base := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := websocket.Dial(ctx, "ws"+base[len("http"):]+"/ws/chat", &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": {"http://evil.example.com"}},
	})
	require.Error(t, err)
}

func TestServer_Models_ListsBuiltins(t *testing.T) {
	_, base := startTestServer(t)

	resp, err := http.Get(base + "/models")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var descriptors []modelregistry.ModelDescriptor
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&descriptors))
	require.NotEmpty(t, descriptors)

	var sawAuto bool
	for _, d := range descriptors {
		if d.ID == modelregistry.AutoModelID {
			sawAuto = true
			assert.True(t, d.Available)
		}
	}
	assert.True(t, sawAuto)
}
