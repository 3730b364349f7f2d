// Package gateway implements the HTTP/WebSocket surface (spec §4.1): TCP
// accept, CORS enforcement, WebSocket upgrade on /ws/chat, and the
// construction/teardown of one pkg/chatsession.Session per connection.
// Grounded in the teacher's pkg/api/server.go and pkg/api/handler_ws.go.
package gateway

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/chatsession"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/config"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/modelregistry"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/version"
)

// degradedFailureRate is the fraction of the last auditWindow turns that
// must have failed before /health reports "degraded" instead of "healthy".
// Never fails /health outright — only downstream model/tool trouble does,
// and even that is surfaced as degraded, never unhealthy, per spec §6.1.
const degradedFailureRate = 0.5
const auditWindow = 20

// Server is the gateway's HTTP API server, wrapping echo/v5 exactly as the
// teacher's pkg/api.Server wraps it.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	cfg        *config.Config
	registry   *modelregistry.Registry
	auditor    *Auditor
	logger     *slog.Logger
}

// NewServer builds a Server with routes registered but not yet listening.
func NewServer(cfg *config.Config, registry *modelregistry.Registry) *Server {
	s := &Server{
		echo:     echo.New(),
		cfg:      cfg,
		registry: registry,
		auditor:  NewAuditor(),
		logger:   slog.Default().With("component", "gateway"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(securityHeaders())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.cfg.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/models", s.modelsHandler)
	s.echo.GET("/ws/chat", s.wsHandler)
}

// Start listens and serves on addr. Blocks until Shutdown is called or the
// listener fails.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener serves on a pre-created listener, used by tests to bind
// a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the HTTP server, which in turn cancels every
// in-flight WebSocket's request context.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// healthHandler handles GET /health. Only this process's own turn-outcome
// history is considered; a struggling downstream model or tool backend
// degrades the reported status but never fails the check outright, so an
// orchestrator never restarts the gateway over someone else's outage.
func (s *Server) healthHandler(c *echo.Context) error {
	status := "healthy"
	if s.auditor.FailureRate(auditWindow) >= degradedFailureRate {
		status = "degraded"
	}

	return c.JSON(http.StatusOK, healthResponse{
		Status:  status,
		Service: version.AppName,
		Version: version.Full(),
	})
}

// modelsHandler handles GET /models.
func (s *Server) modelsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.registry.List(c.Request().Context()))
}

// wsHandler upgrades to WebSocket on /ws/chat and runs one Session for the
// connection's lifetime (spec §4.1, §6.2). The origin allow-list gates the
// upgrade itself via OriginPatterns — there is no separate unauthenticated
// path the way the teacher's InsecureSkipVerify left open.
func (s *Server) wsHandler(c *echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	session := chatsession.NewSession(s.cfg, s.registry, newWSConn(conn), s.auditor)
	logger := s.logger.With("connection_id", session.ConnectionID())

	if err := session.Run(c.Request().Context()); err != nil {
		logger.Info("session ended", "error", err)
		_ = conn.Close(websocket.StatusInternalError, "session error")
		return nil
	}

	logger.Info("session ended")
	_ = conn.Close(websocket.StatusNormalClosure, "")
	return nil
}
