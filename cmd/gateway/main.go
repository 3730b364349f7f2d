// Command gateway runs the NetBox chat gateway's HTTP/WebSocket server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/config"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/gateway"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/modelregistry"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/version"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	flag.Parse()

	logLevel := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configDir)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if lvl, ok := parseLevel(cfg.LogLevel); ok {
		logLevel.Set(lvl)
	}

	slog.Info("starting "+version.AppName,
		"version", version.Full(),
		"listen_addr", cfg.ListenAddr,
		"agent_transport", cfg.AgentTransportKind,
		"default_model", cfg.DefaultModelID,
	)

	registry := modelregistry.New(cfg.DefaultModelID)
	srv := gateway.NewServer(cfg, registry)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("gateway server error: %w", err)
		}
	}()
	slog.Info("listening", "addr", cfg.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slog.Error("server error, shutting down", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("gateway shut down cleanly")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLevel(name string) (slog.Level, bool) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return 0, false
	}
	return lvl, true
}
