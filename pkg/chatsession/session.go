// Package chatsession implements the per-WebSocket state machine: one
// Session pairs a single Agent Transport with one inbound/outbound message
// pump, translating pkg/protocol client frames into Transport calls and
// pkg/transport Events back into pkg/protocol server frames (spec §4.2).
package chatsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/config"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/modelregistry"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/protocol"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/transport"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/transportfactory"
)

// State is one node of the Session state machine (spec §4.2's state
// diagram: idle ⇄ awaiting-turn / resetting / switching-model).
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingTurn   State = "awaiting_turn"
	StateResetting      State = "resetting"
	StateSwitchingModel State = "switching_model"
)

// outboundQueueSize bounds the per-connection outbound buffer; a write that
// cannot drain within slowConsumerGrace trips ErrorSlowConsumer and the
// connection is torn down, mirroring the teacher's bounded SSE writer.
const outboundQueueSize = 64

const slowConsumerGrace = 5 * time.Second

const bannerText = "Connected to the NetBox chat gateway."

// AuditRecorder receives one record per completed turn. pkg/gateway's ring
// buffer (Turn Audit Record, spec §3.1) implements this; a nil AuditRecorder
// is accepted and simply discards.
type AuditRecorder interface {
	RecordTurn(connectionID, turnID, modelID, errorKind string, duration time.Duration)
}

// Session is the per-WebSocket state machine. NewSession constructs one per
// accepted WebSocket; Run drives it until the connection or its context
// ends.
type Session struct {
	connectionID string
	cfg          *config.Config
	registry     *modelregistry.Registry
	conn         Conn
	auditor      AuditRecorder
	logger       *slog.Logger

	outbound chan protocol.StreamChunk

	mu         sync.Mutex
	state      State
	modelID    string
	tr         transport.Transport
	turnID     string
	turnCancel context.CancelFunc
	// turnDone is closed by the in-flight turn's pumpTurn goroutine right
	// before it exits. handleReset/handleModelChange wait on it after
	// cancelling so a stale pump can never still be reading tr.Events()
	// — the channel is long-lived per Transport, not per-turn — once a
	// new turn starts consuming it.
	turnDone  chan struct{}
	archived  []string
	assistant strings.Builder
	closed    bool
}

// NewSession builds a Session bound to conn, starting on cfg.DefaultModelID.
// Nothing is started until Run is called. auditor may be nil.
func NewSession(cfg *config.Config, registry *modelregistry.Registry, conn Conn, auditor AuditRecorder) *Session {
	id := uuid.NewString()
	return &Session{
		connectionID: id,
		cfg:          cfg,
		registry:     registry,
		conn:         conn,
		auditor:      auditor,
		logger:       slog.Default().With("component", "chatsession", "connection_id", id),
		state:        StateIdle,
		modelID:      cfg.DefaultModelID,
		outbound:     make(chan protocol.StreamChunk, outboundQueueSize),
	}
}

// ConnectionID returns the id assigned at construction, used by
// pkg/gateway to tag its per-connection log lines; audit records carry the
// same id.
func (s *Session) ConnectionID() string { return s.connectionID }

// Run opens the Session's initial Transport, sends the connected banner,
// and drives the inbound reader and outbound writer until either fails or
// ctx ends. It always tears down the active Transport before returning.
func (s *Session) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tr, err := transportfactory.New(s.cfg, s.registry, s.modelID)
	if err != nil {
		return fmt.Errorf("chatsession: constructing transport: %w", err)
	}
	if err := tr.Open(runCtx); err != nil {
		return fmt.Errorf("chatsession: opening transport for model %q: %w", s.modelID, err)
	}

	s.mu.Lock()
	s.tr = tr
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		current := s.tr
		s.mu.Unlock()
		if current != nil {
			_ = current.Close()
		}
	}()

	desc, _ := s.registry.Lookup(runCtx, s.modelID)
	s.enqueue(protocol.Connected(bannerText, desc.ID, desc.Name, desc.ID == modelregistry.AutoModelID))

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.writeLoop(gctx) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readLoop is the Session's single inbound reader goroutine.
func (s *Session) readLoop(ctx context.Context) error {
	for {
		raw, err := s.conn.Read(ctx)
		if err != nil {
			return err
		}

		frame, err := protocol.Decode(raw)
		if err != nil {
			s.enqueue(protocol.Error(string(transport.ErrorBadFrame), err.Error(), true))
			continue
		}

		switch protocol.ClientFrameType(frame.Type) {
		case protocol.ClientFrameChat:
			s.handlePrompt(ctx, frame.Message)
		case protocol.ClientFrameReset:
			s.handleReset(ctx)
		case protocol.ClientFrameModelChange:
			s.handleModelChange(ctx, frame.Model)
		}
	}
}

// writeLoop is the Session's single outbound writer goroutine. It is the
// only goroutine that calls conn.Write, so frame ordering on the wire
// matches enqueue order exactly.
func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case chunk := <-s.outbound:
			data, err := protocol.Encode(chunk)
			if err != nil {
				s.logger.Error("encoding outbound chunk", "error", err)
				continue
			}
			if err := s.conn.Write(ctx, data); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// enqueue delivers chunk to the writer, tripping ErrorSlowConsumer and
// closing the connection if the outbound queue cannot drain within
// slowConsumerGrace (spec §5's bounded-queue backpressure policy).
func (s *Session) enqueue(chunk protocol.StreamChunk) {
	select {
	case s.outbound <- chunk:
		return
	default:
	}

	select {
	case s.outbound <- chunk:
	case <-time.After(slowConsumerGrace):
		s.triggerSlowConsumer()
	}
}

// triggerSlowConsumer writes a best-effort final error frame directly
// (bypassing the stalled outbound channel) and closes the connection.
func (s *Session) triggerSlowConsumer() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	data, err := protocol.Encode(protocol.Error(string(transport.ErrorSlowConsumer), "client did not drain output in time", true))
	if err == nil {
		writeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = s.conn.Write(writeCtx, data)
		cancel()
	}
	_ = s.conn.Close(string(transport.ErrorSlowConsumer))
}
