package chatsession

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/protocol"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/transport"
	"github.com/codeready-toolchain/netbox-chat-gateway/pkg/transportfactory"
)

// handlePrompt starts a new turn, rejecting it with ErrorBusy if one is
// already in flight (spec §4.2's busy-rejection rule).
func (s *Session) handlePrompt(ctx context.Context, message string) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		s.enqueue(protocol.Error(string(transport.ErrorBusy), "a turn is already in progress", true))
		return
	}

	turnID := uuid.NewString()
	done := make(chan struct{})
	s.state = StateAwaitingTurn
	s.turnID = turnID
	s.turnDone = done
	s.assistant.Reset()
	tr := s.tr
	modelID := s.modelID
	turnCtx, cancel := context.WithTimeout(ctx, s.cfg.TurnBudget)
	s.turnCancel = cancel
	s.mu.Unlock()

	if err := tr.Submit(turnCtx, message); err != nil {
		cancel()
		close(done)
		s.mu.Lock()
		if s.turnID == turnID {
			s.state = StateIdle
			s.turnCancel = nil
			s.turnDone = nil
		}
		s.mu.Unlock()
		s.enqueue(protocol.Error(string(transport.ErrorInternal), err.Error(), true))
		return
	}

	go s.pumpTurn(turnCtx, cancel, tr, turnID, modelID, done)
}

// pumpTurn is the Session's transport-event pump goroutine: one per turn,
// translating Events into outbound StreamChunks until a terminal event
// arrives or the turn is invalidated by a concurrent reset/model_change.
// done is closed right before this goroutine exits, on every path, so a
// waiting handleReset/handleModelChange knows it has stopped reading
// tr.Events() and a new turn can safely start consuming that channel.
func (s *Session) pumpTurn(ctx context.Context, cancel context.CancelFunc, tr transport.Transport, turnID, modelID string, done chan struct{}) {
	defer close(done)
	defer cancel()
	start := time.Now()
	events := tr.Events()

	for {
		select {
		case ev := <-events:
			if s.isStaleTurn(turnID) {
				continue
			}
			terminal, errorKind := s.dispatchEvent(ev)
			if terminal {
				s.finishTurn(turnID, modelID, errorKind, time.Since(start))
				return
			}
		case <-ctx.Done():
			if s.isStaleTurn(turnID) {
				return
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				tr.Cancel()
				s.enqueue(protocol.Error(string(transport.ErrorTimeout), "turn budget exceeded", true))
				s.finishTurn(turnID, modelID, string(transport.ErrorTimeout), time.Since(start))
			}
			// context.Canceled: a reset or model_change already finalized
			// this turn's state and emitted its own terminal frame.
			return
		}
	}
}

// dispatchEvent translates one transport.Event into an outbound chunk,
// reporting whether it ended the turn and, if so, the ErrorKind recorded
// for audit (empty on success).
func (s *Session) dispatchEvent(ev transport.Event) (terminal bool, errorKind string) {
	switch ev.Kind {
	case transport.EventAssistantText:
		s.mu.Lock()
		s.assistant.WriteString(ev.Text)
		s.mu.Unlock()
		s.enqueue(protocol.Text(ev.Text, false))
		return false, ""
	case transport.EventToolUse:
		s.enqueue(protocol.ToolUse(ev.ToolName))
		return false, ""
	case transport.EventToolResult:
		s.enqueue(protocol.ToolResult(ev.ToolResultPayload))
		return false, ""
	case transport.EventThinking:
		s.enqueue(protocol.Thinking(ev.ThinkingSnippet))
		return false, ""
	case transport.EventTurnComplete:
		s.enqueue(protocol.Text("", true))
		return true, ""
	case transport.EventTurnError:
		s.enqueue(protocol.Error(string(ev.ErrorKind), ev.ErrorDetail, true))
		return true, string(ev.ErrorKind)
	default:
		s.logger.Warn("dropping unrecognized transport event", "kind", ev.Kind)
		return false, ""
	}
}

// isStaleTurn reports whether turnID is no longer the Session's current
// turn — it was superseded by a reset or model_change.
func (s *Session) isStaleTurn(turnID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnID != turnID
}

// finishTurn returns the Session to idle (if turnID is still current) and
// reports the completed turn to the auditor.
func (s *Session) finishTurn(turnID, modelID, errorKind string, duration time.Duration) {
	s.mu.Lock()
	if s.turnID == turnID {
		s.state = StateIdle
		s.turnCancel = nil
		s.turnDone = nil
	}
	s.mu.Unlock()

	if s.auditor != nil {
		s.auditor.RecordTurn(s.connectionID, turnID, modelID, errorKind, duration)
	}
}

// handleReset cancels any in-flight turn, archives its partial assistant
// text, and emits reset_complete once cancellation has been requested
// (spec §4.2's reset transition).
func (s *Session) handleReset(ctx context.Context) {
	s.mu.Lock()
	wasAwaitingTurn := s.state == StateAwaitingTurn
	cancel := s.turnCancel
	done := s.turnDone
	s.archiveInFlightLocked()
	s.turnID = ""
	s.turnCancel = nil
	s.turnDone = nil
	s.state = StateResetting
	s.mu.Unlock()

	if wasAwaitingTurn {
		if cancel != nil {
			cancel()
		}
		s.mu.Lock()
		tr := s.tr
		s.mu.Unlock()
		if tr != nil {
			tr.Cancel()
		}
		// Wait for the superseded turn's pump goroutine to actually stop
		// reading tr.Events() before allowing a new turn to start reading
		// the same long-lived channel — otherwise it can race the new
		// turn for events and silently swallow one via isStaleTurn.
		if done != nil {
			<-done
		}
	}

	s.enqueue(protocol.ResetComplete())

	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
}

// handleModelChange archives any in-flight turn, tears down the current
// Transport, opens a new one bound to requestedID, and emits exactly one
// model_changed or error(unknown_model)/error(model_unavailable) frame
// (spec §4.2, §9's archived_messages decision).
func (s *Session) handleModelChange(ctx context.Context, requestedID string) {
	desc, ok := s.registry.Lookup(ctx, requestedID)
	if !ok {
		s.enqueue(protocol.Error(string(transport.ErrorUnknownModel), requestedID, true))
		return
	}

	s.mu.Lock()
	previous := s.modelID
	wasAwaitingTurn := s.state == StateAwaitingTurn
	cancel := s.turnCancel
	done := s.turnDone
	archived := s.archiveInFlightLocked()
	s.turnID = ""
	s.turnCancel = nil
	s.turnDone = nil
	s.state = StateSwitchingModel
	oldTransport := s.tr
	s.mu.Unlock()

	if wasAwaitingTurn {
		if cancel != nil {
			cancel()
		}
		if oldTransport != nil {
			oldTransport.Cancel()
		}
		// Wait for the superseded turn's pump goroutine to stop reading
		// oldTransport.Events() before the new Transport's channel can be
		// read by a future turn — see handleReset for the same race.
		if done != nil {
			<-done
		}
	}

	newTransport, err := transportfactory.New(s.cfg, s.registry, requestedID)
	if err == nil {
		err = newTransport.Open(ctx)
	}
	if err != nil {
		// Keep the previous Transport alive rather than stranding the
		// Session transport-less: the model id stays unchanged (spec's
		// "for an unknown id ... the current model id is unchanged" rule
		// extends naturally to a switch that fails to open).
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		s.enqueue(protocol.Error(string(transport.ErrorModelUnavailable), err.Error(), true))
		return
	}

	if oldTransport != nil {
		_ = oldTransport.Close()
	}

	s.mu.Lock()
	s.tr = newTransport
	s.modelID = requestedID
	s.state = StateIdle
	s.mu.Unlock()

	_, isAuto := s.registry.VendorHandle(requestedID)
	s.enqueue(protocol.ModelChanged(desc.ID, isAuto, previous, archived))
}

// archiveInFlightLocked moves any partially-assembled assistant text into
// the archived log and resets the accumulator. Must be called with s.mu
// held.
func (s *Session) archiveInFlightLocked() []string {
	text := s.assistant.String()
	s.assistant.Reset()
	if text == "" {
		return nil
	}
	s.archived = append(s.archived, text)
	return []string{text}
}
