package mcptool

import (
	"context"
	"fmt"
	"log/slog"
)

// Supervisor watches one tool server child process for unexpected exit and
// reports it through Dead, rather than polling for health the way the
// teacher's HealthMonitor does across many servers — a single child only
// needs one goroutine blocked on its own exit.
type Supervisor struct {
	client *Client
	dead   chan error
}

// NewSupervisor constructs a Supervisor for client. client must already be
// initialized (Command() non-nil).
func NewSupervisor(client *Client) *Supervisor {
	return &Supervisor{
		client: client,
		dead:   make(chan error, 1),
	}
}

// Watch blocks on the child process's exit in its own goroutine and returns
// immediately. If the process exits before ctx is cancelled, Dead() receives
// one non-nil error: the wait error, or a synthesized "exited with code N"
// error when the exit was clean. If ctx is cancelled first, Dead never fires.
func (s *Supervisor) Watch(ctx context.Context) {
	cmd := s.client.Command()
	if cmd == nil {
		return
	}

	go func() {
		err := cmd.Wait()
		select {
		case <-ctx.Done():
			// Shutdown was requested; exit is expected, not a failure.
			return
		default:
		}

		logger := slog.Default().With("server", s.client.ServerID())
		if err != nil {
			logger.Warn("tool server exited unexpectedly", "error", err)
		} else {
			logger.Warn("tool server exited unexpectedly", "exit_code", cmd.ProcessState.ExitCode())
			err = fmt.Errorf("tool server %q exited with code %d", s.client.ServerID(), cmd.ProcessState.ExitCode())
		}

		select {
		case s.dead <- err:
		default:
		}
	}()
}

// Dead delivers the child's unexpected-exit error at most once. Both
// Transport variants select on this in watchToolServer and, on receipt,
// emit TurnError(tool_backend_unavailable, ...). They do not change state
// afterwards: the Transport is not marked failed and a later Submit is
// still accepted.
func (s *Supervisor) Dead() <-chan error {
	return s.dead
}
