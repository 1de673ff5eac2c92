package browser

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kadcrawl/kadcrawl/internal/config"
	"github.com/kadcrawl/kadcrawl/internal/log"
)

func testSession(t *testing.T, mutate func(*config.Config)) *Session {
	t.Helper()
	cfg := config.New()
	if mutate != nil {
		mutate(cfg)
	}
	return NewSession(cfg, log.NewLogger(io.Discard, slog.LevelError))
}

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateCold, "cold"},
		{StateWarm, "warm"},
		{StateStale, "stale"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestSessionStartsCold(t *testing.T) {
	t.Parallel()

	s := testSession(t, nil)
	if got := s.State(); got != StateCold {
		t.Errorf("State() = %v, want cold before acquisition", got)
	}
}

func TestSessionIdleDecay(t *testing.T) {
	t.Parallel()

	s := testSession(t, func(c *config.Config) {
		c.RewarmIdleThreshold = 10 * time.Millisecond
	})
	s.mu.Lock()
	s.state = StateWarm
	s.lastActivity = time.Now()
	s.mu.Unlock()

	if got := s.State(); got != StateWarm {
		t.Fatalf("State() right after activity = %v, want warm", got)
	}
	time.Sleep(20 * time.Millisecond)
	if got := s.State(); got != StateStale {
		t.Errorf("State() after idle threshold = %v, want stale", got)
	}
}

func TestSessionTouchResetsIdleClock(t *testing.T) {
	t.Parallel()

	s := testSession(t, func(c *config.Config) {
		c.RewarmIdleThreshold = 50 * time.Millisecond
	})
	s.mu.Lock()
	s.state = StateWarm
	s.lastActivity = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	s.Touch()
	if got := s.State(); got != StateWarm {
		t.Errorf("State() after Touch() = %v, want warm", got)
	}
}

func TestSessionMarkStale(t *testing.T) {
	t.Parallel()

	s := testSession(t, nil)

	// Cold sessions stay cold; only warm sessions decay to stale.
	s.MarkStale()
	if got := s.State(); got != StateCold {
		t.Errorf("State() = %v, cold session must not become stale", got)
	}

	s.mu.Lock()
	s.state = StateWarm
	s.lastActivity = time.Now()
	s.mu.Unlock()
	s.MarkStale()
	if got := s.State(); got != StateStale {
		t.Errorf("State() after MarkStale() = %v, want stale", got)
	}
}

func TestSessionClosedRejectsOperations(t *testing.T) {
	t.Parallel()

	s := testSession(t, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}

	if err := s.Start(t.Context()); err != ErrSessionClosed {
		t.Errorf("Start() on closed session = %v, want ErrSessionClosed", err)
	}
	if err := s.Acquire(t.Context()); err != ErrSessionClosed {
		t.Errorf("Acquire() on closed session = %v, want ErrSessionClosed", err)
	}
	if _, err := s.CaptureAttachment(t.Context(), "https://example.com/x.pdf"); err != ErrSessionClosed {
		t.Errorf("CaptureAttachment() on closed session = %v, want ErrSessionClosed", err)
	}
}
