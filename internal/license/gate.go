// AngelaMos | 2026
// gate.go

package license

import (
	"context"
	"log/slog"
	"time"

	"github.com/coder/quartz"
)

// Gate wraps a protected action with the two admission hooks. Callers run
// OnBeforeAction, perform the action only when it allows, and then call
// OnAfterAction exactly once for a completed action.
type Gate struct {
	manager *Manager
	clock   quartz.Clock
	delay   time.Duration
	logger  *slog.Logger
}

// NewGate builds a gate. delay postpones each consumption after the action
// completes; zero consumes as soon as the session worker is free.
func NewGate(m *Manager, delay time.Duration) *Gate {
	return &Gate{
		manager: m,
		clock:   m.clock,
		delay:   delay,
		logger:  m.logger.With("component", "license_gate"),
	}
}

func (g *Gate) Manager() *Manager {
	return g.manager
}

func (g *Gate) OnBeforeAction(ctx context.Context, sess *Session) (Decision, error) {
	return g.manager.PreCheck(ctx, sess)
}

// OnAfterAction queues one consumption for sess. The returned channel is
// closed once the consumption has been applied. The consumption outlives
// ctx cancellation, since the action it pays for has already happened.
func (g *Gate) OnAfterAction(ctx context.Context, sess *Session) <-chan struct{} {
	ctx = context.WithoutCancel(ctx)

	return sess.enqueue(func() {
		if g.delay > 0 {
			t := g.clock.NewTimer(g.delay, "gate", "consume")
			<-t.C
		}

		if _, err := g.manager.Consume(ctx, sess); err != nil {
			g.logger.ErrorContext(ctx, "consume failed",
				"error", err,
				"session_id", sess.ID,
			)
		}
	})
}
