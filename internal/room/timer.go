package room

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/DoyleJ11/quizrooms/internal/engine"
)

// armTimer replaces any pending countdown with one for ts. On expiry it
// posts TimerFired back into the inbox; the engine decides if it still counts.
func (r *Room) armTimer(ts engine.TimerSpec) {
	r.stopTimer()

	ctx, cancel := context.WithCancel(r.ctx)
	r.timerCancel = cancel
	t := r.clock.NewTimer(ts.Duration)

	go func() {
		select {
		case <-t.Chan():
			select {
			case r.inbox <- TimerFired{Epoch: ts.Epoch, QuestionIndex: ts.QuestionIndex}:
			case <-ctx.Done():
			}
		case <-ctx.Done():
			stopAndDrainTimer(t)
		}
	}()
}

func (r *Room) stopTimer() {
	if r.timerCancel != nil {
		r.timerCancel()
		r.timerCancel = nil
	}
}

func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
