// internal/lobby/turn_timer.go
package lobby

import (
	"time"

	"github.com/sirupsen/logrus"
)

// armTurnTimer restarts the timer for whoever holds the turn now. Callers hold
// l.mu. A zero turnTimeout disables timers.
func (l *Lobby) armTurnTimer() {
	l.stopTurnTimer()
	if l.turnTimeout <= 0 || l.match == nil {
		return
	}
	gen := l.turnGen
	l.turnTimer = time.AfterFunc(l.turnTimeout, func() {
		l.onTurnTimeout(gen)
	})
}

// stopTurnTimer cancels any pending timer and invalidates callbacks that have
// already fired but not yet taken the lock.
func (l *Lobby) stopTurnTimer() {
	l.turnGen++
	if l.turnTimer != nil {
		l.turnTimer.Stop()
		l.turnTimer = nil
	}
}

// onTurnTimeout passes on behalf of the seat that held the turn when the timer
// with generation gen was armed.
func (l *Lobby) onTurnTimeout(gen uint64) {
	_ = l.do(func(out *outbox) error {
		if gen != l.turnGen || l.match == nil || l.closed || len(l.seats) == 0 {
			l.logger.WithField("gen", gen).Debug("stale turn timer fired, ignoring")
			return nil
		}
		s := l.seats[l.match.turn]
		l.logger.WithFields(logrus.Fields{"user": s.username, "timeout": l.turnTimeout}).Info("turn timed out, auto-passing")
		l.pass(out, s, true)
		return nil
	})
}
