// internal/handlers/session.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/dominoes/internal/domino"
	"github.com/jason-s-yu/dominoes/internal/lobby"
	"github.com/jason-s-yu/dominoes/internal/protocol"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Session is one connected client. It satisfies lobby.Peer: lobbies enqueue
// onto out and the write pump is the only goroutine touching the transport's
// write side.
type Session struct {
	id       uuid.UUID
	username string // set once by the handshake, before the session is registered

	transport    Transport
	out          chan *protocol.Envelope
	done         chan struct{}
	closeOnce    sync.Once
	limiter      *rate.Limiter
	writeTimeout time.Duration

	logger *logrus.Entry
}

func newSession(t Transport, opts Options, logger *logrus.Logger) *Session {
	id := uuid.New()
	return &Session{
		id:           id,
		transport:    t,
		out:          make(chan *protocol.Envelope, opts.SendBuffer),
		done:         make(chan struct{}),
		limiter:      rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), opts.MessageBurst),
		writeTimeout: opts.WriteTimeout,
		logger: logger.WithFields(logrus.Fields{
			"session": id,
			"remote":  t.RemoteAddr(),
		}),
	}
}

func (s *Session) ID() uuid.UUID    { return s.id }
func (s *Session) Username() string { return s.username }

// Send enqueues env without blocking.
func (s *Session) Send(env *protocol.Envelope) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- env:
		return true
	default:
		return false
	}
}

// Drop closes a session whose outbound queue refused a message.
func (s *Session) Drop(reason string) {
	s.close(OutboundFullError, reason)
}

func (s *Session) close(code websocket.StatusCode, reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		if err := s.transport.Close(code, reason); err != nil {
			s.logger.WithError(err).Debug("transport close")
		}
		s.logger.WithField("reason", reason).Info("session closed")
	})
}

// Done is closed once the session has been closed for any reason.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// writePump drains out until the session closes. A failed write closes the
// session, which in turn ends the read loop.
func (s *Session) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case env := <-s.out:
			data, err := json.Marshal(env)
			if err != nil {
				s.logger.WithError(err).Warn("failed to marshal outgoing envelope")
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
			err = s.transport.WriteMessage(writeCtx, data)
			cancel()
			if err != nil {
				s.logger.WithError(err).Warn("write failed, closing session")
				s.close(websocket.StatusGoingAway, "write failed")
				return
			}
		}
	}
}

// allow applies the per-connection inbound rate limit.
func (s *Session) allow() bool {
	return s.limiter.Allow()
}

func (s *Session) reply(env *protocol.Envelope) {
	if !s.Send(env) {
		s.logger.Warn("reply refused: outbound queue full")
		s.Drop("outbound queue full")
	}
}

// replyError reports err to this session only. Tile errors carry the
// caller's hand so the client can resync.
func (s *Session) replyError(err error) {
	var hand []domino.Tile
	var he *lobby.HandError
	if errors.As(err, &he) {
		hand = he.Hand
	}
	s.logger.WithError(err).Debug("request rejected")
	s.reply(protocol.ErrorEnvelope(err, hand))
}
