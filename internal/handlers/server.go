// internal/handlers/server.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/jason-s-yu/dominoes/internal/lobby"
	"github.com/jason-s-yu/dominoes/internal/middleware"
	"github.com/jason-s-yu/dominoes/internal/models"
	"github.com/jason-s-yu/dominoes/internal/protocol"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Subprotocol is the WebSocket subprotocol clients must request on /ws.
const Subprotocol = "dominoes"

// Options configures per-connection behaviour.
type Options struct {
	MaxFrameSize      int
	SendBuffer        int
	WriteTimeout      time.Duration
	MessagesPerSecond float64
	MessageBurst      int
}

// DefaultOptions returns the per-connection defaults.
func DefaultOptions() Options {
	return Options{
		MaxFrameSize:      protocol.DefaultMaxFrameSize,
		SendBuffer:        64,
		WriteTimeout:      10 * time.Second,
		MessagesPerSecond: 20,
		MessageBurst:      40,
	}
}

// Server binds transports to the lobby directory.
type Server struct {
	dir    *lobby.Directory
	opts   Options
	logger *logrus.Logger
}

func NewServer(dir *lobby.Directory, opts Options, logger *logrus.Logger) *Server {
	def := DefaultOptions()
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = def.MaxFrameSize
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if opts.MessagesPerSecond <= 0 {
		opts.MessagesPerSecond = def.MessagesPerSecond
	}
	if opts.MessageBurst <= 0 {
		opts.MessageBurst = def.MessageBurst
	}
	return &Server{dir: dir, opts: opts, logger: logger}
}

// ServeConn runs one client until its transport fails or ctx ends. On return
// the client has left every lobby and been unregistered.
func (srv *Server) ServeConn(ctx context.Context, t Transport) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := newSession(t, srv.opts, srv.logger)
	go s.writePump(ctx)
	go func() {
		// Unblock a stream read when the server shuts down.
		select {
		case <-ctx.Done():
			s.close(websocket.StatusGoingAway, "server shutting down")
		case <-s.Done():
		}
	}()

	s.logger.Info("client connected")
	registered := false
	defer func() {
		if registered {
			srv.dir.Disconnect(s)
			srv.dir.Unregister(s)
		}
		s.close(websocket.StatusNormalClosure, "disconnected")
		s.logger.WithField("user", s.username).Info("client disconnected")
	}()

	for {
		data, err := t.ReadMessage(ctx)
		if errors.Is(err, protocol.ErrEmptyFrame) {
			// The header was consumed, so the stream is still aligned.
			s.replyError(fmt.Errorf("%w: empty frame", models.ErrMalformed))
			continue
		}
		if err != nil {
			srv.logReadError(s, err)
			return
		}
		if !s.allow() {
			s.replyError(models.ErrRateLimited)
			continue
		}

		req, err := protocol.Parse(data)
		if err != nil {
			s.replyError(err)
			continue
		}

		if !registered {
			hello, ok := req.(protocol.Hello)
			if !ok {
				s.replyError(models.ErrHandshake)
				continue
			}
			s.username = hello.Username
			if s.username == "" {
				s.username = guestName(s)
			}
			srv.dir.Register(s)
			s.logger.WithField("user", s.username).Info("handshake complete")
			registered = true
			s.reply(&protocol.Envelope{OK: true, ServerInfo: srv.serverInfo()})
			continue
		}

		if err := srv.dispatch(s, req); err != nil {
			s.replyError(err)
		}
	}
}

func (srv *Server) logReadError(s *Session, err error) {
	entry := s.logger.WithError(err)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, context.Canceled):
		entry.Debug("read loop ended")
	case errors.Is(err, protocol.ErrFrameTooLarge):
		entry.Warn("oversized frame, dropping connection")
		s.close(FrameTooLargeError, "frame too large")
	default:
		status := websocket.CloseStatus(err)
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			entry.Debug("websocket closed normally")
			return
		}
		entry.Warn("read error")
	}
}

func (srv *Server) serverInfo() *models.ServerInfo {
	info := srv.dir.List()
	return &info
}

// dispatch runs one post-handshake request. Lobby events reach the caller
// through the lobby's own queueing; only direct replies are sent here.
func (srv *Server) dispatch(s *Session, req protocol.Request) error {
	switch r := req.(type) {
	case protocol.Hello:
		s.reply(&protocol.Envelope{OK: true, ServerInfo: srv.serverInfo()})
	case protocol.List:
		s.reply(&protocol.Envelope{ServerInfo: srv.serverInfo()})
	case protocol.CreateLobby:
		l, err := srv.dir.Create(s.Username(), r.MaxPlayers, r.Difficulty)
		if err != nil {
			return err
		}
		s.reply(&protocol.Envelope{Created: &protocol.Created{
			LobbyID:    l.ID,
			MaxPlayers: l.Capacity,
			Difficulty: string(l.Difficulty),
		}})
	case protocol.JoinLobby:
		return srv.dir.Join(r.LobbyID, s)
	case protocol.LeaveLobby:
		return srv.dir.Leave(r.LobbyID, s)
	case protocol.StartLobby:
		return srv.dir.Start(r.LobbyID, s)
	case protocol.Move:
		return srv.dir.Move(r.LobbyID, s, r)
	case protocol.Status:
		return srv.dir.Status(r.LobbyID, s)
	case protocol.Ping:
		s.reply(&protocol.Envelope{Pong: &protocol.Pong{Time: time.Now().UnixMilli()}})
	default:
		return fmt.Errorf("%w: %s", models.ErrUnknownAction, req.Action())
	}
	return nil
}

// ServeTCP accepts framed connections on ln until ctx ends.
func (srv *Server) ServeTCP(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	srv.logger.WithField("addr", ln.Addr().String()).Info("tcp listener started")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go srv.ServeConn(ctx, newTCPTransport(conn, srv.opts.MaxFrameSize))
	}
}

// Router serves /ws, /healthz and /lobbies.
func (srv *Server) Router(ctx context.Context) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.LogMiddleware(srv.logger))
	r.HandleFunc("/ws", srv.wsHandler(ctx)).Methods(http.MethodGet)
	r.HandleFunc("/healthz", srv.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/lobbies", srv.lobbiesHandler).Methods(http.MethodGet)
	return r
}

func (srv *Server) wsHandler(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			srv.logger.WithError(err).Warn("websocket accept error")
			return
		}
		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the "+Subprotocol+" subprotocol")
			return
		}

		middleware.LogWebSocketConnect(srv.logger, r.RemoteAddr, r.URL.Path)
		// The connection outlives the request context only until the server stops.
		srv.ServeConn(ctx, newWSTransport(c, r.RemoteAddr, srv.opts.MaxFrameSize))
		middleware.LogWebSocketDisconnect(srv.logger, r.RemoteAddr, r.URL.Path, nil)
	}
}

func (srv *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func (srv *Server) lobbiesHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(srv.dir.List()); err != nil {
		srv.logger.WithError(err).Warn("failed to encode lobby list")
	}
}

// Run serves the enabled listeners until ctx ends or one of them fails.
// An empty address disables that listener.
func (srv *Server) Run(ctx context.Context, tcpAddr, httpAddr string) error {
	g, gctx := errgroup.WithContext(ctx)

	if tcpAddr != "" {
		ln, err := net.Listen("tcp", tcpAddr)
		if err != nil {
			return fmt.Errorf("listen tcp %s: %w", tcpAddr, err)
		}
		g.Go(func() error { return srv.ServeTCP(gctx, ln) })
	}

	if httpAddr != "" {
		hs := &http.Server{
			Addr:              httpAddr,
			Handler:           srv.Router(gctx),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			srv.logger.WithField("addr", httpAddr).Info("http listener started")
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// guestName is used when a hello carries no username.
func guestName(s *Session) string {
	return "guest_" + strings.SplitN(s.id.String(), "-", 2)[0]
}
