// internal/lobby/lobby.go
package lobby

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/dominoes/internal/domino"
	"github.com/jason-s-yu/dominoes/internal/models"
	"github.com/jason-s-yu/dominoes/internal/protocol"
	"github.com/sirupsen/logrus"
)

// HandError wraps a tile error together with the caller's current hand so the
// client can resync what it holds.
type HandError struct {
	Err  error
	Hand []domino.Tile
}

func (e *HandError) Error() string { return e.Err.Error() }
func (e *HandError) Unwrap() error { return e.Err }

// seat is one position in the turn rotation.
type seat struct {
	peer     Peer
	username string
	player   *player // nil while WAITING
}

// Lobby is one table: its seats plus the match in progress, if any.
//
// Every exported method is a single transition: it takes mu, validates,
// mutates, and queues its messages onto the peers' outbound queues before
// releasing mu. Queueing never blocks, so a slow peer cannot stall the table.
type Lobby struct {
	ID         int64
	Capacity   int
	Difficulty domino.Difficulty
	Host       string
	CreatedAt  time.Time

	mu      sync.Mutex
	seats   []*seat
	match   *match // nil while WAITING
	closed  bool   // seat list became empty; lobby is gone
	removed bool   // directory already told about closure

	rng         *rand.Rand
	turnTimeout time.Duration
	turnTimer   *time.Timer
	turnGen     uint64

	dir     *Directory
	journal Journal
	logger  *logrus.Entry
}

// do runs fn as one transition. Messages are queued while the lock is held so
// per-peer order always matches transition order; peers that refused a
// message are dropped, and an emptied lobby is removed, after unlocking.
func (l *Lobby) do(fn func(out *outbox) error) error {
	l.mu.Lock()
	out := &outbox{}
	err := fn(out)
	dropped := out.deliver()
	notifyEmpty := l.closed && !l.removed
	if notifyEmpty {
		l.removed = true
	}
	l.mu.Unlock()

	for _, p := range dropped {
		l.logger.WithField("session", p.ID()).Warn("peer presumed disconnected: outbound queue refused message")
		p.Drop("outbound queue full")
	}
	if notifyEmpty && l.dir != nil {
		l.dir.removeLobby(l)
	}
	return err
}

func (l *Lobby) seatIndex(p Peer) int {
	for i, s := range l.seats {
		if s.peer.ID() == p.ID() {
			return i
		}
	}
	return -1
}

func (l *Lobby) playerNames() []string {
	names := make([]string, len(l.seats))
	for i, s := range l.seats {
		names[i] = s.username
	}
	return names
}

func (l *Lobby) handSizes() []protocol.HandSize {
	sizes := make([]protocol.HandSize, 0, len(l.seats))
	for i, s := range l.seats {
		n := 0
		if s.player != nil {
			n = len(s.player.hand)
		}
		sizes = append(sizes, protocol.HandSize{Seat: i, Username: s.username, Tiles: n})
	}
	return sizes
}

func (l *Lobby) turnUsername() string {
	if l.match == nil || len(l.seats) == 0 {
		return ""
	}
	return l.seats[l.match.turn].username
}

func (l *Lobby) update() *protocol.Update {
	return &protocol.Update{
		LobbyID:   l.ID,
		Chain:     l.match.chain.Tiles(),
		HandSizes: l.handSizes(),
		Turn:      l.turnUsername(),
		TurnSeat:  l.match.turn,
	}
}

func (l *Lobby) record(actor, actionType string, payload map[string]interface{}) {
	m := l.match
	m.actions++
	l.journal.Record(models.ActionRecord{
		MatchID:       m.id,
		LobbyID:       l.ID,
		ActionIndex:   m.actions,
		Actor:         actor,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	})
}

// Join seats p at the end of the rotation.
func (l *Lobby) Join(p Peer) error {
	return l.do(func(out *outbox) error {
		if l.closed {
			return models.ErrLobbyNotFound
		}
		if l.seatIndex(p) >= 0 {
			return models.ErrAlreadySeated
		}
		if l.match != nil {
			return models.ErrAlreadyStarted
		}
		if len(l.seats) >= l.Capacity {
			return models.ErrLobbyFull
		}

		l.seats = append(l.seats, &seat{peer: p, username: p.Username()})
		if l.dir != nil {
			l.dir.touch(p.Username())
		}

		players := l.playerNames()
		out.send(p, &protocol.Envelope{Joined: &protocol.Joined{
			LobbyID:    l.ID,
			Players:    players,
			Difficulty: string(l.Difficulty),
			MaxPlayers: l.Capacity,
			Host:       l.Host,
		}})
		out.broadcast(l.seats, &protocol.Envelope{LobbyUpdate: &protocol.LobbyUpdate{LobbyID: l.ID, Players: players}})

		l.logger.WithFields(logrus.Fields{"user": p.Username(), "seats": len(l.seats)}).Info("player joined lobby")
		return nil
	})
}

// Leave removes p's seat if present; leaving twice is a no-op. A seat leaving
// mid-match forfeits. The lobby closes once its last seat is gone.
func (l *Lobby) Leave(p Peer) error {
	return l.do(func(out *outbox) error {
		idx := l.seatIndex(p)
		if idx < 0 {
			return nil
		}
		s := l.seats[idx]
		l.seats = append(l.seats[:idx], l.seats[idx+1:]...)

		out.send(p, &protocol.Envelope{Left: &protocol.Left{LobbyID: l.ID}})
		out.broadcast(l.seats, &protocol.Envelope{LobbyUpdate: &protocol.LobbyUpdate{LobbyID: l.ID, Players: l.playerNames()}})
		l.logger.WithFields(logrus.Fields{"user": s.username, "seats": len(l.seats)}).Info("player left lobby")

		if l.match != nil {
			l.forfeit(out, s, idx)
		}
		if len(l.seats) == 0 {
			l.stopTurnTimer()
			l.match = nil
			l.closed = true
			l.logger.Info("lobby empty, closing")
		}
		return nil
	})
}

// forfeit handles a seat at idx leaving an active match. The departing
// player's tiles stay on the roster; the turn moves to the next remaining seat
// if the departing seat held it.
func (l *Lobby) forfeit(out *outbox, s *seat, idx int) {
	m := l.match
	s.player.forfeited = true
	l.record(s.username, models.ActionForfeit, map[string]interface{}{"seat": s.player.rosterIdx})

	heldTurn := idx == m.turn
	if idx < m.turn {
		m.turn--
	}
	if len(l.seats) > 0 {
		m.turn %= len(l.seats)
	} else {
		m.turn = 0
	}

	switch len(l.seats) {
	case 0:
		l.logger.WithField("match", m.id).Info("match abandoned, no seats left")
		l.stopTurnTimer()
		l.match = nil
		return
	case 1:
		l.finish(out, l.seats[0].player.rosterIdx, outcomeForfeit)
		return
	}

	if l.checkTerminal(out) {
		return
	}
	out.broadcast(l.seats, &protocol.Envelope{Update: l.update()})
	if heldTurn {
		l.armTurnTimer()
	}
}

// Start deals a new match. Only the host may start, with 2..Capacity seats.
func (l *Lobby) Start(p Peer) error {
	return l.do(func(out *outbox) error {
		if l.closed {
			return models.ErrLobbyNotFound
		}
		if p.Username() != l.Host {
			return models.ErrNotHost
		}
		if l.match != nil {
			return models.ErrAlreadyStarted
		}
		if len(l.seats) < 2 {
			return models.ErrNotEnoughSeats
		}

		perSeat := domino.EvenDealSize(l.Difficulty.TilesPerSeat(), len(l.seats))
		if perSeat < 1 {
			return models.ErrTooManySeats
		}
		deck := domino.NewSet()
		domino.Shuffle(deck, l.rng)
		hands, rest := domino.Deal(deck, len(l.seats), perSeat)

		m := &match{id: uuid.New(), boneyard: rest}
		dealt := make(map[string]interface{}, len(l.seats))
		for i, s := range l.seats {
			pl := &player{username: s.username, rosterIdx: i, hand: hands[i]}
			s.player = pl
			m.players = append(m.players, pl)
			dealt[fmt.Sprintf("%d:%s", i, s.username)] = hands[i].Clone()
		}
		l.match = m
		l.record(p.Username(), models.ActionMatchStart, map[string]interface{}{
			"per_seat": perSeat,
			"hands":    dealt,
			"boneyard": len(rest),
		})

		players := l.playerNames()
		for _, s := range l.seats {
			out.send(s.peer, &protocol.Envelope{GameStart: &protocol.GameStart{
				LobbyID:  l.ID,
				MatchID:  m.id,
				YourHand: s.player.hand.Clone(),
				Players:  players,
				Turn:     l.turnUsername(),
				TurnSeat: m.turn,
				Chain:    m.chain.Tiles(),
			}})
		}
		l.armTurnTimer()

		l.logger.WithFields(logrus.Fields{"match": m.id, "seats": len(l.seats), "per_seat": perSeat}).Info("match started")
		return nil
	})
}

// Move applies a pass or placement for p. Chat attached to the move is
// broadcast first, even when the move itself is then rejected.
func (l *Lobby) Move(p Peer, mv protocol.Move) error {
	return l.do(func(out *outbox) error {
		if l.closed {
			return models.ErrLobbyNotFound
		}
		idx := l.seatIndex(p)
		if idx < 0 {
			return models.ErrNotSeated
		}
		if l.match == nil {
			return models.ErrNotStarted
		}
		if idx != l.match.turn {
			return models.ErrNotYourTurn
		}
		s := l.seats[idx]

		if mv.Chat != "" {
			out.broadcast(l.seats, &protocol.Envelope{Chat: &protocol.Chat{LobbyID: l.ID, From: s.username, Text: mv.Chat}})
		}
		if mv.Pass {
			l.pass(out, s, false)
			return nil
		}
		return l.place(out, s, mv.Tile, mv.Side)
	})
}

func (l *Lobby) advanceTurn() {
	l.match.turn = (l.match.turn + 1) % len(l.seats)
}

func (l *Lobby) pass(out *outbox, s *seat, timedOut bool) {
	m := l.match
	m.passes++
	l.advanceTurn()

	action := models.ActionPass
	if timedOut {
		action = models.ActionTurnTimeout
	}
	l.record(s.username, action, map[string]interface{}{"passes_in_row": m.passes})

	upd := l.update()
	upd.PassedBy = s.username
	upd.TimedOut = timedOut
	out.broadcast(l.seats, &protocol.Envelope{Update: upd})

	if !l.checkTerminal(out) {
		l.armTurnTimer()
	}
}

func (l *Lobby) place(out *outbox, s *seat, t domino.Tile, side domino.Side) error {
	m := l.match
	held, ok := s.player.hand.Find(t)
	if !ok {
		return &HandError{Err: models.ErrTileNotHeld, Hand: s.player.hand.Clone()}
	}
	wasEmpty := m.chain.Empty()
	placed, err := m.chain.Place(held, side)
	if err != nil {
		return &HandError{
			Err:  fmt.Errorf("%w %s end", models.ErrTileMismatch, side),
			Hand: s.player.hand.Clone(),
		}
	}
	s.player.hand.Remove(held)
	m.passes = 0
	l.advanceTurn()

	l.record(s.username, models.ActionPlace, map[string]interface{}{
		"tile": placed,
		"side": side,
	})

	upd := l.update()
	upd.PlacedBy = s.username
	upd.PlacedTile = &placed
	if !wasEmpty {
		upd.Side = side
	}
	out.broadcast(l.seats, &protocol.Envelope{Update: upd})

	if !l.checkTerminal(out) {
		l.armTurnTimer()
	}
	return nil
}

// checkTerminal ends the match on an empty hand or when every seat has passed
// in a row. Returns true if the match ended.
func (l *Lobby) checkTerminal(out *outbox) bool {
	m := l.match
	hands := m.hands()
	eligible := m.eligible()

	if w := domino.EmptyHand(hands, eligible); w >= 0 {
		l.finish(out, w, outcomeWin)
		return true
	}
	if len(l.seats) > 0 && m.passes >= len(l.seats) {
		w := domino.LowestPips(domino.PipSums(hands), eligible)
		if w >= 0 {
			l.finish(out, w, outcomeBlock)
			return true
		}
	}
	return false
}

// finish records stats, announces the result and returns the lobby to
// WAITING with its seats intact.
func (l *Lobby) finish(out *outbox, winner int, how outcome) {
	m := l.match
	w := m.players[winner]
	if l.dir != nil {
		l.dir.recordResult(w.username, m.usernames())
	}

	over := &protocol.GameOver{
		LobbyID:           l.ID,
		MatchID:           m.id,
		Winner:            w.username,
		WinnerRosterIndex: winner,
		Blocked:           how == outcomeBlock,
		Forfeit:           how == outcomeForfeit,
		Hands:             m.finalHands(),
	}
	if how == outcomeBlock {
		over.Sums = m.pipSums()
	}
	l.record(w.username, models.ActionMatchEnd, map[string]interface{}{
		"winner":  w.username,
		"outcome": how.String(),
	})
	out.broadcast(l.seats, &protocol.Envelope{GameOver: over})

	l.stopTurnTimer()
	for _, s := range l.seats {
		s.player = nil
	}
	l.match = nil

	l.logger.WithFields(logrus.Fields{"match": m.id, "winner": w.username, "outcome": how.String()}).Info("match finished")
}

// Status queues a private snapshot for p. p need not be seated; an unseated
// caller simply sees an empty hand.
func (l *Lobby) Status(p Peer) error {
	return l.do(func(out *outbox) error {
		if l.closed {
			return models.ErrLobbyNotFound
		}
		st := &protocol.StatusEvent{
			LobbyID:   l.ID,
			Players:   l.playerNames(),
			Host:      l.Host,
			Started:   l.match != nil,
			Chain:     []domino.Tile{},
			YourHand:  []domino.Tile{},
			HandSizes: l.handSizes(),
		}
		if m := l.match; m != nil {
			st.Chain = m.chain.Tiles()
			st.Turn = l.turnUsername()
			st.Boneyard = len(m.boneyard)
			if idx := l.seatIndex(p); idx >= 0 {
				st.YourHand = l.seats[idx].player.hand.Clone()
			}
		}
		if l.dir != nil {
			stats := l.dir.Stats(p.Username())
			st.Wins, st.Games, st.YourLevel = stats.Wins, stats.Games, stats.Level()
		}
		out.send(p, &protocol.Envelope{Status: st})
		return nil
	})
}

// Summary is the public listing entry for this lobby.
func (l *Lobby) Summary() models.LobbySummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return models.LobbySummary{
		LobbyID:    l.ID,
		Host:       l.Host,
		Players:    len(l.seats),
		MaxPlayers: l.Capacity,
		Difficulty: string(l.Difficulty),
		Started:    l.match != nil,
	}
}

// Started reports whether a match is in progress.
func (l *Lobby) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.match != nil
}

// Players returns the seated usernames in turn order.
func (l *Lobby) Players() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.playerNames()
}

// Seated reports whether p holds a seat.
func (l *Lobby) Seated(p Peer) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seatIndex(p) >= 0
}
