// internal/lobby/match.go
package lobby

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/dominoes/internal/domino"
	"github.com/jason-s-yu/dominoes/internal/protocol"
)

// outcome is how a match reached its terminal state.
type outcome int

const (
	outcomeWin outcome = iota
	outcomeBlock
	outcomeForfeit
)

func (o outcome) String() string {
	switch o {
	case outcomeBlock:
		return "block"
	case outcomeForfeit:
		return "forfeit"
	default:
		return "win"
	}
}

// player is a match participant. The roster is fixed at deal time; a player
// who leaves mid-match stays on it as forfeited so their tiles stay counted.
type player struct {
	username  string
	rosterIdx int
	hand      domino.Hand
	forfeited bool
}

// match is the in-progress state of a lobby. nil on the lobby means WAITING.
type match struct {
	id       uuid.UUID
	players  []*player
	chain    domino.Chain
	boneyard []domino.Tile
	turn     int // index into Lobby.seats
	passes   int
	actions  int
}

func (m *match) hands() []domino.Hand {
	hands := make([]domino.Hand, len(m.players))
	for i, p := range m.players {
		hands[i] = p.hand
	}
	return hands
}

// eligible marks the participants still in the match.
func (m *match) eligible() []bool {
	e := make([]bool, len(m.players))
	for i, p := range m.players {
		e[i] = !p.forfeited
	}
	return e
}

// tileCount is the number of tiles accounted for; always domino.SetSize.
func (m *match) tileCount() int {
	n := m.chain.Len() + len(m.boneyard)
	for _, p := range m.players {
		n += len(p.hand)
	}
	return n
}

func (m *match) usernames() []string {
	names := make([]string, len(m.players))
	for i, p := range m.players {
		names[i] = p.username
	}
	return names
}

func (m *match) finalHands() []protocol.FinalHand {
	out := make([]protocol.FinalHand, len(m.players))
	for i, p := range m.players {
		out[i] = protocol.FinalHand{
			RosterIndex: i,
			Username:    p.username,
			Hand:        p.hand.Clone(),
			Forfeited:   p.forfeited,
		}
	}
	return out
}

func (m *match) pipSums() []protocol.PipSum {
	var out []protocol.PipSum
	for i, p := range m.players {
		if p.forfeited {
			continue
		}
		out = append(out, protocol.PipSum{RosterIndex: i, Username: p.username, Sum: p.hand.Pips()})
	}
	return out
}
