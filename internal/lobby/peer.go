// internal/lobby/peer.go
package lobby

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/dominoes/internal/protocol"
)

// Peer is a connected client as seen by a lobby.
type Peer interface {
	ID() uuid.UUID
	Username() string
	// Send enqueues env without blocking. It returns false if the peer can no
	// longer accept messages (queue full or connection closed).
	Send(env *protocol.Envelope) bool
	// Drop closes the peer's connection; its worker then runs the normal
	// disconnect cleanup.
	Drop(reason string)
}

type delivery struct {
	to  Peer
	env *protocol.Envelope
}

// outbox collects the messages produced by one lobby transition, in order.
type outbox struct {
	items []delivery
}

func (o *outbox) send(p Peer, env *protocol.Envelope) {
	o.items = append(o.items, delivery{to: p, env: env})
}

// broadcast addresses env to every seat present at the time of the call.
func (o *outbox) broadcast(seats []*seat, env *protocol.Envelope) {
	for _, s := range seats {
		o.items = append(o.items, delivery{to: s.peer, env: env})
	}
}

// deliver hands every message to its peer's queue and returns the peers that
// refused one. Each peer appears at most once in the result.
func (o *outbox) deliver() []Peer {
	var dropped []Peer
	refused := make(map[uuid.UUID]bool)
	for _, d := range o.items {
		if refused[d.to.ID()] {
			continue
		}
		if !d.to.Send(d.env) {
			refused[d.to.ID()] = true
			dropped = append(dropped, d.to)
		}
	}
	o.items = nil
	return dropped
}
