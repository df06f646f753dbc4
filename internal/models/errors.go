// internal/models/errors.go
package models

import "errors"

// ErrorKind classifies a recoverable error reported to the acting connection.
type ErrorKind string

const (
	KindProtocol ErrorKind = "protocol"
	KindLobby    ErrorKind = "lobby"
	KindTurn     ErrorKind = "turn"
	KindTile     ErrorKind = "tile"
	KindCapacity ErrorKind = "capacity"
)

// Error is a classified, client-facing error. None of these terminate a
// connection or leave lobby state half-mutated.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// Protocol errors
var (
	ErrMalformed     = &Error{Kind: KindProtocol, Msg: "malformed message"}
	ErrUnknownAction = &Error{Kind: KindProtocol, Msg: "unknown action"}
	ErrHandshake     = &Error{Kind: KindProtocol, Msg: "expected hello"}
	ErrRateLimited   = &Error{Kind: KindProtocol, Msg: "rate limited"}
)

// Lobby errors
var (
	ErrLobbyNotFound  = &Error{Kind: KindLobby, Msg: "lobby not found"}
	ErrLobbyFull      = &Error{Kind: KindLobby, Msg: "lobby full"}
	ErrAlreadyStarted = &Error{Kind: KindLobby, Msg: "lobby already started"}
	ErrNotStarted     = &Error{Kind: KindLobby, Msg: "no match in progress"}
	ErrNotEnoughSeats = &Error{Kind: KindLobby, Msg: "need at least 2 players to start"}
	ErrNotHost        = &Error{Kind: KindLobby, Msg: "only the host can start"}
	ErrNotSeated      = &Error{Kind: KindLobby, Msg: "you are not in the lobby"}
	ErrAlreadySeated  = &Error{Kind: KindLobby, Msg: "you are already in the lobby"}
)

// Turn and tile errors
var (
	ErrNotYourTurn  = &Error{Kind: KindTurn, Msg: "not your turn"}
	ErrTileNotHeld  = &Error{Kind: KindTile, Msg: "you don't have that tile"}
	ErrTileMismatch = &Error{Kind: KindTile, Msg: "tile does not match"}
)

// Capacity errors
var (
	ErrNoLobbySlots       = &Error{Kind: KindCapacity, Msg: "no lobby slots available on server"}
	ErrCapacityOutOfRange = &Error{Kind: KindCapacity, Msg: "max_players out of range"}
	ErrTooManySeats       = &Error{Kind: KindCapacity, Msg: "too many seats to deal a tile to each"}
)

// KindOf returns the classification of err, defaulting to protocol for
// anything that is not a classified error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindProtocol
}
