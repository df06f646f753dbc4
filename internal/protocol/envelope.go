// internal/protocol/envelope.go
package protocol

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/dominoes/internal/domino"
	"github.com/jason-s-yu/dominoes/internal/models"
)

// Envelope is one server->client message. Each non-nil field is an event of
// that kind; most envelopes carry exactly one.
type Envelope struct {
	OK          bool               `json:"ok,omitempty"`
	ServerInfo  *models.ServerInfo `json:"server_info,omitempty"`
	Joined      *Joined            `json:"joined,omitempty"`
	Left        *Left              `json:"left,omitempty"`
	LobbyUpdate *LobbyUpdate       `json:"lobby_update,omitempty"`
	Created     *Created           `json:"created,omitempty"`
	GameStart   *GameStart         `json:"game_start,omitempty"`
	Chat        *Chat              `json:"chat,omitempty"`
	Update      *Update            `json:"update,omitempty"`
	Error       *ErrorEvent        `json:"error,omitempty"`
	Status      *StatusEvent       `json:"status,omitempty"`
	GameOver    *GameOver          `json:"game_over,omitempty"`
	Pong        *Pong              `json:"pong,omitempty"`
}

// Kinds lists the event kinds present, for logging.
func (e *Envelope) Kinds() []string {
	var kinds []string
	add := func(present bool, kind string) {
		if present {
			kinds = append(kinds, kind)
		}
	}
	add(e.ServerInfo != nil, "server_info")
	add(e.Joined != nil, "joined")
	add(e.Left != nil, "left")
	add(e.LobbyUpdate != nil, "lobby_update")
	add(e.Created != nil, "created")
	add(e.GameStart != nil, "game_start")
	add(e.Chat != nil, "chat")
	add(e.Update != nil, "update")
	add(e.Error != nil, "error")
	add(e.Status != nil, "status")
	add(e.GameOver != nil, "game_over")
	add(e.Pong != nil, "pong")
	return kinds
}

type Joined struct {
	LobbyID    int64    `json:"lobby_id"`
	Players    []string `json:"players"`
	Difficulty string   `json:"difficulty"`
	MaxPlayers int      `json:"max_players"`
	Host       string   `json:"host"`
}

type Left struct {
	LobbyID int64 `json:"lobby_id"`
}

type LobbyUpdate struct {
	LobbyID int64    `json:"lobby_id"`
	Players []string `json:"players"`
}

type Created struct {
	LobbyID    int64  `json:"lobby_id"`
	MaxPlayers int    `json:"max_players"`
	Difficulty string `json:"difficulty"`
}

// HandSize is the public per-seat tile count.
type HandSize struct {
	Seat     int    `json:"seat"`
	Username string `json:"username"`
	Tiles    int    `json:"tiles"`
}

// GameStart is private to each seat: YourHand differs per recipient.
type GameStart struct {
	LobbyID  int64         `json:"lobby_id"`
	MatchID  uuid.UUID     `json:"match_id"`
	YourHand []domino.Tile `json:"your_hand"`
	Players  []string      `json:"players"`
	Turn     string        `json:"turn"`
	TurnSeat int           `json:"turn_seat"`
	Chain    []domino.Tile `json:"chain"`
}

type Chat struct {
	LobbyID int64  `json:"lobby_id"`
	From    string `json:"from"`
	Text    string `json:"text"`
}

// Update is the public state after a pass or placement. It never carries hand contents.
type Update struct {
	LobbyID    int64         `json:"lobby_id"`
	PlacedBy   string        `json:"placed_by,omitempty"`
	PlacedTile *domino.Tile  `json:"placed_tile,omitempty"`
	Side       domino.Side   `json:"side,omitempty"`
	PassedBy   string        `json:"passed_by,omitempty"`
	TimedOut   bool          `json:"timed_out,omitempty"`
	Chain      []domino.Tile `json:"chain"`
	HandSizes  []HandSize    `json:"hands_sizes"`
	Turn       string        `json:"turn"`
	TurnSeat   int           `json:"turn_seat"`
}

type ErrorEvent struct {
	Kind     models.ErrorKind `json:"kind"`
	Message  string           `json:"message"`
	YourHand []domino.Tile    `json:"your_hand,omitempty"`
}

type StatusEvent struct {
	LobbyID   int64         `json:"lobby_id"`
	Players   []string      `json:"players"`
	Host      string        `json:"host"`
	Started   bool          `json:"started"`
	Chain     []domino.Tile `json:"chain"`
	YourHand  []domino.Tile `json:"your_hand"`
	Turn      string        `json:"turn,omitempty"`
	HandSizes []HandSize    `json:"hands_sizes"`
	Boneyard  int           `json:"boneyard"`
	YourLevel int           `json:"your_level"`
	Wins      int           `json:"wins"`
	Games     int           `json:"games"`
}

// PipSum is a participant's remaining pip total in a blocked game.
// RosterIndex is the position dealt at match start, which differs from the
// current seat index once someone has left.
type PipSum struct {
	RosterIndex int    `json:"roster_index"`
	Username    string `json:"username"`
	Sum         int    `json:"sum"`
}

// FinalHand reveals what each participant still held at the end.
type FinalHand struct {
	RosterIndex int           `json:"roster_index"`
	Username    string        `json:"username"`
	Hand        []domino.Tile `json:"hand"`
	Forfeited   bool          `json:"forfeited,omitempty"`
}

// GameOver indexes participants by roster, not by current seat.
type GameOver struct {
	LobbyID           int64       `json:"lobby_id"`
	MatchID           uuid.UUID   `json:"match_id"`
	Winner            string      `json:"winner"`
	WinnerRosterIndex int         `json:"winner_roster_index"`
	Blocked           bool        `json:"blocked,omitempty"`
	Forfeit           bool        `json:"forfeit,omitempty"`
	Sums              []PipSum    `json:"sums,omitempty"`
	Hands             []FinalHand `json:"hands"`
}

type Pong struct {
	Time int64 `json:"time"`
}

// ErrorEnvelope classifies err for the wire.
func ErrorEnvelope(err error, hand []domino.Tile) *Envelope {
	return &Envelope{Error: &ErrorEvent{
		Kind:     models.KindOf(err),
		Message:  err.Error(),
		YourHand: hand,
	}}
}
