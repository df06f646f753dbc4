// internal/protocol/request.go
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jason-s-yu/dominoes/internal/domino"
	"github.com/jason-s-yu/dominoes/internal/models"
)

// Action is the client->server discriminator.
type Action string

const (
	ActionHello       Action = "hello"
	ActionList        Action = "list"
	ActionCreateLobby Action = "create_lobby"
	ActionJoinLobby   Action = "join_lobby"
	ActionLeaveLobby  Action = "leave_lobby"
	ActionStartLobby  Action = "start_lobby"
	ActionMove        Action = "move"
	ActionStatus      Action = "status"
	ActionPing        Action = "ping"
)

// Request is one parsed and validated client message.
type Request interface {
	Action() Action
}

type Hello struct {
	Username string
}

type List struct{}

// CreateLobby leaves MaxPlayers at 0 and Difficulty empty when the client
// wants the server defaults.
type CreateLobby struct {
	MaxPlayers int
	Difficulty domino.Difficulty
}

type JoinLobby struct {
	LobbyID int64
}

type LeaveLobby struct {
	LobbyID int64
}

type StartLobby struct {
	LobbyID int64
}

// Move is either a pass or a tile placement, optionally carrying chat that is
// broadcast ahead of the move itself.
type Move struct {
	LobbyID int64
	Pass    bool
	Tile    domino.Tile
	Side    domino.Side
	Chat    string
}

type Status struct {
	LobbyID int64
}

type Ping struct{}

func (Hello) Action() Action       { return ActionHello }
func (List) Action() Action        { return ActionList }
func (CreateLobby) Action() Action { return ActionCreateLobby }
func (JoinLobby) Action() Action   { return ActionJoinLobby }
func (LeaveLobby) Action() Action  { return ActionLeaveLobby }
func (StartLobby) Action() Action  { return ActionStartLobby }
func (Move) Action() Action        { return ActionMove }
func (Status) Action() Action      { return ActionStatus }
func (Ping) Action() Action        { return ActionPing }

// rawRequest mirrors the untyped wire envelope before validation.
type rawRequest struct {
	Action     string          `json:"action"`
	Username   *string         `json:"username"`
	MaxPlayers *int            `json:"max_players"`
	Difficulty *string         `json:"difficulty"`
	LobbyID    *int64          `json:"lobby_id"`
	Move       json.RawMessage `json:"move"`
	Side       *string         `json:"side"`
	Chat       string          `json:"chat"`
}

const passMove = "pass"

// MaxChatLength bounds the chat text attached to a move.
const MaxChatLength = 512

// Parse decodes and validates a client message. Every failure wraps
// models.ErrMalformed or models.ErrUnknownAction so it can be reported back.
func Parse(data []byte) (Request, error) {
	var raw rawRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformed, err)
	}
	if raw.Action == "" {
		return nil, fmt.Errorf("%w: missing action", models.ErrMalformed)
	}

	switch Action(raw.Action) {
	case ActionHello:
		var name string
		if raw.Username != nil {
			name = strings.TrimSpace(*raw.Username)
		}
		return Hello{Username: name}, nil

	case ActionList:
		return List{}, nil

	case ActionPing:
		return Ping{}, nil

	case ActionCreateLobby:
		req := CreateLobby{}
		if raw.MaxPlayers != nil {
			if *raw.MaxPlayers <= 0 {
				return nil, fmt.Errorf("%w: max_players must be positive", models.ErrMalformed)
			}
			req.MaxPlayers = *raw.MaxPlayers
		}
		if raw.Difficulty != nil && strings.TrimSpace(*raw.Difficulty) != "" {
			d, err := domino.ParseDifficulty(*raw.Difficulty)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", models.ErrMalformed, err)
			}
			req.Difficulty = d
		}
		return req, nil

	case ActionJoinLobby, ActionLeaveLobby, ActionStartLobby, ActionStatus:
		if raw.LobbyID == nil {
			return nil, fmt.Errorf("%w: %s requires lobby_id", models.ErrMalformed, raw.Action)
		}
		id := *raw.LobbyID
		switch Action(raw.Action) {
		case ActionJoinLobby:
			return JoinLobby{LobbyID: id}, nil
		case ActionLeaveLobby:
			return LeaveLobby{LobbyID: id}, nil
		case ActionStartLobby:
			return StartLobby{LobbyID: id}, nil
		default:
			return Status{LobbyID: id}, nil
		}

	case ActionMove:
		return parseMove(raw)
	}

	return nil, fmt.Errorf("%w: %q", models.ErrUnknownAction, raw.Action)
}

func parseMove(raw rawRequest) (Request, error) {
	if raw.LobbyID == nil {
		return nil, fmt.Errorf("%w: move requires lobby_id", models.ErrMalformed)
	}
	if len(raw.Move) == 0 {
		return nil, fmt.Errorf("%w: move requires a tile or \"pass\"", models.ErrMalformed)
	}
	if len(raw.Chat) > MaxChatLength {
		return nil, fmt.Errorf("%w: chat longer than %d bytes", models.ErrMalformed, MaxChatLength)
	}

	req := Move{LobbyID: *raw.LobbyID, Chat: strings.TrimSpace(raw.Chat)}

	var word string
	if err := json.Unmarshal(raw.Move, &word); err == nil {
		if word != passMove {
			return nil, fmt.Errorf("%w: move must be a tile or \"pass\", got %q", models.ErrMalformed, word)
		}
		req.Pass = true
		return req, nil
	}

	if err := json.Unmarshal(raw.Move, &req.Tile); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformed, err)
	}

	side := ""
	if raw.Side != nil {
		side = *raw.Side
	}
	s, err := domino.ParseSide(side)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformed, err)
	}
	req.Side = s
	return req, nil
}
