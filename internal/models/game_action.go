// internal/models/game_action.go
package models

import "github.com/google/uuid"

// Action types written to the match journal.
const (
	ActionMatchStart  = "match_start"
	ActionPlace       = "place"
	ActionPass        = "pass"
	ActionTurnTimeout = "turn_timeout"
	ActionForfeit     = "forfeit"
	ActionMatchEnd    = "match_end"
)

// ActionRecord is one journal entry for a match, in the shape the historian
// consumes from the Redis queue.
type ActionRecord struct {
	MatchID       uuid.UUID              `json:"match_id"`
	LobbyID       int64                  `json:"lobby_id"`
	ActionIndex   int                    `json:"action_index"`
	Actor         string                 `json:"actor,omitempty"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload,omitempty"`
	Timestamp     int64                  `json:"timestamp"`
}
