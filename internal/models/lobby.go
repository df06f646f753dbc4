// internal/models/lobby.go
package models

// LobbySummary is the public, read-only view of a lobby used by list.
type LobbySummary struct {
	LobbyID    int64  `json:"lobby_id"`
	Host       string `json:"host"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
	Difficulty string `json:"difficulty"`
	Started    bool   `json:"started"`
}

// ServerInfo is the snapshot returned on hello and list.
type ServerInfo struct {
	ServerName         string         `json:"server_name"`
	MaxLobbies         int            `json:"max_lobbies"`
	MaxPlayersPerLobby int            `json:"max_players_per_lobby"`
	DefaultDifficulty  string         `json:"default_difficulty"`
	CurrentLobbyCount  int            `json:"current_lobby_count"`
	PlayersConnected   int            `json:"players_connected"`
	Lobbies            []LobbySummary `json:"lobbies"`
}
