// internal/database/match.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/dominoes/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	id         UUID PRIMARY KEY,
	lobby_id   BIGINT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'in_progress',
	winner     TEXT,
	outcome    TEXT,
	start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS match_actions (
	match_id       UUID NOT NULL REFERENCES matches(id),
	action_index   INT NOT NULL,
	actor          TEXT,
	action_type    TEXT NOT NULL,
	action_payload JSONB,
	recorded_at    BIGINT NOT NULL,
	PRIMARY KEY (match_id, action_index)
);
`

// Migrate creates the archive tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// ActionStore archives match journals in Postgres.
type ActionStore struct {
	pool *pgxpool.Pool
}

func NewActionStore(pool *pgxpool.Pool) *ActionStore {
	return &ActionStore{pool: pool}
}

// SaveActions writes a batch in one transaction. Replayed records are ignored.
func (s *ActionStore) SaveActions(ctx context.Context, recs []models.ActionRecord) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertActionTx: %w", err)
			}
		}
		return nil
	})
}

// MarkAbandoned closes a match that stopped producing actions before ending.
func (s *ActionStore) MarkAbandoned(ctx context.Context, matchID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE matches
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		_, err := tx.Exec(ctx, q, matchID)
		return err
	})
}

// insertActionTx inserts one action, creating the match row on first sight and
// finalizing it on match_end.
func insertActionTx(ctx context.Context, tx pgx.Tx, rec models.ActionRecord) error {
	upsertMatchQ := `
		INSERT INTO matches (id, lobby_id, status)
		VALUES ($1, $2, 'in_progress')
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertMatchQ, rec.MatchID, rec.LobbyID); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO match_actions (
			match_id, action_index, actor, action_type, action_payload, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id, action_index) DO NOTHING
	`
	if _, err := tx.Exec(ctx, actionInsertQ,
		rec.MatchID, rec.ActionIndex, rec.Actor, rec.ActionType, payload, rec.Timestamp,
	); err != nil {
		return err
	}

	if rec.ActionType == models.ActionMatchEnd {
		outcome, _ := rec.ActionPayload["outcome"].(string)
		finalizeQ := `
			UPDATE matches
			SET status = 'completed', winner = $2, outcome = $3, end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.MatchID, rec.Actor, outcome); err != nil {
			return err
		}
	}
	return nil
}

// MatchSummary is an archived match row.
type MatchSummary struct {
	ID      uuid.UUID
	LobbyID int64
	Status  string
	Winner  *string
	Actions int
}

// GetMatch reads back a match and how many actions were archived for it.
func (s *ActionStore) GetMatch(ctx context.Context, matchID uuid.UUID) (*MatchSummary, error) {
	q := `
		SELECT m.id, m.lobby_id, m.status, m.winner,
		       (SELECT COUNT(*) FROM match_actions a WHERE a.match_id = m.id)
		FROM matches m
		WHERE m.id = $1
	`
	var ms MatchSummary
	err := s.pool.QueryRow(ctx, q, matchID).Scan(&ms.ID, &ms.LobbyID, &ms.Status, &ms.Winner, &ms.Actions)
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", matchID, err)
	}
	return &ms, nil
}
