// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/mickarin/internal/game"
	"github.com/jason-s-yu/mickarin/internal/models"
)

// GameStore persists game documents as JSONB rows keyed by code.
type GameStore struct {
	pool *pgxpool.Pool
}

func NewGameStore(pool *pgxpool.Pool) *GameStore {
	return &GameStore{pool: pool}
}

// Load fetches the document for code, or game.ErrGameNotFound.
func (s *GameStore) Load(ctx context.Context, code string) (*models.Game, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM games WHERE code = $1`, code).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select game %s: %w", code, err)
	}
	var g models.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", code, err)
	}
	return &g, nil
}

// Save upserts the whole document for code in one transaction.
func (s *GameStore) Save(ctx context.Context, code string, g *models.Game) error {
	jsonData, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", code, err)
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO games (code, status, state, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (code)
			DO UPDATE SET status = EXCLUDED.status, state = EXCLUDED.state, updated_at = NOW()
		`
		_, err := tx.Exec(ctx, q, code, string(g.Status), jsonData)
		return err
	})
}

// Delete removes the document for code. Deleting a missing game is not an error.
func (s *GameStore) Delete(ctx context.Context, code string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM games WHERE code = $1`, code); err != nil {
		return fmt.Errorf("delete game %s: %w", code, err)
	}
	return nil
}
