package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/mickarin/internal/cache"
)

// InsertGameActions writes a batch of action records in a single
// transaction. Records already stored are skipped.
func InsertGameActions(ctx context.Context, pool *pgxpool.Pool, records []cache.GameActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return fmt.Errorf("encode payload of %s #%d: %w", rec.GameCode, rec.ActionIndex, err)
			}
			batch.Queue(`
				INSERT INTO game_actions (game_code, action_index, actor_id, action_type, action_payload, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (game_code, action_index, action_type) DO NOTHING
			`, rec.GameCode, rec.ActionIndex, rec.ActorID, rec.ActionType, payload, time.UnixMilli(rec.Timestamp))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}
