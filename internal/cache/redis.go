// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for game action logs.
const DefaultQueueName = "mickarin_actions"

// GameActionRecord is one accepted action, consumed by the historian.
// ActorID is -1 for actions the server performs itself (timeouts, reveals).
type GameActionRecord struct {
	GameCode      string                 `json:"game_code"`
	ActionIndex   int                    `json:"action_index"`
	ActorID       int                    `json:"actor_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Connect creates a Redis client for addr and checks it answers.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ActionPublisher appends action records to a Redis list.
type ActionPublisher struct {
	rdb   *redis.Client
	queue string
}

func NewActionPublisher(rdb *redis.Client, queue string) *ActionPublisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &ActionPublisher{rdb: rdb, queue: queue}
}

// PublishGameAction serializes the record to JSON and pushes it to the queue.
func (p *ActionPublisher) PublishGameAction(ctx context.Context, record GameActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameActionRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// PopGameAction blocks up to timeout for the next record on queue. It
// returns (nil, nil) when the wait times out.
func PopGameAction(ctx context.Context, rdb *redis.Client, queue string, timeout time.Duration) (*GameActionRecord, error) {
	res, err := rdb.BLPop(ctx, timeout, queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}
	var record GameActionRecord
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return nil, fmt.Errorf("invalid action record: %w", err)
	}
	return &record, nil
}

// QueueReader pops action records off a Redis list.
type QueueReader struct {
	rdb   *redis.Client
	queue string
}

func NewQueueReader(rdb *redis.Client, queue string) *QueueReader {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &QueueReader{rdb: rdb, queue: queue}
}

// Pop waits up to timeout for the next record; see PopGameAction.
func (q *QueueReader) Pop(ctx context.Context, timeout time.Duration) (*GameActionRecord, error) {
	return PopGameAction(ctx, q.rdb, q.queue, timeout)
}
