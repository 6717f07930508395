// Package historian drains the action queue into durable storage in batches.
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/mickarin/internal/cache"
	"github.com/sirupsen/logrus"
)

// Source yields queued action records. Pop returns (nil, nil) when nothing
// arrived within timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*cache.GameActionRecord, error)
}

// Sink persists one batch of records atomically.
type Sink func(ctx context.Context, records []cache.GameActionRecord) error

// Service accumulates records from a Source and hands them to a Sink when
// the batch is full or flushDelay has passed.
type Service struct {
	src        Source
	sink       Sink
	batchSize  int
	flushDelay time.Duration
	logger     *logrus.Logger

	batchMu sync.Mutex
	batch   []cache.GameActionRecord
}

// maxPendingBatches bounds how many batches' worth of records are held back
// while the sink keeps failing.
const maxPendingBatches = 50

func New(src Source, sink Sink, batchSize int, flushDelay time.Duration, logger *logrus.Logger) *Service {
	if batchSize <= 0 {
		batchSize = 20
	}
	if flushDelay <= 0 {
		flushDelay = 500 * time.Millisecond
	}
	return &Service{
		src:        src,
		sink:       sink,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		logger:     logger,
		batch:      make([]cache.GameActionRecord, 0, batchSize),
	}
}

// Run reads until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushDelay)
	defer ticker.Stop()
	defer s.Flush(context.Background())

	s.logger.Info("historian started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("historian shutting down")
			return
		case <-ticker.C:
			s.Flush(ctx)
		default:
			rec, err := s.src.Pop(ctx, s.flushDelay)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				s.logger.WithError(err).Error("failed to pop action record")
				continue
			}
			if rec == nil {
				continue
			}
			s.append(ctx, *rec)
		}
	}
}

// append adds a record and flushes once the batch is full. The batch is
// swapped out under the lock and written after releasing it.
func (s *Service) append(ctx context.Context, rec cache.GameActionRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	var full []cache.GameActionRecord
	if len(s.batch) >= s.batchSize {
		full = s.take()
	}
	s.batchMu.Unlock()

	if full != nil {
		s.write(ctx, full)
	}
}

// Flush writes the pending batch, if any.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	pending := s.take()
	s.batchMu.Unlock()
	if pending != nil {
		s.write(ctx, pending)
	}
}

// take empties the batch and returns its records. The caller holds batchMu.
func (s *Service) take() []cache.GameActionRecord {
	if len(s.batch) == 0 {
		return nil
	}
	out := make([]cache.GameActionRecord, len(s.batch))
	copy(out, s.batch)
	s.batch = s.batch[:0]
	return out
}

// write hands records to the sink. A failed batch goes back to the front of
// the pending batch so the next flush retries it.
func (s *Service) write(ctx context.Context, records []cache.GameActionRecord) {
	if err := s.sink(ctx, records); err != nil {
		s.logger.WithError(err).WithField("records", len(records)).Error("failed to flush actions, will retry")
		s.requeue(records)
		return
	}
	s.logger.WithField("records", len(records)).Debug("flushed actions")
}

// requeue puts records ahead of anything appended since they were taken.
// Past the pending limit the oldest records are dropped.
func (s *Service) requeue(records []cache.GameActionRecord) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	merged := make([]cache.GameActionRecord, 0, len(records)+len(s.batch))
	merged = append(merged, records...)
	merged = append(merged, s.batch...)
	if limit := s.batchSize * maxPendingBatches; len(merged) > limit {
		dropped := len(merged) - limit
		s.logger.WithField("records", dropped).Error("action backlog full, dropping oldest records")
		merged = merged[dropped:]
	}
	s.batch = merged
}
