package historian

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/mickarin/internal/cache"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanSource serves records pushed onto a channel.
type chanSource chan cache.GameActionRecord

func (c chanSource) Pop(ctx context.Context, timeout time.Duration) (*cache.GameActionRecord, error) {
	select {
	case rec := <-c:
		return &rec, nil
	case <-time.After(timeout):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// recordingSink keeps every batch it receives.
type recordingSink struct {
	mu      sync.Mutex
	batches [][]cache.GameActionRecord
}

func (r *recordingSink) write(_ context.Context, recs []cache.GameActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, recs)
	return nil
}

func (r *recordingSink) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func (r *recordingSink) sizes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.batches))
	for i, b := range r.batches {
		out[i] = len(b)
	}
	return out
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func record(i int) cache.GameActionRecord {
	return cache.GameActionRecord{GameCode: "AB12C", ActionIndex: i, ActorID: 0, ActionType: "rollDice", Timestamp: time.Now().UnixMilli()}
}

func TestFailedFlushIsRetried(t *testing.T) {
	sink := &recordingSink{}
	failures := 1
	flaky := func(ctx context.Context, recs []cache.GameActionRecord) error {
		if failures > 0 {
			failures--
			return errors.New("database unavailable")
		}
		return sink.write(ctx, recs)
	}
	s := New(make(chanSource), flaky, 10, time.Hour, quietLogger())
	ctx := context.Background()

	s.append(ctx, record(1))
	s.append(ctx, record(2))
	s.Flush(ctx)
	assert.Zero(t, sink.total())

	s.append(ctx, record(3))
	s.Flush(ctx)
	require.Len(t, sink.batches, 1)
	var indexes []int
	for _, rec := range sink.batches[0] {
		indexes = append(indexes, rec.ActionIndex)
	}
	assert.Equal(t, []int{1, 2, 3}, indexes, "the failed records come first, in order")
}

func TestRetryBacklogIsBounded(t *testing.T) {
	down := func(context.Context, []cache.GameActionRecord) error { return errors.New("database unavailable") }
	s := New(make(chanSource), down, 2, time.Hour, quietLogger())
	ctx := context.Background()

	for i := 0; i < 2*maxPendingBatches+6; i++ {
		s.append(ctx, record(i))
	}
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	require.Len(t, s.batch, 2*maxPendingBatches)
	assert.Equal(t, 2*maxPendingBatches+5, s.batch[len(s.batch)-1].ActionIndex, "the newest records are kept")
}

func TestFullBatchFlushesImmediately(t *testing.T) {
	sink := &recordingSink{}
	s := New(make(chanSource), sink.write, 3, time.Hour, quietLogger())
	ctx := context.Background()

	s.append(ctx, record(1))
	s.append(ctx, record(2))
	assert.Zero(t, sink.total())

	s.append(ctx, record(3))
	assert.Equal(t, []int{3}, sink.sizes())

	s.Flush(ctx)
	assert.Equal(t, []int{3}, sink.sizes(), "empty batches are not written")
}

func TestRunFlushesOnTickAndShutdown(t *testing.T) {
	src := make(chanSource, 10)
	sink := &recordingSink{}
	s := New(src, sink.write, 100, 20*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	src <- record(1)
	src <- record(2)
	require.Eventually(t, func() bool { return sink.total() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 2, sink.total())
}
