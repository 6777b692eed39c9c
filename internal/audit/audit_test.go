package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

type stubSink struct {
	mu       sync.Mutex
	entries  []model.AuditEntry
	deadline bool
	err      error
	release  chan struct{}
}

func (s *stubSink) Record(ctx context.Context, e model.AuditEntry) error {
	if s.release != nil {
		<-s.release
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	_, hasDeadline := ctx.Deadline()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	s.deadline = hasDeadline
	return s.err
}

func (s *stubSink) recorded() []model.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditEntry(nil), s.entries...)
}

// runJournal запускает Run и возвращает функцию, которая останавливает его
// и дожидается доставки очереди.
func runJournal(t *testing.T, j *Journal) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	return func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("journal did not stop")
		}
	}
}

func TestJournal_RecordFansOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	failing := &stubSink{err: errors.New("db down")}
	ok := &stubSink{}
	j := NewJournal(zap.NewNop(), nil, failing, ok)
	j.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	stop := runJournal(t, j)

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Record(reqCtx, "olga", "order.status", "order#5", "new -> confirmed")
	stop()

	entries := ok.recorded()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "olga", e.Actor)
	assert.Equal(t, "order.status", e.Action)
	assert.Equal(t, "order#5", e.Target)
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.True(t, ok.deadline)
	assert.Len(t, failing.recorded(), 1)
}

func TestJournal_RecordDoesNotWaitForSlowSink(t *testing.T) {
	defer goleak.VerifyNone(t)

	slow := &stubSink{release: make(chan struct{})}
	j := NewJournal(zap.NewNop(), nil, slow)
	stop := runJournal(t, j)

	recorded := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			j.Record(context.Background(), "olga", "bouquet.toggle", "bouquet#1", "in_stock")
		}
		close(recorded)
	}()

	select {
	case <-recorded:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a slow sink")
	}

	close(slow.release)
	stop()
	assert.Len(t, slow.recorded(), 3)
}

func TestJournal_DropsWhenQueueFull(t *testing.T) {
	sink := &stubSink{}
	j := NewJournal(zap.NewNop(), nil, sink)
	j.queue = make(chan model.AuditEntry, 1)

	j.Record(context.Background(), "olga", "user.delete", "user#1", "")
	j.Record(context.Background(), "olga", "user.delete", "user#2", "")

	require.Len(t, j.queue, 1)
	assert.Equal(t, "user#1", (<-j.queue).Target)
}

func TestJournal_SinkTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	blocked := &blockingSink{}
	j := NewJournal(zap.NewNop(), nil, blocked)
	j.timeout = 20 * time.Millisecond
	stop := runJournal(t, j)

	j.Record(context.Background(), "olga", "settings.update", "settings", "")
	stop()

	assert.ErrorIs(t, blocked.err, context.DeadlineExceeded)
}

type blockingSink struct {
	err error
}

func (s *blockingSink) Record(ctx context.Context, _ model.AuditEntry) error {
	<-ctx.Done()
	s.err = ctx.Err()
	return s.err
}

func TestJournal_WithoutSinksOnlyLogs(t *testing.T) {
	j := NewJournal(zap.NewNop(), nil)

	j.Record(context.Background(), "olga", "auth.login", "admin:olga", "")

	assert.Empty(t, j.queue)
}

func TestJournal_RecentWithoutStorage(t *testing.T) {
	j := NewJournal(zap.NewNop(), nil)

	_, err := j.Recent(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNoStorage)
}
