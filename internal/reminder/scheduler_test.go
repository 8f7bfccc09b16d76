package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []Reminder
	fail  map[string]error
	ctxOK []bool
}

func (f *fakeNotifier) Notify(ctx context.Context, r Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r)
	_, hasDeadline := ctx.Deadline()
	f.ctxOK = append(f.ctxOK, hasDeadline)
	return f.fail[r.Channel]
}

func (f *fakeNotifier) Calls() []Reminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Reminder(nil), f.calls...)
}

type fakeRecorder struct {
	mu         sync.Mutex
	deliveries []Delivery
	err        error
}

func (f *fakeRecorder) Record(_ context.Context, d Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, d)
	return f.err
}

func newTestScheduler(store *Store, n Notifier, now time.Time) *Scheduler {
	s := NewScheduler(store, n)
	s.now = func() time.Time { return now }
	return s
}

func TestSchedulerPollDeliversDueOnce(t *testing.T) {
	t0 := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	store := NewStore()
	store.Add(Reminder{Channel: "C1", Message: "ping", ScheduledAt: t0.Add(-5 * time.Second), TaskRef: "42"})
	store.Add(Reminder{Channel: "C9", Message: "later", ScheduledAt: t0.Add(time.Hour), TaskRef: "1"})

	n := &fakeNotifier{}
	s := newTestScheduler(store, n, t0)

	assert.Equal(t, 1, s.poll(context.Background()))
	assert.Equal(t, 0, s.poll(context.Background()))

	calls := n.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "C1", calls[0].Channel)
	assert.Equal(t, "ping", calls[0].Message)
	assert.Equal(t, "42", calls[0].TaskRef)
	assert.True(t, n.ctxOK[0], "delivery context should carry a timeout")
	assert.Equal(t, 1, store.Len())
}

func TestSchedulerPollOneCallPerChannel(t *testing.T) {
	t1 := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	store := NewStore()
	store.Add(Reminder{Channel: "C1", Message: "x", ScheduledAt: t1})
	store.Add(Reminder{Channel: "C2", Message: "y", ScheduledAt: t1})

	n := &fakeNotifier{}
	s := newTestScheduler(store, n, t1)
	s.poll(context.Background())

	counts := map[string]int{}
	for _, c := range n.Calls() {
		counts[c.Channel]++
	}
	assert.Equal(t, map[string]int{"C1": 1, "C2": 1}, counts)
}

func TestSchedulerFailedDeliveryIsDropped(t *testing.T) {
	t0 := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	store := NewStore()
	added := store.Add(Reminder{Channel: "C-broken", Message: "lost", ScheduledAt: t0, TaskRef: "3"})

	n := &fakeNotifier{fail: map[string]error{"C-broken": errors.New("channel_not_found")}}
	rec := &fakeRecorder{}
	s := newTestScheduler(store, n, t0)
	s.Recorder = rec

	assert.Equal(t, 1, s.poll(context.Background()))
	assert.Empty(t, store.DrainDue(t0.Add(time.Hour)))
	assert.Equal(t, 0, s.poll(context.Background()))
	assert.Len(t, n.Calls(), 1)

	require.Len(t, rec.deliveries, 1)
	d := rec.deliveries[0]
	assert.Equal(t, added.ID, d.ReminderID)
	assert.Equal(t, StatusFailed, d.Status)
	assert.Equal(t, "channel_not_found", d.Error)
	assert.Equal(t, t0, d.AttemptedAt)
}

func TestSchedulerRecorderErrorDoesNotRequeue(t *testing.T) {
	now := time.Now()
	store := NewStore()
	store.Add(Reminder{Channel: "C1", ScheduledAt: now.Add(-time.Second)})

	n := &fakeNotifier{}
	s := newTestScheduler(store, n, now)
	s.Recorder = &fakeRecorder{err: errors.New("disk full")}

	s.poll(context.Background())
	assert.Equal(t, 0, store.Len())
	assert.Len(t, n.Calls(), 1)
}

func TestSchedulerPollDeliversAfterCancel(t *testing.T) {
	now := time.Now()
	store := NewStore()
	store.Add(Reminder{Channel: "C1", ScheduledAt: now})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := &fakeNotifier{}
	s := newTestScheduler(store, n, now)
	s.poll(ctx)

	assert.Len(t, n.Calls(), 1)
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	store := NewStore()
	store.Add(Reminder{Channel: "C1", Message: "now", ScheduledAt: time.Now().Add(-time.Second)})

	n := &fakeNotifier{}
	s := NewScheduler(store, n)
	s.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return len(n.Calls()) == 1 }, 2*time.Second, 5*time.Millisecond)

	// напоминание, добавленное во время работы цикла, тоже уходит в пределах интервала
	store.Add(Reminder{Channel: "C2", Message: "late add", ScheduledAt: time.Now()})
	require.Eventually(t, func() bool { return len(n.Calls()) == 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	assert.Len(t, n.Calls(), 2)
}
