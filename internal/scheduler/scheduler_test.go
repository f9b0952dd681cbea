package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"travel_leads_backend/internal/events"
	"travel_leads_backend/internal/leads/leadstest"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/notification/outbox"
	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.NewWithWriter("test", io.Discard)
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString()}, nil
}

type fakeClaimer struct {
	pending  []outbox.Record
	repended map[uuid.UUID]string
}

func (f *fakeClaimer) ClaimPending(_ context.Context, limit int) ([]outbox.Record, error) {
	n := min(limit, len(f.pending))
	out := f.pending[:n]
	f.pending = f.pending[n:]
	return out, nil
}

func (f *fakeClaimer) MarkPending(_ context.Context, id uuid.UUID, lastError *string) error {
	if f.repended == nil {
		f.repended = map[uuid.UUID]string{}
	}
	f.repended[id] = *lastError
	return nil
}

type fakeSweeper struct {
	calls []time.Time
	err   error
}

func (f *fakeSweeper) Sweep(_ context.Context, now time.Time) (repository.OverdueResult, error) {
	f.calls = append(f.calls, now)
	return repository.OverdueResult{Flagged: 1}, f.err
}

func TestDispatcherEnqueuesClaimedRecords(t *testing.T) {
	leadID := uuid.New()
	claimer := &fakeClaimer{pending: []outbox.Record{
		{ID: uuid.New(), LeadID: leadID, RunAt: time.Now()},
		{ID: uuid.New(), LeadID: leadID, RunAt: time.Now()},
	}}
	enq := &fakeEnqueuer{}
	d := newNotificationOutboxDispatcher(enq, "default", claimer, testLogger())

	assert.Equal(t, 2, d.dispatchOnce(context.Background()))
	require.Len(t, enq.tasks, 2)
	assert.Equal(t, TaskNotificationOutboxDue, enq.tasks[0].Type())

	payload, err := ParseNotificationOutboxDuePayload(enq.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, leadID.String(), payload.LeadID)
	assert.Equal(t, 0, d.dispatchOnce(context.Background()))
}

func TestDispatcherReturnsRecordsToPendingOnEnqueueError(t *testing.T) {
	rec := outbox.Record{ID: uuid.New(), LeadID: uuid.New(), RunAt: time.Now()}
	claimer := &fakeClaimer{pending: []outbox.Record{rec}}
	d := newNotificationOutboxDispatcher(&fakeEnqueuer{err: errors.New("redis down")}, "default", claimer, testLogger())

	assert.Equal(t, 0, d.dispatchOnce(context.Background()))
	assert.Equal(t, "redis down", claimer.repended[rec.ID])
}

func TestWorkerPublishesOutboxDue(t *testing.T) {
	bus := leadstest.NewRecordingBus()
	w := newWorker(bus, nil, testLogger())
	outboxID, leadID := uuid.New(), uuid.New()

	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: outboxID.String(), LeadID: leadID.String()})
	require.NoError(t, err)
	require.NoError(t, w.mux.ProcessTask(context.Background(), task))

	published := bus.Named(events.NotificationOutboxDue{}.EventName())
	require.Len(t, published, 1)
	evt := published[0].(events.NotificationOutboxDue)
	assert.Equal(t, outboxID, evt.OutboxID)
	assert.Equal(t, leadID, evt.LeadID)
}

func TestWorkerSkipsRetryOnBadOutboxPayload(t *testing.T) {
	w := newWorker(leadstest.NewRecordingBus(), nil, testLogger())

	err := w.mux.ProcessTask(context.Background(), asynq.NewTask(TaskNotificationOutboxDue, []byte(`{"outboxId":"nope"}`)))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWorkerRunsOverdueSweep(t *testing.T) {
	sweeper := &fakeSweeper{}
	w := newWorker(nil, sweeper, testLogger())
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	task, err := NewOverdueSweepTask(OverdueSweepPayload{RequestedAt: now})
	require.NoError(t, err)
	require.NoError(t, w.mux.ProcessTask(context.Background(), task))
	assert.Equal(t, []time.Time{now}, sweeper.calls)

	sweeper.err = errors.New("db down")
	assert.Error(t, w.mux.ProcessTask(context.Background(), task))
}

func TestClientEnqueuesOverdueSweepOnQueue(t *testing.T) {
	enq := &fakeEnqueuer{}
	c := &Client{client: enq, queue: "leads"}
	at := time.Date(2024, 3, 9, 12, 0, 0, 0, time.FixedZone("IST", 19800))

	require.NoError(t, c.EnqueueOverdueSweep(context.Background(), at))
	require.Len(t, enq.tasks, 1)
	payload, err := ParseOverdueSweepPayload(enq.tasks[0])
	require.NoError(t, err)
	assert.True(t, payload.RequestedAt.Equal(at))
	assert.Equal(t, time.UTC, payload.RequestedAt.Location())
}

type recordingSweepEnqueuer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *recordingSweepEnqueuer) EnqueueOverdueSweep(context.Context, time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls++
	return nil
}

func newTestCron(t *testing.T, mr *miniredis.Miniredis, enq SweepEnqueuer) *OverdueCron {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	oc, err := NewOverdueCron(&config.Config{OverdueSweepSchedule: "*/15 * * * *", OverdueSweepLockTTL: 10 * time.Minute}, rdb, enq, testLogger())
	require.NoError(t, err)
	return oc
}

func TestOverdueCronLockAllowsOneReplicaPerWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	enq := &recordingSweepEnqueuer{}
	a := newTestCron(t, mr, enq)
	b := newTestCron(t, mr, enq)
	ctx := context.Background()

	ok, err := a.Trigger(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Trigger(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, enq.calls)

	mr.FastForward(10 * time.Minute)
	ok, err = b.Trigger(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, enq.calls)
}

func TestOverdueCronReleasesLockWhenEnqueueFails(t *testing.T) {
	mr := miniredis.RunT(t)
	enq := &recordingSweepEnqueuer{err: errors.New("queue down")}
	oc := newTestCron(t, mr, enq)

	_, err := oc.Trigger(context.Background())
	require.Error(t, err)
	assert.False(t, mr.Exists(overdueSweepLockKey))

	enq.err = nil
	ok, err := oc.Trigger(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewOverdueCronRejectsBadSchedule(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	_, err := NewOverdueCron(&config.Config{OverdueSweepSchedule: "every now and then", OverdueSweepLockTTL: time.Minute}, rdb, &recordingSweepEnqueuer{}, testLogger())
	assert.ErrorContains(t, err, "overdue sweep schedule")
}

func TestRedisClientOptHonoursTLSInsecure(t *testing.T) {
	opt, err := redisClientOpt("rediss://:pw@cache.example:6380/2", true)
	require.NoError(t, err)
	assert.Equal(t, "cache.example:6380", opt.Addr)
	assert.Equal(t, 2, opt.DB)
	require.NotNil(t, opt.TLSConfig)
	assert.True(t, opt.TLSConfig.InsecureSkipVerify)

	plain, err := redisClientOpt("redis://localhost:6379/0", false)
	require.NoError(t, err)
	assert.Nil(t, plain.TLSConfig)
}
