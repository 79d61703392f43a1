package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradegate-bot/tradegate/internal/models"
	"github.com/tradegate-bot/tradegate/pkg/config"
)

func newSweeperFixture(threads *fakeThreadStore, closer *fakeCloser) *Sweeper {
	return NewSweeper(staticConfig{bot: testBotConfig()}, threads, closer, nil, nil)
}

type mutableConfig struct {
	mu  sync.Mutex
	bot config.BotConfig
}

func (m *mutableConfig) Bot() config.BotConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bot
}

func (m *mutableConfig) setSweepInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bot.SweepInterval = d
}

func armThread(t *testing.T, threads *fakeThreadStore, id string, fireAt time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, threads.Upsert(ctx, &models.Thread{
		ID: id, OwnerID: "owner", Status: models.ThreadStatusTosAccepted,
	}))
	armed, err := threads.ScheduleAutoClose(ctx, id, fireAt)
	require.NoError(t, err)
	require.True(t, armed)
}

func TestSweepClosesOnlyDueThreads(t *testing.T) {
	threads := newFakeThreadStore()
	closer := &fakeCloser{}
	now := time.Now().UTC()

	armThread(t, threads, "due-1", now.Add(-time.Hour))
	armThread(t, threads, "due-2", now)
	armThread(t, threads, "future", now.Add(time.Hour))

	closed, err := newSweeperFixture(threads, closer).Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, closed)

	closedIDs := make([]string, 0, len(closer.calls))
	for _, c := range closer.calls {
		closedIDs = append(closedIDs, c.ThreadID)
		assert.Equal(t, models.CloseReasonPolicy, c.Reason)
	}
	assert.ElementsMatch(t, []string{"due-1", "due-2"}, closedIDs)

	// The future schedule is untouched.
	_, stillArmed := threads.schedules["future"]
	assert.True(t, stillArmed)
}

func TestSweepIsIdempotent(t *testing.T) {
	threads := newFakeThreadStore()
	closer := &fakeCloser{}
	now := time.Now().UTC()

	armThread(t, threads, "due-1", now.Add(-time.Minute))

	sweeper := newSweeperFixture(threads, closer)
	closed, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	closed, err = sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
	assert.Len(t, closer.calls, 1)
}

func TestSweepSkipsCancelledSchedules(t *testing.T) {
	threads := newFakeThreadStore()
	closer := &fakeCloser{}
	now := time.Now().UTC()

	armThread(t, threads, "due-1", now.Add(-time.Minute))
	removed, err := threads.CancelAutoClose(context.Background(), "due-1")
	require.NoError(t, err)
	require.True(t, removed)

	closed, err := newSweeperFixture(threads, closer).Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
	assert.Empty(t, closer.calls)
}

func TestSweepIsolatesItemFailures(t *testing.T) {
	threads := newFakeThreadStore()
	closer := &fakeCloser{failOn: map[string]error{"bad": errors.New("archive failed")}}
	now := time.Now().UTC()

	armThread(t, threads, "bad", now.Add(-time.Hour))
	armThread(t, threads, "good", now.Add(-time.Hour))

	closed, err := newSweeperFixture(threads, closer).Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	require.Len(t, closer.calls, 1)
	assert.Equal(t, "good", closer.calls[0].ThreadID)

	// The failed item is re-armed and stays due for the next pass.
	_, rearmed := threads.schedules["bad"]
	assert.True(t, rearmed)
}

func TestSweeperRunAppliesIntervalEdits(t *testing.T) {
	threads := newFakeThreadStore()
	closer := &fakeCloser{}
	cfg := &mutableConfig{bot: testBotConfig()}
	cfg.setSweepInterval(2 * time.Millisecond)

	armThread(t, threads, "due-1", time.Now().UTC().Add(-time.Hour))

	sweeper := NewSweeper(cfg, threads, closer, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	assert.Eventually(t, func() bool { return closer.count() == 1 }, time.Second, time.Millisecond)

	// An interval edit takes effect without restarting the loop.
	cfg.setSweepInterval(3 * time.Millisecond)
	armThread(t, threads, "due-2", time.Now().UTC().Add(-time.Hour))
	assert.Eventually(t, func() bool { return closer.count() == 2 }, time.Second, time.Millisecond)
}
