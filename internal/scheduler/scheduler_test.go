package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/S1l3ntium/yandex-price-bot/internal/monitor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	runs atomic.Int64
	err  error
}

func (r *countingRunner) RunCheckCycle(_ context.Context) error {
	r.runs.Add(1)
	return r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStart_RunsCycleImmediately(t *testing.T) {
	runner := &countingRunner{}
	s := New(discardLogger(), runner, 30)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runner.runs.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStart_BusyCycleDoesNotFailScheduler(t *testing.T) {
	runner := &countingRunner{err: monitor.ErrCycleRunning}
	s := New(discardLogger(), runner, 30)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runner.runs.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestReconfigure(t *testing.T) {
	runner := &countingRunner{}
	s := New(discardLogger(), runner, 30)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.NoError(t, s.Reconfigure(context.Background(), 15))
	assert.Equal(t, 15, s.minutes)

	// Повторная установка того же интервала ничего не меняет.
	prevEntry := s.entryID
	require.NoError(t, s.Reconfigure(context.Background(), 15))
	assert.Equal(t, prevEntry, s.entryID)

	// После переключений активной остаётся ровно одна запись.
	require.NoError(t, s.Reconfigure(context.Background(), 5))
	assert.Len(t, s.cron.Entries(), 1)
}

func TestStop(t *testing.T) {
	s := New(discardLogger(), &countingRunner{}, 30)

	require.NoError(t, s.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
