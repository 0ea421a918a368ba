package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	pending atomic.Int64
	retried atomic.Int64
	err     error
}

func (f *fakeSweeper) ProcessPending(context.Context) (int, error) {
	f.pending.Add(1)
	return 0, f.err
}

func (f *fakeSweeper) RetryFailed(context.Context) (int64, error) {
	f.retried.Add(1)
	return 0, f.err
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()
	assert.Equal(t, 10*time.Second, config.PollInterval)
	assert.Equal(t, time.Minute, config.RetryInterval)
}

func TestNewSyncProcessorFillsDefaults(t *testing.T) {
	p := NewSyncProcessor(&fakeSweeper{}, SyncProcessorConfig{})
	assert.Equal(t, DefaultSyncProcessorConfig(), p.config)
	assert.False(t, p.IsRunning())
}

func TestSyncProcessor_StartTwice(t *testing.T) {
	p := NewSyncProcessor(&fakeSweeper{}, SyncProcessorConfig{PollInterval: time.Hour, RetryInterval: time.Hour})
	ctx := context.Background()

	require.NoError(t, p.Start(ctx))
	defer p.Stop(ctx)

	assert.Error(t, p.Start(ctx))
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	p := NewSyncProcessor(&fakeSweeper{}, DefaultSyncProcessorConfig())
	assert.NoError(t, p.Stop(context.Background()))
}

func TestSyncProcessor_SweepsOnStartAndTick(t *testing.T) {
	sw := &fakeSweeper{}
	p := NewSyncProcessor(sw, SyncProcessorConfig{
		PollInterval:  10 * time.Millisecond,
		RetryInterval: 15 * time.Millisecond,
	})
	ctx := context.Background()

	require.NoError(t, p.Start(ctx))
	assert.True(t, p.IsRunning())

	assert.Eventually(t, func() bool {
		return sw.pending.Load() >= 3 && sw.retried.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Stop(ctx))
	assert.False(t, p.IsRunning())

	// The loop has exited, so no further sweeps happen.
	after := sw.pending.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, sw.pending.Load())
}

func TestSyncProcessor_ErrorsDoNotStopLoop(t *testing.T) {
	sw := &fakeSweeper{err: errors.New("sheets down")}
	p := NewSyncProcessor(sw, SyncProcessorConfig{
		PollInterval:  5 * time.Millisecond,
		RetryInterval: time.Hour,
	})
	ctx := context.Background()

	require.NoError(t, p.Start(ctx))
	assert.Eventually(t, func() bool { return sw.pending.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, p.Stop(ctx))
}

func TestSyncProcessor_ContextCancelEndsLoop(t *testing.T) {
	sw := &fakeSweeper{}
	p := NewSyncProcessor(sw, SyncProcessorConfig{PollInterval: time.Hour, RetryInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, p.Start(ctx))
	cancel()

	select {
	case <-p.doneCh:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after context cancel")
	}
}
