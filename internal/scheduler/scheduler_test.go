package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRunner struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) Run(ctx context.Context) {
	r.calls.Add(1)
	r.started <- struct{}{}
	<-r.release
}

type countingRunner struct{ calls atomic.Int32 }

func (r *countingRunner) Run(ctx context.Context) { r.calls.Add(1) }

type panickingRunner struct{}

func (panickingRunner) Run(ctx context.Context) { panic("boom") }

func TestNew_RejectsInvalidSpec(t *testing.T) {
	_, err := New(&countingRunner{}, Config{Spec: "every hour"}, nil)
	assert.Error(t, err)

	_, err = New(&countingRunner{}, Config{Spec: "0 * * * *"}, nil)
	assert.NoError(t, err)
}

func TestRunNow_NoOverlap(t *testing.T) {
	r := newBlockingRunner()
	s, err := New(r, Config{}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.RunNow(context.Background()))
	}()

	<-r.started
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.RunNow(context.Background()), ErrAlreadyRunning)
	assert.False(t, s.TryTrigger())

	close(r.release)
	wg.Wait()

	assert.False(t, s.IsRunning())
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestTryTrigger_RunsInBackground(t *testing.T) {
	r := newBlockingRunner()
	s, err := New(r, Config{}, nil)
	require.NoError(t, err)

	require.True(t, s.TryTrigger())
	<-r.started
	assert.True(t, s.IsRunning())

	close(r.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	assert.False(t, s.IsRunning())
}

func TestStartStop(t *testing.T) {
	r := &countingRunner{}
	s, err := New(r, Config{Spec: "@every 1h", RunOnStart: true}, nil)
	require.NoError(t, err)

	assert.False(t, s.IsActive())
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsActive())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	assert.Equal(t, int32(1), r.calls.Load(), "run on start fires exactly once")

	s.Stop()
	s.Stop()
	assert.False(t, s.IsActive())
}

func TestTick_SkipsWhileRunning(t *testing.T) {
	r := newBlockingRunner()
	s, err := New(r, Config{}, nil)
	require.NoError(t, err)

	go s.tick()
	<-r.started

	s.tick() // retorna na hora, sem chamar o runner
	assert.Equal(t, int32(1), r.calls.Load())

	close(r.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestPanicReleasesGuard(t *testing.T) {
	s, err := New(panickingRunner{}, Config{}, nil)
	require.NoError(t, err)

	assert.NoError(t, s.RunNow(context.Background()))
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.RunNow(context.Background()))
}

func TestWait_RefusesRunsAfterDraining(t *testing.T) {
	r := newBlockingRunner()
	s, err := New(r, Config{}, nil)
	require.NoError(t, err)

	require.True(t, s.TryTrigger())
	<-r.started

	waited := make(chan error, 1)
	go func() { waited <- s.Wait(context.Background()) }()

	require.Eventually(t, func() bool {
		return errors.Is(s.acquire(), ErrShuttingDown)
	}, time.Second, 5*time.Millisecond)

	assert.False(t, s.TryTrigger())
	assert.ErrorIs(t, s.RunNow(context.Background()), ErrShuttingDown)
	s.tick()

	close(r.release)
	require.NoError(t, <-waited)
	assert.Equal(t, int32(1), r.calls.Load())
	assert.False(t, s.IsRunning())
}
