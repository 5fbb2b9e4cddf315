package netmon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyProbe fails while failing is set.
type flakyProbe struct {
	failing int32
	calls   int32
}

func (p *flakyProbe) probe(ctx context.Context) error {
	atomic.AddInt32(&p.calls, 1)
	if atomic.LoadInt32(&p.failing) != 0 {
		return errors.New("connection refused")
	}
	return nil
}

func TestMonitorStartsOptimistic(t *testing.T) {
	m := New(func(ctx context.Context) error { return nil }, time.Minute, zerolog.Nop())
	assert.True(t, m.Online())
}

func TestRetryFlipsOfflineAndBack(t *testing.T) {
	p := &flakyProbe{}
	atomic.StoreInt32(&p.failing, 1)
	m := New(p.probe, time.Minute, zerolog.Nop())

	assert.False(t, m.Retry(context.Background()))
	assert.False(t, m.Online())

	atomic.StoreInt32(&p.failing, 0)
	assert.True(t, m.Retry(context.Background()))
	assert.True(t, m.Online())
}

func TestProbeRetriesTransientFailures(t *testing.T) {
	p := &flakyProbe{}
	atomic.StoreInt32(&p.failing, 1)
	m := New(p.probe, time.Minute, zerolog.Nop())

	m.Retry(context.Background())
	// 1 initial attempt + 2 backoff retries before giving up.
	assert.Equal(t, int32(3), atomic.LoadInt32(&p.calls))
}

func TestSubscribeSeesTransitions(t *testing.T) {
	p := &flakyProbe{}
	m := New(p.probe, time.Minute, zerolog.Nop())
	ch := m.Subscribe()

	atomic.StoreInt32(&p.failing, 1)
	m.Retry(context.Background())

	select {
	case online := <-ch:
		assert.False(t, online)
	case <-time.After(time.Second):
		t.Fatal("no transition delivered")
	}

	atomic.StoreInt32(&p.failing, 0)
	m.Retry(context.Background())

	select {
	case online := <-ch:
		assert.True(t, online)
	case <-time.After(time.Second):
		t.Fatal("no recovery delivered")
	}
}

func TestSlowSubscriberGetsLatestState(t *testing.T) {
	p := &flakyProbe{}
	m := New(p.probe, time.Minute, zerolog.Nop())
	ch := m.Subscribe()

	// Two transitions without a read in between: the channel must hold the
	// most recent state, not the first.
	atomic.StoreInt32(&p.failing, 1)
	m.Retry(context.Background())
	atomic.StoreInt32(&p.failing, 0)
	m.Retry(context.Background())

	select {
	case online := <-ch:
		assert.True(t, online, "latest state wins")
	case <-time.After(time.Second):
		t.Fatal("no state delivered")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p := &flakyProbe{}
	m := New(p.probe, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&p.calls) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}

func TestKickTriggersImmediateProbe(t *testing.T) {
	p := &flakyProbe{}
	m := New(p.probe, time.Hour, zerolog.Nop()) // ticker effectively never fires

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&p.calls) >= 1
	}, time.Second, 5*time.Millisecond, "startup probe")

	before := atomic.LoadInt32(&p.calls)
	m.Kick()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&p.calls) > before
	}, time.Second, 5*time.Millisecond, "kicked probe")
}
