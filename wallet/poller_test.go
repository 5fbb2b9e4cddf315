package wallet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pery99/billpay/backend"
)

func TestPollerRefreshesUntilCancelled(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions/balance", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"balance":250.75}`))
	}))
	defer srv.Close()

	var updates int32
	var last atomic.Value
	p := NewPoller(
		backend.NewClient(srv.URL),
		func() (string, bool) { return "tok", true },
		20*time.Millisecond,
		func(b backend.Balance) {
			atomic.AddInt32(&updates, 1)
			last.Store(b.Balance)
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&updates) >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.InDelta(t, 250.75, last.Load().(float64), 0.001)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancellation")
	}

	// No further refreshes after teardown.
	settled := atomic.LoadInt32(&hits)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, settled, atomic.LoadInt32(&hits), "timer leaked past cancellation")
}

func TestPollerSkipsWithoutSession(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"balance":0}`))
	}))
	defer srv.Close()

	p := NewPoller(
		backend.NewClient(srv.URL),
		func() (string, bool) { return "", false },
		10*time.Millisecond,
		func(backend.Balance) { t.Error("no update expected without a session") },
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestPollerSurvivesErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n == 1 {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"no wallet"}`))
			return
		}
		w.Write([]byte(`{"balance":10}`))
	}))
	defer srv.Close()

	var updates, errs int32
	p := NewPoller(
		backend.NewClient(srv.URL),
		func() (string, bool) { return "tok", true },
		20*time.Millisecond,
		func(backend.Balance) { atomic.AddInt32(&updates, 1) },
		WithOnError(func(error) { atomic.AddInt32(&errs, 1) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&updates) >= 1 && atomic.LoadInt32(&errs) >= 1
	}, 2*time.Second, 5*time.Millisecond, "poller recovers after an error tick")
}
