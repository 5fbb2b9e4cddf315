// Package netmon tracks backend reachability. Components consult it before
// navigation decisions; it never mutates session or payment state.
package netmon

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// ProbeFunc checks reachability once. A nil return means online.
type ProbeFunc func(ctx context.Context) error

// Monitor polls a reachability probe and notifies subscribers of
// online/offline transitions.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	online bool
	subs   []chan bool
	kick   chan struct{}
}

// New creates a Monitor. The monitor starts optimistic (online) so a
// freshly launched client does not flash an offline notice before the
// first probe completes.
func New(probe ProbeFunc, interval time.Duration, log zerolog.Logger) *Monitor {
	return &Monitor{
		probe:    probe,
		interval: interval,
		log:      log,
		online:   true,
		kick:     make(chan struct{}, 1),
	}
}

// Online returns the last observed reachability.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe returns a channel receiving each online/offline transition.
// The channel is buffered; slow consumers miss intermediate flips, not the
// latest state.
func (m *Monitor) Subscribe() <-chan bool {
	ch := make(chan bool, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Retry probes immediately instead of waiting for the next tick. It is the
// manual retry affordance behind the offline notice.
func (m *Monitor) Retry(ctx context.Context) bool {
	online := m.probeOnce(ctx)
	m.setOnline(online)
	return online
}

// Run polls until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.setOnline(m.probeOnce(ctx))
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.kick:
		case <-ticker.C:
		}
		m.setOnline(m.probeOnce(ctx))
	}
}

// Kick requests an out-of-band probe from the Run loop.
func (m *Monitor) Kick() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// probeOnce retries transient failures with exponential backoff before
// declaring the backend unreachable.
func (m *Monitor) probeOnce(ctx context.Context) bool {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := m.probe(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	return err == nil
}

func (m *Monitor) setOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	subs := m.subs
	m.mu.Unlock()

	if !changed {
		return
	}
	if online {
		m.log.Info().Msg("backend reachable again")
	} else {
		m.log.Warn().Msg("backend unreachable")
	}
	for _, ch := range subs {
		select {
		case ch <- online:
		default:
			// Replace a stale unread value with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- online:
			default:
			}
		}
	}
}
