// Package wallet reads the wallet balance and transaction history, and
// refreshes the balance on a schedule tied to the owning view's lifetime.
package wallet

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Pery99/billpay/backend"
)

// TokenFunc supplies the current bearer token, reporting false when the
// session has lapsed.
type TokenFunc func() (string, bool)

// Poller refreshes the wallet balance on an interval. It is started with a
// context owned by the view that displays the balance and stops when that
// context is cancelled, so no timer outlives its view.
type Poller struct {
	api      *backend.Client
	token    TokenFunc
	interval time.Duration
	onUpdate func(backend.Balance)
	onError  func(error)
	log      zerolog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithOnError sets a callback for failed refreshes. Errors never stop the
// poller; connectivity blips resolve themselves on a later tick.
func WithOnError(fn func(error)) PollerOption {
	return func(p *Poller) {
		p.onError = fn
	}
}

// WithLogger sets the poller logger.
func WithLogger(log zerolog.Logger) PollerOption {
	return func(p *Poller) {
		p.log = log
	}
}

// NewPoller creates a balance poller. onUpdate receives every successful
// refresh.
func NewPoller(api *backend.Client, token TokenFunc, interval time.Duration, onUpdate func(backend.Balance), opts ...PollerOption) *Poller {
	p := &Poller{
		api:      api,
		token:    token,
		interval: interval,
		onUpdate: onUpdate,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run refreshes immediately, then on every tick, until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	tok, ok := p.token()
	if !ok {
		p.log.Debug().Msg("skipping balance refresh: no session")
		return
	}
	bal, err := p.api.Balance(ctx, tok)
	if err != nil {
		p.log.Debug().Err(err).Msg("balance refresh failed")
		if p.onError != nil {
			p.onError(err)
		}
		return
	}
	p.onUpdate(*bal)
}
