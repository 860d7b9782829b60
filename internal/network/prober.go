// Package network tracks whether the kiosk can reach its print agent.
//
// Radio-level association is handled by the operating system. The Prober
// treats the agent's health endpoint as the link: it is "associated" while
// health checks succeed and drops after consecutive failures.
package network

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/muurk/autoprint/internal/logging"
	"github.com/muurk/autoprint/internal/store"
)

const (
	// DefaultInterval is the time between health checks
	DefaultInterval = 5 * time.Second

	// DefaultFailureThreshold is the number of consecutive failed checks
	// before the link is reported down
	DefaultFailureThreshold = 2
)

// CheckFunc reports whether the agent is reachable
type CheckFunc func(ctx context.Context) error

// Prober periodically runs a CheckFunc and publishes the result
type Prober struct {
	check     CheckFunc
	clock     clockwork.Clock
	interval  time.Duration
	threshold int

	associated atomic.Bool

	mu      sync.Mutex
	network string
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option customises a Prober
type Option func(*Prober)

// WithClock sets the clock driving the probe ticker
func WithClock(c clockwork.Clock) Option {
	return func(p *Prober) { p.clock = c }
}

// WithInterval sets the probe interval
func WithInterval(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithFailureThreshold sets how many consecutive failures drop the link
func WithFailureThreshold(n int) Option {
	return func(p *Prober) {
		if n > 0 {
			p.threshold = n
		}
	}
}

// NewProber creates a stopped prober
func NewProber(check CheckFunc, opts ...Option) *Prober {
	p := &Prober{
		check:     check,
		clock:     clockwork.NewRealClock(),
		interval:  DefaultInterval,
		threshold: DefaultFailureThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Associate (re)starts probing for the given network. The first check runs
// immediately. Associated stays false until a check succeeds.
func (p *Prober) Associate(creds store.Credentials) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.associated.Store(false)
	p.network = creds.NetworkName

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)

	logging.Info("Associating", zap.String("network", creds.NetworkName))
}

// Associated reports the most recent link state
func (p *Prober) Associated() bool {
	return p.associated.Load()
}

// Close stops probing and waits for the probe loop to exit
func (p *Prober) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.associated.Store(false)
	return nil
}

func (p *Prober) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}

func (p *Prober) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	failures := 0
	for {
		p.probe(ctx, &failures)

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}

func (p *Prober) probe(ctx context.Context, failures *int) {
	checkCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	err := p.check(checkCtx)
	if ctx.Err() != nil {
		return
	}

	if err == nil {
		*failures = 0
		if !p.associated.Swap(true) {
			logging.Info("Link up")
		}
		return
	}

	*failures++
	logging.Debug("Link check failed", zap.Int("consecutive_failures", *failures), zap.Error(err))
	if *failures >= p.threshold && p.associated.Swap(false) {
		logging.Warn("Link down", zap.Int("consecutive_failures", *failures), zap.Error(err))
	}
}
