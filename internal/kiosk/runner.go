package kiosk

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/muurk/autoprint/internal/logging"
	"github.com/muurk/autoprint/internal/session"
)

// DefaultInterval is the tick cadence
const DefaultInterval = 50 * time.Millisecond

// Display shows frames. Show must not block.
type Display interface {
	Show(session.Frame)
}

// DisplayFunc adapts a function to a Display
type DisplayFunc func(session.Frame)

// Show calls f
func (f DisplayFunc) Show(fr session.Frame) { f(fr) }

// Ticker is the part of the session controller the runner drives
type Ticker interface {
	Tick(now time.Time, ev session.Event) session.Frame
}

// Runner ticks a controller and fans frames out to displays
type Runner struct {
	Controller Ticker
	Source     Source
	Displays   []Display
	Clock      clockwork.Clock
	Interval   time.Duration

	last  session.Frame
	shown bool
}

// Step performs one poll, tick and show at now. It reports whether the
// frame changed.
func (r *Runner) Step(now time.Time) bool {
	ev := session.NoEvent
	if r.Source != nil {
		if e, ok := r.Source.Poll(); ok {
			ev = e
		}
	}

	frame := r.Controller.Tick(now, ev)
	if r.shown && frame == r.last {
		return false
	}

	r.last = frame
	r.shown = true
	for _, d := range r.Displays {
		d.Show(frame)
	}
	return true
}

// Run ticks until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	clock := r.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	logging.Info("Kiosk loop started", zap.Duration("interval", interval))

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	r.Step(clock.Now())
	for {
		select {
		case <-ctx.Done():
			logging.Info("Kiosk loop stopped")
			return ctx.Err()
		case now := <-ticker.Chan():
			r.Step(now)
		}
	}
}

// LogDisplay writes every frame to the log at info level
type LogDisplay struct{}

// Show logs fr
func (LogDisplay) Show(fr session.Frame) {
	logging.Info("Display",
		zap.String("title", fr.Title),
		zap.String("body", fr.Body),
		zap.String("footer", fr.Footer),
	)
}
