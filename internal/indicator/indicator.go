// Package indicator carries the kiosk's symbolic feedback events.
//
// The session controller never drives a buzzer or LED directly. It emits an
// Event and each configured Sink decides how to play it: a log line, a
// terminal bell, a websocket broadcast or a border flash in the TUI.
package indicator

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/autoprint/internal/logging"
)

// Event is a symbolic feedback event
type Event int

const (
	// Tick acknowledges a single key press
	Tick Event = iota
	// Success marks a completed submission or a joined network
	Success
	// Error marks a rejected key, submission or association
	Error
)

// String returns the lower-case event name used on the wire and in logs
func (e Event) String() string {
	switch e {
	case Tick:
		return "tick"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// Sink plays indicator events. Implementations must not block.
type Sink interface {
	Signal(Event)
}

// Func adapts a plain function to a Sink
type Func func(Event)

// Signal calls f(e)
func (f Func) Signal(e Event) { f(e) }

// Nop discards every event
var Nop Sink = Func(func(Event) {})

// Multi fans an event out to several sinks in order
type Multi []Sink

// Signal forwards e to every non-nil sink
func (m Multi) Signal(e Event) {
	for _, s := range m {
		if s != nil {
			s.Signal(e)
		}
	}
}

// Step is one segment of a feedback pattern: the output is on for On and
// then off for Off.
type Step struct {
	On  time.Duration
	Off time.Duration
}

// Pattern returns the on/off timing a physical buzzer would play for e.
// Displays that animate feedback use the total length to size the effect.
func Pattern(e Event) []Step {
	switch e {
	case Tick:
		return []Step{{On: 50 * time.Millisecond}}
	case Success:
		return []Step{
			{On: 100 * time.Millisecond, Off: 50 * time.Millisecond},
			{On: 100 * time.Millisecond, Off: 50 * time.Millisecond},
			{On: 200 * time.Millisecond},
		}
	case Error:
		return []Step{
			{On: 500 * time.Millisecond, Off: 100 * time.Millisecond},
			{On: 500 * time.Millisecond},
		}
	default:
		return nil
	}
}

// Duration is the total playing time of the pattern for e
func Duration(e Event) time.Duration {
	var d time.Duration
	for _, s := range Pattern(e) {
		d += s.On + s.Off
	}
	return d
}

// LogSink records indicator events at debug level
type LogSink struct{}

// Signal logs e
func (LogSink) Signal(e Event) {
	logging.Debug("Indicator", zap.String("event", e.String()))
}

// Bell rings the terminal bell once per Success pulse and twice for Error.
// Ticks are silent.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBell returns a bell sink writing BEL characters to w
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

// Signal writes the bell sequence for e
func (b *Bell) Signal(e Event) {
	var seq string
	switch e {
	case Success:
		seq = "\a"
	case Error:
		seq = "\a\a"
	default:
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = io.WriteString(b.w, seq)
}
