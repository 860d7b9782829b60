package session

import (
	"context"
	"time"

	"github.com/muurk/autoprint/internal/indicator"
	"github.com/muurk/autoprint/internal/printclient"
	"github.com/muurk/autoprint/internal/store"
)

// Session is the controller's view of the current user interaction
type Session struct {
	State          State
	Identifier     string
	StatusMessage  string
	StateEnteredAt time.Time
	LastInputAt    time.Time
	Connected      bool
}

// Frame is one screen: a title, a body and a footer line
type Frame struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Footer string `json:"footer"`
}

// Link associates the kiosk with a network and reports whether it is up
type Link interface {
	Associate(creds store.Credentials)
	Associated() bool
}

// Provisioner runs setup mode
type Provisioner interface {
	Start() error
	Poll() (store.Credentials, bool)
	Stop()
}

// Submitter sends print requests. Submit may block; the controller calls
// it from its own goroutine.
type Submitter interface {
	Submit(ctx context.Context, req printclient.Request) printclient.Outcome
}

// Timings holds the controller's timeouts
type Timings struct {
	ConnectTimeout time.Duration
	InputTimeout   time.Duration
	ResultHold     time.Duration
	TimeoutHold    time.Duration
	MaxIdentifier  int
}

// DefaultTimings returns the stock kiosk timings
func DefaultTimings() Timings {
	return Timings{
		ConnectTimeout: 30 * time.Second,
		InputTimeout:   30 * time.Second,
		ResultHold:     3 * time.Second,
		TimeoutHold:    5 * time.Second,
		MaxIdentifier:  8,
	}
}

func (t Timings) withDefaults() Timings {
	d := DefaultTimings()
	if t.ConnectTimeout <= 0 {
		t.ConnectTimeout = d.ConnectTimeout
	}
	if t.InputTimeout <= 0 {
		t.InputTimeout = d.InputTimeout
	}
	if t.ResultHold <= 0 {
		t.ResultHold = d.ResultHold
	}
	if t.TimeoutHold <= 0 {
		t.TimeoutHold = d.TimeoutHold
	}
	if t.MaxIdentifier <= 0 {
		t.MaxIdentifier = d.MaxIdentifier
	}
	return t
}

// Options wires a Controller to its collaborators
type Options struct {
	Link        Link
	Provisioner Provisioner
	Submitter   Submitter
	Indicator   indicator.Sink

	// Credentials are the stored network credentials read at boot
	Credentials store.Credentials

	// DeviceID identifies the kiosk to the print agent
	DeviceID string

	Timings Timings

	// SetupNetwork and SetupPassword are shown while provisioning
	SetupNetwork  string
	SetupPassword string
}
