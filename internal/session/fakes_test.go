package session

import (
	"context"
	"sync"
	"time"

	"github.com/muurk/autoprint/internal/indicator"
	"github.com/muurk/autoprint/internal/printclient"
	"github.com/muurk/autoprint/internal/store"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time { return t0.Add(d) }

type fakeLink struct {
	up         bool
	associates []store.Credentials
}

func (l *fakeLink) Associate(c store.Credentials) { l.associates = append(l.associates, c) }
func (l *fakeLink) Associated() bool              { return l.up }

type fakeProvisioner struct {
	startErr error
	starts   int
	stops    int
	pending  []store.Credentials
}

func (p *fakeProvisioner) Start() error {
	p.starts++
	return p.startErr
}

func (p *fakeProvisioner) Poll() (store.Credentials, bool) {
	if len(p.pending) == 0 {
		return store.Credentials{}, false
	}
	c := p.pending[0]
	p.pending = p.pending[1:]
	return c, true
}

func (p *fakeProvisioner) Stop() { p.stops++ }

type fakeSubmitter struct {
	mu       sync.Mutex
	outcome  printclient.Outcome
	requests []printclient.Request
	release  chan struct{}
}

func (s *fakeSubmitter) Submit(ctx context.Context, req printclient.Request) printclient.Outcome {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	release := s.release
	s.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return printclient.Rejected(&printclient.Error{Kind: printclient.TransportFailure, Err: ctx.Err()}, 0)
		}
	}
	return s.outcome
}

func (s *fakeSubmitter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type recorder struct {
	events []indicator.Event
}

func (r *recorder) Signal(e indicator.Event) { r.events = append(r.events, e) }

func (r *recorder) count(e indicator.Event) int {
	n := 0
	for _, got := range r.events {
		if got == e {
			n++
		}
	}
	return n
}

func (r *recorder) last() indicator.Event {
	if len(r.events) == 0 {
		return indicator.Event(-1)
	}
	return r.events[len(r.events)-1]
}

type harness struct {
	c    *Controller
	link *fakeLink
	prov *fakeProvisioner
	sub  *fakeSubmitter
	ind  *recorder
}

func newHarness(creds store.Credentials) *harness {
	h := &harness{
		link: &fakeLink{},
		prov: &fakeProvisioner{},
		sub:  &fakeSubmitter{outcome: printclient.Accepted(printclient.DefaultMessage, 1)},
		ind:  &recorder{},
	}
	c, err := NewController(Options{
		Link:          h.link,
		Provisioner:   h.prov,
		Submitter:     h.sub,
		Indicator:     h.ind,
		Credentials:   creds,
		DeviceID:      "KIOSK_001",
		SetupNetwork:  "AutoPrint-Setup",
		SetupPassword: "setup123",
	})
	if err != nil {
		panic(err)
	}
	h.c = c
	return h
}

// readyHarness boots with credentials and an up link and returns a harness
// in Ready at t0+100ms
func readyHarness() *harness {
	h := newHarness(store.Credentials{NetworkName: "CampusNet", Secret: "pw"})
	h.link.up = true
	h.c.Tick(t0, NoEvent)
	h.c.Tick(at(50*time.Millisecond), NoEvent)
	h.ind.events = nil
	return h
}

// press ticks once with a fresh key event
func (h *harness) press(now time.Time, k Key) Frame {
	return h.c.Tick(now, KeyEvent(k, now))
}

// typeKeys presses each key 100ms apart starting at start and returns the
// time of the last press
func (h *harness) typeKeys(start time.Time, keys string) time.Time {
	now := start
	for i, r := range keys {
		now = start.Add(time.Duration(i) * 100 * time.Millisecond)
		h.press(now, Key(r))
	}
	return now
}

// waitResult ticks at now until the submission result is collected
func (h *harness) waitResult(now time.Time) Session {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.c.Tick(now, NoEvent)
		if s := h.c.Session(); s.State != Submitting {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	return h.c.Session()
}
