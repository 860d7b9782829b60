package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/autoprint/internal/indicator"
	"github.com/muurk/autoprint/internal/printclient"
	"github.com/muurk/autoprint/internal/store"
)

func TestBoot_WithoutCredentialsStartsProvisioning(t *testing.T) {
	h := newHarness(store.Credentials{})

	h.c.Tick(t0, NoEvent)

	s := h.c.Session()
	if s.State != Provisioning {
		t.Fatalf("state = %s, want provisioning", s.State)
	}
	if h.prov.starts != 1 {
		t.Errorf("provisioner started %d times, want 1", h.prov.starts)
	}
	if len(h.link.associates) != 0 {
		t.Error("link associated without credentials")
	}
	if !s.StateEnteredAt.Equal(t0) {
		t.Errorf("StateEnteredAt = %v, want %v", s.StateEnteredAt, t0)
	}
}

func TestBoot_SecretWithoutNameIsAbsent(t *testing.T) {
	h := newHarness(store.Credentials{Secret: "orphan"})
	h.c.Tick(t0, NoEvent)
	if got := h.c.Session().State; got != Provisioning {
		t.Errorf("state = %s, want provisioning", got)
	}
}

func TestBoot_WithCredentialsConnects(t *testing.T) {
	creds := store.Credentials{NetworkName: "CampusNet", Secret: "pw"}
	h := newHarness(creds)

	h.c.Tick(t0, NoEvent)
	if s := h.c.Session(); s.State != Connecting || s.StatusMessage != "Connecting to WiFi..." {
		t.Fatalf("session = %+v, want connecting", s)
	}
	if len(h.link.associates) != 1 || h.link.associates[0] != creds {
		t.Fatalf("associates = %v, want [%v]", h.link.associates, creds)
	}

	h.c.Tick(at(time.Second), NoEvent)
	if h.c.Session().State != Connecting {
		t.Fatal("left Connecting before the link came up")
	}

	h.link.up = true
	h.c.Tick(at(2*time.Second), NoEvent)
	s := h.c.Session()
	if s.State != Ready {
		t.Fatalf("state = %s, want ready", s.State)
	}
	if h.ind.last() != indicator.Success {
		t.Errorf("indicator = %v, want success", h.ind.events)
	}
	if !s.Connected {
		t.Error("Connected = false with link up")
	}
}

func TestConnecting_TimeoutFallsBackToProvisioning(t *testing.T) {
	h := newHarness(store.Credentials{NetworkName: "CampusNet"})
	h.c.Tick(t0, NoEvent)

	h.c.Tick(at(30*time.Second-time.Millisecond), NoEvent)
	if h.c.Session().State != Connecting {
		t.Fatal("connect timeout fired early")
	}

	h.c.Tick(at(30*time.Second), NoEvent)
	s := h.c.Session()
	if s.State != Error || s.StatusMessage != "WiFi Failed" {
		t.Fatalf("session = %+v, want Error(WiFi Failed)", s)
	}
	if h.ind.last() != indicator.Error {
		t.Errorf("indicator = %v, want error", h.ind.events)
	}

	h.c.Tick(at(33*time.Second-time.Millisecond), NoEvent)
	if h.c.Session().State != Error {
		t.Fatal("error hold ended early")
	}

	h.c.Tick(at(33*time.Second), NoEvent)
	if got := h.c.Session().State; got != Provisioning {
		t.Fatalf("state after hold = %s, want provisioning", got)
	}
	if h.prov.starts != 1 {
		t.Errorf("provisioner starts = %d, want 1", h.prov.starts)
	}
}

func TestProvisioning_StartFailureRetries(t *testing.T) {
	h := newHarness(store.Credentials{})
	h.prov.startErr = errors.New("address in use")

	h.c.Tick(t0, NoEvent)
	if s := h.c.Session(); s.State != Error || s.StatusMessage != "Setup failed" {
		t.Fatalf("session = %+v, want Error(Setup failed)", s)
	}

	h.prov.startErr = nil
	h.c.Tick(at(3*time.Second), NoEvent)
	if got := h.c.Session().State; got != Provisioning {
		t.Fatalf("state = %s, want provisioning after retry", got)
	}
	if h.prov.starts != 2 {
		t.Errorf("starts = %d, want 2", h.prov.starts)
	}
}

func TestProvisioning_CompletionConnects(t *testing.T) {
	h := newHarness(store.Credentials{})
	h.c.Tick(t0, NoEvent)

	h.c.Tick(at(time.Second), NoEvent)
	if h.c.Session().State != Provisioning {
		t.Fatal("left provisioning without a submission")
	}

	creds := store.Credentials{NetworkName: "CampusNet"}
	h.prov.pending = []store.Credentials{creds}
	h.c.Tick(at(2*time.Second), NoEvent)

	if got := h.c.Session().State; got != Connecting {
		t.Fatalf("state = %s, want connecting", got)
	}
	if h.prov.stops != 1 {
		t.Errorf("provisioner stops = %d, want 1", h.prov.stops)
	}
	if len(h.link.associates) != 1 || h.link.associates[0] != creds {
		t.Errorf("associates = %v, want [%v]", h.link.associates, creds)
	}
	if h.c.Credentials() != creds {
		t.Errorf("Credentials() = %v, want %v", h.c.Credentials(), creds)
	}
}

func TestReady_WakeKeyIsApplied(t *testing.T) {
	h := readyHarness()

	h.press(at(time.Second), '7')

	s := h.c.Session()
	if s.State != Input || s.Identifier != "7" {
		t.Fatalf("session = %+v, want Input with identifier 7", s)
	}
	if len(h.ind.events) != 1 || h.ind.events[0] != indicator.Tick {
		t.Errorf("indicator events = %v, want a single tick", h.ind.events)
	}
}

func TestReady_WakeWithSubmitOrClear(t *testing.T) {
	h := readyHarness()
	h.press(at(time.Second), KeySubmit)
	if s := h.c.Session(); s.State != Input || s.Identifier != "" {
		t.Fatalf("session = %+v, want empty Input", s)
	}
	if h.ind.count(indicator.Tick) != 1 || h.ind.count(indicator.Error) != 1 {
		t.Errorf("events = %v, want tick then error", h.ind.events)
	}
	if h.sub.calls() != 0 {
		t.Error("empty identifier was submitted")
	}

	h = readyHarness()
	h.press(at(time.Second), KeyClear)
	if s := h.c.Session(); s.State != Input || s.Identifier != "" {
		t.Fatalf("session = %+v, want empty Input", s)
	}
}

func TestInput_IdentifierCap(t *testing.T) {
	h := readyHarness()

	last := h.typeKeys(at(time.Second), "ABCD1234")
	if got := h.c.Session().Identifier; got != "ABCD1234" {
		t.Fatalf("identifier = %q", got)
	}
	errorsBefore := h.ind.count(indicator.Error)

	for i, k := range "XYZ9" {
		h.press(last.Add(time.Duration(i+1)*100*time.Millisecond), Key(k))
		if got := h.c.Session().Identifier; len(got) > 8 || got != "ABCD1234" {
			t.Fatalf("identifier after extra key %d = %q", i+1, got)
		}
	}
	if got := h.ind.count(indicator.Error) - errorsBefore; got != 4 {
		t.Errorf("error indicators for extra keys = %d, want 4", got)
	}
	if h.ind.count(indicator.Tick) != 8 {
		t.Errorf("ticks = %d, want 8", h.ind.count(indicator.Tick))
	}
}

func TestInput_ClearAndEmptySubmit(t *testing.T) {
	h := readyHarness()
	last := h.typeKeys(at(time.Second), "AB1")

	h.press(last.Add(100*time.Millisecond), KeyClear)
	if got := h.c.Session().Identifier; got != "" {
		t.Fatalf("identifier after clear = %q", got)
	}
	eventsBefore := len(h.ind.events)

	h.press(last.Add(200*time.Millisecond), KeySubmit)
	s := h.c.Session()
	if s.State != Input {
		t.Fatalf("state = %s, want input", s.State)
	}
	if len(h.ind.events) != eventsBefore+1 || h.ind.last() != indicator.Error {
		t.Errorf("events = %v, want one extra error", h.ind.events)
	}
	if h.sub.calls() != 0 {
		t.Error("empty identifier was submitted")
	}
}

func TestInput_TimeoutPrecedence(t *testing.T) {
	h := readyHarness()
	h.press(at(time.Second), 'A')
	h.c.Tick(at(time.Second+50*time.Millisecond), NoEvent)

	// A key buffered before the previous tick does not keep an expired
	// session alive
	stale := KeyEvent('B', at(time.Second+10*time.Millisecond))
	h.c.Tick(at(31*time.Second), stale)

	s := h.c.Session()
	if s.State != TimedOut || s.StatusMessage != "Session timeout" {
		t.Fatalf("session = %+v, want TimedOut", s)
	}
	if s.Identifier != "A" {
		t.Errorf("stale key was applied: identifier %q", s.Identifier)
	}
}

func TestInput_FreshKeyBeatsTimeout(t *testing.T) {
	h := readyHarness()
	h.press(at(time.Second), 'A')

	h.press(at(31*time.Second), 'B')
	s := h.c.Session()
	if s.State != Input || s.Identifier != "AB" {
		t.Fatalf("session = %+v, want Input AB", s)
	}
	if !s.LastInputAt.Equal(at(31 * time.Second)) {
		t.Errorf("LastInputAt = %v, want reset to the key time", s.LastInputAt)
	}

	h.c.Tick(at(61*time.Second-time.Millisecond), NoEvent)
	if h.c.Session().State != Input {
		t.Fatal("timed out before 30s since the last key")
	}
	h.c.Tick(at(61*time.Second), NoEvent)
	if h.c.Session().State != TimedOut {
		t.Fatal("did not time out 30s after the last key")
	}
}

func TestInput_QueuedKeyWithinTimeoutIsApplied(t *testing.T) {
	h := readyHarness()
	h.press(at(time.Second), 'A')
	h.c.Tick(at(time.Second+50*time.Millisecond), KeyEvent('B', at(time.Second+20*time.Millisecond)))
	h.c.Tick(at(time.Second+100*time.Millisecond), KeyEvent('C', at(time.Second+30*time.Millisecond)))

	if got := h.c.Session().Identifier; got != "ABC" {
		t.Errorf("identifier = %q, want ABC", got)
	}
}

func TestTimedOut_ReturnsToReady(t *testing.T) {
	h := readyHarness()
	h.press(at(time.Second), 'A')
	h.c.Tick(at(31*time.Second), NoEvent)
	if h.c.Session().State != TimedOut {
		t.Fatal("expected TimedOut")
	}

	h.c.Tick(at(36*time.Second-time.Millisecond), NoEvent)
	if h.c.Session().State != TimedOut {
		t.Fatal("timeout hold ended early")
	}
	h.c.Tick(at(36*time.Second), NoEvent)
	s := h.c.Session()
	if s.State != Ready || s.Identifier != "" || s.StatusMessage != "" {
		t.Errorf("session = %+v, want clean Ready", s)
	}
}

func TestLinkLossBeatsInput(t *testing.T) {
	creds := store.Credentials{NetworkName: "CampusNet", Secret: "pw"}
	for _, inInput := range []bool{false, true} {
		h := readyHarness()
		if inInput {
			h.press(at(time.Second), 'A')
		}

		h.link.up = false
		h.press(at(2*time.Second), 'B')

		s := h.c.Session()
		if s.State != Connecting || s.StatusMessage != "Reconnecting..." {
			t.Fatalf("inInput=%v: session = %+v, want Connecting(Reconnecting...)", inInput, s)
		}
		if got := h.link.associates; len(got) != 2 || got[1] != creds {
			t.Errorf("inInput=%v: associates = %v, want a second Associate", inInput, got)
		}
		if s.Connected {
			t.Error("Connected = true after link loss")
		}
	}
}

func TestReconnectClearsIdentifier(t *testing.T) {
	h := readyHarness()
	last := h.typeKeys(at(time.Second), "AB12")
	if s := h.c.Session(); s.Identifier != "AB12" {
		t.Fatalf("identifier = %q, want AB12", s.Identifier)
	}

	h.link.up = false
	h.c.Tick(last.Add(100*time.Millisecond), NoEvent)
	if s := h.c.Session(); s.State != Connecting {
		t.Fatalf("state = %v, want connecting", s.State)
	}

	h.link.up = true
	h.c.Tick(last.Add(200*time.Millisecond), NoEvent)
	s := h.c.Session()
	if s.State != Ready || s.Identifier != "" || s.StatusMessage != "" {
		t.Fatalf("after reconnect: session = %+v, want Ready with empty identifier", s)
	}

	h.press(last.Add(300*time.Millisecond), '9')
	if s := h.c.Session(); s.State != Input || s.Identifier != "9" {
		t.Errorf("after wake key: state = %v, identifier = %q, want input \"9\"", s.State, s.Identifier)
	}
}

func TestNewController_RequiresCollaborators(t *testing.T) {
	full := Options{Link: &fakeLink{}, Provisioner: &fakeProvisioner{}, Submitter: &fakeSubmitter{}}

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"no link", func(o *Options) { o.Link = nil }},
		{"no provisioner", func(o *Options) { o.Provisioner = nil }},
		{"no submitter", func(o *Options) { o.Submitter = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := full
			tt.mutate(&opts)
			c, err := NewController(opts)
			if !errors.Is(err, ErrMissingCollaborator) || c != nil {
				t.Errorf("NewController() = %v, %v, want ErrMissingCollaborator", c, err)
			}
		})
	}

	c, err := NewController(full)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	c.Close()
}

func TestSubmit_SelfClearingSuccess(t *testing.T) {
	h := readyHarness()
	last := h.typeKeys(at(time.Second), "AB12")
	h.sub.outcome = printclient.Accepted("Job #7 queued", 1)

	submitAt := last.Add(100 * time.Millisecond)
	h.press(submitAt, KeySubmit)
	if s := h.c.Session(); s.State != Submitting || s.StatusMessage != "Sending request..." {
		t.Fatalf("session = %+v, want Submitting", s)
	}

	s := h.waitResult(submitAt)
	if s.State != Success || s.StatusMessage != "Job #7 queued" {
		t.Fatalf("session = %+v, want Success(Job #7 queued)", s)
	}
	if h.ind.last() != indicator.Success {
		t.Errorf("indicator = %v, want success", h.ind.events)
	}

	entered := s.StateEnteredAt
	h.c.Tick(entered.Add(2999*time.Millisecond), NoEvent)
	if h.c.Session().State != Success {
		t.Fatal("Success cleared before 3s")
	}
	h.c.Tick(entered.Add(3000*time.Millisecond), NoEvent)
	if s := h.c.Session(); s.State != Ready || s.Identifier != "" {
		t.Fatalf("session = %+v, want Ready with empty identifier", s)
	}

	req := h.sub.requests[0]
	if req.Identifier != "AB12" || req.DeviceID != "KIOSK_001" || !req.Timestamp.Equal(submitAt) {
		t.Errorf("request = %+v", req)
	}
}

func TestSubmit_ErrorHoldReturnsToReady(t *testing.T) {
	h := readyHarness()
	last := h.typeKeys(at(time.Second), "ZZ99")
	h.sub.outcome = printclient.Rejected(&printclient.Error{Kind: printclient.NotFound, StatusCode: 404}, 1)

	h.press(last.Add(100*time.Millisecond), KeySubmit)
	s := h.waitResult(last.Add(100 * time.Millisecond))
	if s.State != Error || s.StatusMessage != "UPID not found" {
		t.Fatalf("session = %+v, want Error(UPID not found)", s)
	}

	h.c.Tick(s.StateEnteredAt.Add(3*time.Second), NoEvent)
	if got := h.c.Session().State; got != Ready {
		t.Errorf("state = %s, want ready (not provisioning)", got)
	}
	if h.prov.starts != 0 {
		t.Error("submission errors must not start provisioning")
	}
}

func TestSubmit_SingleInflight(t *testing.T) {
	h := readyHarness()
	h.sub.release = make(chan struct{})
	last := h.typeKeys(at(time.Second), "AB")
	h.press(last.Add(100*time.Millisecond), KeySubmit)

	for i := 0; i < 5; i++ {
		now := last.Add(time.Duration(200+i*50) * time.Millisecond)
		h.press(now, KeySubmit)
		h.press(now, 'C')
	}

	// Let the goroutine reach the submitter before counting
	deadline := time.Now().Add(time.Second)
	for h.sub.calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := h.sub.calls(); got != 1 {
		t.Fatalf("submitter calls = %d, want 1", got)
	}
	if s := h.c.Session(); s.State != Submitting || s.Identifier != "AB" {
		t.Fatalf("session = %+v, want Submitting AB", s)
	}

	close(h.sub.release)
	if s := h.waitResult(last.Add(time.Second)); s.State != Success {
		t.Errorf("state = %s, want success", s.State)
	}
}

func TestClose_CancelsSubmission(t *testing.T) {
	h := readyHarness()
	h.sub.release = make(chan struct{})
	last := h.typeKeys(at(time.Second), "AB")
	h.press(last.Add(100*time.Millisecond), KeySubmit)

	h.c.Close()
	s := h.waitResult(last.Add(200 * time.Millisecond))
	if s.State != Error || s.StatusMessage != "Connection failed" {
		t.Errorf("session = %+v, want Error(Connection failed)", s)
	}
}

// End-to-end through the real print client against a scripted agent
func TestEndToEnd(t *testing.T) {
	tests := []struct {
		name        string
		upid        string
		status      int
		body        string
		wantState   State
		wantMessage string
	}{
		{"accepted", "AB12", http.StatusOK, `{"message":"Job #7 queued"}`, Success, "Job #7 queued"},
		{"invalid", "ZZ99", http.StatusBadRequest, `{"error":"bad upid"}`, Error, "Invalid UPID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := printclient.NewClient(srv.URL, "key")
			client.RetryDelay = 0

			h := readyHarness()
			h.c.submitter = client

			last := h.typeKeys(at(time.Second), tt.upid)
			h.press(last.Add(100*time.Millisecond), KeySubmit)
			s := h.waitResult(last.Add(100 * time.Millisecond))

			if s.State != tt.wantState || s.StatusMessage != tt.wantMessage {
				t.Errorf("session = %+v, want %s(%s)", s, tt.wantState, tt.wantMessage)
			}
			if got := hits.Load(); got != 1 {
				t.Errorf("agent hits = %d, want 1", got)
			}
		})
	}
}

func TestEventsDroppedWhenNotAccepting(t *testing.T) {
	h := newHarness(store.Credentials{NetworkName: "CampusNet"})
	h.c.Tick(t0, NoEvent)
	h.press(at(time.Second), '5')

	if s := h.c.Session(); s.State != Connecting || s.Identifier != "" {
		t.Errorf("session = %+v, key should be dropped in Connecting", s)
	}
	if len(h.ind.events) != 0 {
		t.Errorf("indicator events = %v, want none", h.ind.events)
	}
}

var _ Submitter = (*printclient.Client)(nil)

func TestSubmitterContext(t *testing.T) {
	// Submissions run with a live context until Close
	h := readyHarness()
	var got context.Context
	h.c.submitter = submitFunc(func(ctx context.Context, _ printclient.Request) printclient.Outcome {
		got = ctx
		return printclient.Accepted("ok", 1)
	})
	last := h.typeKeys(at(time.Second), "A")
	h.press(last.Add(100*time.Millisecond), KeySubmit)
	h.waitResult(last.Add(100 * time.Millisecond))

	if got == nil || got.Err() != nil {
		t.Errorf("submission context = %v, want live context", got)
	}
}

type submitFunc func(context.Context, printclient.Request) printclient.Outcome

func (f submitFunc) Submit(ctx context.Context, r printclient.Request) printclient.Outcome {
	return f(ctx, r)
}
