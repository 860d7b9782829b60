package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/autoprint/internal/indicator"
	"github.com/muurk/autoprint/internal/logging"
	"github.com/muurk/autoprint/internal/printclient"
	"github.com/muurk/autoprint/internal/store"
)

const (
	msgInitializing = "Initializing..."
	msgConnecting   = "Connecting to WiFi..."
	msgReconnecting = "Reconnecting..."
	msgSetupMode    = "Setup Mode"
	msgSending      = "Sending request..."
	msgSessionTimer = "Session timeout"
	msgWiFiFailed   = "WiFi Failed"
	msgSetupFailed  = "Setup failed"
)

// ErrMissingCollaborator is returned by NewController when a required
// collaborator is nil
var ErrMissingCollaborator = errors.New("missing controller collaborator")

// Controller is the kiosk state machine. It is not safe for concurrent
// use: Tick, Session and Frame must be called from one goroutine.
type Controller struct {
	link      Link
	prov      Provisioner
	submitter Submitter
	ind       indicator.Sink
	timings   Timings
	deviceID  string
	view      View

	creds   store.Credentials
	session Session
	buffer  *InputBuffer

	lastTick   time.Time
	afterError bool

	// inflight is non-nil while a submission is outstanding
	inflight chan printclient.Outcome

	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a controller in Boot. Link, Provisioner and
// Submitter are required.
func NewController(opts Options) (*Controller, error) {
	switch {
	case opts.Link == nil:
		return nil, fmt.Errorf("%w: link", ErrMissingCollaborator)
	case opts.Provisioner == nil:
		return nil, fmt.Errorf("%w: provisioner", ErrMissingCollaborator)
	case opts.Submitter == nil:
		return nil, fmt.Errorf("%w: submitter", ErrMissingCollaborator)
	}

	timings := opts.Timings.withDefaults()
	ind := opts.Indicator
	if ind == nil {
		ind = indicator.Nop
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		link:      opts.Link,
		prov:      opts.Provisioner,
		submitter: opts.Submitter,
		ind:       ind,
		timings:   timings,
		deviceID:  opts.DeviceID,
		view: View{
			MaxIdentifier: timings.MaxIdentifier,
			SetupNetwork:  opts.SetupNetwork,
			SetupPassword: opts.SetupPassword,
		},
		creds:   opts.Credentials,
		session: Session{State: Boot, StatusMessage: msgInitializing},
		buffer:  NewInputBuffer(timings.MaxIdentifier),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Session returns a copy of the current session
func (c *Controller) Session() Session {
	return c.session
}

// Credentials returns the credentials currently in use
func (c *Controller) Credentials() store.Credentials {
	return c.creds
}

// Frame renders the current session at now
func (c *Controller) Frame(now time.Time) Frame {
	v := c.view
	v.Now = now
	return Render(c.session, v)
}

// Close cancels an outstanding submission. The controller must not be
// ticked afterwards.
func (c *Controller) Close() {
	c.cancel()
}

// Tick advances the state machine to now, consuming ev if the current state
// accepts keys, and returns the frame to display.
func (c *Controller) Tick(now time.Time, ev Event) Frame {
	c.step(now, ev)
	c.lastTick = now
	c.session.Connected = c.link.Associated()
	return c.Frame(now)
}

func (c *Controller) step(now time.Time, ev Event) {
	if c.session.StateEnteredAt.IsZero() {
		c.session.StateEnteredAt = now
	}
	elapsed := now.Sub(c.session.StateEnteredAt)

	switch c.session.State {
	case Boot:
		if c.creds.Present() {
			c.associate(now, msgConnecting)
		} else {
			c.startProvisioning(now)
		}

	case Provisioning:
		if creds, ok := c.prov.Poll(); ok {
			c.prov.Stop()
			c.creds = creds
			c.associate(now, msgConnecting)
		}

	case Connecting:
		if c.link.Associated() {
			c.enterReady(now)
			c.ind.Signal(indicator.Success)
		} else if elapsed >= c.timings.ConnectTimeout {
			c.fail(now, msgWiFiFailed, true)
		}

	case Ready:
		if !c.link.Associated() {
			c.associate(now, msgReconnecting)
			return
		}
		if ev.Present() {
			c.transition(now, Input, "")
			c.ind.Signal(indicator.Tick)
			c.session.LastInputAt = now
			c.applyKey(now, ev.Key, false)
		}

	case Input:
		if !c.link.Associated() {
			c.associate(now, msgReconnecting)
			return
		}
		expired := now.Sub(c.session.LastInputAt) >= c.timings.InputTimeout
		if ev.Present() && (c.fresh(ev) || !expired) {
			c.session.LastInputAt = now
			c.applyKey(now, ev.Key, true)
			return
		}
		if expired {
			c.transition(now, TimedOut, msgSessionTimer)
		}

	case Submitting:
		select {
		case out := <-c.inflight:
			c.inflight = nil
			c.finishSubmission(now, out)
		default:
		}

	case Success, Error:
		if elapsed >= c.timings.ResultHold {
			if c.afterError {
				c.afterError = false
				c.startProvisioning(now)
			} else {
				c.enterReady(now)
			}
		}

	case TimedOut:
		if elapsed >= c.timings.TimeoutHold {
			c.enterReady(now)
		}
	}
}

// fresh reports whether ev was produced after the previous tick. Events
// left over from earlier ticks lose to an expired input timer.
func (c *Controller) fresh(ev Event) bool {
	return ev.At.IsZero() || !ev.At.Before(c.lastTick)
}

// applyKey handles one key in Input. tick controls the acknowledgement for
// an appended character; the waking key from Ready has already been ticked.
func (c *Controller) applyKey(now time.Time, k Key, tick bool) {
	switch {
	case k == KeyClear:
		c.buffer.Clear()

	case k == KeySubmit:
		if c.buffer.Len() == 0 {
			c.ind.Signal(indicator.Error)
			return
		}
		c.submit(now)

	case k.IsCharacter():
		if err := c.buffer.Append(rune(k)); err != nil {
			c.ind.Signal(indicator.Error)
			return
		}
		if tick {
			c.ind.Signal(indicator.Tick)
		}

	default:
		logging.Debug("Ignoring key", zap.String("key", k.String()))
	}
	c.session.Identifier = c.buffer.String()
}

// submit moves to Submitting and starts the request on its own goroutine
func (c *Controller) submit(now time.Time) {
	c.session.Identifier = c.buffer.String()
	c.transition(now, Submitting, msgSending)

	req := printclient.Request{
		Identifier: c.session.Identifier,
		DeviceID:   c.deviceID,
		Timestamp:  now,
	}
	done := make(chan printclient.Outcome, 1)
	c.inflight = done

	go func(ctx context.Context, s Submitter) {
		done <- s.Submit(ctx, req)
	}(c.ctx, c.submitter)
}

func (c *Controller) finishSubmission(now time.Time, out printclient.Outcome) {
	if out.Accepted() {
		c.transition(now, Success, out.Text())
		c.ind.Signal(indicator.Success)
		return
	}
	c.fail(now, out.Text(), false)
}

// fail enters Error. When toProvisioning is set the hold ends in setup mode
// instead of Ready.
func (c *Controller) fail(now time.Time, message string, toProvisioning bool) {
	c.afterError = toProvisioning
	c.transition(now, Error, message)
	c.ind.Signal(indicator.Error)
}

func (c *Controller) associate(now time.Time, message string) {
	c.link.Associate(c.creds)
	c.transition(now, Connecting, message)
}

func (c *Controller) startProvisioning(now time.Time) {
	if err := c.prov.Start(); err != nil {
		logging.Error("Failed to start setup mode", zap.Error(err))
		c.fail(now, msgSetupFailed, true)
		return
	}
	c.transition(now, Provisioning, msgSetupMode)
}

func (c *Controller) enterReady(now time.Time) {
	c.buffer.Clear()
	c.transition(now, Ready, "")
}

// transition is the only place the state changes
func (c *Controller) transition(now time.Time, to State, message string) {
	from := c.session.State
	c.session.State = to
	c.session.StatusMessage = message
	c.session.StateEnteredAt = now
	c.session.Identifier = c.buffer.String()
	logging.LogTransition(from.String(), to.String(), message)
}
