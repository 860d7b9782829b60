package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/autoprint/internal/indicator"
	"github.com/muurk/autoprint/internal/session"
)

const signalBuffer = 8

// Terminal runs the kiosk screen as a Bubble Tea program. It implements
// kiosk.Display and indicator.Sink; neither Show nor Signal blocks.
type Terminal struct {
	program *tea.Program

	mu      sync.Mutex
	pending *session.Frame
	notify  chan struct{}
	signals chan indicator.Event
}

// NewTerminal creates a terminal screen feeding key presses to input
func NewTerminal(ctx context.Context, input KeySink, opts ...tea.ProgramOption) *Terminal {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	return &Terminal{
		program: tea.NewProgram(NewModel(input), opts...),
		notify:  make(chan struct{}, 1),
		signals: make(chan indicator.Event, signalBuffer),
	}
}

// Show replaces the pending frame
func (t *Terminal) Show(f session.Frame) {
	t.mu.Lock()
	t.pending = &f
	t.mu.Unlock()

	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Signal queues an indicator event, dropping it if the screen is behind
func (t *Terminal) Signal(e indicator.Event) {
	select {
	case t.signals <- e:
	default:
	}
}

// Run shows the screen until the user quits or ctx is cancelled
func (t *Terminal) Run(ctx context.Context) error {
	fwdCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go t.forward(fwdCtx)

	_, err := t.program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal screen: %w", err)
	}
	return nil
}

// forward delivers queued updates to the running program
func (t *Terminal) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.notify:
			t.mu.Lock()
			f := t.pending
			t.pending = nil
			t.mu.Unlock()
			if f != nil {
				t.program.Send(frameMsg(*f))
			}
		case e := <-t.signals:
			t.program.Send(indicatorMsg(e))
		}
	}
}
