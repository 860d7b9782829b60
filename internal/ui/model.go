package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/autoprint/internal/indicator"
	"github.com/muurk/autoprint/internal/session"
)

// KeySink receives key names typed on the terminal
type KeySink interface {
	PushName(name string) bool
}

type frameMsg session.Frame

type indicatorMsg indicator.Event

type flashDoneMsg struct {
	seq int
}

// keyMap defines the kiosk key bindings shown in the help line
type keyMap struct {
	Identifier key.Binding
	Clear      key.Binding
	Submit     key.Binding
	Quit       key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Identifier, k.Clear, k.Submit, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Identifier, k.Clear, k.Submit, k.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Identifier: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9/a-z", "type"),
		),
		Clear: key.NewBinding(
			key.WithKeys("*", "backspace", "esc", "delete"),
			key.WithHelp("*/bksp", "clear"),
		),
		Submit: key.NewBinding(
			key.WithKeys("#", "enter"),
			key.WithHelp("#/enter", "submit"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// Model renders kiosk frames and forwards key presses to a KeySink
type Model struct {
	frame session.Frame
	input KeySink

	flash    indicator.Event
	flashing bool
	flashSeq int

	width  int
	height int

	keys keyMap
	help help.Model
}

// NewModel creates a model feeding key presses to input
func NewModel(input KeySink) Model {
	width, height := GetTerminalSize()
	return Model{
		input:  input,
		width:  width,
		height: height,
		keys:   newKeyMap(),
		help:   help.New(),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if m.input != nil {
			m.input.PushName(msg.String())
		}

	case frameMsg:
		m.frame = session.Frame(msg)

	case indicatorMsg:
		e := indicator.Event(msg)
		m.flash = e
		m.flashing = true
		m.flashSeq++
		seq := m.flashSeq
		return m, tea.Tick(indicator.Duration(e), func(time.Time) tea.Msg {
			return flashDoneMsg{seq: seq}
		})

	case flashDoneMsg:
		// A newer event restarted the flash
		if msg.seq == m.flashSeq {
			m.flashing = false
		}
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	width := ScreenWidth(m.width)

	lines := []string{
		TitleStyle.Render(m.frame.Title),
		"",
		BodyStyle.Render(m.frame.Body),
		FooterStyle.Render(m.frame.Footer),
	}
	screen := ScreenStyle(width, BorderColor(m.flash, m.flashing)).
		Render(strings.Join(lines, "\n"))

	return lipgloss.JoinVertical(lipgloss.Left,
		screen,
		HelpStyle.Render(m.help.View(m.keys)),
	)
}

// Frame returns the frame currently shown
func (m Model) Frame() session.Frame {
	return m.frame
}

// Flashing reports whether an indicator event is being shown
func (m Model) Flashing() (indicator.Event, bool) {
	return m.flash, m.flashing
}
