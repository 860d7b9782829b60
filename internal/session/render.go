package session

import (
	"fmt"
	"strings"
	"time"
)

// View carries the render inputs that are not part of the Session
type View struct {
	Now           time.Time
	MaxIdentifier int
	SetupNetwork  string
	SetupPassword string
}

// Render maps a session to the frame all displays show
func Render(s Session, v View) Frame {
	footer := "WiFi: Disconnected"
	if s.Connected {
		footer = "WiFi: Connected"
	}

	switch s.State {
	case Boot, Connecting, Submitting:
		return Frame{Title: s.StatusMessage, Body: dots(s, v.Now), Footer: footer}

	case Ready:
		return Frame{Title: "AutoPrint Kiosk", Body: "Press any key to\nenter UPID", Footer: footer}

	case Input:
		shown := s.Identifier
		if len([]rune(shown)) < v.MaxIdentifier {
			shown += "_"
		}
		return Frame{
			Title:  "Enter UPID:",
			Body:   shown + "\n* = Clear  # = Submit",
			Footer: fmt.Sprintf("%d/%d chars", len([]rune(s.Identifier)), v.MaxIdentifier),
		}

	case Success:
		return Frame{Title: "Success!", Body: s.StatusMessage, Footer: footer}

	case Error:
		return Frame{Title: "Error", Body: s.StatusMessage, Footer: footer}

	case Provisioning:
		return Frame{
			Title:  "Setup Mode",
			Body:   fmt.Sprintf("Connect to WiFi:\n%s\nPassword: %s", v.SetupNetwork, v.SetupPassword),
			Footer: footer,
		}

	case TimedOut:
		return Frame{Title: "Timeout", Body: "Session expired\nReturning to menu...", Footer: footer}

	default:
		return Frame{Title: s.State.String(), Footer: footer}
	}
}

// dots animates a progress indicator: zero to three dots, one step every
// 500ms since the state was entered
func dots(s Session, now time.Time) string {
	elapsed := now.Sub(s.StateEnteredAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return strings.Repeat(".", int(elapsed/(500*time.Millisecond))%4)
}
