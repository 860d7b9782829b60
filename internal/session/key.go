package session

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Key is a single keypad symbol
type Key rune

const (
	// KeyClear empties the identifier
	KeyClear Key = '*'
	// KeySubmit submits the identifier
	KeySubmit Key = '#'
)

// IsCharacter reports whether k can be part of an identifier
func (k Key) IsCharacter() bool {
	return (k >= '0' && k <= '9') || (k >= 'A' && k <= 'Z')
}

// String returns the key as a one-character string
func (k Key) String() string {
	return string(rune(k))
}

// ParseKey maps a key name from a terminal or the console to a Key.
// Lower-case letters are upper-cased. Unknown names return false.
func ParseKey(name string) (Key, bool) {
	switch strings.ToLower(name) {
	case "enter", "return", "#":
		return KeySubmit, true
	case "backspace", "esc", "escape", "delete", "*":
		return KeyClear, true
	}

	if utf8.RuneCountInString(name) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(name)
	if r >= 'a' && r <= 'z' {
		r -= 'a' - 'A'
	}
	k := Key(r)
	if !k.IsCharacter() {
		return 0, false
	}
	return k, true
}

// Event is a key press stamped with the time it was produced. The zero
// Event means no key this tick; a zero At means "now".
type Event struct {
	Key Key
	At  time.Time
}

// NoEvent is passed to Tick when no key is pending
var NoEvent = Event{}

// KeyEvent builds an Event
func KeyEvent(k Key, at time.Time) Event {
	return Event{Key: k, At: at}
}

// Present reports whether the event carries a key
func (e Event) Present() bool {
	return e.Key != 0
}
