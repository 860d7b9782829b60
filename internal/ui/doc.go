// Package ui is the terminal front end of the kiosk.
//
// It uses Bubble Tea and Lipgloss to draw the kiosk display as a small
// bordered screen, with a help line for the keypad bindings underneath.
// Frames and indicator events come from the kiosk loop through Terminal,
// which implements both kiosk.Display and indicator.Sink. Key presses are
// forwarded by name to a KeySink (normally the kiosk key queue), which maps
// them onto keypad keys.
//
// Indicator events flash the screen border: orange for a key click, green
// for success, red for an error, each for as long as the indicator pattern
// lasts.
//
// # Logging Integration
//
// The screen occupies the terminal, so zap logging should stay silent
// (AUTOPRINT_LOG_LEVEL unset) or be redirected while it runs.
package ui
