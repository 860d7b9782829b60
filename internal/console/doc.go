// Package console is the kiosk's device console.
//
// It serves a small HTTP surface next to the kiosk loop:
//
//	GET /         a browser mirror of the display with an on-screen keypad
//	GET /ws       websocket stream of frames and indicator events; inbound
//	              {"key":"5"} messages are fed to the kiosk as key presses
//	GET /metrics  Prometheus metrics
//	GET /healthz  liveness and the current frame as JSON
//
// The Hub implements both kiosk.Display and indicator.Sink so it can be
// wired into the runner and the controller like any other display.
//
// Outbound messages:
//
//	{"type":"frame","title":"Enter UPID:","body":"AB_","footer":"2/8 chars"}
//	{"type":"indicator","event":"success"}
package console
