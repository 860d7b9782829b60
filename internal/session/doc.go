// Package session is the kiosk's session controller.
//
// A Controller owns one Session and advances it on every call to Tick. The
// driver loop calls Tick at a fixed cadence with the time and at most one
// key Event, and shows the Frame it returns:
//
//	Boot -> Provisioning -> Connecting -> Ready -> Input -> Submitting -> Success | Error
//	                             ^          |        |
//	                             +-- link --+        +-> TimedOut -> Ready
//
// Every side effect leaves the controller through a narrow interface: Link
// for network association, Provisioner for setup mode, Submitter for print
// requests and indicator.Sink for feedback. Submissions run on their own
// goroutine and are collected on a later tick, so Tick never blocks.
//
// Render maps a Session to the Frame every display shows. It is pure and
// shared by all displays.
package session
