// Package provisioning runs the kiosk's setup mode.
//
// When no network name is stored, the kiosk serves a captive web form that
// collects a network name and an optional secret. The Service is a small
// state machine:
//
//	Idle --Start--> Serving --OnSubmitted--> Submitted
//	  ^                |                        |
//	  +-------Stop-----+------------Stop--------+
//
// HTTP handlers never touch the caller's state directly. A form post is
// handed over a channel and only processed when the owner calls Poll, so
// the session controller stays the single writer of everything it owns.
// Poll reports the saved credentials exactly once.
//
// The portal is advertised on the local network with mDNS (see MDNSBeacon)
// so operators can find it by name. Raising the access point itself is left
// to the operating system.
package provisioning
