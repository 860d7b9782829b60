// Package kiosk drives the session controller.
//
// A Runner ticks the controller at a fixed cadence, feeding it at most one
// key per tick from a Source and pushing changed frames to every Display.
// Queue is the Source used in production: keyboards and the remote console
// push keys into it from their own goroutines.
package kiosk
