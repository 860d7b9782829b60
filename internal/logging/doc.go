// Package logging provides structured logging for the AutoPrint kiosk.
//
// This package wraps a global zap logger with convenience functions for the
// events the kiosk cares about: session state transitions, print submission
// attempts, captive portal requests and console traffic.
//
// # Log Levels
//
//   - Debug: tick-level detail, console frames, probe results
//   - Info: state transitions, submissions, provisioning
//   - Warn: retries, dropped input, link loss
//   - Error: failures that leave a component degraded
//
// # Configuration
//
// Initialize logging once at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given the AUTOPRINT_LOG_LEVEL environment variable is
// consulted. With neither set the logger is a no-op, which keeps one-shot
// CLI commands quiet.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
