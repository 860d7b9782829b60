package session

import "fmt"

// State is the controller's operating mode
type State int

const (
	Boot State = iota
	Provisioning
	Connecting
	Ready
	Input
	Submitting
	Success
	Error
	TimedOut
)

var stateNames = [...]string{
	Boot:         "boot",
	Provisioning: "provisioning",
	Connecting:   "connecting",
	Ready:        "ready",
	Input:        "input",
	Submitting:   "submitting",
	Success:      "success",
	Error:        "error",
	TimedOut:     "timed_out",
}

// String returns the state name
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// acceptsKeys reports whether key events are consumed in s
func (s State) acceptsKeys() bool {
	return s == Ready || s == Input
}
