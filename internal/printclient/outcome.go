package printclient

import "time"

// DefaultMessage is shown when the agent accepts a job without a message
const DefaultMessage = "Print job queued"

// Request is one print submission
type Request struct {
	Identifier string
	DeviceID   string
	Timestamp  time.Time
}

// payload is the JSON body sent to the agent
type payload struct {
	UPID      string `json:"upid"`
	DeviceID  string `json:"device_id"`
	Timestamp int64  `json:"timestamp"`
}

func (r Request) payload() payload {
	return payload{
		UPID:      r.Identifier,
		DeviceID:  r.DeviceID,
		Timestamp: r.Timestamp.UnixMilli(),
	}
}

// Outcome is the result of a submission: accepted with a message, or
// rejected with the last error seen.
type Outcome struct {
	Message  string
	Err      *Error
	Attempts int
}

// Accepted builds an accepted outcome
func Accepted(message string, attempts int) Outcome {
	return Outcome{Message: message, Attempts: attempts}
}

// Rejected builds a rejected outcome
func Rejected(err *Error, attempts int) Outcome {
	return Outcome{Err: err, Attempts: attempts}
}

// Accepted reports whether the agent queued the job
func (o Outcome) Accepted() bool {
	return o.Err == nil
}

// Text is the status line for the outcome: the agent's message on success,
// the error's display text otherwise
func (o Outcome) Text() string {
	if o.Err != nil {
		return o.Err.DisplayText()
	}
	return o.Message
}
