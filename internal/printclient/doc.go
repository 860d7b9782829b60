// Package printclient submits print requests to the AutoPrint agent.
//
// A submission is a single POST to {base}/print carrying the identifier the
// user typed, the kiosk's device ID and a Unix millisecond timestamp. The
// client makes up to three attempts with a fixed delay between them:
//
//	200 + JSON object      accepted (message defaults to "Print job queued")
//	200 + anything else    MalformedResponse, terminal
//	400 / 401 / 404        InvalidIdentifier / Unauthorized / NotFound, terminal
//	other status           ServerError, retried
//	transport failure      TransportFailure, retried
//
// Submit blocks until an Outcome is known. Callers that must not block, such
// as the session controller, run it on their own goroutine.
//
// Example:
//
//	client := printclient.NewClient("http://print-agent.local:8080", deviceKey)
//	out := client.Submit(ctx, printclient.Request{Identifier: "AB12", DeviceID: "KIOSK_001", Timestamp: time.Now()})
//	if !out.Accepted() {
//	    fmt.Println(out.Err.DisplayText())
//	}
package printclient
