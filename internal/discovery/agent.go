package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Agent is a print agent found on the network
type Agent struct {
	// Instance is the advertised service instance name
	Instance string

	// Hostname is the mDNS hostname (e.g., "printhub.local.")
	Hostname string

	// IP is the agent address, IPv4 when available
	IP string

	// Port is the agent's HTTP port
	Port int

	// Metadata holds the TXT records (e.g., "version=1.2", "path=/")
	Metadata map[string]string

	// DiscoveredAt is when the agent was seen
	DiscoveredAt time.Time
}

// String returns a human-readable description of the agent
func (a *Agent) String() string {
	return fmt.Sprintf("AutoPrint agent %q (%s) at %s", a.Instance, a.Hostname, net.JoinHostPort(a.IP, strconv.Itoa(a.Port)))
}

// BaseURL returns the agent's HTTP base URL. A TXT "scheme" record
// overrides the default http.
func (a *Agent) BaseURL() string {
	scheme := a.GetMetadata("scheme")
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(a.IP, strconv.Itoa(a.Port)))
}

// GetMetadata retrieves a TXT value by key, or "" if absent
func (a *Agent) GetMetadata(key string) string {
	if a.Metadata == nil {
		return ""
	}
	return a.Metadata[key]
}
