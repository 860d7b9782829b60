package provisioning

import (
	"fmt"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/autoprint/internal/logging"
)

const (
	// PortalServiceType is the mDNS service type the portal is announced as
	PortalServiceType = "_http._tcp"

	mdnsDomain = "local."
)

// Beacon announces the setup portal while provisioning is active
type Beacon interface {
	Start(instance string, port int) error
	Stop()
}

type nopBeacon struct{}

func (nopBeacon) Start(string, int) error { return nil }
func (nopBeacon) Stop()                   {}

// MDNSBeacon registers the portal as an mDNS service
type MDNSBeacon struct {
	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNSBeacon creates an idle beacon
func NewMDNSBeacon() *MDNSBeacon {
	return &MDNSBeacon{}
}

// Start registers instance on port with TXT records path=/ and setup=1
func (b *MDNSBeacon) Start(instance string, port int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.server != nil {
		b.server.Shutdown()
		b.server = nil
	}

	server, err := zeroconf.Register(instance, PortalServiceType, mdnsDomain, port, []string{"path=/", "setup=1"}, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	b.server = server

	logging.Debug("mDNS beacon registered",
		zap.String("instance", instance),
		zap.String("service", PortalServiceType),
		zap.Int("port", port),
	)
	return nil
}

// Stop withdraws the announcement
func (b *MDNSBeacon) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.server != nil {
		b.server.Shutdown()
		b.server = nil
	}
}
