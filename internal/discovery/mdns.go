package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/autoprint/internal/logging"
)

const (
	// ServiceType is the mDNS service type print agents advertise
	ServiceType = "_autoprint._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default browse duration
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is assumed when an advertisement carries no port
	DefaultPort = 8080
)

// ErrNoAgent is returned when no agent answered within the timeout
var ErrNoAgent = errors.New("no print agent found")

// Scanner browses for print agents
type Scanner struct {
	// Timeout is the maximum time to browse
	Timeout time.Duration
}

// NewScanner creates a scanner with the default timeout
func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout}
}

// ScanForAgents browses for the full timeout and returns every agent seen,
// de-duplicated by instance name
func (s *Scanner) ScanForAgents(ctx context.Context) ([]*Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		agents []*Agent
		seen   = make(map[string]bool)
	)

	err := s.browse(ctx, func(a *Agent) bool {
		mu.Lock()
		defer mu.Unlock()
		if !seen[a.Instance] {
			seen[a.Instance] = true
			agents = append(agents, a)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	logging.Debug("Agent scan complete", zap.Int("agents", len(agents)))
	return agents, nil
}

// FindAgent returns the first agent that answers
func (s *Scanner) FindAgent(ctx context.Context) (*Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	found := make(chan *Agent, 1)
	err := s.browse(ctx, func(a *Agent) bool {
		select {
		case found <- a:
		default:
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	select {
	case a := <-found:
		logging.Info("Found print agent", zap.String("agent", a.String()))
		return a, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w within %s", ErrNoAgent, s.Timeout)
	}
}

// browse feeds parsed agents to visit until it returns false or ctx ends.
// The entry channel is drained until the resolver closes it.
func (s *Scanner) browse(ctx context.Context, visit func(*Agent) bool) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		done := false
		for entry := range entries {
			if done {
				continue
			}
			if agent := parseServiceEntry(entry); agent != nil {
				done = !visit(agent)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	return nil
}

// parseServiceEntry converts a zeroconf entry to an Agent. It returns nil
// for entries without a usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Agent {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string, len(entry.Text))
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	instance := entry.Instance
	if instance == "" {
		instance = entry.HostName
	}

	return &Agent{
		Instance:     instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
