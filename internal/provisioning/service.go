package provisioning

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/muurk/autoprint/internal/logging"
	"github.com/muurk/autoprint/internal/store"
)

const (
	// DefaultNetworkName is the setup network name shown on the display
	DefaultNetworkName = "AutoPrint-Setup"

	// DefaultPassword is the setup network password shown on the display
	DefaultPassword = "setup123"

	// DefaultListen is the portal listen address
	DefaultListen = ":80"

	// DefaultHandoffTimeout bounds how long a form post waits for Poll
	DefaultHandoffTimeout = 10 * time.Second

	shutdownTimeout = 5 * time.Second
)

var (
	// ErrNotIdle is returned by Start when the service is already running
	ErrNotIdle = errors.New("provisioning service is not idle")

	// ErrMissingNetworkName is returned for a submission without a network name
	ErrMissingNetworkName = errors.New("missing network name")

	// ErrAlreadySubmitted is returned once credentials have been accepted
	ErrAlreadySubmitted = errors.New("credentials already submitted")
)

// State is the service lifecycle state
type State int

const (
	Idle State = iota
	Serving
	Submitted
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Serving:
		return "serving"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// CredentialWriter persists credentials
type CredentialWriter interface {
	Save(store.Credentials) error
}

// Config configures the setup portal
type Config struct {
	NetworkName    string
	Password       string
	Listen         string
	HandoffTimeout time.Duration
}

// DefaultConfig returns the stock setup network and portal settings
func DefaultConfig() Config {
	return Config{
		NetworkName:    DefaultNetworkName,
		Password:       DefaultPassword,
		Listen:         DefaultListen,
		HandoffTimeout: DefaultHandoffTimeout,
	}
}

// submission is a form post waiting for Poll
type submission struct {
	creds store.Credentials
	reply chan error
}

// Service is the provisioning state machine and its portal
type Service struct {
	cfg    Config
	writer CredentialWriter
	beacon Beacon
	clock  clockwork.Clock
	engine *gin.Engine

	submissions chan submission

	mu       sync.Mutex
	state    State
	signal   *store.Credentials
	server   *http.Server
	listener net.Listener
}

// Option customises a Service
type Option func(*Service)

// WithBeacon sets the beacon announcing the portal
func WithBeacon(b Beacon) Option {
	return func(s *Service) { s.beacon = b }
}

// WithClock sets the clock used for the handoff timeout
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// NewService creates an idle provisioning service that saves through writer
func NewService(cfg Config, writer CredentialWriter, opts ...Option) *Service {
	if cfg.NetworkName == "" {
		cfg.NetworkName = DefaultNetworkName
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.HandoffTimeout <= 0 {
		cfg.HandoffTimeout = DefaultHandoffTimeout
	}

	s := &Service{
		cfg:         cfg,
		writer:      writer,
		beacon:      nopBeacon{},
		clock:       clockwork.NewRealClock(),
		submissions: make(chan submission),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.newEngine()
	return s
}

// State returns the current lifecycle state
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handler returns the portal handler
func (s *Service) Handler() http.Handler {
	return s.engine
}

// Addr returns the portal's listen address while serving, or nil
func (s *Service) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start opens the portal and starts the beacon. It fails with ErrNotIdle
// unless the service is idle.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return ErrNotIdle
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Setup portal stopped", zap.Error(err))
		}
	}()

	port := 0
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	if err := s.beacon.Start(s.cfg.NetworkName, port); err != nil {
		logging.Warn("Setup beacon failed to start", zap.Error(err))
	}

	s.server = srv
	s.listener = ln
	s.signal = nil
	s.state = Serving

	logging.Info("Setup portal started",
		zap.String("network", s.cfg.NetworkName),
		zap.String("addr", ln.Addr().String()),
	)
	return nil
}

// Poll hands at most one pending form submission to OnSubmitted and reports
// saved credentials. It returns (creds, true) exactly once per successful
// submission.
func (s *Service) Poll() (store.Credentials, bool) {
	select {
	case sub := <-s.submissions:
		sub.reply <- s.OnSubmitted(sub.creds.NetworkName, sub.creds.Secret)
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signal == nil {
		return store.Credentials{}, false
	}
	creds := *s.signal
	s.signal = nil
	return creds, true
}

// OnSubmitted validates and persists new credentials and arms the
// completion signal. The secret may be empty for an open network.
func (s *Service) OnSubmitted(name, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Submitted {
		return ErrAlreadySubmitted
	}
	if name == "" {
		return ErrMissingNetworkName
	}

	creds := store.Credentials{NetworkName: name, Secret: secret}
	if err := s.writer.Save(creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	s.state = Submitted
	s.signal = &creds

	logging.Info("Network credentials saved", zap.String("network", name), zap.Bool("open", secret == ""))
	return nil
}

// Stop shuts the portal and beacon down in the background and returns the
// service to Idle. In-flight responses are allowed to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Idle {
		return
	}

	srv, beacon := s.server, s.beacon
	s.server = nil
	s.listener = nil
	s.state = Idle

	go func() {
		beacon.Stop()
		if srv == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn("Setup portal shutdown incomplete", zap.Error(err))
		}
	}()

	logging.Info("Setup portal stopped")
}

// handoff passes a form post to Poll and waits for the result
func (s *Service) handoff(ctx context.Context, creds store.Credentials) error {
	sub := submission{creds: creds, reply: make(chan error, 1)}

	select {
	case s.submissions <- sub:
	case <-s.clock.After(s.cfg.HandoffTimeout):
		return errHandoffTimeout
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-sub.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

var errHandoffTimeout = errors.New("submission was not picked up")
