package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/autoprint/internal/config"
	"github.com/muurk/autoprint/internal/console"
	"github.com/muurk/autoprint/internal/discovery"
	"github.com/muurk/autoprint/internal/indicator"
	"github.com/muurk/autoprint/internal/kiosk"
	"github.com/muurk/autoprint/internal/logging"
	"github.com/muurk/autoprint/internal/network"
	"github.com/muurk/autoprint/internal/printclient"
	"github.com/muurk/autoprint/internal/provisioning"
	"github.com/muurk/autoprint/internal/session"
	"github.com/muurk/autoprint/internal/store"
	"github.com/muurk/autoprint/internal/ui"
)

var useTUI bool

// localBindings maps command-local flags to config keys
var localBindings = map[string]string{
	"console":  "console.listen",
	"discover": "agent.discover",
}

func init() {
	runCmd.Flags().BoolVar(&useTUI, "tui", false, "Show the kiosk screen in the terminal and read keys from it")
	runCmd.Flags().String("console", "", "Serve the device console on this address (e.g. :8081)")
	runCmd.Flags().Bool("discover", false, "Find the print agent with mDNS when --agent is not set")

	rootCmd.AddCommand(runCmd)
}

func bindLocalFlags(cmd *cobra.Command) error {
	for flag, key := range localBindings {
		f := cmd.LocalFlags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}
	return nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the kiosk loop",
	Long: `Run the kiosk session controller until interrupted.

Keys come from the terminal (--tui) and from the device console
(--console). Frames are always written to the log; with --tui they are
also drawn in the terminal.`,
	Example: `  # Kiosk in the terminal against a known agent
  autoprint-kiosk run --tui --agent http://192.168.1.100:8080 --device-key secret

  # Headless kiosk with a browser console, agent found via mDNS
  autoprint-kiosk run --console :8081 --discover`,
	RunE: runKiosk,
}

func runKiosk(cmd *cobra.Command, args []string) error {
	s, err := config.Load(v)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseURL, err := resolveAgent(ctx, s)
	if err != nil {
		return err
	}
	client := newPrintClient(s, baseURL)

	fs := store.NewFileStore(s.Store.Path)
	creds, err := fs.Load()
	if err != nil {
		logging.Warn("Stored credentials unreadable, entering setup mode", zap.Error(err))
		creds = store.Credentials{}
	}

	clock := clockwork.NewRealClock()

	prober := network.NewProber(client.Reachable,
		network.WithClock(clock),
		network.WithInterval(s.Probe.Interval),
	)
	defer prober.Close()

	var provOpts []provisioning.Option
	if s.Setup.Advertise {
		provOpts = append(provOpts, provisioning.WithBeacon(provisioning.NewMDNSBeacon()))
	}
	portal := provisioning.NewService(provisioning.Config{
		NetworkName:    s.Setup.NetworkName,
		Password:       s.Setup.Password,
		Listen:         s.Setup.Listen,
		HandoffTimeout: provisioning.DefaultHandoffTimeout,
	}, fs, provOpts...)
	defer portal.Stop()

	queue := kiosk.NewQueue(clock, kiosk.DefaultQueueSize)
	displays := []kiosk.Display{kiosk.LogDisplay{}}
	sinks := indicator.Multi{indicator.LogSink{}}

	errCh := make(chan error, 2)

	if s.Console.Listen != "" {
		hub := console.NewHub(queue)
		displays = append(displays, hub)
		sinks = append(sinks, hub)

		srv := console.NewServer(hub)
		go func() {
			if err := srv.Serve(ctx, s.Console.Listen); err != nil {
				errCh <- err
			}
		}()
	}

	var term *ui.Terminal
	if useTUI {
		term = ui.NewTerminal(ctx, queue)
		displays = append(displays, term)
		sinks = append(sinks, term)
	} else {
		sinks = append(sinks, indicator.NewBell(os.Stdout))
	}

	controller, err := session.NewController(session.Options{
		Link:        prober,
		Provisioner: portal,
		Submitter:   client,
		Indicator:   sinks,
		Credentials: creds,
		DeviceID:    s.Agent.DeviceID,
		Timings: session.Timings{
			ConnectTimeout: s.Session.ConnectTimeout,
			InputTimeout:   s.Session.InputTimeout,
			ResultHold:     s.Session.ResultHold,
			TimeoutHold:    s.Session.TimeoutHold,
		},
		SetupNetwork:  s.Setup.NetworkName,
		SetupPassword: s.Setup.Password,
	})
	if err != nil {
		return err
	}
	defer controller.Close()

	runner := &kiosk.Runner{
		Controller: controller,
		Source:     queue,
		Displays:   displays,
		Clock:      clock,
		Interval:   s.Session.TickInterval,
	}

	logging.Info("Kiosk starting",
		zap.String("agent", baseURL),
		zap.String("device_id", s.Agent.DeviceID),
		zap.Bool("credentials", creds.Present()),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		errCh <- runner.Run(runCtx)
	}()

	if term != nil {
		// Quitting the screen stops the kiosk
		if err := term.Run(runCtx); err != nil {
			return err
		}
		cancel()
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case <-runCtx.Done():
	}

	logging.Info("Kiosk stopped")
	return nil
}

// resolveAgent returns the configured agent URL or discovers one
func resolveAgent(ctx context.Context, s *config.Settings) (string, error) {
	if s.Agent.URL != "" {
		return s.Agent.URL, nil
	}

	scanner := discovery.NewScanner()
	agent, err := scanner.FindAgent(ctx)
	if err != nil {
		return "", fmt.Errorf("agent discovery failed: %w", err)
	}
	logging.Info("Discovered print agent", zap.String("agent", agent.String()))
	return agent.BaseURL(), nil
}

func newPrintClient(s *config.Settings, baseURL string) *printclient.Client {
	client := printclient.NewClient(baseURL, s.Agent.DeviceKey)
	client.SetTimeout(s.Agent.Timeout)
	client.SetRetry(s.Agent.Attempts, s.Agent.RetryDelay)
	return client
}
