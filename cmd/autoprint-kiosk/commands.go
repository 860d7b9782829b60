package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/autoprint/internal/config"
	"github.com/muurk/autoprint/internal/discovery"
	"github.com/muurk/autoprint/internal/printclient"
	"github.com/muurk/autoprint/internal/session"
	"github.com/muurk/autoprint/internal/store"
)

var (
	scanTimeout time.Duration
	showSecret  bool
)

func init() {
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(credentialsCmd)

	discoverCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "How long to browse for agents")

	credentialsShowCmd.Flags().BoolVar(&showSecret, "show-secret", false, "Print the stored secret instead of masking it")
	credentialsCmd.AddCommand(credentialsShowCmd)
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsResetCmd)
}

// submitCmd sends one print request outside the kiosk loop
var submitCmd = &cobra.Command{
	Use:   "submit <upid>",
	Short: "Submit a single print request",
	Long: `Submit one UPID to the print agent using the kiosk's retry policy
and print the outcome. The UPID must be 1-8 characters of 0-9 and A-Z.`,
	Example: `  autoprint-kiosk submit AB12 --agent http://192.168.1.100:8080 --device-key secret`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSubmit,
}

func runSubmit(cmd *cobra.Command, args []string) error {
	s, err := config.Load(v)
	if err != nil {
		return err
	}

	upid, err := normalizeIdentifier(args[0], session.DefaultTimings().MaxIdentifier)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	baseURL, err := resolveAgent(ctx, s)
	if err != nil {
		return err
	}

	client := newPrintClient(s, baseURL)
	fmt.Printf("Submitting %s to %s...\n", upid, baseURL)

	out := client.Submit(ctx, printclient.Request{
		Identifier: upid,
		DeviceID:   s.Agent.DeviceID,
		Timestamp:  time.Now(),
	})
	if !out.Accepted() {
		return fmt.Errorf("%s after %d attempt(s): %w", out.Text(), out.Attempts, out.Err)
	}

	fmt.Printf("%s (attempts: %d)\n", out.Text(), out.Attempts)
	return nil
}

// normalizeIdentifier applies the keypad rules to a UPID typed on the command line
func normalizeIdentifier(raw string, maxLen int) (string, error) {
	buf := session.NewInputBuffer(maxLen)
	for _, r := range raw {
		k, ok := session.ParseKey(string(r))
		if !ok || !k.IsCharacter() {
			return "", fmt.Errorf("invalid character %q in UPID", r)
		}
		if err := buf.Append(rune(k)); err != nil {
			if errors.Is(err, session.ErrBufferFull) {
				return "", fmt.Errorf("UPID longer than %d characters", maxLen)
			}
			return "", err
		}
	}
	if buf.Len() == 0 {
		return "", errors.New("UPID must not be empty")
	}
	return buf.String(), nil
}

// healthCmd checks the agent health endpoint
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the print agent is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load(v)
		if err != nil {
			return err
		}
		baseURL, err := resolveAgent(cmd.Context(), s)
		if err != nil {
			return err
		}

		client := newPrintClient(s, baseURL)
		if err := client.Health(cmd.Context()); err != nil {
			return fmt.Errorf("agent %s unhealthy: %w", baseURL, err)
		}
		fmt.Printf("Agent %s is healthy\n", baseURL)
		return nil
	},
}

// discoverCmd lists print agents advertised over mDNS
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scan for print agents on the network",
	Long: `Scan for print agents using mDNS/DNS-SD discovery.

Agents advertise the ` + discovery.ServiceType + ` service. Each agent found is
listed with its address and TXT metadata.`,
	Example: `  # Scan for 5 seconds (default)
  autoprint-kiosk discover

  # Longer scan on slow networks
  autoprint-kiosk discover --timeout 15s`,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for print agents (timeout: %s)...\n\n", scanTimeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout

	agents, err := scanner.ScanForAgents(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(agents) == 0 {
		fmt.Println("No agents found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the print agent is running")
		fmt.Println("  - Check that this machine is on the same network")
		fmt.Println("  - Try increasing --timeout")
		fmt.Println("  - Use --agent to set the URL manually")
		return nil
	}

	fmt.Printf("Found %d agent(s):\n\n", len(agents))
	for i, agent := range agents {
		fmt.Printf("%d. %s\n", i+1, agent.Instance)
		fmt.Printf("   Host: %s\n", agent.Hostname)
		fmt.Printf("   URL:  %s\n", agent.BaseURL())
		if len(agent.Metadata) > 0 {
			fmt.Printf("   Metadata: %v\n", agent.Metadata)
		}
		fmt.Println()
	}
	return nil
}

// credentialsCmd groups the credential store commands
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage stored network credentials",
}

var credentialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored network credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openStore()
		if err != nil {
			return err
		}
		creds, err := fs.Load()
		if err != nil {
			return err
		}

		fmt.Printf("Store: %s\n", fs.Path())
		if !creds.Present() {
			fmt.Println("No credentials stored; the kiosk will start in setup mode.")
			return nil
		}
		secret := maskSecret(creds.Secret)
		if showSecret {
			secret = creds.Secret
		}
		fmt.Printf("Network: %s\n", creds.NetworkName)
		fmt.Printf("Secret:  %s\n", secret)
		return nil
	},
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set <network> [secret]",
	Short: "Store network credentials",
	Long: `Store the network name and secret, as the setup form would.
Omit the secret for an open network.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openStore()
		if err != nil {
			return err
		}
		creds := store.Credentials{NetworkName: args[0]}
		if len(args) == 2 {
			creds.Secret = args[1]
		}
		if !creds.Present() {
			return errors.New("network name must not be empty")
		}
		if err := fs.Save(creds); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}
		fmt.Printf("Saved credentials for %s to %s\n", creds.NetworkName, fs.Path())
		return nil
	},
}

var credentialsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear stored credentials so the kiosk enters setup mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := openStore()
		if err != nil {
			return err
		}
		if err := fs.Clear(); err != nil {
			return fmt.Errorf("failed to clear credentials: %w", err)
		}
		fmt.Printf("Cleared credentials in %s\n", fs.Path())
		return nil
	},
}

func openStore() (*store.FileStore, error) {
	s, err := config.Decode(v)
	if err != nil {
		return nil, err
	}
	return store.NewFileStore(s.Store.Path), nil
}

func maskSecret(secret string) string {
	if secret == "" {
		return "(open network)"
	}
	return "********"
}
