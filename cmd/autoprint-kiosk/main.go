// Autoprint-kiosk runs a walk-up print kiosk.
//
// The kiosk reads a print identifier (UPID) from its keypad, submits it to
// a print agent on the local network and shows the result. When no network
// credentials are stored it falls back to setup mode, serving a small web
// form where the network name and password can be entered.
//
// Usage:
//
//	autoprint-kiosk [command] [flags]
//
// Running without arguments starts the kiosk loop, same as 'run'.
// See 'autoprint-kiosk --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/muurk/autoprint/internal/config"
	"github.com/muurk/autoprint/internal/logging"
	"github.com/muurk/autoprint/internal/version"
)

var (
	cfgFile  string
	logLevel string

	// v holds the merged configuration once PersistentPreRunE has run
	v *viper.Viper
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "autoprint-kiosk",
	Short: "AutoPrint walk-up print kiosk",
	Long: `Runs the AutoPrint kiosk session controller.

The kiosk collects a print identifier from its keypad, sends it to the
print agent and reports the outcome. Without stored network credentials it
enters setup mode and serves a configuration form.

If no command is specified, the kiosk loop starts.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKiosk(cmd, args)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./autoprint.yaml or <config dir>/autoprint/autoprint.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty")
	rootCmd.PersistentFlags().String("agent", "", "Print agent base URL (e.g. http://192.168.1.100:8080)")
	rootCmd.PersistentFlags().String("device-key", "", "Device key sent as bearer token")
	rootCmd.PersistentFlags().String("store", "", "Credential store file")

	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration and initialises logging for every command
func setup(cmd *cobra.Command, args []string) error {
	var err error
	v, err = config.NewViper(cfgFile)
	if err != nil {
		return err
	}

	bindings := map[string]string{
		"log.level":        "log-level",
		"agent.url":        "agent",
		"agent.device_key": "device-key",
		"store.path":       "store",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}
	if err := bindLocalFlags(cmd); err != nil {
		return err
	}

	if err := logging.Initialize(v.GetString("log.level")); err != nil {
		return err
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("autoprint-kiosk %s (commit: %s)\n", version.Version, version.Commit)
	},
}
