package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user configuration directory
const AppName = "autoprint"

// Dir returns the OS-appropriate configuration directory for the kiosk:
//   - Linux: $XDG_CONFIG_HOME/autoprint or $HOME/.config/autoprint
//   - macOS: $HOME/.config/autoprint
//   - Windows: %LOCALAPPDATA%\autoprint
func Dir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, AppName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", AppName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", AppName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", AppName), nil
	}
}

// DefaultStorePath is where the network credentials live unless store.path is set
func DefaultStorePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials.yaml"), nil
}
