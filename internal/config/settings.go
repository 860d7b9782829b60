package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. AUTOPRINT_AGENT_URL
const EnvPrefix = "AUTOPRINT"

// Settings is the complete kiosk configuration
type Settings struct {
	Log     LogSettings     `mapstructure:"log"`
	Agent   AgentSettings   `mapstructure:"agent"`
	Session SessionSettings `mapstructure:"session"`
	Setup   SetupSettings   `mapstructure:"setup"`
	Console ConsoleSettings `mapstructure:"console"`
	Store   StoreSettings   `mapstructure:"store"`
	Probe   ProbeSettings   `mapstructure:"probe"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
}

// AgentSettings describes the print agent the kiosk submits to
type AgentSettings struct {
	URL        string        `mapstructure:"url"`
	DeviceKey  string        `mapstructure:"device_key"`
	DeviceID   string        `mapstructure:"device_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Attempts   int           `mapstructure:"attempts"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Discover   bool          `mapstructure:"discover"`
}

type SessionSettings struct {
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	InputTimeout   time.Duration `mapstructure:"input_timeout"`
	ResultHold     time.Duration `mapstructure:"result_hold"`
	TimeoutHold    time.Duration `mapstructure:"timeout_hold"`
}

// SetupSettings configures the fallback provisioning portal
type SetupSettings struct {
	NetworkName string `mapstructure:"network_name"`
	Password    string `mapstructure:"password"`
	Listen      string `mapstructure:"listen"`
	Advertise   bool   `mapstructure:"advertise"`
}

type ConsoleSettings struct {
	Listen string `mapstructure:"listen"`
}

type StoreSettings struct {
	Path string `mapstructure:"path"`
}

type ProbeSettings struct {
	Interval time.Duration `mapstructure:"interval"`
}

// SetDefaults registers every key with its default so that environment
// overrides work for keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "")

	v.SetDefault("agent.url", "")
	v.SetDefault("agent.device_key", "")
	v.SetDefault("agent.device_id", "KIOSK_001")
	v.SetDefault("agent.timeout", 10*time.Second)
	v.SetDefault("agent.attempts", 3)
	v.SetDefault("agent.retry_delay", 2*time.Second)
	v.SetDefault("agent.discover", false)

	v.SetDefault("session.tick_interval", 50*time.Millisecond)
	v.SetDefault("session.connect_timeout", 30*time.Second)
	v.SetDefault("session.input_timeout", 30*time.Second)
	v.SetDefault("session.result_hold", 3*time.Second)
	v.SetDefault("session.timeout_hold", 5*time.Second)

	v.SetDefault("setup.network_name", "AutoPrint-Setup")
	v.SetDefault("setup.password", "setup123")
	v.SetDefault("setup.listen", ":80")
	v.SetDefault("setup.advertise", true)

	v.SetDefault("console.listen", "")
	v.SetDefault("store.path", "")
	v.SetDefault("probe.interval", 5*time.Second)
}

// NewViper returns a viper instance wired for the kiosk: defaults, an
// optional autoprint.yaml, and AUTOPRINT_* environment overrides. A .env
// file in the working directory is loaded first when present.
func NewViper(configFile string) (*viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("autoprint")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return v, nil
}

// Load decodes settings from v and validates them
func Load(v *viper.Viper) (*Settings, error) {
	s, err := Decode(v)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Decode decodes settings from v without validating them. Commands that
// never talk to the agent use it so a missing agent.url is not an error.
func Decode(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if s.Store.Path == "" {
		path, err := DefaultStorePath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve credential store path: %w", err)
		}
		s.Store.Path = path
	}
	return &s, nil
}

// Validate checks the settings for values the kiosk cannot run with
func (s *Settings) Validate() error {
	if s.Agent.URL == "" && !s.Agent.Discover {
		return errors.New("agent.url is required unless agent.discover is enabled")
	}
	if s.Agent.Attempts < 1 {
		return fmt.Errorf("agent.attempts must be at least 1, got %d", s.Agent.Attempts)
	}

	durations := map[string]time.Duration{
		"agent.timeout":           s.Agent.Timeout,
		"session.tick_interval":   s.Session.TickInterval,
		"session.connect_timeout": s.Session.ConnectTimeout,
		"session.input_timeout":   s.Session.InputTimeout,
		"session.result_hold":     s.Session.ResultHold,
		"session.timeout_hold":    s.Session.TimeoutHold,
		"probe.interval":          s.Probe.Interval,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}
	if s.Agent.RetryDelay < 0 {
		return fmt.Errorf("agent.retry_delay must not be negative, got %s", s.Agent.RetryDelay)
	}
	if s.Setup.NetworkName == "" {
		return errors.New("setup.network_name must not be empty")
	}
	return nil
}
