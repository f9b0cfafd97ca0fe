package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sebas/legbridge/internal/logger"
	"github.com/sebas/legbridge/internal/signaling/b2bua"
)

// Config holds the forwarder configuration
type Config struct {
	LogLevel string `yaml:"log_level"`
	// NodeID is stamped on published events (defaults to the hostname)
	NodeID string `yaml:"node_id"`

	Forward ForwardConfig `yaml:"forward"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	// ConfigPath is the YAML file the values were read from, if any
	ConfigPath string `yaml:"-"`
}

// ForwardConfig selects and tunes the forwarder for inbound calls
type ForwardConfig struct {
	// Mode is one of pstn, user, user-direct, sip
	Mode  string `yaml:"mode"`
	Video bool   `yaml:"video"`

	// PSTN number handling
	NumberRegion    string `yaml:"number_region"` // E.164 normalization region, empty disables it
	StripPrefix     string `yaml:"strip_prefix"`  // international prefix replaced by "+", e.g. "00"
	CallerID        string `yaml:"caller_id"`     // overrides the inbound caller ID on PSTN legs
	FollowDiversion bool   `yaml:"follow_diversion"`

	// Headers are added to user, direct user and SIP legs
	Headers map[string]string `yaml:"headers"`
}

func defaults() *Config {
	nodeID, _ := os.Hostname()
	return &Config{
		LogLevel: "info",
		NodeID:   nodeID,
		Forward: ForwardConfig{
			Mode: string(b2bua.ForwardPSTN),
		},
	}
}

// Load loads configuration from command line flags and environment variables
func Load() (*Config, error) {
	return Parse(os.Args[1:], os.LookupEnv)
}

// Parse builds a Config from args and env. Precedence, lowest first:
// defaults, the YAML file named by -config or CONFIG_PATH, explicitly set
// flags, environment variables.
func Parse(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := defaults()
	flags := *cfg

	fs := flag.NewFlagSet("legbridge", flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigPath, "config", "", "Path to YAML configuration file")
	fs.StringVar(&flags.LogLevel, "loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&flags.NodeID, "node", cfg.NodeID, "Node ID stamped on events")
	fs.StringVar(&flags.Forward.Mode, "forward", cfg.Forward.Mode, "Forward mode (pstn, user, user-direct, sip)")
	fs.BoolVar(&flags.Forward.Video, "video", false, "Request video on user and SIP legs")
	fs.StringVar(&flags.Forward.NumberRegion, "region", "", "Default region for E.164 normalization of PSTN numbers")
	fs.StringVar(&flags.Forward.StripPrefix, "strip-prefix", "", "International dialing prefix to replace with +")
	fs.StringVar(&flags.Forward.CallerID, "callerid", "", "Caller ID override for PSTN legs")
	fs.BoolVar(&flags.Forward.FollowDiversion, "follow-diversion", false, "Follow call diversion on PSTN legs")
	fs.BoolVar(&flags.MetricsEnabled, "metrics", false, "Register Prometheus metrics")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if path, ok := lookupEnv("CONFIG_PATH"); ok && path != "" && cfg.ConfigPath == "" {
		cfg.ConfigPath = path
	}
	if cfg.ConfigPath != "" {
		if err := cfg.loadFile(cfg.ConfigPath); err != nil {
			return nil, err
		}
	}

	// Only flags given on the command line override the file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "loglevel":
			cfg.LogLevel = flags.LogLevel
		case "node":
			cfg.NodeID = flags.NodeID
		case "forward":
			cfg.Forward.Mode = flags.Forward.Mode
		case "video":
			cfg.Forward.Video = flags.Forward.Video
		case "region":
			cfg.Forward.NumberRegion = flags.Forward.NumberRegion
		case "strip-prefix":
			cfg.Forward.StripPrefix = flags.Forward.StripPrefix
		case "callerid":
			cfg.Forward.CallerID = flags.Forward.CallerID
		case "follow-diversion":
			cfg.Forward.FollowDiversion = flags.Forward.FollowDiversion
		case "metrics":
			cfg.MetricsEnabled = flags.MetricsEnabled
		}
	})

	// Override with environment variables if set
	if v, ok := lookupEnv("LOGLEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookupEnv("NODE_ID"); ok && v != "" {
		cfg.NodeID = v
	}
	if v, ok := lookupEnv("FORWARD_MODE"); ok && v != "" {
		cfg.Forward.Mode = v
	}
	if v, ok := lookupEnv("FORWARD_VIDEO"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FORWARD_VIDEO %q: %w", v, err)
		}
		cfg.Forward.Video = b
	}
	if v, ok := lookupEnv("NUMBER_REGION"); ok {
		cfg.Forward.NumberRegion = v
	}
	if v, ok := lookupEnv("STRIP_PREFIX"); ok {
		cfg.Forward.StripPrefix = v
	}
	if v, ok := lookupEnv("CALLERID"); ok && v != "" {
		cfg.Forward.CallerID = v
	}
	if v, ok := lookupEnv("FOLLOW_DIVERSION"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FOLLOW_DIVERSION %q: %w", v, err)
		}
		cfg.Forward.FollowDiversion = b
	}
	if v, ok := lookupEnv("METRICS_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		cfg.MetricsEnabled = b
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML configuration file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.ConfigPath = path
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := b2bua.ParseForwardKind(c.Forward.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Forward.NumberRegion != "" && len(strings.TrimSpace(c.Forward.NumberRegion)) != 2 {
		errs = append(errs, fmt.Errorf("number region %q is not a two-letter region code", c.Forward.NumberRegion))
	}
	return errors.Join(errs...)
}

// ForwardKind returns the parsed forward mode.
func (c *Config) ForwardKind() b2bua.ForwardKind {
	k, _ := b2bua.ParseForwardKind(c.Forward.Mode)
	return k
}
