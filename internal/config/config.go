// Package config provides the lgtvd deployment configuration.
//
// Values come from compiled-in defaults, then an optional YAML file, then
// environment variables. There are no command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-lgtv/pkg/credential"
)

// Deployment defaults.
const (
	DefaultHardwareID  = "3C:F0:83:9E:6A:2C"
	DefaultAudioDevice = "LG Monitor"
	DefaultGateBinary  = "get_audio_device"
	DefaultPipePath    = "/tmp/lgtv-pipe"
	DefaultConfigFile  = ".config/lgtvd.yaml"
	DefaultPort        = 3000
	DefaultQueueSize   = 32
)

// Gate modes.
const (
	GateAuto = "auto" // ask the helper binary
	GateOn   = "on"   // always forward audio commands
	GateOff  = "off"  // never forward audio commands
)

var (
	ErrNoHardwareID = errors.New("config: hardware id required")
	ErrNoPipePath   = errors.New("config: pipe path required")
)

// Config holds every tunable of the daemon.
type Config struct {
	HardwareID  string `yaml:"hardware_id"`
	AudioDevice string `yaml:"audio_device"`
	GateBinary  string `yaml:"gate_binary"`
	GateMode    string `yaml:"gate_mode"`
	PipePath    string `yaml:"pipe_path"`
	KeyPath     string `yaml:"key_path"`
	Port        int    `yaml:"port"`

	RetryInterval  time.Duration `yaml:"retry_interval"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	IntakeRetry    time.Duration `yaml:"intake_retry"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PairTimeout    time.Duration `yaml:"pair_timeout"`
	QueueSize      int           `yaml:"queue_size"`

	// HTTPAddr enables the local status/command API when non-empty.
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration for the reference deployment.
func Default() *Config {
	return &Config{
		HardwareID:     DefaultHardwareID,
		AudioDevice:    DefaultAudioDevice,
		GateBinary:     DefaultGateBinary,
		GateMode:       GateAuto,
		PipePath:       DefaultPipePath,
		KeyPath:        defaultKeyPath(),
		Port:           DefaultPort,
		RetryInterval:  5 * time.Second,
		IdleTimeout:    time.Hour,
		IntakeRetry:    time.Second,
		RequestTimeout: 5 * time.Second,
		PairTimeout:    60 * time.Second,
		QueueSize:      DefaultQueueSize,
		LogLevel:       "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// ~/.config/lgtvd.yaml when path is empty), then environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = homePath(DefaultConfigFile)
	}
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	cfg.mergeEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() {
	setString(&c.HardwareID, "LGTV_MAC")
	setString(&c.AudioDevice, "LGTV_AUDIO_DEVICE")
	setString(&c.GateMode, "LGTV_GATE")
	setString(&c.PipePath, "LGTV_PIPE")
	setString(&c.KeyPath, "LGTV_KEY_PATH")
	setString(&c.HTTPAddr, "LGTV_HTTP_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")
	if p := os.Getenv("LGTV_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			c.Port = n
		}
	}
}

// Validate checks that required configuration is present and sane.
func (c *Config) Validate() error {
	if c.HardwareID == "" {
		return ErrNoHardwareID
	}
	if c.PipePath == "" {
		return ErrNoPipePath
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("config: queue size must be positive, got %d", c.QueueSize)
	}
	for name, d := range map[string]time.Duration{
		"retry_interval":  c.RetryInterval,
		"idle_timeout":    c.IdleTimeout,
		"intake_retry":    c.IntakeRetry,
		"request_timeout": c.RequestTimeout,
		"pair_timeout":    c.PairTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", name, d)
		}
	}
	switch c.GateMode {
	case GateAuto, GateOn, GateOff:
	default:
		return fmt.Errorf("config: unknown gate mode %q", c.GateMode)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// defaultKeyPath is ~/.lgtv_key, or the bare file name without a home.
func defaultKeyPath() string {
	p, err := credential.DefaultPath()
	if err != nil {
		return credential.DefaultFile
	}
	return p
}

// homePath joins rel onto the user's home directory. Falls back to rel
// when the home directory cannot be determined.
func homePath(rel string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return rel
	}
	return filepath.Join(home, rel)
}
