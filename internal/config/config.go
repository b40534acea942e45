// Package config loads the broker's YAML configuration document (spec
// §6) and fills in its defaults, using the same field-tagged struct
// style as pkg/common.Config but actually parsing and validating the
// document instead of stubbing the load out.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cyw0ng95/recodex-broker/internal/brokerrors"
)

// SocketConfig describes a bind or connect target for one of the named
// sockets.
type SocketConfig struct {
	Address string `yaml:"address"`
	Port    uint16 `yaml:"port"`
}

// LoggingConfig controls the process-wide zerolog sink and its
// lumberjack-backed rotation.
type LoggingConfig struct {
	// File is the log file path; empty means stderr only.
	File string `yaml:"file"`
	// Level is one of zerolog's level names (debug, info, warn, error).
	Level string `yaml:"level"`
	// MaxSizeMB is the size in megabytes a log file grows to before
	// rotation.
	MaxSizeMB int `yaml:"max-size"`
	// Rotations is the number of rotated files to retain.
	Rotations int `yaml:"rotations"`
}

// NotifierConfig locates the frontend's HTTP status endpoint.
type NotifierConfig struct {
	Address  string `yaml:"address"`
	Port     uint16 `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config is the fully defaulted configuration document (spec §6).
type Config struct {
	Clients SocketConfig `yaml:"clients"`
	Workers SocketConfig `yaml:"workers"`
	Monitor SocketConfig `yaml:"monitor"`

	MaxWorkerLiveness    uint `yaml:"max_worker_liveness"`
	WorkerPingIntervalMs uint `yaml:"worker_ping_interval_ms"`

	Logger   LoggingConfig  `yaml:"logger"`
	Notifier NotifierConfig `yaml:"notifier"`
}

// DefaultConfigFile is the path used when --config/-c is not given.
const DefaultConfigFile = "config.yml"

// defaults applies spec §6's default column to zero-valued fields.
func defaults() Config {
	return Config{
		Clients:              SocketConfig{Address: "*"},
		Workers:              SocketConfig{Address: "*"},
		Monitor:              SocketConfig{Address: "127.0.0.1", Port: 7894},
		MaxWorkerLiveness:    4,
		WorkerPingIntervalMs: 1000,
	}
}

// Load reads and validates path, returning a fully defaulted Config or a
// wrapped brokerrors.ErrConfigInvalid / brokerrors.ErrConfigNotFound.
// Other read failures (e.g. permission denied) are returned wrapped
// without either sentinel.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", brokerrors.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", brokerrors.ErrConfigInvalid, path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Clients.Port == 0 {
		return fmt.Errorf("%w: clients.port is required", brokerrors.ErrConfigInvalid)
	}
	if c.Workers.Port == 0 {
		return fmt.Errorf("%w: workers.port is required", brokerrors.ErrConfigInvalid)
	}
	if c.MaxWorkerLiveness == 0 {
		return fmt.Errorf("%w: max_worker_liveness must be positive", brokerrors.ErrConfigInvalid)
	}
	if c.WorkerPingIntervalMs == 0 {
		return fmt.Errorf("%w: worker_ping_interval_ms must be positive", brokerrors.ErrConfigInvalid)
	}
	return nil
}
