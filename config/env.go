package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by FromEnv.
const (
	EnvHorizon     = "RTSIM_HORIZON"
	EnvPolicy      = "RTSIM_POLICY"
	EnvLogLevel    = "RTSIM_LOG_LEVEL"
	EnvLogFormat   = "RTSIM_LOG_FORMAT"
	EnvMonitorPort = "RTSIM_MONITOR_PORT"
)

// LoadEnv loads .env files into the process environment. Variables that are
// already set are kept. Without paths, ./.env is loaded if it exists.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
	}

	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("loading env file: %w", err)
	}

	return nil
}

// FromEnv returns the default configuration with the RTSIM_ variables
// applied.
func FromEnv() (Config, error) {
	return ApplyEnv(Default(), os.LookupEnv)
}

// ApplyEnv overlays the variables returned by lookup on c.
func ApplyEnv(
	c Config,
	lookup func(string) (string, bool),
) (Config, error) {
	if v, ok := lookup(EnvHorizon); ok && v != "" {
		h, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q", ErrInvalid, EnvHorizon, v)
		}

		c.Horizon = h
	}

	if v, ok := lookup(EnvPolicy); ok && v != "" {
		c.Policy = v
	}

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}

	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.LogFormat = v
	}

	if v, ok := lookup(EnvMonitorPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q", ErrInvalid, EnvMonitorPort, v)
		}

		c.MonitorPort = port
	}

	return c, nil
}
