// Package config loads simulation settings from task files, environment
// variables, and .env files.
package config

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/model"
	"github.com/sarchlab/rtsim/policy"
)

// ErrInvalid is wrapped by every validation error of a Config.
var ErrInvalid = errors.New("invalid configuration")

// Defaults used when neither a flag, a file, nor the environment sets a
// value.
const (
	DefaultHorizon     = 100
	DefaultPolicy      = "edf"
	DefaultMissPolicy  = "drop"
	DefaultTieBreak    = "name"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultMonitorPort = 0
)

// Config holds everything needed to run a simulation.
type Config struct {
	Horizon     int
	Policy      string
	Preemptive  bool
	MissPolicy  string
	TieBreak    string
	EventDriven bool
	Tasks       []model.Task
	LogLevel    string
	LogFormat   string
	MonitorPort int
}

// Default returns the built-in configuration. It has no tasks.
func Default() Config {
	return Config{
		Horizon:     DefaultHorizon,
		Policy:      DefaultPolicy,
		Preemptive:  true,
		MissPolicy:  DefaultMissPolicy,
		TieBreak:    DefaultTieBreak,
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
		MonitorPort: DefaultMonitorPort,
	}
}

// Validate checks the configuration without running anything.
func (c Config) Validate() error {
	if len(c.Tasks) == 0 {
		return fmt.Errorf("%w: no tasks", ErrInvalid)
	}

	if err := model.ValidateTaskSet(c.Tasks); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if c.Horizon < 1 {
		return fmt.Errorf("%w: horizon %d is less than 1", ErrInvalid, c.Horizon)
	}

	if _, err := policy.ByName(c.Policy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if _, err := engine.ParseMissPolicy(c.MissPolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if _, err := policy.ParseTieBreak(c.TieBreak); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if c.MonitorPort < 0 || c.MonitorPort > 65535 {
		return fmt.Errorf("%w: monitor port %d", ErrInvalid, c.MonitorPort)
	}

	return nil
}

// PolicyImpl creates the scheduling policy the configuration names.
func (c Config) PolicyImpl() (policy.Policy, error) {
	tieBreak, err := policy.ParseTieBreak(c.TieBreak)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	p, err := policy.ByName(c.Policy, policy.WithTieBreak(tieBreak))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return p, nil
}

// Builder validates the configuration and returns an engine builder set up
// with it.
func (c Config) Builder() (engine.Builder, error) {
	if err := c.Validate(); err != nil {
		return engine.Builder{}, err
	}

	p, err := c.PolicyImpl()
	if err != nil {
		return engine.Builder{}, err
	}

	missPolicy, err := engine.ParseMissPolicy(c.MissPolicy)
	if err != nil {
		return engine.Builder{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return engine.MakeBuilder().
		WithTasks(c.Tasks).
		WithHorizon(c.Horizon).
		WithPolicy(p).
		WithPreemption(c.Preemptive).
		WithMissPolicy(missPolicy).
		WithEventDriven(c.EventDriven), nil
}
