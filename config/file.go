package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/rtsim/model"
)

// File is the on-disk form of a simulation setup. Fields left out keep the
// value of the configuration the file is applied on.
type File struct {
	Horizon    *int       `json:"horizon,omitempty" yaml:"horizon,omitempty"`
	Policy     string     `json:"policy,omitempty" yaml:"policy,omitempty"`
	Preemptive *bool      `json:"preemptive,omitempty" yaml:"preemptive,omitempty"`
	MissPolicy string     `json:"miss_policy,omitempty" yaml:"miss_policy,omitempty"`
	TieBreak   string     `json:"tie_break,omitempty" yaml:"tie_break,omitempty"`
	Tasks      []TaskSpec `json:"tasks" yaml:"tasks"`
}

// TaskSpec describes one task in a file. A missing deadline is equal to the
// period.
type TaskSpec struct {
	Name     string `json:"name" yaml:"name"`
	WCET     int    `json:"wcet" yaml:"wcet"`
	Period   int    `json:"period" yaml:"period"`
	Deadline *int   `json:"deadline,omitempty" yaml:"deadline,omitempty"`
}

// Task converts the spec into a task.
func (s TaskSpec) Task() model.Task {
	t := model.Task{
		Name:     s.Name,
		WCET:     s.WCET,
		Period:   s.Period,
		Deadline: s.Period,
	}

	if s.Deadline != nil {
		t.Deadline = *s.Deadline
	}

	return t
}

// Format is the encoding of a task file.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf guesses the format from the file extension. Anything that is not
// .json is read as YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}

	return FormatYAML
}

// Decode reads a task file. Unknown fields are rejected.
func Decode(r io.Reader, format Format) (File, error) {
	var f File

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()

		if err := dec.Decode(&f); err != nil {
			return File{}, fmt.Errorf("parsing JSON task file: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)

		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return File{}, fmt.Errorf("parsing YAML task file: %w", err)
		}
	default:
		return File{}, fmt.Errorf("unknown task file format %q", format)
	}

	return f, nil
}

// Apply overlays the values set in the file on the configuration.
func (f File) Apply(c Config) Config {
	if f.Horizon != nil {
		c.Horizon = *f.Horizon
	}

	if f.Policy != "" {
		c.Policy = f.Policy
	}

	if f.Preemptive != nil {
		c.Preemptive = *f.Preemptive
	}

	if f.MissPolicy != "" {
		c.MissPolicy = f.MissPolicy
	}

	if f.TieBreak != "" {
		c.TieBreak = f.TieBreak
	}

	if f.Tasks != nil {
		c.Tasks = make([]model.Task, 0, len(f.Tasks))
		for _, s := range f.Tasks {
			c.Tasks = append(c.Tasks, s.Task())
		}
	}

	return c
}

// Load reads the task file at path and applies it on base. The result is
// not validated.
func Load(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading task file: %w", err)
	}

	f, err := Decode(bytes.NewReader(data), FormatOf(path))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return f.Apply(base), nil
}

// FileOf converts a configuration back into its file form.
func FileOf(c Config) File {
	horizon := c.Horizon
	preemptive := c.Preemptive

	f := File{
		Horizon:    &horizon,
		Policy:     c.Policy,
		Preemptive: &preemptive,
		MissPolicy: c.MissPolicy,
		TieBreak:   c.TieBreak,
		Tasks:      make([]TaskSpec, 0, len(c.Tasks)),
	}

	for _, t := range c.Tasks {
		deadline := t.Deadline
		f.Tasks = append(f.Tasks, TaskSpec{
			Name:     t.Name,
			WCET:     t.WCET,
			Period:   t.Period,
			Deadline: &deadline,
		})
	}

	return f
}
