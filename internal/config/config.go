package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/dogleg/internal/solver"
)

const (
	DefaultProblem   = "broyden"
	DefaultInstances = 1
	DefaultBackend   = "auto"
)

var ErrInvalid = errors.New("config: invalid")

var validate = validator.New()

type Config struct {
	Problem string             `yaml:"problem" validate:"required"`
	Params  map[string]float64 `yaml:"params,omitempty"`
	X0      []float64          `yaml:"x0,omitempty" validate:"omitempty,max=64"`
	Solver  solver.Config      `yaml:"solver"`
	Batch   BatchConfig        `yaml:"batch"`
}

type BatchConfig struct {
	Instances int     `yaml:"instances" validate:"gte=1"`
	Backend   string  `yaml:"backend" validate:"oneof=auto serial parallel"`
	Workers   int     `yaml:"workers" validate:"gte=0"`
	Jitter    float64 `yaml:"jitter" validate:"gte=0"`
	Seed      int64   `yaml:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		Problem: DefaultProblem,
		Solver:  solver.DefaultConfig(),
		Batch: BatchConfig{
			Instances: DefaultInstances,
			Backend:   DefaultBackend,
		},
	}
}

// Validate checks struct constraints first, then the solver's own
// consistency rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	if c.X0 != nil {
		out.X0 = append([]float64(nil), c.X0...)
	}
	return &out
}

// Load reads a yaml file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
