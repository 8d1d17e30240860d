package config

import "sort"

// Presets holds named configurations per problem.
var Presets = map[string]map[string]*Config{
	"broyden": {
		"a": preset("broyden", func(c *Config) {
			c.Params = map[string]float64{"lambda": 0.9999}
			c.Solver.Delta.DeltaInit = 1
		}),
		"b": preset("broyden", func(c *Config) {
			c.Params = map[string]float64{"lambda": 0.99999999}
			c.Solver.Delta.DeltaInit = 100
		}),
		"textbook": preset("broyden", func(c *Config) {
			c.Params = map[string]float64{"lambda": 0}
			c.X0 = []float64{-1, -1, -1, -1, -1, -1, -1, -1}
		}),
		"sweep": preset("broyden", func(c *Config) {
			c.Params = map[string]float64{"lambda": 0.99}
			c.Batch = BatchConfig{Instances: 1000, Backend: "parallel", Jitter: 0.1, Seed: 1}
		}),
	},
	"rosenbrock": {
		"standard": preset("rosenbrock", func(c *Config) {
			c.X0 = []float64{-1.2, 1}
		}),
		"steep": preset("rosenbrock", func(c *Config) {
			c.Params = map[string]float64{"a": 1000}
			c.X0 = []float64{-1.2, 1}
		}),
	},
	"powell": {
		"standard": preset("powell", func(c *Config) {
			c.X0 = []float64{3, -1, 0, 1}
			c.Solver.MaxIterations = 500
		}),
	},
	"viscoplastic": {
		"soft": preset("viscoplastic", func(c *Config) {
			c.Params = map[string]float64{"hardening": 0.1, "exponent": 5}
		}),
		"large-step": preset("viscoplastic", func(c *Config) {
			c.Params = map[string]float64{"strain": 2, "dt": 10}
			c.Solver.ShrinkOnEvalFailure = true
		}),
	},
}

func preset(problem string, modify func(*Config)) *Config {
	c := DefaultConfig()
	c.Problem = problem
	modify(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(problem, name string) *Config {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	cfg, ok := problemPresets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(problem string) []string {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(problemPresets))
	for name := range problemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
