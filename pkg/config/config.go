// Package config holds the run configuration for the bench CLI, loadable
// from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes a bench session: which buffer strategies to run, over
// which capacity/item-count matrix, and where results go.
type Config struct {
	Capacities []int    `yaml:"capacities"`
	ItemCounts []int    `yaml:"item_counts"`
	Iterations int      `yaml:"iterations"`
	Variants   []string `yaml:"variants"`
	ResultsDir string   `yaml:"results_dir"`
	JSONFile   string   `yaml:"json_file"`
}

// Default mirrors the classic demonstration scenarios: moderate capacity
// against a larger volume, maximal contention, and an oversized buffer.
func Default() Config {
	return Config{
		Capacities: []int{1, 5, 100},
		ItemCounts: []int{10, 20, 50},
		Iterations: 1,
		Variants:   nil, // nil means all
		ResultsDir: "results",
		JSONFile:   "test-results.json",
	}
}

// Load reads and validates a YAML configuration file. Fields left unset fall
// back to their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the engine would refuse at construction or run
// time, so a bad config fails before any run starts.
func (c Config) Validate() error {
	for _, capacity := range c.Capacities {
		if capacity <= 0 {
			return fmt.Errorf("config: capacity must be greater than 0, got %d", capacity)
		}
	}
	for _, n := range c.ItemCounts {
		if n < 0 {
			return fmt.Errorf("config: item count must be non-negative, got %d", n)
		}
	}
	if c.Iterations < 1 {
		return fmt.Errorf("config: iterations must be at least 1, got %d", c.Iterations)
	}
	return nil
}
