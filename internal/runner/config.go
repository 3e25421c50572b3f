// Package runner implements the generate, test and evaluate loop over the
// idea graph.
package runner

import "time"

// Config defines the runner limits.
type Config struct {
	// MaxAttempts is the retry ceiling; a transient failure on this attempt
	// retires the idea and spawns its alternate path.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
	// MaxTestsPerRun bounds how many ideas one invocation tests. Zero means no bound.
	MaxTestsPerRun int `mapstructure:"max_tests_per_run" yaml:"max_tests_per_run"`
	// MaxNewPerRun bounds how many generated candidates become ideas per
	// invocation. Zero takes the default; a negative value turns generation off.
	MaxNewPerRun int `mapstructure:"max_new_per_run" yaml:"max_new_per_run"`
	// TestTimeout bounds a single idea test.
	TestTimeout time.Duration `mapstructure:"test_timeout" yaml:"test_timeout"`
}

// DefaultConfig returns the default runner configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:    3,
		MaxTestsPerRun: 10,
		MaxNewPerRun:   10,
		TestTimeout:    10 * time.Second,
	}
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = d.MaxAttempts
	}
	if out.MaxNewPerRun == 0 {
		out.MaxNewPerRun = d.MaxNewPerRun
	}
	if out.TestTimeout <= 0 {
		out.TestTimeout = d.TestTimeout
	}
	return &out
}
