package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the tunable parameters of a knngraph index.
type Config struct {
	// K is the number of neighbors reported per item.
	K int
	// Delta is the convergence threshold on the per-epoch improvement
	// ratio; refinement stops once the running-minimum ratio drops below
	// Delta (or an epoch improves nothing at all).
	Delta float64
	// DefaultErrorRatioSampleSize is the sample size ErrorRatio uses when
	// the caller doesn't pass one explicitly.
	DefaultErrorRatioSampleSize int
	// UseCurrentEpochRatio switches the convergence predicate from the
	// running-minimum ratio (the spec's observed source behavior) to the
	// current epoch's ratio alone. Off by default.
	UseCurrentEpochRatio bool
	// LogLevel names a log level (e.g. "INFO"). It is loaded from
	// KNNGRAPH_LOG_LEVEL but knngraph.New does not read it: the index's
	// logger keeps the level it was constructed with.
	LogLevel string
}

// Default returns the recommended default configuration: k=10, delta=0.05.
func Default() *Config {
	return &Config{
		K:                           10,
		Delta:                       0.05,
		DefaultErrorRatioSampleSize: 50,
		UseCurrentEpochRatio:        false,
		LogLevel:                    "INFO",
	}
}

// LoadFromEnv returns Default() overridden by any KNNGRAPH_* environment
// variables that are set.
func LoadFromEnv() *Config {
	cfg := Default()

	if k := os.Getenv("KNNGRAPH_K"); k != "" {
		if kVal, err := strconv.Atoi(k); err == nil {
			cfg.K = kVal
		}
	}
	if delta := os.Getenv("KNNGRAPH_DELTA"); delta != "" {
		if d, err := strconv.ParseFloat(delta, 64); err == nil {
			cfg.Delta = d
		}
	}
	if sample := os.Getenv("KNNGRAPH_ERROR_RATIO_SAMPLE_SIZE"); sample != "" {
		if s, err := strconv.Atoi(sample); err == nil {
			cfg.DefaultErrorRatioSampleSize = s
		}
	}
	if useCurrent := os.Getenv("KNNGRAPH_USE_CURRENT_EPOCH_RATIO"); useCurrent == "true" {
		cfg.UseCurrentEpochRatio = true
	}
	if level := os.Getenv("KNNGRAPH_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.K < 1 {
		return fmt.Errorf("invalid k: %d (must be >= 1)", c.K)
	}
	if c.Delta <= 0 || c.Delta > 1 {
		return fmt.Errorf("invalid delta: %v (must be in (0, 1])", c.Delta)
	}
	if c.DefaultErrorRatioSampleSize < 1 {
		return fmt.Errorf("invalid default error-ratio sample size: %d (must be > 0)", c.DefaultErrorRatioSampleSize)
	}
	return nil
}

// WorkingCapacity returns a = 2*k, the working-heap capacity used during
// compile. Not independently configurable, per spec.
func (c *Config) WorkingCapacity() int {
	return 2 * c.K
}
