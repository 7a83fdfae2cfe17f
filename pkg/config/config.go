// Package config defines the engine's configuration surface and loads
// it from TOML, mirroring the "-cfg ./mo.toml" flag pattern.
package config

import (
	"fmt"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/qeval/pkg/qerr"
)

// Config holds the engine's execution tunables plus the logging knobs
// needed to wire pkg/logutil's rotating sink.
type Config struct {
	// WorkerCount is the fixed worker count chosen at startup.
	WorkerCount int `toml:"worker_count"`
	// SmallInputThresholdK: below WorkerCount*K rows, operators run
	// single-threaded rather than paying fork/join overhead.
	SmallInputThresholdK int `toml:"small_input_threshold_k"`
	// HashReserveFactor is the Join build-side hash table's initial
	// capacity multiplier; must be >= 2.
	HashReserveFactor int `toml:"hash_reserve_factor"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

// numCPU is overridden in tests via gostub to make Default deterministic.
var numCPU = runtime.NumCPU

// Default returns worker_count equal to the hardware thread count, K=1,
// reserve factor 2.
func Default() Config {
	return Config{
		WorkerCount:          numCPU(),
		SmallInputThresholdK: 1,
		HashReserveFactor:    2,
		LogLevel:             "info",
	}
}

// Load reads a TOML configuration file on top of Default(), so any field
// absent from the file keeps its default value, then validates the
// result. An empty path returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the constraints on the tunables.
func (c Config) Validate() error {
	if c.WorkerCount <= 0 {
		return qerr.PlanConstruction("config", "validate", "worker_count must be positive")
	}
	if c.SmallInputThresholdK <= 0 {
		return qerr.PlanConstruction("config", "validate", "small_input_threshold_k must be positive")
	}
	if c.HashReserveFactor < 2 {
		return qerr.PlanConstruction("config", "validate", "hash_reserve_factor must be >= 2")
	}
	return nil
}
