// Package config loads the YAML configuration consumed by the demo
// commands under cmd/ (simulation defaults, logging, and tracing), in
// the same shape the teacher loads its node configuration: typed
// structs, YAML tags, environment overrides applied after parsing, and a
// single accumulated validation error.
package config

import (
	"fmt"

	"overlaylab/internal/configloader"
	"overlaylab/internal/logger"
)

// TracingConfig controls the optional lookup tracing described in
// internal/telemetry.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Exporter    string `yaml:"exporter"` // currently only "stdout"
	ServiceName string `yaml:"serviceName"`
}

// TelemetryConfig is the top-level telemetry section.
type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// RingDefaults holds the RING overlay's configurable constants (§3).
type RingDefaults struct {
	SuccessorListSize int `yaml:"successorListSize"`
}

// XORDefaults holds the XOR overlay's configurable constants (§3).
type XORDefaults struct {
	K     int `yaml:"k"`
	Alpha int `yaml:"alpha"`
}

// PrefixDefaults holds the PREFIX overlay's configurable constants (§3).
type PrefixDefaults struct {
	BitsPerDigit int `yaml:"bitsPerDigit"`
	LeafSize     int `yaml:"leafSize"`
}

// GeneratorDefaults seeds the deterministic id/key generators (§4.A).
type GeneratorDefaults struct {
	NodeSeed int `yaml:"nodeSeed"`
	KeySeed  int `yaml:"keySeed"`
}

// NetworkDefaults configures the simulation substrate (§4.B).
type NetworkDefaults struct {
	PerHopDelay float64 `yaml:"perHopDelay"`
}

// SimConfig is the root configuration loaded by the demo commands.
type SimConfig struct {
	Logger     configloader.LoggerConfig `yaml:"logger"`
	Telemetry  TelemetryConfig           `yaml:"telemetry"`
	IDBits     int                       `yaml:"idBits"`
	Network    NetworkDefaults           `yaml:"network"`
	Ring       RingDefaults              `yaml:"ring"`
	XOR        XORDefaults               `yaml:"xor"`
	Prefix     PrefixDefaults            `yaml:"prefix"`
	Generators GeneratorDefaults         `yaml:"generators"`
}

// Default returns the configuration used when no file is supplied,
// mirroring the defaults named throughout spec §3/§4.
func Default() SimConfig {
	return SimConfig{
		Logger: configloader.LoggerConfig{
			Active:   true,
			Level:    "info",
			Encoding: "console",
			Mode:     "stdout",
		},
		IDBits: 16,
		Ring:   RingDefaults{SuccessorListSize: 3},
		XOR:    XORDefaults{K: 8, Alpha: 3},
		Prefix: PrefixDefaults{BitsPerDigit: 4, LeafSize: 8},
		Generators: GeneratorDefaults{
			NodeSeed: 42,
			KeySeed:  123,
		},
	}
}

// LoadConfig loads a SimConfig from the YAML file at path, starting from
// Default() so a partially-specified file only overrides what it sets.
func LoadConfig(path string) (*SimConfig, error) {
	cfg := Default()
	if err := configloader.LoadYAML(path, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// ApplyEnvOverrides overrides selected fields from environment variables,
// applied after YAML parsing so the shell always wins.
func (cfg *SimConfig) ApplyEnvOverrides() {
	configloader.OverrideBool(&cfg.Logger.Active, "LOGGER_ACTIVE")
	configloader.OverrideString(&cfg.Logger.Level, "LOGGER_LEVEL")
	configloader.OverrideString(&cfg.Logger.Encoding, "LOGGER_ENCODING")
	configloader.OverrideString(&cfg.Logger.Mode, "LOGGER_MODE")
	configloader.OverrideString(&cfg.Logger.File.Path, "LOGGER_FILE_PATH")

	configloader.OverrideInt(&cfg.IDBits, "SIM_ID_BITS")
	configloader.OverrideFloat(&cfg.Network.PerHopDelay, "SIM_PER_HOP_DELAY")

	configloader.OverrideInt(&cfg.Ring.SuccessorListSize, "RING_SUCCESSOR_LIST_SIZE")
	configloader.OverrideInt(&cfg.XOR.K, "XOR_K")
	configloader.OverrideInt(&cfg.XOR.Alpha, "XOR_ALPHA")
	configloader.OverrideInt(&cfg.Prefix.BitsPerDigit, "PREFIX_BITS_PER_DIGIT")
	configloader.OverrideInt(&cfg.Prefix.LeafSize, "PREFIX_LEAF_SIZE")

	configloader.OverrideInt(&cfg.Generators.NodeSeed, "SIM_NODE_SEED")
	configloader.OverrideInt(&cfg.Generators.KeySeed, "SIM_KEY_SEED")

	configloader.OverrideBool(&cfg.Telemetry.Tracing.Enabled, "TRACE_ENABLED")
	configloader.OverrideString(&cfg.Telemetry.Tracing.Exporter, "TRACE_EXPORTER")
	configloader.OverrideString(&cfg.Telemetry.Tracing.ServiceName, "TRACE_SERVICE_NAME")
}

// Validate performs structural validation of the loaded configuration,
// accumulating every problem into a single error rather than failing on
// the first one, the way the teacher's ValidateConfig does.
func (cfg *SimConfig) Validate() error {
	var errs []string

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.level: %s", cfg.Logger.Level))
	}
	switch cfg.Logger.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.encoding: %s", cfg.Logger.Encoding))
	}
	switch cfg.Logger.Mode {
	case "stdout":
	case "file":
		if cfg.Logger.File.Path == "" {
			errs = append(errs, "logger.file.path is required when mode=file")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.mode: %s", cfg.Logger.Mode))
	}

	if cfg.IDBits <= 0 || cfg.IDBits > 63 {
		errs = append(errs, fmt.Sprintf("idBits must be in [1,63], got %d", cfg.IDBits))
	}
	if cfg.Network.PerHopDelay < 0 {
		errs = append(errs, "network.perHopDelay must be >= 0")
	}
	if cfg.Ring.SuccessorListSize <= 0 {
		errs = append(errs, "ring.successorListSize must be > 0")
	}
	if cfg.XOR.K <= 0 {
		errs = append(errs, "xor.k must be > 0")
	}
	if cfg.XOR.Alpha <= 0 {
		errs = append(errs, "xor.alpha must be > 0")
	}
	if cfg.Prefix.BitsPerDigit <= 0 || cfg.Prefix.BitsPerDigit > cfg.IDBits {
		errs = append(errs, "prefix.bitsPerDigit must be in (0, idBits]")
	}
	if cfg.Prefix.LeafSize <= 0 {
		errs = append(errs, "prefix.leafSize must be > 0")
	}
	if cfg.Telemetry.Tracing.Enabled {
		switch cfg.Telemetry.Tracing.Exporter {
		case "stdout":
		default:
			errs = append(errs, fmt.Sprintf("invalid telemetry.tracing.exporter: %s", cfg.Telemetry.Tracing.Exporter))
		}
	}

	if len(errs) > 0 {
		msg := "configuration errors:"
		for _, e := range errs {
			msg += "\n  - " + e
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

// LogConfig emits the loaded configuration at DEBUG level, useful when
// diagnosing why a run picked unexpected protocol parameters.
func (cfg *SimConfig) LogConfig(lgr logger.Logger) {
	lgr.Debug("loaded configuration",
		logger.F("logger.level", cfg.Logger.Level),
		logger.F("logger.encoding", cfg.Logger.Encoding),
		logger.F("logger.mode", cfg.Logger.Mode),
		logger.F("idBits", cfg.IDBits),
		logger.F("network.perHopDelay", cfg.Network.PerHopDelay),
		logger.F("ring.successorListSize", cfg.Ring.SuccessorListSize),
		logger.F("xor.k", cfg.XOR.K),
		logger.F("xor.alpha", cfg.XOR.Alpha),
		logger.F("prefix.bitsPerDigit", cfg.Prefix.BitsPerDigit),
		logger.F("prefix.leafSize", cfg.Prefix.LeafSize),
		logger.F("generators.nodeSeed", cfg.Generators.NodeSeed),
		logger.F("generators.keySeed", cfg.Generators.KeySeed),
		logger.F("telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled),
	)
}
