// Package config holds the engine's configuration data model and the
// per-detector params decoding. Params arrive as a loosely-typed
// map[string]interface{} (as they would from a decoded JSON/YAML
// document) and are decoded into typed structs with mapstructure, the
// same "map -> typed config struct" approach the pack's phenix config
// loader uses.
package config

import (
	"encoding/json"
	"os"

	"github.com/mitchellh/mapstructure"

	"github.com/Delta-Sec/Z-Shark/internal/zerrors"
)

// EngineID enumerates the five detector identifiers the spec names.
type EngineID string

const (
	EngineDDoSVolume  EngineID = "ddos_volume"
	EnginePortScan    EngineID = "port_scan"
	EngineARPSpoof    EngineID = "arp_spoof"
	EngineDNSAnomaly  EngineID = "dns_anomaly"
	EngineBeaconing   EngineID = "beaconing"
)

// KnownEngines is the set of valid engine_id values.
var KnownEngines = map[EngineID]bool{
	EngineDDoSVolume: true,
	EnginePortScan:   true,
	EngineARPSpoof:   true,
	EngineDNSAnomaly: true,
	EngineBeaconing:  true,
}

// ModelConfig is the per-detector configuration block.
type ModelConfig struct {
	Enabled     bool                   `json:"enabled" mapstructure:"enabled"`
	Threshold   float64                `json:"threshold" mapstructure:"threshold"`
	WindowSizeS float64                `json:"window_size_s" mapstructure:"window_size_s"`
	Weight      float64                `json:"weight" mapstructure:"weight"`
	Params      map[string]interface{} `json:"params" mapstructure:"params"`
}

// Config is the engine-wide configuration document.
type Config struct {
	AnalysisProfile string                    `json:"analysis_profile"`
	OutputDir       string                    `json:"output_dir"`
	ParallelWorkers int                       `json:"parallel_workers"`
	Models          map[EngineID]ModelConfig  `json:"models"`
}

// Default returns the engine's built-in default configuration: all five
// detectors enabled with their spec-documented defaults.
func Default() *Config {
	return &Config{
		AnalysisProfile: "default",
		OutputDir:       "results",
		ParallelWorkers: 1,
		Models: map[EngineID]ModelConfig{
			EngineDDoSVolume: {Enabled: true, Threshold: 5.0, WindowSizeS: 10, Weight: 1.0, Params: map[string]interface{}{}},
			EnginePortScan:   {Enabled: true, Threshold: 0.8, WindowSizeS: 10, Weight: 1.0, Params: map[string]interface{}{}},
			EngineARPSpoof:   {Enabled: true, Threshold: 1.0, WindowSizeS: 10, Weight: 1.0, Params: map[string]interface{}{}},
			EngineDNSAnomaly: {Enabled: true, Threshold: 3.8, WindowSizeS: 10, Weight: 1.0, Params: map[string]interface{}{}},
			EngineBeaconing:  {Enabled: true, Threshold: 0.5, WindowSizeS: 10, Weight: 1.0, Params: map[string]interface{}{}},
		},
	}
}

// WindowSizeS returns the window size configured under ddos_volume, the
// historic anchor the spec designates as authoritative for the window
// processor regardless of what other detectors set under their own
// window_size_s.
func (c *Config) WindowSizeS() float64 {
	if m, ok := c.Models[EngineDDoSVolume]; ok && m.WindowSizeS > 0 {
		return m.WindowSizeS
	}
	return Default().Models[EngineDDoSVolume].WindowSizeS
}

// Validate checks every configured engine_id is known and every enabled
// model's window_size_s is positive, returning a ConfigError otherwise.
func (c *Config) Validate() error {
	for id, m := range c.Models {
		if !KnownEngines[id] {
			return zerrors.NewConfigError(string(id), "unknown engine id")
		}
		if m.Enabled && m.WindowSizeS <= 0 {
			return zerrors.NewConfigError(string(id), "window_size_s must be positive")
		}
	}
	return nil
}

// Load reads and decodes a JSON configuration document from path,
// starting from the built-in defaults so an omitted field keeps its
// default rather than zeroing out.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerrors.NewConfigError("", err.Error())
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, zerrors.NewConfigError("", err.Error())
	}

	// encoding/json replaces a map entry wholesale, so decode each model
	// block again over its own default to keep the fields it omits.
	var raw struct {
		Models map[EngineID]json.RawMessage `json:"models"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, zerrors.NewConfigError("", err.Error())
	}
	for id, block := range raw.Models {
		m := Default().Models[id]
		if err := json.Unmarshal(block, &m); err != nil {
			return nil, zerrors.NewConfigError(string(id), err.Error())
		}
		cfg.Models[id] = m
	}

	return cfg, nil
}

// DecodeParams decodes a detector's loosely-typed Params map into dst,
// a pointer to a typed params struct, returning a ConfigError wrapping
// the mapstructure decode failure on mismatch.
func DecodeParams(engineID EngineID, params map[string]interface{}, dst interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return zerrors.NewConfigError(string(engineID), err.Error())
	}

	if err := dec.Decode(params); err != nil {
		return zerrors.NewConfigError(string(engineID), err.Error())
	}

	return nil
}
