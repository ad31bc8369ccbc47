package rig

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables of a Hierarchy. The zero value is not useful;
// start from DefaultConfig.
type Config struct {
	// Debug makes integrity errors panic and checks the dirty invariant
	// after every mutation.
	Debug bool `json:"debug" yaml:"debug"`

	// ScaleBlend selects how the scales of several parents are combined.
	ScaleBlend ScaleBlendMode `json:"scale_blend" yaml:"scale_blend"`

	// WeightEpsilon is the weight under which a parent channel is ignored.
	WeightEpsilon float64 `json:"weight_epsilon" yaml:"weight_epsilon"`

	// NormalizeRotations renormalizes rotations produced by composition.
	NormalizeRotations bool `json:"normalize_rotations" yaml:"normalize_rotations"`
}

// DefaultConfig returns the configuration NewHierarchy uses.
func DefaultConfig() Config {
	return Config{
		ScaleBlend:         ScaleBlendLinear,
		WeightEpsilon:      smallNumber,
		NormalizeRotations: true,
	}
}

// ParseConfig decodes a YAML (or JSON) document over DefaultConfig, so
// omitted fields keep their defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.WeightEpsilon <= 0 {
		return Config{}, fmt.Errorf("parse config: weight_epsilon must be positive, got %g", cfg.WeightEpsilon)
	}
	return cfg, nil
}

var scaleBlendNames = [...]string{
	ScaleBlendLinear: "linear",
	ScaleBlendLog:    "log",
}

func (m ScaleBlendMode) String() string {
	if m == ScaleBlendLog {
		return "log"
	}
	return "linear"
}

// MarshalText implements encoding.TextMarshaler.
func (m ScaleBlendMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ScaleBlendMode) UnmarshalText(b []byte) error {
	i, err := lookupName(scaleBlendNames[:], string(b))
	if err != nil {
		return fmt.Errorf("scale blend: %w", err)
	}
	*m = ScaleBlendMode(i)
	return nil
}
