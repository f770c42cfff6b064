package processor

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidConfig is returned for out-of-range effect parameters
var ErrInvalidConfig = errors.New("invalid effect configuration")

// EffectConfig holds every parameter of one processing run.
// It is a value type; build it once and pass copies.
type EffectConfig struct {
	Speed         float64 // playback speed ratio, 0.97 = 3% slower and lower
	CutoffHz      float64 // low-pass cutoff
	DriveDB       float64 // saturation drive, 0 disables
	ModRateHz     float64 // chorus LFO rate, 0 disables
	ModDepth      float64 // chorus depth 0..1, 0 disables
	CrackleAmount float64 // peak amplitude of each burst, 0 disables
	CrackleRate   float64 // bursts per second of audio, 0 disables
	HumLevel      float64 // mains hum amplitude, 0 disables
	HumFreqHz     float64 // hum fundamental, 0 uses the local mains frequency
}

// Preset is a named EffectConfig shipped with needledrop
type Preset struct {
	Name   string
	Label  string
	Config EffectConfig
}

// Presets lists the built-in presets in menu order
var Presets = []Preset{
	{
		Name:  "piano",
		Label: "Piano/Modern",
		Config: EffectConfig{
			Speed: 0.98, CutoffHz: 14000, DriveDB: 4,
			ModRateHz: 0.6, ModDepth: 0.015,
		},
	},
	{
		Name:  "hardbop",
		Label: "Hardbop/Brass",
		Config: EffectConfig{
			Speed: 0.97, CutoffHz: 12000, DriveDB: 6,
			ModRateHz: 0.7, ModDepth: 0.02,
			CrackleAmount: 0.0012, CrackleRate: 0.8,
		},
	},
	{
		Name:  "vocal-jazz",
		Label: "Vocal Jazz",
		Config: EffectConfig{
			Speed: 0.99, CutoffHz: 11000, DriveDB: 6,
			CrackleAmount: 0.0018, CrackleRate: 1.2,
		},
	},
	{
		Name:  "fusion",
		Label: "Fusion/Electric",
		Config: EffectConfig{
			Speed: 0.96, CutoffHz: 10000, DriveDB: 9,
			ModRateHz: 0.9, ModDepth: 0.03,
		},
	},
	{
		// Neutral starting point for fully manual settings
		Name:   "custom",
		Label:  "Custom",
		Config: EffectConfig{Speed: 1.0, CutoffHz: 20000},
	},
}

// DefaultPreset is used when no preset is named
const DefaultPreset = "piano"

// PresetByName returns the preset config for name (case-insensitive)
func PresetByName(name string) (EffectConfig, error) {
	for _, p := range Presets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p.Config, nil
		}
	}
	return EffectConfig{}, fmt.Errorf("%w: unknown preset %q (want one of %s)",
		ErrInvalidConfig, name, strings.Join(PresetNames(), ", "))
}

// PresetNames returns preset names in menu order
func PresetNames() []string {
	names := make([]string, len(Presets))
	for i, p := range Presets {
		names[i] = p.Name
	}
	return names
}

// Overrides replaces individual preset fields; nil fields keep the preset value
type Overrides struct {
	Speed         *float64
	CutoffHz      *float64
	DriveDB       *float64
	ModRateHz     *float64
	ModDepth      *float64
	CrackleAmount *float64
	CrackleRate   *float64
	HumLevel      *float64
	HumFreqHz     *float64
}

// Apply returns cfg with every non-nil override applied
func (o Overrides) Apply(cfg EffectConfig) EffectConfig {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&cfg.Speed, o.Speed)
	set(&cfg.CutoffHz, o.CutoffHz)
	set(&cfg.DriveDB, o.DriveDB)
	set(&cfg.ModRateHz, o.ModRateHz)
	set(&cfg.ModDepth, o.ModDepth)
	set(&cfg.CrackleAmount, o.CrackleAmount)
	set(&cfg.CrackleRate, o.CrackleRate)
	set(&cfg.HumLevel, o.HumLevel)
	set(&cfg.HumFreqHz, o.HumFreqHz)
	return cfg
}

// Validate checks every field is finite and in range
func (cfg EffectConfig) Validate() error {
	fields := []struct {
		name     string
		value    float64
		min, max float64
		minOpen  bool
	}{
		{"speed", cfg.Speed, 0, 2, true},
		{"cutoff", cfg.CutoffHz, 0, math.Inf(1), true},
		{"drive", cfg.DriveDB, 0, 60, false},
		{"modulation rate", cfg.ModRateHz, 0, 20, false},
		{"modulation depth", cfg.ModDepth, 0, 1, false},
		{"crackle amount", cfg.CrackleAmount, 0, 1, false},
		{"crackle rate", cfg.CrackleRate, 0, 1000, false},
		{"hum level", cfg.HumLevel, 0, 1, false},
		{"hum frequency", cfg.HumFreqHz, 0, 1000, false},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidConfig, f.name)
		}
		if f.value < f.min || (f.minOpen && f.value == f.min) || f.value > f.max {
			bracket := "["
			if f.minOpen {
				bracket = "("
			}
			return fmt.Errorf("%w: %s %g outside %s%g, %g]", ErrInvalidConfig, f.name, f.value, bracket, f.min, f.max)
		}
	}
	return nil
}
