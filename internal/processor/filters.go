// Package processor runs the needledrop pipeline: resampling, the effect
// chain, crackle and hum synthesis, encoding and tag propagation.
package processor

import (
	"math"

	"github.com/linuxmatters/needledrop/internal/audio"
	"github.com/linuxmatters/needledrop/internal/dsp"
)

// FilterID identifies a stage in the effect chain
type FilterID string

// Effect chain stages
const (
	FilterModulation FilterID = "modulation" // chorus-style stereo smear (optional)
	FilterSaturation FilterID = "saturation" // tanh soft clipping (optional)
	FilterLowPass    FilterID = "lowpass"    // band-limit to the configured cutoff
	FilterCompressor FilterID = "compressor" // fixed glue compression
	FilterTrim       FilterID = "trim"       // fixed output gain
)

// ChainOrder is the fixed order of the effect chain.
// Modulation and saturation run before band-limiting so the low-pass also
// tames the harmonics the saturator adds; trim comes last for headroom.
var ChainOrder = []FilterID{
	FilterModulation,
	FilterSaturation,
	FilterLowPass,
	FilterCompressor,
	FilterTrim,
}

// Fixed dynamics settings
const (
	CompressorThresholdDB = -18.0
	CompressorRatio       = 2.0
	CompressorAttackMs    = 15.0
	CompressorReleaseMs   = 120.0
	TrimDB                = -1.5
)

// channelFunc processes one channel of samples in place
type channelFunc func([]float64)

// filterBuilder decides whether a stage runs for cfg and builds a per-channel processor
type filterBuilder struct {
	enabled func(cfg EffectConfig) bool
	build   func(cfg EffectConfig, sampleRate float64, channel int) channelFunc
}

func always(EffectConfig) bool { return true }

// filterBuilders maps each FilterID to its builder
var filterBuilders = map[FilterID]filterBuilder{
	FilterModulation: {
		enabled: func(cfg EffectConfig) bool { return cfg.ModRateHz > 0 && cfg.ModDepth > 0 },
		build: func(cfg EffectConfig, sampleRate float64, channel int) channelFunc {
			// Odd channels run the LFO a quarter cycle ahead
			phase := 0.0
			if channel%2 == 1 {
				phase = math.Pi / 2
			}
			return dsp.NewChorus(sampleRate, cfg.ModRateHz, cfg.ModDepth, phase).Process
		},
	},
	FilterSaturation: {
		enabled: func(cfg EffectConfig) bool { return cfg.DriveDB > 0 },
		build: func(cfg EffectConfig, _ float64, _ int) channelFunc {
			return func(x []float64) { dsp.Saturate(x, cfg.DriveDB) }
		},
	},
	FilterLowPass: {
		enabled: always,
		build: func(cfg EffectConfig, sampleRate float64, _ int) channelFunc {
			return dsp.NewLowPass(sampleRate, cfg.CutoffHz).Process
		},
	},
	FilterCompressor: {
		enabled: always,
		build: func(_ EffectConfig, sampleRate float64, _ int) channelFunc {
			return dsp.NewCompressor(sampleRate, CompressorThresholdDB, CompressorRatio,
				CompressorAttackMs, CompressorReleaseMs).Process
		},
	},
	FilterTrim: {
		enabled: always,
		build: func(EffectConfig, float64, int) channelFunc {
			return func(x []float64) { dsp.Gain(x, TrimDB) }
		},
	},
}

// Chain is the effect chain for one EffectConfig
type Chain struct {
	cfg    EffectConfig
	stages []FilterID
}

// NewChain resolves which stages run for cfg
func NewChain(cfg EffectConfig) *Chain {
	c := &Chain{cfg: cfg}
	for _, id := range ChainOrder {
		if b, ok := filterBuilders[id]; ok && b.enabled(cfg) {
			c.stages = append(c.stages, id)
		}
	}
	return c
}

// Stages returns the stages that will run, in order
func (c *Chain) Stages() []FilterID {
	return append([]FilterID(nil), c.stages...)
}

// Apply runs every stage over a copy of buf and returns it; buf is not modified.
// Each stage consumes the whole output of the previous one. There is no randomness,
// so equal inputs give bit-identical outputs.
func (c *Chain) Apply(buf *audio.Buffer) *audio.Buffer {
	out := buf.Clone()
	rate := float64(out.SampleRate)
	for _, id := range c.stages {
		b := filterBuilders[id]
		for ch, samples := range out.Data {
			b.build(c.cfg, rate, ch)(samples)
		}
	}
	return out
}
