package processor

import (
	"math"
	"slices"
	"testing"

	"github.com/linuxmatters/needledrop/internal/dsp"
)

func TestChainStages(t *testing.T) {
	tests := []struct {
		name string
		cfg  EffectConfig
		want []FilterID
	}{
		{
			name: "everything enabled",
			cfg:  EffectConfig{Speed: 1, CutoffHz: 12000, DriveDB: 6, ModRateHz: 0.7, ModDepth: 0.02},
			want: []FilterID{FilterModulation, FilterSaturation, FilterLowPass, FilterCompressor, FilterTrim},
		},
		{
			name: "no drive skips saturation",
			cfg:  EffectConfig{Speed: 1, CutoffHz: 12000, ModRateHz: 0.7, ModDepth: 0.02},
			want: []FilterID{FilterModulation, FilterLowPass, FilterCompressor, FilterTrim},
		},
		{
			name: "zero depth skips modulation",
			cfg:  EffectConfig{Speed: 1, CutoffHz: 12000, DriveDB: 6, ModRateHz: 0.7},
			want: []FilterID{FilterSaturation, FilterLowPass, FilterCompressor, FilterTrim},
		},
		{
			name: "zero rate skips modulation",
			cfg:  EffectConfig{Speed: 1, CutoffHz: 12000, DriveDB: 6, ModDepth: 0.02},
			want: []FilterID{FilterSaturation, FilterLowPass, FilterCompressor, FilterTrim},
		},
		{
			name: "fixed stages always run",
			cfg:  EffectConfig{Speed: 1, CutoffHz: 20000},
			want: []FilterID{FilterLowPass, FilterCompressor, FilterTrim},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewChain(tt.cfg).Stages()
			if !slices.Equal(got, tt.want) {
				t.Errorf("Stages() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChainOrderMatchesBuilders(t *testing.T) {
	for _, id := range ChainOrder {
		if _, ok := filterBuilders[id]; !ok {
			t.Errorf("no builder registered for %s", id)
		}
	}
	if len(filterBuilders) != len(ChainOrder) {
		t.Errorf("%d builders registered, ChainOrder has %d", len(filterBuilders), len(ChainOrder))
	}
}

func TestChainApplyDeterministic(t *testing.T) {
	cfg, err := PresetByName("fusion")
	if err != nil {
		t.Fatal(err)
	}
	buf := generateBuffer(TestAudioOptions{Channels: 2, ToneFreq: 440, ToneLevel: -6, NoiseLevel: -40})

	a := NewChain(cfg).Apply(buf)
	b := NewChain(cfg).Apply(buf)
	for ch := range a.Data {
		if !slices.Equal(a.Data[ch], b.Data[ch]) {
			t.Fatalf("channel %d differs between runs", ch)
		}
	}
}

func TestChainApplyLeavesInputUntouched(t *testing.T) {
	buf := generateBuffer(TestAudioOptions{ToneFreq: 440, ToneLevel: -6})
	orig := buf.Clone()

	cfg, _ := PresetByName("hardbop")
	out := NewChain(cfg).Apply(buf)

	if !slices.Equal(buf.Data[0], orig.Data[0]) {
		t.Error("Apply modified its input")
	}
	if out.NumFrames() != buf.NumFrames() {
		t.Errorf("frames = %d, want %d", out.NumFrames(), buf.NumFrames())
	}
	if out.SampleRate != buf.SampleRate {
		t.Errorf("sample rate = %d, want %d", out.SampleRate, buf.SampleRate)
	}
}

func TestChainApplySilenceStaysSilent(t *testing.T) {
	buf := generateBuffer(TestAudioOptions{Channels: 2})
	for _, p := range Presets {
		t.Run(p.Name, func(t *testing.T) {
			out := NewChain(p.Config).Apply(buf)
			for ch := range out.Data {
				for i, s := range out.Data[ch] {
					if s != 0 {
						t.Fatalf("channel %d sample %d = %g, want 0", ch, i, s)
					}
				}
			}
		})
	}
}

func TestChainApplyTrimsQuietSignal(t *testing.T) {
	// Well below the compressor threshold only the trim changes the level
	cfg := EffectConfig{Speed: 1, CutoffHz: 20000}
	buf := generateBuffer(TestAudioOptions{ToneFreq: 200, ToneLevel: -40})
	out := NewChain(cfg).Apply(buf)

	in := MeasureLevels(buf)
	got := MeasureLevels(out)
	if diff := got.RMSDB - in.RMSDB; math.Abs(diff-TrimDB) > 0.1 {
		t.Errorf("RMS changed by %.2f dB, want %.2f dB", diff, TrimDB)
	}
}

func TestChainApplyStereoModulationDecorrelates(t *testing.T) {
	cfg := EffectConfig{Speed: 1, CutoffHz: 20000, ModRateHz: 2, ModDepth: 0.5}
	buf := generateBuffer(TestAudioOptions{Channels: 2, ToneFreq: 1000, ToneLevel: -12})
	out := NewChain(cfg).Apply(buf)

	if slices.Equal(out.Data[0], out.Data[1]) {
		t.Error("left and right are identical after modulation")
	}
}

func TestChainApplyBounded(t *testing.T) {
	cfg := EffectConfig{Speed: 1, CutoffHz: 10000, DriveDB: 60, ModRateHz: 5, ModDepth: 1}
	buf := generateBuffer(TestAudioOptions{Channels: 2, ToneFreq: 440, ToneLevel: -1, NoiseLevel: -6})
	out := NewChain(cfg).Apply(buf)

	if hasNonFinite(out) {
		t.Fatal("output contains NaN or Inf")
	}
	// tanh bounds saturation at 1; the low-pass and trim cannot push past it
	limit := dsp.DBToLinear(0) * 1.01
	for ch := range out.Data {
		for _, s := range out.Data[ch] {
			if math.Abs(s) > limit {
				t.Fatalf("sample %g exceeds %g", s, limit)
			}
		}
	}
}
