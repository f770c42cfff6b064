package processor

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"testing"

	"github.com/go-audio/wav"
	"github.com/linuxmatters/needledrop/internal/audio"
	"github.com/linuxmatters/needledrop/internal/mains"
	"github.com/linuxmatters/needledrop/internal/tags"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		input  string
		format audio.Format
		want   string
	}{
		{"/music/So What.flac", audio.FormatFLAC, "LP_So What.flac"},
		{"take.five.mp3", audio.FormatWAV, "LP_take.five.wav"},
		{"a/b/track.WAV", audio.FormatCD, "LP_track.wav"},
		{"song.ogg", audio.FormatALAC, "LP_song.m4a"},
		{"song.m4a", audio.FormatMP3, "LP_song.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := OutputName(tt.input, tt.format); got != tt.want {
				t.Errorf("OutputName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStageString(t *testing.T) {
	if StageLoad.String() != "Loading" || StageTags.String() != "Tagging" {
		t.Errorf("unexpected stage names %q, %q", StageLoad, StageTags)
	}
	if got := Stage(99).String(); got != "Stage(99)" {
		t.Errorf("Stage(99).String() = %q", got)
	}
}

func TestSpeedRatio(t *testing.T) {
	tests := []struct {
		speed    float64
		up, down int
		wantErr  bool
	}{
		{0.98, 100, 98, false},
		{0.97, 100, 97, false},
		{1.0, 100, 100, false},
		{0.966, 100, 97, false},
		{1.5, 100, 150, false},
		{0.004, 0, 0, true},
		{0, 0, 0, true},
		{-1, 0, 0, true},
		{math.NaN(), 0, 0, true},
		{math.Inf(1), 0, 0, true},
	}
	for _, tt := range tests {
		up, down, err := SpeedRatio(tt.speed)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("SpeedRatio(%g) error = %v, want ErrInvalidConfig", tt.speed, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("SpeedRatio(%g) unexpected error: %v", tt.speed, err)
			continue
		}
		if up != tt.up || down != tt.down {
			t.Errorf("SpeedRatio(%g) = %d/%d, want %d/%d", tt.speed, up, down, tt.up, tt.down)
		}
	}
}

func TestResampleLength(t *testing.T) {
	buf := generateBuffer(TestAudioOptions{Channels: 2, ToneFreq: 440, ToneLevel: -6})

	tests := []struct {
		speed float64
		want  int
	}{
		{0.98, 45000},
		{0.5, 88200},
		{1.0, 44100},
		{2.0, 22050},
	}
	for _, tt := range tests {
		out, err := Resample(buf, tt.speed)
		if err != nil {
			t.Fatalf("Resample(%g): %v", tt.speed, err)
		}
		if out.SampleRate != buf.SampleRate {
			t.Errorf("speed %g: sample rate = %d, want %d", tt.speed, out.SampleRate, buf.SampleRate)
		}
		for ch := range out.Data {
			if len(out.Data[ch]) != tt.want {
				t.Errorf("speed %g: channel %d has %d frames, want %d", tt.speed, ch, len(out.Data[ch]), tt.want)
			}
		}
	}
}

func TestResampleIdentity(t *testing.T) {
	buf := generateBuffer(TestAudioOptions{ToneFreq: 440, ToneLevel: -6})
	out, err := Resample(buf, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(out.Data[0], buf.Data[0]) {
		t.Error("speed 1.0 should leave samples unchanged")
	}
}

func TestBurstCount(t *testing.T) {
	tests := []struct {
		frames, rate int
		perSec       float64
		want         int
	}{
		{441000, 44100, 1, 10},
		{441000, 44100, 0.8, 8},
		{44100, 44100, 0.5, 0},
		{44100, 44100, 0, 0},
		{44100, 0, 1, 0},
		{66150, 44100, 2, 3},
	}
	for _, tt := range tests {
		if got := BurstCount(tt.frames, tt.rate, tt.perSec); got != tt.want {
			t.Errorf("BurstCount(%d, %d, %g) = %d, want %d", tt.frames, tt.rate, tt.perSec, got, tt.want)
		}
	}
}

func TestAddCrackleDisabledIsIdentity(t *testing.T) {
	buf := generateBuffer(TestAudioOptions{ToneFreq: 440, ToneLevel: -6})
	orig := buf.Clone()
	rng := rand.New(rand.NewPCG(1, 2))

	for _, c := range []struct{ amount, rate float64 }{{0, 1}, {0.01, 0}, {0, 0}} {
		if n := AddCrackle(buf, c.amount, c.rate, rng); n != 0 {
			t.Errorf("amount %g rate %g placed %d bursts", c.amount, c.rate, n)
		}
	}
	if !slices.Equal(buf.Data[0], orig.Data[0]) {
		t.Error("disabled crackle modified the buffer")
	}
}

// Ten seconds of silence at one burst per second gets exactly ten bursts,
// each no louder than the configured amount
func TestAddCrackleOnSilence(t *testing.T) {
	const amount = 0.002
	buf := generateBuffer(TestAudioOptions{DurationSecs: 10, Channels: 2})
	rng := rand.New(rand.NewPCG(42, 0))

	n := AddCrackle(buf, amount, 1, rng)
	if n != 10 {
		t.Fatalf("placed %d bursts, want 10", n)
	}

	nonZero := 0
	for i, s := range buf.Data[0] {
		if s < 0 {
			t.Fatalf("sample %d = %g, bursts are positive", i, s)
		}
		if s > 0 {
			nonZero++
		}
	}
	if nonZero == 0 || nonZero > n*BurstLength {
		t.Errorf("%d non-zero samples, want 1..%d", nonZero, n*BurstLength)
	}
	if peak := slices.Max(buf.Data[0]); peak > amount*float64(n) {
		t.Errorf("peak %g above %g", peak, amount*float64(n))
	}
	if !slices.Equal(buf.Data[0], buf.Data[1]) {
		t.Error("bursts differ between channels")
	}
}

func TestAddCrackleBurstAmplitude(t *testing.T) {
	// One burst on silence peaks between 0.4 and 1.0 times the amount
	const amount = 0.5
	for seed := uint64(0); seed < 20; seed++ {
		buf := generateBuffer(TestAudioOptions{DurationSecs: 1})
		AddCrackle(buf, amount, 1, rand.New(rand.NewPCG(seed, 0)))
		peak := slices.Max(buf.Data[0])
		if peak < burstScaleMin*amount*0.99 || peak > amount {
			t.Errorf("seed %d: burst peak %g outside [%g, %g]", seed, peak, burstScaleMin*amount, amount)
		}
	}
}

func TestAddCrackleDeterministic(t *testing.T) {
	a := generateBuffer(TestAudioOptions{DurationSecs: 2, ToneFreq: 100, ToneLevel: -20})
	b := a.Clone()
	AddCrackle(a, 0.05, 5, rand.New(rand.NewPCG(7, 3)))
	AddCrackle(b, 0.05, 5, rand.New(rand.NewPCG(7, 3)))
	if !slices.Equal(a.Data[0], b.Data[0]) {
		t.Error("same seed produced different crackle")
	}
}

func TestAddCrackleClips(t *testing.T) {
	buf := generateBuffer(TestAudioOptions{ToneFreq: 50, ToneLevel: -0.1})
	AddCrackle(buf, 1, 200, rand.New(rand.NewPCG(9, 9)))
	for i, s := range buf.Data[0] {
		if s > 1 || s < -1 {
			t.Fatalf("sample %d = %g outside [-1, 1]", i, s)
		}
	}
}

func TestBurstEnvelope(t *testing.T) {
	if len(burstEnvelope) != BurstLength {
		t.Fatalf("envelope length %d, want %d", len(burstEnvelope), BurstLength)
	}
	if burstEnvelope[0] != 0 || math.Abs(burstEnvelope[BurstLength-1]) > 1e-12 {
		t.Errorf("envelope ends = %g, %g, want 0", burstEnvelope[0], burstEnvelope[BurstLength-1])
	}
	for i := 0; i < BurstLength/2; i++ {
		if math.Abs(burstEnvelope[i]-burstEnvelope[BurstLength-1-i]) > 1e-12 {
			t.Fatalf("envelope not symmetric at %d", i)
		}
	}
}

func TestAddHum(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		buf := generateBuffer(TestAudioOptions{ToneFreq: 440, ToneLevel: -6})
		orig := buf.Clone()
		if f := AddHum(buf, 0, 60); f != 0 {
			t.Errorf("AddHum returned %g for level 0", f)
		}
		if !slices.Equal(buf.Data[0], orig.Data[0]) {
			t.Error("level 0 modified the buffer")
		}
	})

	t.Run("explicit frequency", func(t *testing.T) {
		buf := generateBuffer(TestAudioOptions{})
		if f := AddHum(buf, 0.01, 60); f != 60 {
			t.Errorf("AddHum returned %g, want 60", f)
		}
		peak := MeasureLevels(buf).PeakDB
		if peak < -40 || peak > -35 {
			t.Errorf("hum peak %.1f dBFS, want about -38", peak)
		}
	})

	t.Run("local mains", func(t *testing.T) {
		buf := generateBuffer(TestAudioOptions{})
		want := float64(mains.Frequency())
		if f := AddHum(buf, 0.01, 0); f != want {
			t.Errorf("AddHum returned %g, want %g", f, want)
		}
	})
}

func TestMeasureLevels(t *testing.T) {
	buf := generateBuffer(TestAudioOptions{ToneFreq: 1000, ToneLevel: -6})
	l := MeasureLevels(buf)
	if math.Abs(l.PeakDB+6) > 0.1 {
		t.Errorf("peak = %.2f dB, want -6", l.PeakDB)
	}
	if math.Abs(l.RMSDB+9.01) > 0.1 {
		t.Errorf("RMS = %.2f dB, want -9.01", l.RMSDB)
	}

	silent := MeasureLevels(generateBuffer(TestAudioOptions{}))
	if silent.PeakDB > -100 {
		t.Errorf("silence peak = %.1f dB", silent.PeakDB)
	}
}

func TestPresets(t *testing.T) {
	for _, p := range Presets {
		t.Run(p.Name, func(t *testing.T) {
			if err := p.Config.Validate(); err != nil {
				t.Errorf("preset does not validate: %v", err)
			}
		})
	}

	cfg, err := PresetByName(" HardBop ")
	if err != nil {
		t.Fatalf("PresetByName: %v", err)
	}
	if cfg.Speed != 0.97 || cfg.CrackleRate != 0.8 {
		t.Errorf("hardbop = %+v", cfg)
	}
	if _, err := PresetByName("polka"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("unknown preset error = %v", err)
	}
	if _, err := PresetByName(DefaultPreset); err != nil {
		t.Errorf("default preset missing: %v", err)
	}
}

func TestOverridesApply(t *testing.T) {
	base, _ := PresetByName("piano")
	speed, crackle := 0.95, 0.002
	got := Overrides{Speed: &speed, CrackleAmount: &crackle}.Apply(base)

	if got.Speed != 0.95 || got.CrackleAmount != 0.002 {
		t.Errorf("overrides not applied: %+v", got)
	}
	if got.CutoffHz != base.CutoffHz || got.DriveDB != base.DriveDB {
		t.Errorf("unset fields changed: %+v", got)
	}
	if base.Speed != 0.98 {
		t.Error("Apply modified its argument")
	}
}

func TestEffectConfigValidate(t *testing.T) {
	valid := EffectConfig{Speed: 1, CutoffHz: 12000}
	tests := []struct {
		name   string
		mutate func(*EffectConfig)
	}{
		{"zero speed", func(c *EffectConfig) { c.Speed = 0 }},
		{"fast speed", func(c *EffectConfig) { c.Speed = 2.5 }},
		{"zero cutoff", func(c *EffectConfig) { c.CutoffHz = 0 }},
		{"negative drive", func(c *EffectConfig) { c.DriveDB = -1 }},
		{"depth above one", func(c *EffectConfig) { c.ModDepth = 1.5 }},
		{"negative crackle", func(c *EffectConfig) { c.CrackleAmount = -0.1 }},
		{"NaN rate", func(c *EffectConfig) { c.CrackleRate = math.NaN() }},
		{"infinite hum", func(c *EffectConfig) { c.HumLevel = math.Inf(1) }},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

// Mono one-second tone through the piano-style settings to 24-bit WAV
func TestProcessFileToWAV(t *testing.T) {
	input := generateTestAudio(t, "tone.wav", TestAudioOptions{ToneFreq: 440, ToneLevel: -6})
	output := filepath.Join(t.TempDir(), OutputName(input, audio.FormatWAV))

	cfg := EffectConfig{Speed: 0.98, CutoffHz: 14000, DriveDB: 4}
	var seen []Stage
	result, err := ProcessFile(context.Background(), input, output, Options{
		Effects: cfg,
		Format:  audio.FormatWAV,
		Rand:    rand.New(rand.NewPCG(1, 0)),
	}, func(s Stage, progress, _ float64) {
		if progress == 0 {
			seen = append(seen, s)
		}
	})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}

	if result.TagWarning != nil {
		t.Errorf("unexpected tag warning: %v", result.TagWarning)
	}
	wantStages := []Stage{StageLoad, StageResample, StageEffects, StageCrackle, StageHum, StageEncode, StageTags}
	if !slices.Equal(seen, wantStages) {
		t.Errorf("stages = %v, want %v", seen, wantStages)
	}
	if result.Title != "LP_tone" {
		t.Errorf("Title = %q", result.Title)
	}
	if result.InputFrames != 44100 || result.OutputFrames != 45000 {
		t.Errorf("frames %d -> %d, want 44100 -> 45000", result.InputFrames, result.OutputFrames)
	}
	if math.Abs(result.Duration()-1/0.98) > 1e-3 {
		t.Errorf("duration = %.4f s, want %.4f", result.Duration(), 1/0.98)
	}

	buf, meta, err := audio.Load(context.Background(), output)
	if err != nil {
		t.Fatalf("Load output: %v", err)
	}
	if meta.BitDepth != 24 || meta.SampleRate != 44100 || meta.Channels != 1 {
		t.Errorf("output = %d-bit %d Hz %d ch, want 24-bit 44100 Hz mono", meta.BitDepth, meta.SampleRate, meta.Channels)
	}
	if math.Abs(meta.Duration-1/0.98) > 1e-3 {
		t.Errorf("file duration = %.4f s", meta.Duration)
	}
	if hasNonFinite(buf) {
		t.Error("output has NaN or Inf")
	}

	got, err := tags.WavTags{}.Read(output)
	if err != nil {
		t.Fatalf("read tags: %v", err)
	}
	if got.Title() != "LP_tone" {
		t.Errorf("title tag = %q, want LP_tone", got.Title())
	}
}

// Source INFO values of every parity must survive alongside the forced title
func TestProcessFileCopiesWAVTags(t *testing.T) {
	input := filepath.Join(t.TempDir(), "take.wav")
	if err := audio.WriteWAV(input, generateBuffer(TestAudioOptions{ToneFreq: 440, ToneLevel: -6}), 16,
		&wav.Metadata{Artist: "Coltrane", Title: "Naima", Product: "Giant Steps"}); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(t.TempDir(), OutputName(input, audio.FormatWAV))
	cfg, _ := PresetByName("custom")

	result, err := ProcessFile(context.Background(), input, output, Options{
		Effects: cfg,
		Format:  audio.FormatWAV,
		Rand:    rand.New(rand.NewPCG(3, 0)),
	}, nil)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if result.TagWarning != nil {
		t.Errorf("unexpected tag warning: %v", result.TagWarning)
	}

	got, err := tags.WavTags{}.Read(output)
	if err != nil {
		t.Fatalf("read tags: %v", err)
	}
	if got.Title() != "LP_take" {
		t.Errorf("title tag = %q, want LP_take", got.Title())
	}
	if got.Get("IART") != "Coltrane" || got.Get("IPRD") != "Giant Steps" {
		t.Errorf("fields = %v", got.Fields)
	}
}

func TestProcessFileCDFormat(t *testing.T) {
	input := generateTestAudio(t, "stereo.wav", TestAudioOptions{Channels: 2, ToneFreq: 440, ToneLevel: -6})
	output := filepath.Join(t.TempDir(), OutputName(input, audio.FormatCD))
	cfg, _ := PresetByName("hardbop")

	if _, err := ProcessFile(context.Background(), input, output, Options{Effects: cfg, Format: audio.FormatCD}, nil); err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	_, meta, err := audio.Load(context.Background(), output)
	if err != nil {
		t.Fatal(err)
	}
	if meta.BitDepth != 16 || meta.Channels != 2 {
		t.Errorf("output = %d-bit %d ch, want 16-bit stereo", meta.BitDepth, meta.Channels)
	}
}

func TestProcessFileErrors(t *testing.T) {
	input := generateTestAudio(t, "tone.wav", TestAudioOptions{ToneFreq: 440, ToneLevel: -6})
	output := filepath.Join(t.TempDir(), "LP_tone.wav")
	good := EffectConfig{Speed: 1, CutoffHz: 12000}

	t.Run("invalid config", func(t *testing.T) {
		_, err := ProcessFile(context.Background(), input, output, Options{Effects: EffectConfig{}, Format: audio.FormatWAV}, nil)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("missing format", func(t *testing.T) {
		if _, err := ProcessFile(context.Background(), input, output, Options{Effects: good}, nil); err == nil {
			t.Error("expected an error without an output format")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ProcessFile(ctx, input, output, Options{Effects: good, Format: audio.FormatWAV}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := ProcessFile(context.Background(), filepath.Join(t.TempDir(), "nope.wav"), output,
			Options{Effects: good, Format: audio.FormatWAV}, nil)
		if err == nil {
			t.Error("expected an error for a missing input")
		}
	})
}
