package ui

import (
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/needledrop/internal/batch"
	"github.com/linuxmatters/needledrop/internal/processor"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModelFileLifecycle(t *testing.T) {
	m := NewModel([]string{"/music/a.wav", "/music/b.flac"}, nil, nil)
	if m.TotalFiles != 2 || m.Files[0].Status != StatusQueued {
		t.Fatalf("unexpected initial state: %+v", m)
	}

	m = update(t, m, FileStartMsg{FileIndex: 0, FileName: "/music/a.wav"})
	if m.Files[0].Status != StatusProcessing || m.Active != 1 {
		t.Errorf("file 0 status = %v, active = %d", m.Files[0].Status, m.Active)
	}

	m = update(t, m, ProgressMsg{FileIndex: 0, Stage: processor.StageEffects, Progress: 0.5, Level: -6})
	fp := m.Files[0]
	if fp.Stage != processor.StageEffects || fp.StageProgress != 0.5 {
		t.Errorf("stage = %v at %.2f", fp.Stage, fp.StageProgress)
	}
	if fp.CurrentLevel != -6 || fp.PeakLevel != -6 {
		t.Errorf("levels = %.1f / %.1f, want -6 / -6", fp.CurrentLevel, fp.PeakLevel)
	}
	want := (float64(processor.StageEffects) + 0.5) / float64(processor.StageCount)
	if got := fp.Progress(); got != want {
		t.Errorf("Progress() = %v, want %v", got, want)
	}

	// A quieter later stage keeps the peak
	m = update(t, m, ProgressMsg{FileIndex: 0, Stage: processor.StageCrackle, Progress: 1, Level: -9})
	if m.Files[0].PeakLevel != -6 || m.Files[0].CurrentLevel != -9 {
		t.Errorf("peak %.1f current %.1f", m.Files[0].PeakLevel, m.Files[0].CurrentLevel)
	}

	m = update(t, m, FileCompleteMsg{FileIndex: 0, OutputPath: "/music/LP_out/LP_a.flac", Result: &processor.ProcessingResult{}})
	if m.Files[0].Status != StatusComplete || m.CompletedFiles != 1 || m.Active != 0 {
		t.Errorf("after complete: status %v, completed %d, active %d", m.Files[0].Status, m.CompletedFiles, m.Active)
	}
	if m.Files[0].Progress() != 1 {
		t.Error("completed file not at full progress")
	}

	m = update(t, m, FileStartMsg{FileIndex: 1})
	m = update(t, m, FileCompleteMsg{FileIndex: 1, Error: errors.New("decode failed")})
	if m.Files[1].Status != StatusError || m.FailedFiles != 1 {
		t.Errorf("after failure: status %v, failed %d", m.Files[1].Status, m.FailedFiles)
	}
}

func TestModelParallelFiles(t *testing.T) {
	m := NewModel([]string{"a.wav", "b.wav", "c.wav"}, nil, nil)
	m = update(t, m, FileStartMsg{FileIndex: 0})
	m = update(t, m, FileStartMsg{FileIndex: 2})
	m = update(t, m, ProgressMsg{FileIndex: 2, Stage: processor.StageEncode, Progress: 0})
	m = update(t, m, ProgressMsg{FileIndex: 0, Stage: processor.StageResample, Progress: 1})

	if m.Active != 2 {
		t.Errorf("active = %d, want 2", m.Active)
	}
	if m.Files[0].Stage != processor.StageResample || m.Files[2].Stage != processor.StageEncode {
		t.Error("progress applied to the wrong file")
	}
	if m.Files[1].Status != StatusQueued {
		t.Errorf("untouched file status = %v", m.Files[1].Status)
	}
}

func TestModelIgnoresOutOfRange(t *testing.T) {
	m := NewModel([]string{"a.wav"}, nil, nil)
	m = update(t, m, FileStartMsg{FileIndex: 5})
	m = update(t, m, ProgressMsg{FileIndex: -1})
	m = update(t, m, FileCompleteMsg{FileIndex: 3})
	if m.Active != 0 || m.CompletedFiles != 0 || m.FailedFiles != 0 {
		t.Errorf("out-of-range messages changed counts: %+v", m)
	}
}

func TestModelAllComplete(t *testing.T) {
	m := NewModel([]string{"a.wav", "b.wav"}, nil, nil)
	m = update(t, m, FileStartMsg{FileIndex: 0})
	m = update(t, m, FileCompleteMsg{FileIndex: 0, Result: &processor.ProcessingResult{}})

	summary := &batch.Summary{
		OutputDir: "/music/LP_out",
		Items:     []batch.Item{{Index: 0}, {Index: 1}},
	}
	next, cmd := m.Update(AllCompleteMsg{Summary: summary})
	m = next.(Model)
	if !m.Done || cmd == nil {
		t.Fatal("AllCompleteMsg did not finish the program")
	}
	if m.Files[1].Status != StatusSkipped || m.SkippedFiles != 1 {
		t.Errorf("queued file not marked skipped: %v", m.Files[1].Status)
	}

	m.Width = 80
	view := m.View()
	for _, want := range []string{"Processing Complete", "1 succeeded, 0 failed, 1 skipped", "/music/LP_out"} {
		if !strings.Contains(view, want) {
			t.Errorf("summary view missing %q:\n%s", want, view)
		}
	}
}

func TestModelQuitCancels(t *testing.T) {
	cancelled := false
	m := NewModel([]string{"a.wav"}, func() { cancelled = true }, nil)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(Model)
	if !cancelled || !m.Cancelled {
		t.Error("q did not cancel the batch")
	}
	if cmd == nil {
		t.Error("q did not quit")
	}
}

func TestViewStates(t *testing.T) {
	m := NewModel([]string{"/music/a.wav"}, nil, nil)
	if !strings.Contains(m.View(), "Initializing") {
		t.Error("expected the initializing view before a window size arrives")
	}

	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Preset = "hardbop"
	m = update(t, m, FileStartMsg{FileIndex: 0})
	m = update(t, m, ProgressMsg{FileIndex: 0, Stage: processor.StageResample, Progress: 0.5, Level: -3})

	view := m.View()
	for _, want := range []string{"Needledrop", "hardbop", "a.wav", "Resampling", "Stage 2/7"} {
		if !strings.Contains(view, want) {
			t.Errorf("processing view missing %q", want)
		}
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		progress float64
		want     string
	}{
		{0, "░░░░ 0%"},
		{0.5, "██░░ 50%"},
		{1, "████ 100%"},
		{1.7, "████ 100%"},
	}
	for _, tt := range tests {
		if got := renderProgressBar(tt.progress, 4); got != tt.want {
			t.Errorf("renderProgressBar(%v) = %q, want %q", tt.progress, got, tt.want)
		}
	}
}

type sendRecorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *sendRecorder) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func TestProgramEvents(t *testing.T) {
	rec := &sendRecorder{}
	events := ProgramEvents{P: rec}

	events.ItemStarted(1, "b.wav")
	events.StageProgress(1, processor.StageHum, 1, -4)
	events.ItemFinished(batch.Item{Index: 1, Output: "LP_b.wav", Err: errors.New("boom")})

	if len(rec.msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(rec.msgs))
	}
	if msg, ok := rec.msgs[0].(FileStartMsg); !ok || msg.FileIndex != 1 {
		t.Errorf("first message = %#v", rec.msgs[0])
	}
	if msg, ok := rec.msgs[1].(ProgressMsg); !ok || msg.Stage != processor.StageHum || msg.Level != -4 {
		t.Errorf("second message = %#v", rec.msgs[1])
	}
	if msg, ok := rec.msgs[2].(FileCompleteMsg); !ok || msg.Error == nil || msg.OutputPath != "LP_b.wav" {
		t.Errorf("third message = %#v", rec.msgs[2])
	}
}
