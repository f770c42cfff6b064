// Package ui provides the Bubbletea terminal user interface for needledrop
package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/needledrop/internal/batch"
	"github.com/linuxmatters/needledrop/internal/processor"
	"github.com/sirupsen/logrus"
)

// FileStatus represents the processing state of a single file
type FileStatus int

const (
	StatusQueued FileStatus = iota
	StatusProcessing
	StatusComplete
	StatusError
	StatusSkipped
)

// silenceLevel seeds PeakLevel before any audio has been measured
const silenceLevel = -120.0

// FileProgress tracks progress for a single audio file
type FileProgress struct {
	InputPath  string
	OutputPath string
	Status     FileStatus

	Stage         processor.Stage
	StageProgress float64 // 0.0 to 1.0 within Stage
	StartTime     time.Time
	ElapsedTime   time.Duration

	CurrentLevel float64 // peak dBFS after the latest stage
	PeakLevel    float64 // highest level seen so far

	Result *processor.ProcessingResult
	Error  error
}

// Progress returns overall progress through the pipeline, 0.0 to 1.0
func (fp FileProgress) Progress() float64 {
	switch fp.Status {
	case StatusComplete:
		return 1
	case StatusProcessing:
		return (float64(fp.Stage) + fp.StageProgress) / float64(processor.StageCount)
	}
	return 0
}

// Model is the Bubbletea model for the processing UI
type Model struct {
	// File queue
	Files          []FileProgress
	Active         int // files currently processing
	TotalFiles     int
	CompletedFiles int
	FailedFiles    int
	SkippedFiles   int

	// Settings shown in the header
	Preset string
	Format string

	// Global state
	StartTime time.Time
	Done      bool
	Cancelled bool
	Summary   *batch.Summary
	Err       error

	// Terminal dimensions
	Width  int
	Height int

	cancel context.CancelFunc
	log    logrus.FieldLogger
}

// NewModel creates a new UI model with the given input files. cancel is
// called when the user quits early; log may be nil.
func NewModel(inputFiles []string, cancel context.CancelFunc, log logrus.FieldLogger) Model {
	files := make([]FileProgress, len(inputFiles))
	for i, path := range inputFiles {
		files[i] = FileProgress{
			InputPath: path,
			Status:    StatusQueued,
			PeakLevel: silenceLevel,
		}
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}

	return Model{
		Files:      files,
		TotalFiles: len(inputFiles),
		StartTime:  time.Now(),
		cancel:     cancel,
		log:        log,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.Done {
				return m, tea.Quit
			}
			m.log.Info("cancelled by user")
			m.Cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.log.Debugf("window size: %dx%d", m.Width, m.Height)

	case FileStartMsg:
		if !m.valid(msg.FileIndex) {
			return m, nil
		}
		fp := &m.Files[msg.FileIndex]
		fp.Status = StatusProcessing
		fp.StartTime = time.Now()
		m.Active++

	case ProgressMsg:
		if !m.valid(msg.FileIndex) {
			return m, nil
		}
		m.Files[msg.FileIndex] = updateFileProgress(m.Files[msg.FileIndex], msg)

	case FileCompleteMsg:
		if !m.valid(msg.FileIndex) {
			return m, nil
		}
		m.Files[msg.FileIndex] = completeFile(m.Files[msg.FileIndex], msg)
		if m.Active > 0 {
			m.Active--
		}
		if msg.Error != nil {
			m.FailedFiles++
		} else {
			m.CompletedFiles++
		}

	case AllCompleteMsg:
		m.Done = true
		m.Active = 0
		m.Summary = msg.Summary
		m.Err = msg.Error
		if msg.Summary != nil {
			for _, it := range msg.Summary.Items {
				if m.valid(it.Index) && m.Files[it.Index].Status == StatusQueued {
					m.Files[it.Index].Status = StatusSkipped
					m.SkippedFiles++
				}
			}
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) valid(index int) bool {
	return index >= 0 && index < len(m.Files)
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return fmt.Sprintf("Initializing...\nFiles: %d\n", len(m.Files))
	}

	if m.Done {
		return renderCompletionSummary(m)
	}

	return renderProcessingView(m)
}

// updateFileProgress updates a FileProgress based on a ProgressMsg
func updateFileProgress(fp FileProgress, msg ProgressMsg) FileProgress {
	fp.Status = StatusProcessing
	fp.Stage = msg.Stage
	fp.StageProgress = msg.Progress
	if !fp.StartTime.IsZero() {
		fp.ElapsedTime = time.Since(fp.StartTime)
	}

	if msg.Level != 0 {
		fp.CurrentLevel = msg.Level
		fp.PeakLevel = max(fp.PeakLevel, msg.Level)
	}

	return fp
}

func completeFile(fp FileProgress, msg FileCompleteMsg) FileProgress {
	fp.OutputPath = msg.OutputPath
	fp.Result = msg.Result
	fp.Error = msg.Error
	if !fp.StartTime.IsZero() {
		fp.ElapsedTime = time.Since(fp.StartTime)
	}
	if msg.Error != nil {
		fp.Status = StatusError
	} else {
		fp.Status = StatusComplete
	}
	return fp
}
