package ui

import (
	"github.com/linuxmatters/needledrop/internal/batch"
	"github.com/linuxmatters/needledrop/internal/processor"
)

// ProgressMsg represents a progress update from the processor
type ProgressMsg struct {
	FileIndex int
	Stage     processor.Stage
	Progress  float64 // 0.0 to 1.0 within the stage
	Level     float64 // peak level in dBFS after the stage, 0 when unknown
}

// FileStartMsg indicates a new file has started processing
type FileStartMsg struct {
	FileIndex int
	FileName  string
}

// FileCompleteMsg indicates a file has finished processing
type FileCompleteMsg struct {
	FileIndex  int
	OutputPath string
	Result     *processor.ProcessingResult
	Error      error
}

// AllCompleteMsg indicates all files have been processed
type AllCompleteMsg struct {
	Summary *batch.Summary
	Error   error // batch-level failure, e.g. the output folder could not be created
}
