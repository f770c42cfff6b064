package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/needledrop/internal/batch"
	"github.com/linuxmatters/needledrop/internal/processor"
)

// Sender is the part of tea.Program the batch events need
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramEvents forwards batch events to a running Bubbletea program.
// tea.Program.Send is safe to call from worker goroutines.
type ProgramEvents struct {
	P Sender
}

var _ batch.Events = ProgramEvents{}

func (e ProgramEvents) ItemStarted(index int, input string) {
	e.P.Send(FileStartMsg{FileIndex: index, FileName: input})
}

func (e ProgramEvents) StageProgress(index int, stage processor.Stage, progress, levelDB float64) {
	e.P.Send(ProgressMsg{FileIndex: index, Stage: stage, Progress: progress, Level: levelDB})
}

func (e ProgramEvents) ItemFinished(item batch.Item) {
	e.P.Send(FileCompleteMsg{
		FileIndex:  item.Index,
		OutputPath: item.Output,
		Result:     item.Result,
		Error:      item.Err,
	})
}
