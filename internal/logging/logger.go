// Package logging sets up the run logger and writes per-file processing
// reports.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// DebugLogName is where the TUI run writes its log so the screen stays clean
const DebugLogName = "needledrop-debug.log"

// New returns a text logger writing to w. verbose enables debug entries.
func New(w io.Writer, verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableQuote:     true,
	})
	l.SetLevel(logrus.InfoLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// NewForMode returns the run logger: stderr in plain mode, DebugLogName in
// TUI mode. The returned closer must be called when the run ends.
func NewForMode(plain, verbose bool) (*logrus.Logger, io.Closer, error) {
	if plain {
		return New(os.Stderr, verbose), nopCloser{}, nil
	}

	f, err := os.OpenFile(DebugLogName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", DebugLogName, err)
	}
	l := New(f, true)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	return l, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
