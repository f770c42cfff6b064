package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrFFmpegMissing is returned when an operation needs ffmpeg and it is not on PATH
var ErrFFmpegMissing = errors.New("ffmpeg not found on PATH")

// HaveFFmpeg reports whether both ffmpeg and ffprobe are on PATH
func HaveFFmpeg() bool {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return false
	}
	_, err := exec.LookPath("ffprobe")
	return err == nil
}

// RunFFmpeg runs ffmpeg with args and returns its stdout.
// Cancelling ctx kills the process.
func RunFFmpeg(ctx context.Context, args ...string) ([]byte, error) {
	return runTool(ctx, "ffmpeg", args...)
}

func runTool(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
