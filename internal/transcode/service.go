// Package transcode runs ffmpeg to merge separate video and audio
// streams and to convert raw downloads into mp4 or mp3.
package transcode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// FFmpeg constants
const (
	FFmpegCommand = "ffmpeg"

	// Stream handling
	CopyCodec    = "copy"
	AudioCodec   = "aac"
	MP3Codec     = "libmp3lame"
	OverwriteArg = "-y"
	NoStatsArg   = "-nostats"

	// Conversion targets
	TargetMP4 = "mp4"
	TargetMP3 = "mp3"

	// Number of stderr lines kept for error reports
	StderrTailLines = 8
)

// ErrUnsupportedTarget is returned for conversion targets other than mp4 and mp3.
var ErrUnsupportedTarget = errors.New("unsupported conversion target")

// runFunc executes ffmpeg with args and streams its stderr to the returned lines.
type runFunc func(ctx context.Context, binary string, args []string) (stderrTail []string, err error)

// Service handles ffmpeg merge and conversion
type Service struct {
	binary string
	logger hclog.Logger
	run    runFunc
}

// NewService creates a transcoder; an empty binary means ffmpeg on PATH.
func NewService(binary string, logger hclog.Logger) *Service {
	if binary == "" {
		binary = FFmpegCommand
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{
		binary: binary,
		logger: logger.Named("ffmpeg"),
		run:    runFFmpeg,
	}
}

// Merge copies the video stream and encodes audio to aac in one container
func (s *Service) Merge(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := s.BuildMergeArgs(videoPath, audioPath, outputPath)
	if err := s.exec(ctx, args); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("failed to merge %s and %s: %w", videoPath, audioPath, err)
	}
	return nil
}

// Convert re-encodes inputPath for target and deletes the input afterwards
func (s *Service) Convert(ctx context.Context, inputPath, outputPath, target string) error {
	args, err := s.BuildConvertArgs(inputPath, outputPath, target)
	if err != nil {
		return err
	}
	if err := s.exec(ctx, args); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("failed to convert %s to %s: %w", inputPath, target, err)
	}
	if err := os.Remove(inputPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove conversion input", "path", inputPath, "error", err)
	}
	return nil
}

// BuildMergeArgs builds the ffmpeg arguments for muxing video and audio
func (s *Service) BuildMergeArgs(videoPath, audioPath, outputPath string) []string {
	return []string{
		OverwriteArg,
		NoStatsArg,
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", CopyCodec,
		"-c:a", AudioCodec,
		outputPath,
	}
}

// BuildConvertArgs builds the ffmpeg arguments for converting to target
func (s *Service) BuildConvertArgs(inputPath, outputPath, target string) ([]string, error) {
	args := []string{OverwriteArg, NoStatsArg, "-i", inputPath}
	switch target {
	case TargetMP4:
		args = append(args, "-c:v", CopyCodec, "-c:a", AudioCodec)
	case TargetMP3:
		args = append(args, "-c:a", MP3Codec)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTarget, target)
	}
	return append(args, outputPath), nil
}

func (s *Service) exec(ctx context.Context, args []string) error {
	s.logger.Debug("running", "args", strings.Join(args, " "))
	tail, err := s.run(ctx, s.binary, args)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if len(tail) > 0 {
		return fmt.Errorf("%w: %s", err, strings.Join(tail, "\n"))
	}
	return err
}

// runFFmpeg executes the binary, keeping the last stderr lines for diagnostics
func runFFmpeg(ctx context.Context, binary string, args []string) ([]string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// stderr must be drained before Wait closes the pipe
	tail := collectTail(stderr, StderrTailLines)
	return tail, cmd.Wait()
}

// collectTail reads r to EOF and returns its last n non-empty lines.
// Lines end at \r or \n since ffmpeg rewrites its status line in place.
// Whatever the scanner cannot take is discarded so the writer never blocks.
func collectTail(r io.Reader, n int) []string {
	scanner := bufio.NewScanner(r)
	scanner.Split(scanLines)
	lines := make([]string, 0, n)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(lines) == n {
			lines = lines[1:]
		}
		lines = append(lines, line)
	}
	_, _ = io.Copy(io.Discard, r)
	return lines
}

// scanLines is bufio.ScanLines with \r accepted as a terminator
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
