package transcode

import "context"

// Transcoder defines the ffmpeg operations the download workflows need.
type Transcoder interface {
	// Merge muxes a video-only and an audio-only file into outputPath.
	Merge(ctx context.Context, videoPath, audioPath, outputPath string) error

	// Convert re-encodes inputPath into target (mp4 or mp3) at outputPath
	// and removes inputPath on success.
	Convert(ctx context.Context, inputPath, outputPath, target string) error
}

var _ Transcoder = (*Service)(nil)
