package platform

import (
	"context"

	"github.com/ytget/ytdlp-mobile/internal/model"
)

// ProgressFunc receives transferred and total byte counts during a fetch.
type ProgressFunc func(downloaded, total int64)

// FetchRequest describes one format to transfer to disk
type FetchRequest struct {
	URL        string
	FormatID   string
	OutputPath string
	Overwrite  bool
}

// Extractor resolves URLs into stream listings and downloads formats.
type Extractor interface {
	// Probe fetches metadata and the stream list without downloading.
	// Failures are *ExtractionError.
	Probe(ctx context.Context, url string) (*model.ProbeResult, error)

	// Fetch blocks until the format is written to req.OutputPath.
	// Failures are *DownloadError.
	Fetch(ctx context.Context, req FetchRequest, onProgress ProgressFunc) error
}

// PlaylistExpander lists the videos of a playlist URL.
type PlaylistExpander interface {
	ParsePlaylist(ctx context.Context, url string) (*model.Playlist, error)
}
