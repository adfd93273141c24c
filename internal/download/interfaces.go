package download

import (
	"context"

	"github.com/ytget/ytdlp-mobile/internal/model"
	"github.com/ytget/ytdlp-mobile/internal/platform"
)

// Downloader defines the interface for the download service.
type Downloader interface {
	SetEventCallback(func(model.Event))
	StartDownload(req StartRequest) (*model.DownloadTask, error)
	CancelDownload(id string) error
	GetTask(id string) (*model.DownloadTask, bool)
	GetAllTasks() []*model.DownloadTask

	// DownloadFormat fetches one format synchronously, outside task bookkeeping.
	DownloadFormat(ctx context.Context, url, formatID, outputPath string, overwrite bool, onProgress platform.ProgressFunc) error

	// SetMaxParallelDownloads sets the maximum number of parallel downloads
	SetMaxParallelDownloads(max int)

	// Close cancels running tasks and flushes pending events
	Close()
}

var _ Downloader = (*Service)(nil)
