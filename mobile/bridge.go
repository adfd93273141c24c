// Package mobile is the host-facing surface of the module. Its exported
// API uses only strings, integers, booleans, errors and callback
// interfaces so it can be bound with gomobile. Query methods never fail:
// errors are logged and folded into empty results. Download methods
// return their errors.
package mobile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/ytget/ytdlp-mobile/internal/config"
	"github.com/ytget/ytdlp-mobile/internal/download"
	"github.com/ytget/ytdlp-mobile/internal/formats"
	"github.com/ytget/ytdlp-mobile/internal/logging"
	"github.com/ytget/ytdlp-mobile/internal/model"
	"github.com/ytget/ytdlp-mobile/internal/platform"
	"github.com/ytget/ytdlp-mobile/internal/transcode"
)

// JSON returned when a list query fails
const emptyList = "[]"

// ProgressCallback receives byte counts during DownloadFormat
type ProgressCallback interface {
	OnProgress(downloaded, total int64)
}

// EventSink receives JSON encoded task events from StartDownload tasks
type EventSink interface {
	OnEvent(eventJSON string)
}

// Bridge exposes metadata queries and downloads to the host app
type Bridge struct {
	extractor platform.Extractor
	playlists platform.PlaylistExpander
	downloads download.Downloader
	logger    hclog.Logger
}

// NewBridge wires the bridge from the settings at configPath. An empty
// path uses defaults and the environment.
func NewBridge(configPath string) (*Bridge, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(settings.Logging, nil)

	extractor := platform.NewYTDLPExtractor(settings.ExtractorOptions(), logger)
	if settings.Extractor.AutoInstall {
		if err := extractor.EnsureInstalled(context.Background()); err != nil {
			return nil, err
		}
	}
	transcoder := transcode.NewService(settings.FFmpeg.Path, logger)
	downloads := download.NewService(extractor, transcoder, settings.DownloadOptions(), logger)

	return newBridge(extractor, platform.NewPlaylistParser(), downloads, logger), nil
}

func newBridge(extractor platform.Extractor, playlists platform.PlaylistExpander, downloads download.Downloader, logger hclog.Logger) *Bridge {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Bridge{
		extractor: extractor,
		playlists: playlists,
		downloads: downloads,
		logger:    logger.Named("bridge"),
	}
}

// GetVideoInfo returns {title, thumbnail, formats} for url, or the
// unknown_video placeholder when metadata cannot be fetched.
func (b *Bridge) GetVideoInfo(url string) string {
	info, err := b.videoInfo(url)
	if err != nil {
		b.logger.Error("failed to fetch video info", "url", url, "error", err)
		info = model.DefaultVideoInfo()
	}
	return b.encode(info, `{"title":"unknown_video","thumbnail":null,"formats":[]}`)
}

// GetThumbnailURL returns the thumbnail URL, or "" when unavailable
func (b *Bridge) GetThumbnailURL(url string) string {
	probe, err := b.probe(url)
	if err != nil {
		b.logger.Error("failed to fetch thumbnail", "url", url, "error", err)
		return ""
	}
	return probe.Thumbnail
}

// GetCombinedFormats lists streams carrying both video and audio
func (b *Bridge) GetCombinedFormats(url string) string {
	return b.listFormats(url, "combined", func(p *model.ProbeResult) any {
		return formats.SelectCombined(p.Streams, p.DurationSeconds)
	})
}

// GetMergeCandidates pairs every video-only stream with the best audio-only stream
func (b *Bridge) GetMergeCandidates(url string) string {
	return b.listFormats(url, "merge", func(p *model.ProbeResult) any {
		return formats.PairForMerge(p.Streams, p.DurationSeconds)
	})
}

// GetCombinedFormatsExcluding lists combined streams not in the ext container
func (b *Bridge) GetCombinedFormatsExcluding(url, ext string) string {
	return b.listFormats(url, "combined excluding "+ext, func(p *model.ProbeResult) any {
		return formats.SelectCombinedExcluding(p.Streams, ext, p.DurationSeconds)
	})
}

// GetAudioOnlyFormats lists streams carrying only audio
func (b *Bridge) GetAudioOnlyFormats(url string) string {
	return b.listFormats(url, "audio-only", func(p *model.ProbeResult) any {
		return formats.SelectAudioOnly(p.Streams, p.DurationSeconds)
	})
}

// GetAudioOnlyFormatsExcluding lists audio-only streams not in the ext container
func (b *Bridge) GetAudioOnlyFormatsExcluding(url, ext string) string {
	return b.listFormats(url, "audio-only excluding "+ext, func(p *model.ProbeResult) any {
		return formats.SelectAudioOnlyExcluding(p.Streams, ext, p.DurationSeconds)
	})
}

// GetPlaylistEntries expands a playlist URL into {id, title, url, entries}
func (b *Bridge) GetPlaylistEntries(url string) string {
	playlist, err := b.playlists.ParsePlaylist(context.Background(), url)
	if err != nil {
		b.logger.Error("failed to parse playlist", "url", url, "error", err)
		playlist = model.NewPlaylist(url)
	}
	return b.encode(playlist, `{"entries":[]}`)
}

// DownloadFormat downloads one format to outputPath, blocking until done.
// Failures are logged and returned.
func (b *Bridge) DownloadFormat(url, formatID, outputPath string, overwrite bool, callback ProgressCallback) error {
	var onProgress platform.ProgressFunc
	if callback != nil {
		onProgress = callback.OnProgress
	}
	return b.downloads.DownloadFormat(context.Background(), url, formatID, outputPath, overwrite, onProgress)
}

// SetEventSink routes task events to sink; nil stops delivery
func (b *Bridge) SetEventSink(sink EventSink) {
	if sink == nil {
		b.downloads.SetEventCallback(nil)
		return
	}
	b.downloads.SetEventCallback(func(ev model.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			b.logger.Error("failed to encode event", "task_id", ev.TaskID, "error", err)
			return
		}
		sink.OnEvent(string(data))
	})
}

// StartDownload starts an asynchronous download described by requestJSON
// ({url, outputDir, overrideName, overwrite, format}) and returns its task id.
func (b *Bridge) StartDownload(requestJSON string) (string, error) {
	var req download.StartRequest
	if err := json.Unmarshal([]byte(requestJSON), &req); err != nil {
		return "", fmt.Errorf("invalid download request: %w", err)
	}
	task, err := b.downloads.StartDownload(req)
	if err != nil {
		b.logger.Error("failed to start download", "url", req.URL, "error", err)
		return "", err
	}
	return task.ID, nil
}

// CancelDownload cancels an active task
func (b *Bridge) CancelDownload(taskID string) error {
	return b.downloads.CancelDownload(taskID)
}

// GetTaskState returns the latest state event of a task, or "" if unknown
func (b *Bridge) GetTaskState(taskID string) string {
	task, ok := b.downloads.GetTask(taskID)
	if !ok {
		return ""
	}
	return b.encode(model.NewStateEvent(task), "")
}

// SetMaxParallelDownloads sets how many tasks run at once (1..10)
func (b *Bridge) SetMaxParallelDownloads(n int) {
	b.downloads.SetMaxParallelDownloads(n)
}

// Close cancels running tasks and flushes pending events
func (b *Bridge) Close() {
	b.downloads.Close()
}

func (b *Bridge) probe(url string) (*model.ProbeResult, error) {
	return b.extractor.Probe(context.Background(), url)
}

func (b *Bridge) videoInfo(url string) (model.VideoInfo, error) {
	probe, err := b.probe(url)
	if err != nil {
		return model.VideoInfo{}, err
	}
	info := model.VideoInfo{
		Title:   probe.Title,
		Formats: formats.SanitizeAll(probe.Streams, probe.DurationSeconds),
	}
	if info.Title == "" {
		info.Title = model.DefaultVideoTitle
	}
	if probe.Thumbnail != "" {
		thumb := probe.Thumbnail
		info.Thumbnail = &thumb
	}
	return info, nil
}

// listFormats probes url and encodes the selection, or [] on failure
func (b *Bridge) listFormats(url, kind string, selectFn func(*model.ProbeResult) any) string {
	probe, err := b.probe(url)
	if err != nil {
		b.logger.Error("failed to fetch formats", "url", url, "kind", kind, "error", err)
		return emptyList
	}
	return b.encode(selectFn(probe), emptyList)
}

func (b *Bridge) encode(v any, fallback string) string {
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("failed to encode response", "error", err)
		return fallback
	}
	return string(data)
}
