package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/lrstanley/go-ytdlp"

	"github.com/ytget/ytdlp-mobile/internal/model"
)

// Timeout and cadence defaults
const (
	DefaultProbeTimeout     = 60 * time.Second
	DefaultProgressInterval = 250 * time.Millisecond
)

// UserAgentHeader is the header yt-dlp receives the configured user agent in.
const UserAgentHeader = "User-Agent:"

// ExtractorOptions tunes the yt-dlp invocation. None of these change
// which formats are reported, only how yt-dlp fetches them.
type ExtractorOptions struct {
	Executable          string
	ConcurrentFragments int
	UserAgent           string
	CacheDir            string
	ProbeTimeout        time.Duration
	ProgressInterval    time.Duration
}

// YTDLPExtractor implements Extractor on top of the yt-dlp executable
type YTDLPExtractor struct {
	opts   ExtractorOptions
	logger hclog.Logger
}

// NewYTDLPExtractor creates a new extractor
func NewYTDLPExtractor(opts ExtractorOptions, logger hclog.Logger) *YTDLPExtractor {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &YTDLPExtractor{
		opts:   opts,
		logger: logger.Named("ytdlp"),
	}
}

// EnsureInstalled downloads a yt-dlp binary when none is configured or found on PATH.
func (e *YTDLPExtractor) EnsureInstalled(ctx context.Context) error {
	if e.opts.Executable != "" {
		return nil
	}
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	e.logger.Debug("yt-dlp available")
	return nil
}

// command builds the base invocation shared by probe and fetch
func (e *YTDLPExtractor) command() *ytdlp.Command {
	dl := ytdlp.New().NoPlaylist()
	if e.opts.Executable != "" {
		dl = dl.SetExecutable(e.opts.Executable)
	}
	if e.opts.ConcurrentFragments > 0 {
		dl = dl.ConcurrentFragments(e.opts.ConcurrentFragments)
	}
	if e.opts.UserAgent != "" {
		dl = dl.AddHeaders(UserAgentHeader + e.opts.UserAgent)
	}
	if e.opts.CacheDir != "" {
		dl = dl.CacheDir(e.opts.CacheDir)
	}
	return dl
}

// Probe fetches metadata and the stream list for url
func (e *YTDLPExtractor) Probe(ctx context.Context, url string) (*model.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.ProbeTimeout)
	defer cancel()

	dl := e.command().SkipDownload().PrintJSON()

	start := time.Now()
	res, err := dl.Run(ctx, url)
	if err != nil {
		return nil, &ExtractionError{URL: url, Err: err}
	}

	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, &ExtractionError{URL: url, Err: fmt.Errorf("failed to parse metadata: %w", err)}
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, &ExtractionError{URL: url, Err: ErrNoMetadata}
	}

	result := probeResultFromInfo(infos[0])
	e.logger.Debug("probed", "url", url, "streams", len(result.Streams), "elapsed", time.Since(start))
	return result, nil
}

// Fetch downloads one format of url to req.OutputPath
func (e *YTDLPExtractor) Fetch(ctx context.Context, req FetchRequest, onProgress ProgressFunc) error {
	dl := e.command().
		Format(req.FormatID).
		Output(req.OutputPath)
	if req.Overwrite {
		dl = dl.ForceOverwrites()
	} else {
		dl = dl.NoOverwrites()
	}

	reporter := newProgressReporter(onProgress)
	dl = dl.ProgressFunc(e.opts.ProgressInterval, reporter.update)

	e.logger.Info("starting download", "url", req.URL, "format_id", req.FormatID, "output", req.OutputPath)
	if _, err := dl.Run(ctx, req.URL); err != nil {
		return &DownloadError{URL: req.URL, FormatID: req.FormatID, Err: err}
	}
	reporter.finish()
	e.logger.Info("download completed", "url", req.URL, "output", req.OutputPath)
	return nil
}

func probeResultFromInfo(info *ytdlp.ExtractedInfo) *model.ProbeResult {
	result := &model.ProbeResult{
		Title:           deref(info.Title),
		Thumbnail:       deref(info.Thumbnail),
		DurationSeconds: float64(deref(info.Duration)),
		Streams:         make([]model.StreamDescriptor, 0, len(info.Formats)),
	}
	for _, f := range info.Formats {
		if f == nil {
			continue
		}
		result.Streams = append(result.Streams, descriptorFromFormat(f))
	}
	return result
}

func descriptorFromFormat(f *ytdlp.ExtractedFormat) model.StreamDescriptor {
	return model.StreamDescriptor{
		FormatID:       deref(f.FormatID),
		Container:      deref(f.Extension),
		VideoCodec:     deref(f.VCodec),
		AudioCodec:     deref(f.ACodec),
		Resolution:     deref(f.Resolution),
		BitrateKbps:    float64(deref(f.TBR)),
		FileSize:       int64(deref(f.FileSize)),
		FileSizeApprox: int64(deref(f.FileSizeApprox)),
	}
}

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// progressReporter turns yt-dlp progress updates into a non-decreasing
// (downloaded, total) stream that ends with downloaded == total.
type progressReporter struct {
	mu         sync.Mutex
	fn         ProgressFunc
	downloaded int64
	total      int64
	done       bool
}

func newProgressReporter(fn ProgressFunc) *progressReporter {
	return &progressReporter{fn: fn}
}

func (r *progressReporter) update(update ytdlp.ProgressUpdate) {
	switch update.Status {
	case ytdlp.ProgressStatusDownloading:
		r.report(int64(update.DownloadedBytes), int64(update.TotalBytes))
	case ytdlp.ProgressStatusFinished:
		r.report(int64(update.DownloadedBytes), int64(update.TotalBytes))
		r.finish()
	}
}

func (r *progressReporter) report(downloaded, total int64) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.downloaded = max(r.downloaded, downloaded)
	r.total = max(r.total, total)
	if r.total > 0 && r.downloaded > r.total {
		r.total = r.downloaded
	}
	d, t := r.downloaded, r.total
	r.mu.Unlock()

	if r.fn != nil {
		r.fn(d, t)
	}
}

// finish emits the closing report once. With no known total the
// transferred count doubles as the total.
func (r *progressReporter) finish() {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	if r.total == 0 {
		r.total = r.downloaded
	}
	r.downloaded = r.total
	t := r.total
	r.mu.Unlock()

	if r.fn != nil {
		r.fn(t, t)
	}
}
