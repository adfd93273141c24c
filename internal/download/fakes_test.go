package download

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ytget/ytdlp-mobile/internal/model"
	"github.com/ytget/ytdlp-mobile/internal/platform"
	"github.com/ytget/ytdlp-mobile/internal/transcode"
)

var mp4Header = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0x00, 0x00, 0x00, 0x00}

// fakeExtractor writes a small file for every fetch and replays progress.
type fakeExtractor struct {
	mu        sync.Mutex
	title     string
	probeErr  error
	fetchErrs []error
	progress  [][2]int64
	block     bool
	release   chan struct{}
	started   chan string
	fetches   []platform.FetchRequest
	// afterFetch runs once the output file has been written
	afterFetch func()
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		title:    "My Video",
		progress: [][2]int64{{50, 100}, {100, 100}},
		release:  make(chan struct{}),
		started:  make(chan string, 16),
	}
}

func (f *fakeExtractor) Probe(ctx context.Context, url string) (*model.ProbeResult, error) {
	if f.probeErr != nil {
		return nil, &platform.ExtractionError{URL: url, Err: f.probeErr}
	}
	return &model.ProbeResult{Title: f.title}, nil
}

func (f *fakeExtractor) Fetch(ctx context.Context, req platform.FetchRequest, onProgress platform.ProgressFunc) error {
	f.mu.Lock()
	f.fetches = append(f.fetches, req)
	var err error
	if len(f.fetchErrs) > 0 {
		err = f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
	}
	block := f.block
	afterFetch := f.afterFetch
	f.mu.Unlock()

	f.started <- req.FormatID

	if block {
		if werr := os.WriteFile(req.OutputPath+".part", []byte("partial"), 0644); werr != nil {
			return werr
		}
		select {
		case <-ctx.Done():
			return &platform.DownloadError{URL: req.URL, FormatID: req.FormatID, Err: ctx.Err()}
		case <-f.release:
			os.Remove(req.OutputPath + ".part")
		}
	}
	if err != nil {
		return err
	}
	for _, p := range f.progress {
		if onProgress != nil {
			onProgress(p[0], p[1])
		}
	}
	if err := os.WriteFile(req.OutputPath, mp4Header, 0644); err != nil {
		return err
	}
	if afterFetch != nil {
		afterFetch()
	}
	return nil
}

func (f *fakeExtractor) fetchCalls() []platform.FetchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.FetchRequest(nil), f.fetches...)
}

type transcodeCall struct {
	op     string
	inputs []string
	output string
	target string
}

// fakeTranscoder records calls and produces the output file.
type fakeTranscoder struct {
	mu    sync.Mutex
	err   error
	calls []transcodeCall
}

func (f *fakeTranscoder) Merge(ctx context.Context, videoPath, audioPath, outputPath string) error {
	f.mu.Lock()
	f.calls = append(f.calls, transcodeCall{op: "merge", inputs: []string{videoPath, audioPath}, output: outputPath})
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, mp4Header, 0644)
}

func (f *fakeTranscoder) Convert(ctx context.Context, inputPath, outputPath, target string) error {
	f.mu.Lock()
	f.calls = append(f.calls, transcodeCall{op: "convert", inputs: []string{inputPath}, output: outputPath, target: target})
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, []byte("ID3\x03\x00\x00\x00\x00\x00\x00"), 0644); err != nil {
		return err
	}
	return os.Remove(inputPath)
}

func (f *fakeTranscoder) recorded() []transcodeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transcodeCall(nil), f.calls...)
}

var _ transcode.Transcoder = (*fakeTranscoder)(nil)

// eventRecorder collects events delivered by the dispatcher.
type eventRecorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *eventRecorder) record(ev model.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) all() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

func (r *eventRecorder) states(taskID string) []string {
	var names []string
	for _, ev := range r.all() {
		if ev.TaskID == taskID && ev.Type == model.EventTypeState {
			names = append(names, ev.StateName)
		}
	}
	return names
}

func (r *eventRecorder) progress(taskID string) []model.Event {
	var out []model.Event
	for _, ev := range r.all() {
		if ev.TaskID == taskID && ev.Type == model.EventTypeProgress {
			out = append(out, ev)
		}
	}
	return out
}

type testHarness struct {
	service    *Service
	extractor  *fakeExtractor
	transcoder *fakeTranscoder
	events     *eventRecorder
	dir        string
}

func newHarness(t *testing.T, opts Options) *testHarness {
	t.Helper()
	h := &testHarness{
		extractor:  newFakeExtractor(),
		transcoder: &fakeTranscoder{},
		events:     &eventRecorder{},
		dir:        t.TempDir(),
	}
	if opts.OutputDir == "" {
		opts.OutputDir = h.dir
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	h.service = NewService(h.extractor, h.transcoder, opts, nil)
	h.service.SetEventCallback(h.events.record)
	t.Cleanup(h.service.Close)
	return h
}

func (h *testHarness) waitForState(t *testing.T, id string, state model.DownloadState) *model.DownloadTask {
	t.Helper()
	var task *model.DownloadTask
	require.Eventually(t, func() bool {
		var ok bool
		task, ok = h.service.GetTask(id)
		return ok && task.State == state
	}, 2*time.Second, 5*time.Millisecond, "task %s never reached %s", id, state)
	return task
}

func (h *testHarness) path(name string) string {
	return filepath.Join(h.dir, name)
}

func combinedRequest(url string) StartRequest {
	return StartRequest{
		URL: url,
		Format: model.DownloadRequest{
			Type:       model.FormatTypeCombined,
			FormatID:   "18",
			Ext:        "mp4",
			Resolution: "720p",
			Bitrate:    500,
			Size:       100,
		},
	}
}
