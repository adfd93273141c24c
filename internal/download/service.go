package download

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/ytget/ytdlp-mobile/internal/model"
	"github.com/ytget/ytdlp-mobile/internal/platform"
	"github.com/ytget/ytdlp-mobile/internal/transcode"
)

// Concurrency limits
const (
	DefaultMaxParallel = 2
	MinParallel        = 1
	MaxParallel        = 10
)

// Defaults for progress delivery and retries
const (
	DefaultProgressInterval = 200 * time.Millisecond
	DefaultRetries          = 1
	DefaultRetryDelay       = 2 * time.Second
	TaskIDPrefix            = "task-"
)

// ErrServiceClosed is returned by StartDownload after Close
var ErrServiceClosed = errors.New("download service is closed")

// Options configures the download service
type Options struct {
	OutputDir   string
	MaxParallel int
	// ProgressInterval is the minimum gap between progress events of a
	// task; zero disables throttling.
	ProgressInterval time.Duration
	Retries          int
	RetryDelay       time.Duration
}

func (o *Options) applyDefaults() {
	if o.MaxParallel <= 0 {
		o.MaxParallel = DefaultMaxParallel
	}
	o.MaxParallel = clampParallel(o.MaxParallel)
	if o.ProgressInterval < 0 {
		o.ProgressInterval = 0
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
}

// job is a task together with what its worker needs
type job struct {
	task   *model.DownloadTask
	req    StartRequest
	ctx    context.Context
	cancel context.CancelFunc
}

// Service handles download operations
type Service struct {
	extractor  platform.Extractor
	transcoder transcode.Transcoder
	logger     hclog.Logger
	opts       Options

	tasks       map[string]*job
	pending     []*job
	tasksMutex  sync.RWMutex
	activeCount int
	closed      bool

	baseCtx    context.Context
	baseCancel context.CancelFunc
	workers    sync.WaitGroup
	events     *eventDispatcher
}

// NewService creates a new download service
func NewService(extractor platform.Extractor, transcoder transcode.Transcoder, opts Options, logger hclog.Logger) *Service {
	opts.applyDefaults()
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		extractor:  extractor,
		transcoder: transcoder,
		logger:     logger.Named("download"),
		opts:       opts,
		tasks:      make(map[string]*job),
		baseCtx:    ctx,
		baseCancel: cancel,
		events:     newEventDispatcher(opts.ProgressInterval),
	}
}

// SetEventCallback sets the function receiving task events.
// It is called from a single goroutine, in publish order.
func (s *Service) SetEventCallback(callback func(model.Event)) {
	s.events.setSink(callback)
}

// SetMaxParallelDownloads sets the maximum number of parallel downloads
func (s *Service) SetMaxParallelDownloads(max int) {
	s.tasksMutex.Lock()
	s.opts.MaxParallel = clampParallel(max)
	s.tasksMutex.Unlock()

	s.startNextPendingTask()
}

// StartDownload validates req, registers a task in PREPARING state and
// schedules it. The returned task is a snapshot.
func (s *Service) StartDownload(req StartRequest) (*model.DownloadTask, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.OutputDir == "" {
		req.OutputDir = s.opts.OutputDir
	}
	if req.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	if s.closed {
		return nil, ErrServiceClosed
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	task := &model.DownloadTask{
		ID:        generateTaskID(),
		URL:       req.URL,
		Request:   req.Format,
		State:     model.StatePreparing,
		Total:     req.Format.TotalSize(),
		StartedAt: time.Now(),
	}
	j := &job{task: task, req: req, ctx: ctx, cancel: cancel}
	s.tasks[task.ID] = j

	s.logger.Info("task accepted", "task_id", task.ID, "url", req.URL, "type", req.Format.Type)
	s.events.publish(model.NewStateEvent(task))

	if s.activeCount < s.opts.MaxParallel {
		s.launch(j)
	} else {
		s.pending = append(s.pending, j)
	}

	return snapshot(task), nil
}

// CancelDownload stops an active task and removes its partial files
func (s *Service) CancelDownload(id string) error {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	j, exists := s.tasks[id]
	if !exists {
		return fmt.Errorf("task not found: %s", id)
	}
	if !j.task.State.IsActive() {
		return fmt.Errorf("task is not active: %s", j.task.State)
	}

	s.pending = slices.DeleteFunc(s.pending, func(p *job) bool { return p == j })
	s.finishLocked(j.task, model.StateCanceled, "")
	j.cancel()
	return nil
}

// GetTask returns a snapshot of a task by ID
func (s *Service) GetTask(id string) (*model.DownloadTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	j, exists := s.tasks[id]
	if !exists {
		return nil, false
	}
	return snapshot(j.task), true
}

// GetAllTasks returns snapshots of all tasks, oldest first
func (s *Service) GetAllTasks() []*model.DownloadTask {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()

	tasks := make([]*model.DownloadTask, 0, len(s.tasks))
	for _, j := range s.tasks {
		tasks = append(tasks, snapshot(j.task))
	}
	slices.SortFunc(tasks, func(a, b *model.DownloadTask) int {
		return strings.Compare(a.ID, b.ID)
	})
	return tasks
}

// DownloadFormat fetches one format to outputPath and blocks until done.
// Errors are logged and returned unchanged.
func (s *Service) DownloadFormat(ctx context.Context, url, formatID, outputPath string, overwrite bool, onProgress platform.ProgressFunc) error {
	req := platform.FetchRequest{URL: url, FormatID: formatID, OutputPath: outputPath, Overwrite: overwrite}
	if err := s.extractor.Fetch(ctx, req, onProgress); err != nil {
		s.logger.Error("download failed", "url", url, "format_id", formatID, "error", err)
		return err
	}
	return nil
}

// Close cancels every task, waits for workers and flushes queued events
func (s *Service) Close() {
	s.tasksMutex.Lock()
	if s.closed {
		s.tasksMutex.Unlock()
		return
	}
	s.closed = true
	for _, j := range s.pending {
		s.finishLocked(j.task, model.StateCanceled, "")
	}
	s.pending = nil
	s.tasksMutex.Unlock()

	s.baseCancel()
	s.workers.Wait()
	s.events.close()
}

// launch starts a worker; caller holds tasksMutex
func (s *Service) launch(j *job) {
	s.activeCount++
	s.workers.Add(1)
	go s.startTask(j)
}

// startNextPendingTask starts queued tasks while there is capacity
func (s *Service) startNextPendingTask() {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	for !s.closed && s.activeCount < s.opts.MaxParallel && len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.launch(next)
	}
}

// startTask runs one task to a terminal state
func (s *Service) startTask(j *job) {
	defer func() {
		j.cancel()
		s.tasksMutex.Lock()
		s.activeCount--
		s.tasksMutex.Unlock()
		s.workers.Done()

		s.startNextPendingTask()
	}()

	err := s.runTask(j)

	s.tasksMutex.Lock()
	switch {
	case j.task.State.IsFinished():
		// canceled while running
	case err != nil && j.ctx.Err() != nil:
		s.finishLocked(j.task, model.StateCanceled, "")
	case err != nil:
		s.logger.Error("task failed", "task_id", j.task.ID, "url", j.task.URL, "error", err)
		s.finishLocked(j.task, model.StateFailed, err.Error())
	default:
		s.finishLocked(j.task, model.StateCompleted, "")
	}
	canceled := j.task.State == model.StateCanceled
	outputPath := j.task.OutputPath
	s.tasksMutex.Unlock()

	// a fetch can finish after the cancel landed; its output must not survive
	if canceled && outputPath != "" {
		s.cleanup(outputPath)
	}
}

// runTask resolves the output path and dispatches to the workflow for the request type
func (s *Service) runTask(j *job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}

	title := s.resolveTitle(j)
	if err := platform.CreateDirectoryIfNotExists(j.req.OutputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	name := title
	if j.req.OverrideName != "" {
		name = j.req.OverrideName
	}
	format := &j.req.Format
	outputPath := platform.BuildOutputPath(j.req.OutputDir, name, format.FileSuffix(), format.OutputExt(), j.req.Overwrite)

	s.tasksMutex.Lock()
	j.task.Title = title
	j.task.OutputPath = outputPath
	s.tasksMutex.Unlock()

	s.logger.Info("preparing download", "task_id", j.task.ID, "url", j.req.URL, "output", outputPath)

	var err error
	if format.Type == model.FormatTypeMerge {
		err = s.runMerge(j, outputPath)
	} else {
		err = s.runSingle(j, outputPath)
	}
	if err != nil {
		return err
	}
	if err := j.ctx.Err(); err != nil {
		return err
	}

	mimeType := platform.DetectMimeType(outputPath)
	s.tasksMutex.Lock()
	j.task.MimeType = mimeType
	s.tasksMutex.Unlock()
	platform.NotifyMediaScanner(outputPath, s.logger)
	return nil
}

// resolveTitle probes the URL for a title, falling back to the default name
func (s *Service) resolveTitle(j *job) string {
	if j.req.OverrideName != "" {
		return j.req.OverrideName
	}
	info, err := s.extractor.Probe(j.ctx, j.req.URL)
	if err != nil || info.Title == "" {
		if err != nil {
			s.logger.Warn("failed to fetch title", "task_id", j.task.ID, "url", j.req.URL, "error", err)
		}
		return model.DefaultVideoTitle
	}
	return info.Title
}

// setState moves an active task to state and publishes it.
// It reports false once the task has reached a terminal state.
func (s *Service) setState(task *model.DownloadTask, state model.DownloadState) bool {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	if task.State.IsFinished() {
		return false
	}
	task.State = state
	s.logger.Debug("task state", "task_id", task.ID, "state", state)
	s.events.publish(model.NewStateEvent(task))
	return true
}

// finishLocked moves task to a terminal state; caller holds tasksMutex
func (s *Service) finishLocked(task *model.DownloadTask, state model.DownloadState, errMsg string) {
	if task.State.IsFinished() {
		return
	}
	task.State = state
	task.LastError = errMsg
	task.FinishedAt = time.Now()
	s.logger.Info("task finished", "task_id", task.ID, "state", state)
	s.events.publish(model.NewStateEvent(task))
	s.events.forget(task.ID)
}

// reportProgress records and publishes progress of an active task.
// Counts never go backwards and reports after a terminal state are dropped.
func (s *Service) reportProgress(task *model.DownloadTask, downloaded, total int64, force bool) {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	if task.State.IsFinished() {
		return
	}
	task.Downloaded = max(task.Downloaded, downloaded)
	if total > 0 {
		task.Total = total
	}
	task.Total = max(task.Total, task.Downloaded)
	s.events.publishProgress(model.NewProgressEvent(task.ID, task.Downloaded, task.Total), force)
}

// completeProgress publishes the closing downloaded == total report after a
// successful fetch. A fetch that reported nothing counts as the full expected size.
func (s *Service) completeProgress(task *model.DownloadTask) {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	if task.State.IsFinished() {
		return
	}
	if task.Downloaded <= 0 {
		task.Downloaded = task.Total
	}
	task.Total = task.Downloaded
	s.events.publishProgress(model.NewProgressEvent(task.ID, task.Downloaded, task.Total), true)
}

// fetchWithRetry calls the extractor, retrying failed transfers after a delay
func (s *Service) fetchWithRetry(ctx context.Context, taskID string, req platform.FetchRequest, onProgress platform.ProgressFunc) error {
	var lastErr error
	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.opts.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
			s.logger.Info("retrying download", "task_id", taskID, "format_id", req.FormatID, "attempt", attempt+1)
		}

		err := s.extractor.Fetch(ctx, req, onProgress)
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Warn("download attempt failed", "task_id", taskID, "format_id", req.FormatID, "attempt", attempt+1, "error", err)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

func clampParallel(n int) int {
	return min(max(n, MinParallel), MaxParallel)
}

func snapshot(task *model.DownloadTask) *model.DownloadTask {
	cp := *task
	return &cp
}

// generateTaskID generates a unique, time ordered task ID
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
