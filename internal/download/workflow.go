package download

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ytget/ytdlp-mobile/internal/model"
	"github.com/ytget/ytdlp-mobile/internal/platform"
)

// Sidecar markers for intermediate files
const (
	TempMarker  = "temp"
	VideoMarker = "video"
	AudioMarker = "audio"
)

// runSingle handles combined and audio-only requests: one fetch, then an
// optional conversion of the raw file into the target container.
func (s *Service) runSingle(j *job, outputPath string) error {
	format := &j.req.Format
	target := format.ConvertsTo()

	fetchPath := outputPath
	if target != "" {
		fetchPath = platform.SidecarPath(outputPath, TempMarker, format.Ext)
	}

	if !s.setState(j.task, model.StateDownloading) {
		return context.Canceled
	}

	req := platform.FetchRequest{
		URL:        j.req.URL,
		FormatID:   format.FormatID,
		OutputPath: fetchPath,
		Overwrite:  j.req.Overwrite,
	}
	err := s.fetchWithRetry(j.ctx, j.task.ID, req, func(downloaded, total int64) {
		if format.Size > 0 {
			total = format.Size
		}
		s.reportProgress(j.task, downloaded, total, false)
	})
	if err != nil {
		s.cleanup(fetchPath)
		return err
	}
	s.completeProgress(j.task)

	if target == "" {
		return nil
	}

	if !s.setState(j.task, model.StateConverting) {
		s.cleanup(fetchPath)
		return context.Canceled
	}
	s.logger.Info("converting", "task_id", j.task.ID, "target", target)
	if err := s.transcoder.Convert(j.ctx, fetchPath, outputPath, target); err != nil {
		s.cleanup(fetchPath, outputPath)
		return err
	}
	return nil
}

// runMerge fetches the video and audio halves concurrently and muxes them
func (s *Service) runMerge(j *job, outputPath string) error {
	format := &j.req.Format
	videoPath := platform.SidecarPath(outputPath, VideoMarker, format.Video.Ext)
	audioPath := platform.SidecarPath(outputPath, AudioMarker, format.Audio.Ext)
	defer s.cleanup(videoPath, audioPath)

	if !s.setState(j.task, model.StateDownloading) {
		return context.Canceled
	}

	tracker := NewProgressTracker(format.TotalSize())
	report := func() {
		s.reportProgress(j.task, tracker.Downloaded(), tracker.Total(), false)
	}

	g, ctx := errgroup.WithContext(j.ctx)
	g.Go(func() error {
		req := platform.FetchRequest{URL: j.req.URL, FormatID: format.Video.FormatID, OutputPath: videoPath, Overwrite: j.req.Overwrite}
		return s.fetchWithRetry(ctx, j.task.ID, req, func(downloaded, total int64) {
			tracker.UpdateVideo(downloaded, total)
			report()
		})
	})
	g.Go(func() error {
		req := platform.FetchRequest{URL: j.req.URL, FormatID: format.Audio.FormatID, OutputPath: audioPath, Overwrite: j.req.Overwrite}
		return s.fetchWithRetry(ctx, j.task.ID, req, func(downloaded, total int64) {
			tracker.UpdateAudio(downloaded, total)
			report()
		})
	})
	if err := g.Wait(); err != nil {
		return err
	}
	s.completeProgress(j.task)

	if !s.setState(j.task, model.StateMerging) {
		return context.Canceled
	}
	s.logger.Info("merging", "task_id", j.task.ID, "video", videoPath, "audio", audioPath)
	if err := s.transcoder.Merge(j.ctx, videoPath, audioPath, outputPath); err != nil {
		s.cleanup(outputPath)
		return fmt.Errorf("merge failed: %w", err)
	}
	return nil
}

// cleanup removes files and their yt-dlp leftovers, logging failures
func (s *Service) cleanup(paths ...string) {
	for _, p := range paths {
		if err := platform.RemovePartialFiles(p); err != nil {
			s.logger.Warn("cleanup failed", "path", p, "error", err)
		}
	}
}
