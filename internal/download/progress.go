package download

import "sync/atomic"

// ProgressTracker sums the progress of the video and audio halves of a merge
type ProgressTracker struct {
	expected   int64
	video      atomic.Int64
	audio      atomic.Int64
	videoTotal atomic.Int64
	audioTotal atomic.Int64
}

// NewProgressTracker creates a tracker; expected is the announced size of both halves
func NewProgressTracker(expected int64) *ProgressTracker {
	return &ProgressTracker{expected: expected}
}

// UpdateVideo records the video transfer state
func (p *ProgressTracker) UpdateVideo(downloaded, total int64) {
	p.video.Store(downloaded)
	p.videoTotal.Store(total)
}

// UpdateAudio records the audio transfer state
func (p *ProgressTracker) UpdateAudio(downloaded, total int64) {
	p.audio.Store(downloaded)
	p.audioTotal.Store(total)
}

// Downloaded returns the combined transferred bytes
func (p *ProgressTracker) Downloaded() int64 {
	return p.video.Load() + p.audio.Load()
}

// Total returns the announced size, or the reported totals when none was
// announced. It never falls below Downloaded.
func (p *ProgressTracker) Total() int64 {
	total := p.expected
	if total <= 0 {
		total = p.videoTotal.Load() + p.audioTotal.Load()
	}
	return max(total, p.Downloaded())
}
