package model

import (
	"fmt"
	"strings"
	"time"
)

// FormatType selects the download workflow for a request
type FormatType string

const (
	FormatTypeCombined  FormatType = "combined"
	FormatTypeMerge     FormatType = "merge"
	FormatTypeAudioOnly FormatType = "audio_only"
)

// DownloadRequest is the format selection the host sends with a download.
// For merge requests Video and Audio are set; otherwise the flat fields are.
type DownloadRequest struct {
	Type            FormatType        `json:"type"`
	FormatID        string            `json:"formatId,omitempty"`
	Ext             string            `json:"ext,omitempty"`
	Resolution      string            `json:"resolution,omitempty"`
	Bitrate         int               `json:"bitrate,omitempty"`
	Size            int64             `json:"size,omitempty"`
	NeedsConversion bool              `json:"needsConversion,omitempty"`
	DownloadAsRaw   *bool             `json:"downloadAsRaw,omitempty"`
	Video           *ClassifiedFormat `json:"video,omitempty"`
	Audio           *ClassifiedFormat `json:"audio,omitempty"`
}

// Validate checks that the request carries what its workflow needs
func (r *DownloadRequest) Validate() error {
	switch r.Type {
	case FormatTypeCombined, FormatTypeAudioOnly:
		if r.FormatID == "" {
			return fmt.Errorf("format id missing for %s download", r.Type)
		}
		if r.Ext == "" {
			return fmt.Errorf("extension missing for %s download", r.Type)
		}
	case FormatTypeMerge:
		if r.Video == nil || r.Audio == nil {
			return fmt.Errorf("merge download requires both video and audio formats")
		}
		if r.Video.FormatID == "" || r.Audio.FormatID == "" {
			return fmt.Errorf("merge download requires video and audio format ids")
		}
	default:
		return fmt.Errorf("unknown format type: %q", r.Type)
	}
	return nil
}

// Raw reports whether the file should be kept in its source container.
// Requests default to raw when the host does not say otherwise.
func (r *DownloadRequest) Raw() bool {
	return r.DownloadAsRaw == nil || *r.DownloadAsRaw
}

// ConvertsTo returns the target container when the request needs
// transcoding after download, or "" when the raw file is the output.
func (r *DownloadRequest) ConvertsTo() string {
	if !r.NeedsConversion || r.Raw() {
		return ""
	}
	switch r.Type {
	case FormatTypeCombined:
		return ExtensionMP4
	case FormatTypeAudioOnly:
		return ExtensionMP3
	}
	return ""
}

// OutputExt returns the extension of the final output file
func (r *DownloadRequest) OutputExt() string {
	if r.Type == FormatTypeMerge {
		return ExtensionMP4
	}
	if target := r.ConvertsTo(); target != "" {
		return target
	}
	return r.Ext
}

// FileSuffix describes the chosen quality for use in file names
func (r *DownloadRequest) FileSuffix() string {
	switch r.Type {
	case FormatTypeCombined:
		return fmt.Sprintf("%s_%dkbps", r.Resolution, r.Bitrate)
	case FormatTypeMerge:
		return fmt.Sprintf("%s_%dkbps", r.Video.Resolution, r.Audio.Bitrate)
	default:
		return fmt.Sprintf("%dkbps", r.Bitrate)
	}
}

// TotalSize is the expected number of bytes the request transfers
func (r *DownloadRequest) TotalSize() int64 {
	if r.Type == FormatTypeMerge {
		return r.Video.Size + r.Audio.Size
	}
	return r.Size
}

// DownloadTask represents a single download task
type DownloadTask struct {
	ID         string
	URL        string
	Request    DownloadRequest
	State      DownloadState
	Downloaded int64     // bytes transferred so far
	Total      int64     // expected bytes, 0 if unknown
	LastError  string    // last error message if any
	OutputPath string    // path to the produced file
	MimeType   string    // sniffed MIME type of the output
	Title      string    // video title
	StartedAt  time.Time // when the task was accepted
	FinishedAt time.Time // when the task reached a terminal state
}

// Percent returns progress as 0..100, or 0 while the total is unknown
func (dt *DownloadTask) Percent() int {
	if dt.Total <= 0 {
		return 0
	}
	if dt.Downloaded >= dt.Total {
		return 100
	}
	return int(dt.Downloaded * 100 / dt.Total)
}

// GetDisplayTitle returns title, filename, or URL in order of preference
func (dt *DownloadTask) GetDisplayTitle() string {
	if dt.Title != "" && dt.Title != DefaultVideoTitle {
		return dt.Title
	}

	if dt.OutputPath != "" {
		parts := strings.FieldsFunc(dt.OutputPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.LastIndex(filename, "."); idx > 0 {
				filename = filename[:idx]
			}
			return filename
		}
	}

	return dt.URL
}

// EventType distinguishes progress reports from state transitions
type EventType string

const (
	EventTypeProgress EventType = "progress"
	EventTypeState    EventType = "state"
)

// Event is a task notification delivered to the host
type Event struct {
	TaskID     string    `json:"taskId"`
	Type       EventType `json:"type"`
	Downloaded *int64    `json:"downloaded,omitempty"`
	Total      *int64    `json:"total,omitempty"`
	State      *int      `json:"state,omitempty"`
	StateName  string    `json:"stateName,omitempty"`
	OutputPath string    `json:"outputPath,omitempty"`
	MimeType   string    `json:"mimeType,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// NewProgressEvent builds a progress notification
func NewProgressEvent(taskID string, downloaded, total int64) Event {
	return Event{
		TaskID:     taskID,
		Type:       EventTypeProgress,
		Downloaded: &downloaded,
		Total:      &total,
	}
}

// NewStateEvent builds a state notification for the task's current state
func NewStateEvent(task *DownloadTask) Event {
	ordinal := task.State.Ordinal()
	ev := Event{
		TaskID:    task.ID,
		Type:      EventTypeState,
		State:     &ordinal,
		StateName: task.State.String(),
	}
	switch task.State {
	case StateCompleted:
		ev.OutputPath = task.OutputPath
		ev.MimeType = task.MimeType
	case StateFailed:
		ev.Error = task.LastError
	}
	return ev
}
