package model

// DownloadState represents the lifecycle state of a download task
type DownloadState string

const (
	// StatePreparing means the task was accepted and its output is being resolved
	StatePreparing DownloadState = "PREPARING"

	// StateDownloading means media bytes are being transferred
	StateDownloading DownloadState = "DOWNLOADING"

	// StateConverting means the downloaded file is being transcoded
	StateConverting DownloadState = "CONVERTING"

	// StateMerging means separate video and audio files are being muxed
	StateMerging DownloadState = "MERGING"

	// StateCompleted means the output file is ready
	StateCompleted DownloadState = "COMPLETED"

	// StateCanceled means the task was canceled by the host
	StateCanceled DownloadState = "CANCELED"

	// StateFailed means the task stopped with an error
	StateFailed DownloadState = "FAILED"
)

// stateOrdinals is the numeric encoding the host app switches on.
var stateOrdinals = map[DownloadState]int{
	StatePreparing:   0,
	StateDownloading: 1,
	StateConverting:  2,
	StateMerging:     3,
	StateCompleted:   4,
	StateCanceled:    5,
	StateFailed:      6,
}

// String returns the string representation of DownloadState
func (s DownloadState) String() string {
	return string(s)
}

// Ordinal returns the numeric code of the state, or -1 if unknown
func (s DownloadState) Ordinal() int {
	if o, ok := stateOrdinals[s]; ok {
		return o
	}
	return -1
}

// IsActive returns true if the task still holds resources
func (s DownloadState) IsActive() bool {
	switch s {
	case StatePreparing, StateDownloading, StateConverting, StateMerging:
		return true
	}
	return false
}

// IsFinished returns true if the task is in a terminal state (completed, canceled, or failed)
func (s DownloadState) IsFinished() bool {
	return s == StateCompleted || s == StateCanceled || s == StateFailed
}
