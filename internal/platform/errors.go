package platform

import (
	"errors"
	"fmt"
)

// ErrNoMetadata is returned when the extractor succeeded but produced no info document.
var ErrNoMetadata = errors.New("extractor returned no metadata")

// ExtractionError reports a URL that could not be resolved into metadata
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// DownloadError reports a failed transfer of one format
type DownloadError struct {
	URL      string
	FormatID string
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s (format %s): %v", e.URL, e.FormatID, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
