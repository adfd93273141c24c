package download

import (
	"fmt"
	"strings"

	"github.com/ytget/ytdlp-mobile/internal/model"
)

// StartRequest is everything needed to start an asynchronous download
type StartRequest struct {
	URL          string                `json:"url"`
	OutputDir    string                `json:"outputDir,omitempty"`
	OverrideName string                `json:"overrideName,omitempty"`
	Overwrite    bool                  `json:"overwrite,omitempty"`
	Format       model.DownloadRequest `json:"format"`
}

// Validate checks the URL and the format selection
func (r *StartRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("url is required")
	}
	if err := r.Format.Validate(); err != nil {
		return fmt.Errorf("invalid format: %w", err)
	}
	return nil
}
