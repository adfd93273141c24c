// Package logging builds the root hclog logger from settings.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/ytget/ytdlp-mobile/internal/config"
)

// RootName is the name of the root logger
const RootName = "ytdlp-mobile"

// New creates the root logger. A nil out writes to stderr.
func New(settings config.LoggingSettings, out io.Writer) hclog.Logger {
	if out == nil {
		out = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       RootName,
		Level:      ParseLevel(settings.Level),
		Output:     out,
		JSONFormat: strings.EqualFold(settings.Format, "json"),
	})
}

// ParseLevel maps a level name to hclog, defaulting to info
func ParseLevel(level string) hclog.Level {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		return hclog.Info
	}
	return lvl
}
