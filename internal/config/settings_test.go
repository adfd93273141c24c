package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.NotEmpty(t, s.Download.Directory)
	assert.Equal(t, DefaultMaxParallel, s.Download.MaxParallel)
	assert.Equal(t, DefaultProgressInterval, s.Download.ProgressInterval)
	assert.Equal(t, DefaultRetries, s.Download.Retries)
	assert.Equal(t, DefaultProbeTimeout, s.Extractor.ProbeTimeout)
	assert.Equal(t, DefaultLogLevel, s.Logging.Level)
	assert.Equal(t, DefaultLogFormat, s.Logging.Format)
	assert.NoError(t, s.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	s, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxParallel, s.Download.MaxParallel)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
download:
  directory: /data/media
  max_parallel: 4
  progress_interval: 500ms
extractor:
  executable: /opt/yt-dlp
  concurrent_fragments: 8
  user_agent: test-agent
ffmpeg:
  path: /opt/ffmpeg
logging:
  level: debug
  format: json
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/media", s.Download.Directory)
	assert.Equal(t, 4, s.Download.MaxParallel)
	assert.Equal(t, 500*time.Millisecond, s.Download.ProgressInterval)
	assert.Equal(t, "/opt/yt-dlp", s.Extractor.Executable)
	assert.Equal(t, 8, s.Extractor.ConcurrentFragments)
	assert.Equal(t, "test-agent", s.Extractor.UserAgent)
	assert.Equal(t, "/opt/ffmpeg", s.FFmpeg.Path)
	assert.Equal(t, "debug", s.Logging.Level)
	assert.Equal(t, "json", s.Logging.Format)

	// untouched keys keep their defaults
	assert.Equal(t, DefaultRetries, s.Download.Retries)
	assert.Equal(t, DefaultProbeTimeout, s.Extractor.ProbeTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "download:\n  max_parallel: 4\n  directory: /from/file\n")
	t.Setenv("YTDLP_MOBILE_MAX_PARALLEL", "6")
	t.Setenv("YTDLP_MOBILE_RETRY_DELAY", "5s")
	t.Setenv("YTDLP_MOBILE_YTDLP_AUTO_INSTALL", "true")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6, s.Download.MaxParallel)
	assert.Equal(t, "/from/file", s.Download.Directory)
	assert.Equal(t, 5*time.Second, s.Download.RetryDelay)
	assert.True(t, s.Extractor.AutoInstall)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: warn\n")
	t.Setenv(EnvConfigFile, path)

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", s.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{"bad yaml", "download: [", nil},
		{"bad env int", "", map[string]string{"YTDLP_MOBILE_MAX_PARALLEL": "many"}},
		{"bad env duration", "", map[string]string{"YTDLP_MOBILE_PROBE_TIMEOUT": "soon"}},
		{"bad log format", "logging:\n  format: xml\n", nil},
		{"negative fragments", "extractor:\n  concurrent_fragments: -2\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "unsupported config file format")
}

func TestMaxParallelDownloads(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"should set valid value", 5, 5},
		{"should clamp to minimum 1", 0, 1},
		{"should clamp negative to 1", -5, 1},
		{"should clamp to maximum 10", 15, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			s.SetMaxParallelDownloads(tt.input)
			assert.Equal(t, tt.expected, s.Download.MaxParallel)
		})
	}
}

func TestOptionMapping(t *testing.T) {
	s := DefaultSettings()
	s.Download.Directory = "/out"
	s.Extractor.UserAgent = "agent"
	s.Extractor.ConcurrentFragments = 3

	dl := s.DownloadOptions()
	assert.Equal(t, "/out", dl.OutputDir)
	assert.Equal(t, s.Download.MaxParallel, dl.MaxParallel)
	assert.Equal(t, s.Download.RetryDelay, dl.RetryDelay)

	ex := s.ExtractorOptions()
	assert.Equal(t, "agent", ex.UserAgent)
	assert.Equal(t, 3, ex.ConcurrentFragments)
	assert.Equal(t, s.Extractor.ProbeTimeout, ex.ProbeTimeout)
}
