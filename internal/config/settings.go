// Package config loads runtime settings from defaults, an optional YAML
// file and YTDLP_MOBILE_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ytget/ytdlp-mobile/internal/download"
	"github.com/ytget/ytdlp-mobile/internal/platform"
)

// Environment variable that points at the settings file
const EnvConfigFile = "YTDLP_MOBILE_CONFIG"

// Default values
const (
	DefaultMaxParallel      = download.DefaultMaxParallel
	DefaultProgressInterval = download.DefaultProgressInterval
	DefaultRetries          = download.DefaultRetries
	DefaultRetryDelay       = download.DefaultRetryDelay
	DefaultProbeTimeout     = platform.DefaultProbeTimeout
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	FallbackDownloadDir     = "/tmp/downloads"
)

// Parallelism bounds
const (
	MinParallel = download.MinParallel
	MaxParallel = download.MaxParallel
)

// Settings is the complete runtime configuration
type Settings struct {
	Download  DownloadSettings  `yaml:"download"`
	Extractor ExtractorSettings `yaml:"extractor"`
	FFmpeg    FFmpegSettings    `yaml:"ffmpeg"`
	Logging   LoggingSettings   `yaml:"logging"`
}

// DownloadSettings configures the task service
type DownloadSettings struct {
	Directory        string        `yaml:"directory" env:"YTDLP_MOBILE_DOWNLOAD_DIR"`
	MaxParallel      int           `yaml:"max_parallel" env:"YTDLP_MOBILE_MAX_PARALLEL"`
	ProgressInterval time.Duration `yaml:"progress_interval" env:"YTDLP_MOBILE_PROGRESS_INTERVAL"`
	Retries          int           `yaml:"retries" env:"YTDLP_MOBILE_RETRIES"`
	RetryDelay       time.Duration `yaml:"retry_delay" env:"YTDLP_MOBILE_RETRY_DELAY"`
}

// ExtractorSettings tunes the yt-dlp invocation
type ExtractorSettings struct {
	Executable          string        `yaml:"executable" env:"YTDLP_MOBILE_YTDLP_PATH"`
	AutoInstall         bool          `yaml:"auto_install" env:"YTDLP_MOBILE_YTDLP_AUTO_INSTALL"`
	ConcurrentFragments int           `yaml:"concurrent_fragments" env:"YTDLP_MOBILE_CONCURRENT_FRAGMENTS"`
	UserAgent           string        `yaml:"user_agent" env:"YTDLP_MOBILE_USER_AGENT"`
	CacheDir            string        `yaml:"cache_dir" env:"YTDLP_MOBILE_CACHE_DIR"`
	ProbeTimeout        time.Duration `yaml:"probe_timeout" env:"YTDLP_MOBILE_PROBE_TIMEOUT"`
}

// FFmpegSettings locates the ffmpeg binary
type FFmpegSettings struct {
	Path string `yaml:"path" env:"YTDLP_MOBILE_FFMPEG_PATH"`
}

// LoggingSettings configures the hclog root logger
type LoggingSettings struct {
	Level  string `yaml:"level" env:"YTDLP_MOBILE_LOG_LEVEL"`
	Format string `yaml:"format" env:"YTDLP_MOBILE_LOG_FORMAT"`
}

// DefaultSettings returns settings with every field populated
func DefaultSettings() *Settings {
	dir, err := platform.GetHomeDownloadsDir()
	if err != nil {
		dir = FallbackDownloadDir
	}
	return &Settings{
		Download: DownloadSettings{
			Directory:        dir,
			MaxParallel:      DefaultMaxParallel,
			ProgressInterval: DefaultProgressInterval,
			Retries:          DefaultRetries,
			RetryDelay:       DefaultRetryDelay,
		},
		Extractor: ExtractorSettings{
			ProbeTimeout: DefaultProbeTimeout,
		},
		Logging: LoggingSettings{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load builds settings from defaults, the YAML file at path (if it exists)
// and the environment. An empty path falls back to $YTDLP_MOBILE_CONFIG.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" && fileExists(path) {
		if err := loadFromFile(path, settings); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(settings).Elem()); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// Validate normalizes out-of-range values and rejects unusable ones
func (s *Settings) Validate() error {
	s.SetMaxParallelDownloads(s.Download.MaxParallel)
	if s.Download.Retries < 0 {
		s.Download.Retries = 0
	}
	if s.Download.ProgressInterval < 0 {
		return fmt.Errorf("progress interval must not be negative: %s", s.Download.ProgressInterval)
	}
	if s.Extractor.ConcurrentFragments < 0 {
		return fmt.Errorf("concurrent fragments must not be negative: %d", s.Extractor.ConcurrentFragments)
	}
	switch strings.ToLower(s.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %q", s.Logging.Format)
	}
	if s.Download.Directory == "" {
		return fmt.Errorf("download directory is required")
	}
	return nil
}

// SetMaxParallelDownloads sets the maximum number of parallel downloads
func (s *Settings) SetMaxParallelDownloads(count int) {
	if count < MinParallel {
		count = MinParallel
	}
	if count > MaxParallel {
		count = MaxParallel
	}
	s.Download.MaxParallel = count
}

// DownloadOptions maps the settings onto the download service options
func (s *Settings) DownloadOptions() download.Options {
	return download.Options{
		OutputDir:        s.Download.Directory,
		MaxParallel:      s.Download.MaxParallel,
		ProgressInterval: s.Download.ProgressInterval,
		Retries:          s.Download.Retries,
		RetryDelay:       s.Download.RetryDelay,
	}
}

// ExtractorOptions maps the settings onto the yt-dlp extractor options
func (s *Settings) ExtractorOptions() platform.ExtractorOptions {
	return platform.ExtractorOptions{
		Executable:          s.Extractor.Executable,
		ConcurrentFragments: s.Extractor.ConcurrentFragments,
		UserAgent:           s.Extractor.UserAgent,
		CacheDir:            s.Extractor.CacheDir,
		ProbeTimeout:        s.Extractor.ProbeTimeout,
	}
}

func loadFromFile(path string, settings *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, settings)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

// loadStructFromEnv overrides tagged fields with set environment variables
func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}
		envValue, ok := os.LookupEnv(envTag)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from %s: %w", fieldType.Name, envTag, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(intVal)
		}
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
