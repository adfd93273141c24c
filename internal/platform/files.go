package platform

import (
	"fmt"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/h2non/filetype"
	"github.com/hashicorp/go-hclog"
)

// Operating system constants
const (
	OSAndroid = "android"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Android paths and intents
const (
	AndroidDownloadsDir    = "/sdcard/Download"
	MediaScannerAction     = "android.intent.action.MEDIA_SCANNER_SCAN_FILE"
	ActivityManagerCommand = "am"
)

// Fallback MIME type when neither content nor extension identifies the file
const DefaultMimeType = "application/octet-stream"

// Intermediate files yt-dlp leaves behind on interrupted transfers
var (
	SkippedExtensions = []string{".part", ".ytdl"}
)

var (
	unsafeNameChars = regexp.MustCompile(`[^\w\s-]`)
	copySuffix      = regexp.MustCompile(`_\(\d+\)$`)
)

// IsAndroid reports whether the process runs on an Android device
func IsAndroid() bool {
	return runtime.GOOS == OSAndroid ||
		os.Getenv("ANDROID_DATA") != "" ||
		os.Getenv("ANDROID_ROOT") != "" ||
		os.Getenv("ANDROID_STORAGE") != ""
}

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// GetHomeDownloadsDir returns the standard Downloads directory for the user
func GetHomeDownloadsDir() (string, error) {
	// External storage keeps files visible to the gallery and file managers
	if IsAndroid() {
		return AndroidDownloadsDir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, "Downloads"), nil
}

// SanitizeFileName strips everything except word characters, whitespace and hyphens
func SanitizeFileName(name string) string {
	return strings.TrimSpace(unsafeNameChars.ReplaceAllString(name, ""))
}

// BuildOutputPath joins dir, the sanitized name, the quality suffix and ext.
// Unless overwrite is set, an existing file yields a name_(n).ext variant.
func BuildOutputPath(dir, name, suffix, ext string, overwrite bool) string {
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", SanitizeFileName(name), suffix, ext))
	if overwrite {
		return path
	}
	return UniqueFilePath(path)
}

// UniqueFilePath returns path, or the first name_(n).ext sibling that does not exist
func UniqueFilePath(path string) string {
	if !fileExists(path) {
		return path
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := copySuffix.ReplaceAllString(strings.TrimSuffix(filepath.Base(path), ext), "")

	for counter := 1; ; counter++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_(%d)%s", base, counter, ext))
		if !fileExists(candidate) {
			return candidate
		}
	}
}

// SidecarPath inserts a marker before the extension: out.mp4 -> out.video.mp4
func SidecarPath(path, marker, ext string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return fmt.Sprintf("%s.%s.%s", base, marker, ext)
}

// RemovePartialFiles deletes path and the intermediate files yt-dlp derives from it.
// Missing files are ignored.
func RemovePartialFiles(path string) error {
	var firstErr error
	candidates := []string{path}
	for _, ext := range SkippedExtensions {
		candidates = append(candidates, path+ext)
	}
	for _, p := range candidates {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return firstErr
}

// DetectMimeType sniffs the file header and falls back to the extension
func DetectMimeType(path string) string {
	kind, err := filetype.MatchFile(path)
	if err == nil && kind != filetype.Unknown && kind.MIME.Value != "" {
		return kind.MIME.Value
	}
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return strings.SplitN(byExt, ";", 2)[0]
	}
	return DefaultMimeType
}

// NotifyMediaScanner asks the Android media scanner to index a finished file
// so it shows up in the gallery. It is a no-op elsewhere and never blocks.
func NotifyMediaScanner(filePath string, logger hclog.Logger) {
	if !IsAndroid() {
		return
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	cmd := exec.Command(ActivityManagerCommand, "broadcast", "-a", MediaScannerAction, "-d", "file://"+filePath)
	go func() {
		if err := cmd.Run(); err != nil {
			logger.Warn("failed to notify media scanner", "path", filePath, "error", err)
		}
	}()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
