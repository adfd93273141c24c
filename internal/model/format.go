package model

// Codec value yt-dlp reports for a missing media track.
const CodecNone = "none"

// Presentation defaults for absent descriptor fields.
const (
	UnknownValue        = "unknown"
	AudioOnlyResolution = "audio only"
	DefaultVideoTitle   = "unknown_video"
	ExtensionMP4        = "mp4"
	ExtensionMP3        = "mp3"
)

// MediaKind is the classification outcome of a stream.
type MediaKind int

const (
	// MediaKindNone means neither a video nor an audio codec is present
	MediaKindNone MediaKind = iota
	// MediaKindCombined carries both video and audio in one container
	MediaKindCombined
	// MediaKindVideoOnly carries video without audio
	MediaKindVideoOnly
	// MediaKindAudioOnly carries audio without video
	MediaKindAudioOnly
)

// String returns the string representation of MediaKind
func (k MediaKind) String() string {
	switch k {
	case MediaKindCombined:
		return "combined"
	case MediaKindVideoOnly:
		return "video_only"
	case MediaKindAudioOnly:
		return "audio_only"
	default:
		return "none"
	}
}

// StreamDescriptor is one selectable encoding variant of a piece of media.
// Absent values are normalized to zero values at construction time.
type StreamDescriptor struct {
	FormatID       string
	Container      string
	VideoCodec     string
	AudioCodec     string
	Resolution     string
	BitrateKbps    float64
	FileSize       int64
	FileSizeApprox int64
}

// HasVideo reports whether the stream carries a video track.
func (d StreamDescriptor) HasVideo() bool {
	return hasCodec(d.VideoCodec)
}

// HasAudio reports whether the stream carries an audio track.
func (d StreamDescriptor) HasAudio() bool {
	return hasCodec(d.AudioCodec)
}

// Kind classifies the stream by the tracks it carries.
func (d StreamDescriptor) Kind() MediaKind {
	switch v, a := d.HasVideo(), d.HasAudio(); {
	case v && a:
		return MediaKindCombined
	case v:
		return MediaKindVideoOnly
	case a:
		return MediaKindAudioOnly
	default:
		return MediaKindNone
	}
}

func hasCodec(codec string) bool {
	return codec != "" && codec != CodecNone
}

// ClassifiedFormat is the presentation-ready projection of a StreamDescriptor.
type ClassifiedFormat struct {
	FormatID   string `json:"formatId"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution"`
	Bitrate    int    `json:"bitrate"`
	Size       int64  `json:"size"`
}

// MergePair is a video-only stream paired with the audio stream to mux into it.
type MergePair struct {
	Video ClassifiedFormat `json:"video"`
	Audio ClassifiedFormat `json:"audio"`
}

// VideoInfo is the metadata summary returned to the host.
type VideoInfo struct {
	Title     string             `json:"title"`
	Thumbnail *string            `json:"thumbnail"`
	Formats   []ClassifiedFormat `json:"formats"`
}

// DefaultVideoInfo is the value reported when metadata cannot be fetched.
func DefaultVideoInfo() VideoInfo {
	return VideoInfo{
		Title:   DefaultVideoTitle,
		Formats: []ClassifiedFormat{},
	}
}

// ProbeResult is the raw metadata extracted for one URL.
type ProbeResult struct {
	Title           string
	Thumbnail       string
	DurationSeconds float64
	Streams         []StreamDescriptor
}
