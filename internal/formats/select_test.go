package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/ytdlp-mobile/internal/model"
)

var (
	combinedMP4 = model.StreamDescriptor{
		FormatID: "18", Container: "mp4", VideoCodec: "avc1.42001E", AudioCodec: "mp4a.40.2",
		Resolution: "640x360", BitrateKbps: 500,
	}
	combinedWebM = model.StreamDescriptor{
		FormatID: "43", Container: "webm", VideoCodec: "vp8", AudioCodec: "vorbis",
		Resolution: "640x360", BitrateKbps: 400,
	}
	videoOnly1 = model.StreamDescriptor{
		FormatID: "137", Container: "mp4", VideoCodec: "avc1.640028", AudioCodec: "none",
		Resolution: "1920x1080", BitrateKbps: 4000,
	}
	videoOnly2 = model.StreamDescriptor{
		FormatID: "248", Container: "webm", VideoCodec: "vp9",
		Resolution: "1920x1080", BitrateKbps: 3000,
	}
	audio64 = model.StreamDescriptor{
		FormatID: "249", Container: "webm", VideoCodec: "none", AudioCodec: "opus", BitrateKbps: 64,
	}
	audio128 = model.StreamDescriptor{
		FormatID: "140", Container: "m4a", VideoCodec: "none", AudioCodec: "mp4a.40.2", BitrateKbps: 128,
	}
	audioMP3 = model.StreamDescriptor{
		FormatID: "mp3-128", Container: "mp3", AudioCodec: "mp3", BitrateKbps: 128,
	}
	storyboard = model.StreamDescriptor{
		FormatID: "sb0", Container: "mhtml", VideoCodec: "none", AudioCodec: "none",
	}
)

func TestClassify(t *testing.T) {
	tests := []struct {
		in       model.StreamDescriptor
		expected model.MediaKind
	}{
		{combinedMP4, model.MediaKindCombined},
		{videoOnly1, model.MediaKindVideoOnly},
		{videoOnly2, model.MediaKindVideoOnly},
		{audio64, model.MediaKindAudioOnly},
		{audioMP3, model.MediaKindAudioOnly},
		{storyboard, model.MediaKindNone},
		{model.StreamDescriptor{}, model.MediaKindNone},
	}

	for _, test := range tests {
		if got := Classify(test.in); got != test.expected {
			t.Errorf("Classify(%s) = %s, expected %s", test.in.FormatID, got, test.expected)
		}
	}
}

func TestSelectCombined(t *testing.T) {
	got := SelectCombined([]model.StreamDescriptor{combinedMP4, videoOnly1, audio64}, 0)

	require.Len(t, got, 1)
	assert.Equal(t, "18", got[0].FormatID)
}

func TestSelectCombined_EmptyIsNotNil(t *testing.T) {
	got := SelectCombined([]model.StreamDescriptor{videoOnly1, audio64, storyboard}, 0)

	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.NotNil(t, SelectCombined(nil, 0))
}

func TestSelectCombinedExcluding(t *testing.T) {
	streams := []model.StreamDescriptor{combinedMP4, combinedWebM, videoOnly2, audio64}

	got := SelectCombinedExcluding(streams, "mp4", 0)
	require.Len(t, got, 1)
	assert.Equal(t, "43", got[0].FormatID)
	for _, f := range got {
		assert.NotEqual(t, "mp4", f.Ext)
	}

	// case-sensitive
	got = SelectCombinedExcluding(streams, "MP4", 0)
	assert.Len(t, got, 2)
}

func TestSelectAudioOnly(t *testing.T) {
	streams := []model.StreamDescriptor{combinedMP4, videoOnly1, audio64, audio128, audioMP3, storyboard}

	got := SelectAudioOnly(streams, 0)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"249", "140", "mp3-128"}, ids(got))
	for _, f := range got {
		assert.Equal(t, model.AudioOnlyResolution, f.Resolution)
	}
}

func TestSelectAudioOnlyExcluding(t *testing.T) {
	streams := []model.StreamDescriptor{audio64, audio128, audioMP3}

	got := SelectAudioOnlyExcluding(streams, "mp3", 0)
	assert.Equal(t, []string{"249", "140"}, ids(got))
}

func TestPairForMerge(t *testing.T) {
	streams := []model.StreamDescriptor{videoOnly1, audio64, combinedMP4, videoOnly2, audio128}

	pairs := PairForMerge(streams, 0)

	require.Len(t, pairs, 2)
	assert.Equal(t, "137", pairs[0].Video.FormatID)
	assert.Equal(t, "248", pairs[1].Video.FormatID)
	for _, p := range pairs {
		assert.Equal(t, "140", p.Audio.FormatID)
		assert.Equal(t, 128, p.Audio.Bitrate)
	}
}

func TestPairForMerge_StableTieBreak(t *testing.T) {
	first := model.StreamDescriptor{FormatID: "a1", AudioCodec: "opus", BitrateKbps: 128}
	second := model.StreamDescriptor{FormatID: "a2", AudioCodec: "mp4a", BitrateKbps: 128}

	pairs := PairForMerge([]model.StreamDescriptor{first, videoOnly1, second}, 0)
	require.Len(t, pairs, 1)
	assert.Equal(t, "a1", pairs[0].Audio.FormatID)

	pairs = PairForMerge([]model.StreamDescriptor{second, videoOnly1, first}, 0)
	require.Len(t, pairs, 1)
	assert.Equal(t, "a2", pairs[0].Audio.FormatID)
}

func TestPairForMerge_MissingSide(t *testing.T) {
	tests := []struct {
		name    string
		streams []model.StreamDescriptor
	}{
		{"no audio", []model.StreamDescriptor{videoOnly1, videoOnly2, combinedMP4}},
		{"no video", []model.StreamDescriptor{audio64, audio128, combinedMP4}},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs := PairForMerge(tt.streams, 0)
			assert.NotNil(t, pairs)
			assert.Empty(t, pairs)
		})
	}
}

func TestSelection_IsIdempotent(t *testing.T) {
	streams := []model.StreamDescriptor{audio64, videoOnly1, combinedMP4, audio128, videoOnly2, combinedWebM}
	snapshot := append([]model.StreamDescriptor(nil), streams...)

	assert.Equal(t, PairForMerge(streams, 30), PairForMerge(streams, 30))
	assert.Equal(t, SelectCombined(streams, 30), SelectCombined(streams, 30))
	assert.Equal(t, SelectAudioOnlyExcluding(streams, "m4a", 30), SelectAudioOnlyExcluding(streams, "m4a", 30))
	assert.Equal(t, snapshot, streams, "input must not be reordered")
}

func ids(formats []model.ClassifiedFormat) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		out = append(out, f.FormatID)
	}
	return out
}

func TestSanitizeAll(t *testing.T) {
	streams := []model.StreamDescriptor{
		{FormatID: "a", VideoCodec: "avc1", AudioCodec: "mp4a"},
		{FormatID: "b", AudioCodec: "opus"},
	}

	all := SanitizeAll(streams, 0)
	assert.Equal(t, []string{"a", "b"}, ids(all))
	assert.Equal(t, model.AudioOnlyResolution, all[1].Resolution)
	assert.NotNil(t, SanitizeAll(nil, 0))
}
