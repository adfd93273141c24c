package formats

import (
	"cmp"
	"slices"

	"github.com/ytget/ytdlp-mobile/internal/model"
)

// Classify returns the media kind of a descriptor
func Classify(d model.StreamDescriptor) model.MediaKind {
	return d.Kind()
}

// SanitizeAll projects every stream, in input order
func SanitizeAll(streams []model.StreamDescriptor, durationSeconds float64) []model.ClassifiedFormat {
	return project(streams, durationSeconds, func(model.StreamDescriptor) bool { return true })
}

// SelectCombined returns the streams carrying both video and audio
func SelectCombined(streams []model.StreamDescriptor, durationSeconds float64) []model.ClassifiedFormat {
	return project(streams, durationSeconds, func(d model.StreamDescriptor) bool {
		return d.Kind() == model.MediaKindCombined
	})
}

// SelectCombinedExcluding returns combined streams whose container is not
// excludedExt. The comparison is case-sensitive.
func SelectCombinedExcluding(streams []model.StreamDescriptor, excludedExt string, durationSeconds float64) []model.ClassifiedFormat {
	return project(streams, durationSeconds, func(d model.StreamDescriptor) bool {
		return d.Kind() == model.MediaKindCombined && d.Container != excludedExt
	})
}

// SelectAudioOnly returns the streams carrying audio and no video
func SelectAudioOnly(streams []model.StreamDescriptor, durationSeconds float64) []model.ClassifiedFormat {
	return project(streams, durationSeconds, func(d model.StreamDescriptor) bool {
		return d.Kind() == model.MediaKindAudioOnly
	})
}

// SelectAudioOnlyExcluding returns audio-only streams whose container is
// not excludedExt. The comparison is case-sensitive.
func SelectAudioOnlyExcluding(streams []model.StreamDescriptor, excludedExt string, durationSeconds float64) []model.ClassifiedFormat {
	return project(streams, durationSeconds, func(d model.StreamDescriptor) bool {
		return d.Kind() == model.MediaKindAudioOnly && d.Container != excludedExt
	})
}

// PairForMerge pairs every video-only stream, in input order, with the
// single highest-bitrate audio-only stream. Equal bitrates keep input
// order. The result is empty when either side has no candidate.
func PairForMerge(streams []model.StreamDescriptor, durationSeconds float64) []model.MergePair {
	var videos, audios []model.StreamDescriptor
	for _, d := range streams {
		switch d.Kind() {
		case model.MediaKindVideoOnly:
			videos = append(videos, d)
		case model.MediaKindAudioOnly:
			audios = append(audios, d)
		}
	}

	pairs := make([]model.MergePair, 0, len(videos))
	if len(videos) == 0 || len(audios) == 0 {
		return pairs
	}

	// audios is a fresh slice, so sorting it leaves the caller's input untouched
	slices.SortStableFunc(audios, func(a, b model.StreamDescriptor) int {
		return cmp.Compare(nonNegative(b.BitrateKbps), nonNegative(a.BitrateKbps))
	})
	bestAudio := Sanitize(audios[0], durationSeconds)

	for _, v := range videos {
		pairs = append(pairs, model.MergePair{
			Video: Sanitize(v, durationSeconds),
			Audio: bestAudio,
		})
	}
	return pairs
}

func project(streams []model.StreamDescriptor, durationSeconds float64, keep func(model.StreamDescriptor) bool) []model.ClassifiedFormat {
	out := make([]model.ClassifiedFormat, 0)
	for _, d := range streams {
		if keep(d) {
			out = append(out, Sanitize(d, durationSeconds))
		}
	}
	return out
}
