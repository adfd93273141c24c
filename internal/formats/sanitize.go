package formats

import (
	"math"

	"github.com/ytget/ytdlp-mobile/internal/model"
)

// Bits per byte and bits per kilobit, used to turn a bitrate into a size.
const (
	bitsPerByte    = 8
	bitsPerKilobit = 1000
)

// Sanitize projects a descriptor into a ClassifiedFormat. A positive
// durationSeconds enables size estimation from the bitrate when the
// extractor reported neither an exact nor an approximate size.
func Sanitize(d model.StreamDescriptor, durationSeconds float64) model.ClassifiedFormat {
	resolution := model.AudioOnlyResolution
	if d.HasVideo() {
		resolution = orUnknown(d.Resolution)
	}

	return model.ClassifiedFormat{
		FormatID:   orUnknown(d.FormatID),
		Ext:        orUnknown(d.Container),
		Resolution: resolution,
		Bitrate:    int(toInt64(d.BitrateKbps)),
		Size:       resolveSize(d, durationSeconds),
	}
}

func resolveSize(d model.StreamDescriptor, durationSeconds float64) int64 {
	switch {
	case d.FileSize > 0:
		return d.FileSize
	case d.FileSizeApprox > 0:
		return d.FileSizeApprox
	case nonNegative(durationSeconds) > 0 && nonNegative(d.BitrateKbps) > 0:
		bytesPerSecond := d.BitrateKbps * bitsPerKilobit / bitsPerByte
		return toInt64(bytesPerSecond * durationSeconds)
	default:
		return 0
	}
}

func orUnknown(s string) string {
	if s == "" {
		return model.UnknownValue
	}
	return s
}

// nonNegative maps negative, NaN and infinite values to zero.
func nonNegative(f float64) float64 {
	if f > 0 && !math.IsInf(f, 1) {
		return f
	}
	return 0
}

// toInt64 truncates f, yielding zero where the conversion is undefined.
func toInt64(f float64) int64 {
	f = nonNegative(f)
	if f >= math.MaxInt64 {
		return 0
	}
	return int64(f)
}
