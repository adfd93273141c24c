// Package download runs asynchronous download tasks on top of the
// platform extractor and the ffmpeg transcoder. It resolves output paths,
// drives the combined, merge and audio-only workflows, bounds the number
// of concurrent tasks and publishes state and progress events to the host.
package download
