// Package formats classifies raw stream descriptors into combined,
// video-only and audio-only groups, projects them into presentation-ready
// formats, and pairs video-only streams with the best audio stream for
// client-side muxing. Every function is pure and safe for concurrent use.
package formats
