// Package media adapts to ffmpeg/ffprobe as the external demuxer: it
// probes a video container for embedded subtitle tracks without
// decoding the whole file, and extracts a chosen track to a standalone
// SRT file on demand.
package media

import "golang.org/x/text/language"

// Track describes one embedded subtitle stream found by probing a
// container.
type Track struct {
	Index       int
	Language    language.Tag
	Title       string
	CodecName   string
	IsDefault   bool
}

// Demuxer is the external adapter contract for embedded-subtitle
// detection and extraction.
type Demuxer interface {
	// ProbeTracks inspects path's header and returns every embedded
	// subtitle stream without decoding audio or video.
	ProbeTracks(path string) ([]Track, error)
	// ExtractTrack pulls one embedded subtitle stream out to an SRT
	// file at outPath.
	ExtractTrack(path string, trackIndex int, outPath string) error
}
