// Package batch implements the batch orchestrator: a recursive VFS
// walk over a folder, header-only probing to find videos carrying an
// embedded English subtitle track, and a sequential
// extract-translate-write loop over the matched videos.
package batch

import (
	"time"

	"golang.org/x/text/language"
)

// Status is a BatchRecord's position in its own small state machine.
type Status string

const (
	Analyzing  Status = "analyzing"
	Translating Status = "translating"
	Completed  Status = "completed"
	Failed     Status = "failed"
	Cancelled  Status = "cancelled"
)

// Video is one file discovered by analyze that carries an embedded
// English subtitle track.
type Video struct {
	Path       string // source-relative path within the VFS source
	FileName   string
	TrackIndex int
	Language   language.Tag
}

// Record is the process-wide batch state. Only one Record is ever
// active at a time.
type Record struct {
	ID           string
	SourceID     string
	Folder       string
	Videos       []Video
	Total        int
	Completed    int
	CurrentVideo string
	StartTime    time.Time
	Status       Status
	Err          error
}

// videoExtensions lists the container extensions analyze walks into.
// Anything else is skipped without being opened.
var videoExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".mov": true,
	".wmv": true, ".m4v": true, ".ts": true,
}

func isVideoFile(name string) bool {
	ext := extOf(name)
	return videoExtensions[ext]
}

func extOf(name string) string {
	for i := len(name) - 1; i >= 0 && name[i] != '/'; i-- {
		if name[i] == '.' {
			return toLower(name[i:])
		}
	}
	return ""
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// isEnglish matches the language tags the demuxer might report for an
// English track: the bare tag, its ISO 639-2 form, or the English name.
func isEnglish(tag language.Tag) bool {
	base, _ := tag.Base()
	switch base.String() {
	case "en":
		return true
	}
	return false
}
