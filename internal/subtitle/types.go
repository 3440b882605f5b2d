// Package subtitle implements the subtitle codec: parsing and
// generating SRT and WebVTT documents.
package subtitle

import (
	"fmt"
	"time"
)

// Format names a subtitle container syntax.
type Format string

const (
	SRT Format = "srt"
	VTT Format = "vtt"
)

// ParseFormat maps a file extension or explicit name to a Format.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "srt", ".srt":
		return SRT, nil
	case "vtt", ".vtt":
		return VTT, nil
	default:
		return "", fmt.Errorf("unsupported subtitle format %q", name)
	}
}

// Cue is a single timed subtitle entry. Text may contain embedded
// newlines for multi-line cues; it is never empty in a well-formed
// Document.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Document is a fully parsed subtitle file, ordered by Index.
type Document struct {
	Cues   []Cue
	Format Format
}

// Lines returns the cue text in order, one entry per cue, for feeding
// into the translation engine.
func (d *Document) Lines() []string {
	lines := make([]string, len(d.Cues))
	for i, c := range d.Cues {
		lines[i] = c.Text
	}
	return lines
}

// WithTranslatedLines returns a copy of the document with each cue's
// text replaced by the corresponding entry in translated. len(translated)
// must equal len(d.Cues).
func (d *Document) WithTranslatedLines(translated []string) (*Document, error) {
	if len(translated) != len(d.Cues) {
		return nil, fmt.Errorf("translated line count %d does not match cue count %d", len(translated), len(d.Cues))
	}
	out := &Document{Format: d.Format, Cues: make([]Cue, len(d.Cues))}
	for i, c := range d.Cues {
		c.Text = translated[i]
		out.Cues[i] = c
	}
	return out, nil
}
