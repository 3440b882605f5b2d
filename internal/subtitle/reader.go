package subtitle

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// srtCuePattern intentionally does not set the multiline (?m) flag.
// With (?m) set, "$" would match at every embedded newline inside a
// cue's text block, which makes the non-greedy text group below stop
// after the first physical line of a multi-line cue instead of
// consuming the whole block up to the next blank line. Leaving "$"
// out entirely and bounding the text group with an explicit blank-line
// (or end-of-file) terminator avoids that truncation.
var srtCuePattern = regexp.MustCompile(
	`(\d+)[ \t]*\r?\n` +
		`(\d{2}:\d{2}:\d{2}[,.]\d{3})[ \t]*-->[ \t]*(\d{2}:\d{2}:\d{2}[,.]\d{3})[^\r\n]*\r?\n` +
		`([\s\S]*?)` +
		`(?:\r?\n\r?\n+|\r?\n*\z)`)

var vttCuePattern = regexp.MustCompile(
	`(?:([^\r\n]*)\r?\n)?` +
		`(\d{2}:\d{2}:\d{2}\.\d{3})[ \t]*-->[ \t]*(\d{2}:\d{2}:\d{2}\.\d{3})[^\r\n]*\r?\n` +
		`([\s\S]*?)` +
		`(?:\r?\n\r?\n+|\r?\n*\z)`)

// Parse decodes raw subtitle content according to format.
func Parse(format Format, data []byte) (*Document, error) {
	switch format {
	case SRT:
		return ParseSRT(data)
	case VTT:
		return ParseVTT(data)
	default:
		return nil, fmt.Errorf("unsupported subtitle format %q", format)
	}
}

var utf8BOMBytes = []byte{0xEF, 0xBB, 0xBF}

// StripBOM removes a leading UTF-8 byte order mark, if present.
func StripBOM(data []byte) []byte {
	if bytes.HasPrefix(data, utf8BOMBytes) {
		return data[len(utf8BOMBytes):]
	}
	return data
}

// Sniff inspects raw subtitle content and reports its container
// format without relying on a file extension: VTT if the first
// non-BOM token is the literal "WEBVTT", SRT otherwise.
func Sniff(data []byte) Format {
	data = StripBOM(data)
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("WEBVTT")) {
		return VTT
	}
	return SRT
}

// ParseAuto strips a leading BOM, auto-detects the container format
// from content alone (see Sniff), and parses accordingly. It is the
// entry point for subtitle content of unknown or untrusted origin,
// such as an uploaded file or pasted text, where a file extension
// can't be trusted.
func ParseAuto(data []byte) (*Document, error) {
	data = StripBOM(data)
	return Parse(Sniff(data), data)
}

// ParseSRT decodes a SubRip document. Cue text may span multiple
// physical lines; the only thing that terminates a cue's text is a
// blank line or the end of the file.
func ParseSRT(data []byte) (*Document, error) {
	content := normalizeNewlines(string(data))
	matches := srtCuePattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return &Document{Format: SRT}, nil
	}

	doc := &Document{Format: SRT, Cues: make([]Cue, 0, len(matches))}
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		start, err := parseTimestamp(m[2], ',')
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", idx, err)
		}
		end, err := parseTimestamp(m[3], ',')
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", idx, err)
		}
		text := strings.TrimRight(m[4], "\r\n")
		doc.Cues = append(doc.Cues, Cue{Index: idx, Start: start, End: end, Text: text})
	}
	return doc, nil
}

// ParseVTT decodes a WebVTT document. The leading "WEBVTT" signature
// line and any header metadata before the first blank line are
// skipped; cue identifier lines are accepted but not required.
func ParseVTT(data []byte) (*Document, error) {
	content := normalizeNewlines(string(data))
	if idx := strings.Index(content, "\n\n"); idx >= 0 {
		content = content[idx+2:]
	}

	matches := vttCuePattern.FindAllStringSubmatch(content, -1)
	doc := &Document{Format: VTT, Cues: make([]Cue, 0, len(matches))}
	for i, m := range matches {
		start, err := parseTimestamp(m[2], '.')
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", i+1, err)
		}
		end, err := parseTimestamp(m[3], '.')
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", i+1, err)
		}
		idx := i + 1
		if id := strings.TrimSpace(m[1]); id != "" {
			if n, err := strconv.Atoi(id); err == nil {
				idx = n
			}
		}
		text := strings.TrimRight(m[4], "\r\n")
		doc.Cues = append(doc.Cues, Cue{Index: idx, Start: start, End: end, Text: text})
	}
	return doc, nil
}

func parseTimestamp(s string, sep byte) (time.Duration, error) {
	s = strings.ReplaceAll(s, string(sep), ":")
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, err
	}
	ms, err := strconv.Atoi(parts[3])
	if err != nil {
		return 0, err
	}
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
