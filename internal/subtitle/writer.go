package subtitle

import (
	"fmt"
	"strings"
	"time"
)

// Generate encodes a document back to raw bytes in the document's
// own format.
func Generate(doc *Document) ([]byte, error) {
	switch doc.Format {
	case SRT:
		return GenerateSRT(doc), nil
	case VTT:
		return GenerateVTT(doc), nil
	default:
		return nil, fmt.Errorf("unsupported subtitle format %q", doc.Format)
	}
}

// GenerateSRT renders a document as SubRip text.
func GenerateSRT(doc *Document) []byte {
	var b strings.Builder
	for i, c := range doc.Cues {
		fmt.Fprintf(&b, "%d\n", c.Index)
		fmt.Fprintf(&b, "%s --> %s\n", formatSRTTime(c.Start), formatSRTTime(c.End))
		b.WriteString(c.Text)
		b.WriteString("\n")
		if i != len(doc.Cues)-1 {
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}

// GenerateVTT renders a document as WebVTT text.
func GenerateVTT(doc *Document) []byte {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for i, c := range doc.Cues {
		fmt.Fprintf(&b, "%s --> %s\n", formatVTTTime(c.Start), formatVTTTime(c.End))
		b.WriteString(c.Text)
		b.WriteString("\n")
		if i != len(doc.Cues)-1 {
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}

func formatSRTTime(d time.Duration) string {
	return formatClock(d, ",")
}

func formatVTTTime(d time.Duration) string {
	return formatClock(d, ".")
}

func formatClock(d time.Duration, msSep string) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	ms := int(d / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, msSep, ms)
}
