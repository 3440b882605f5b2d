package bidi

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestIsRTL(t *testing.T) {
	require.True(t, IsRTL(language.MustParse("ar")))
	require.True(t, IsRTL(language.MustParse("he")))
	require.True(t, IsRTL(language.MustParse("ps")))
	require.False(t, IsRTL(language.MustParse("fr")))
}

func TestProcessLine_WrapsEmbeddedControlChars(t *testing.T) {
	out := ProcessLine("שלום 100 עולם")
	require.Contains(t, out, rle)
	require.Contains(t, out, pdf)
	require.Contains(t, out, lrm)
	require.Contains(t, out, "100")
}

func TestProcessLine_NoOpWithoutRtlCharacters(t *testing.T) {
	text := "hello 100 world"
	require.Equal(t, text, ProcessLine(text))
}

func TestProcessLine_WrapsTrailingPunctuationWithRLM(t *testing.T) {
	out := ProcessLine("שלום עולם.")
	require.Contains(t, out, rlm+".")
}

func TestProcessLine_WrapsLtrParentheticalContent(t *testing.T) {
	out := ProcessLine("שלום (hello) עולם")
	require.Contains(t, out, "("+lrm+"hello"+lrm+")")
}

func TestProcessLine_WrapsRtlParentheticalContent(t *testing.T) {
	out := ProcessLine("hello (שלום) world")
	require.Contains(t, out, rlm+"(שלום)"+rlm)
}

func TestProcessIfRTL_NoOpForLTR(t *testing.T) {
	text := "bonjour 100"
	require.Equal(t, text, ProcessIfRTL(text, language.French))
}

func TestProcessIfRTL_NoOpForRtlTargetWithoutRtlCharacters(t *testing.T) {
	text := "hello 100 world"
	require.Equal(t, text, ProcessIfRTL(text, language.Hebrew))
}

func TestProcessCueText_PreservesLineBreaks(t *testing.T) {
	out := ProcessCueText("line one\nline two")
	require.Equal(t, 2, len(splitLines(out)))
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
