// Package bidi post-processes translated cue text for right-to-left
// target languages. Rendering engines that do not run the full
// Unicode Bidirectional Algorithm over subtitle text need explicit
// directional control characters inserted so numbers, punctuation,
// and parenthetical asides display in the correct order inside an
// RTL line. This package injects those control characters directly
// rather than delegating to golang.org/x/text/unicode/bidi, which
// implements the general UBA and would produce different placement
// than the literal steps below.
package bidi

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

const (
	rle = "‫" // Right-to-Left Embedding, U+202B
	rlm = "‏" // Right-to-Left Mark, U+200F
	lrm = "‎" // Left-to-Right Mark, U+200E
	pdf = "‬" // Pop Directional Formatting, U+202C
)

// rtlLanguages is the set of target languages this processor treats
// as right-to-left. Pashto is included alongside the four languages
// a plain RTL check usually covers (Arabic, Hebrew, Farsi, Urdu).
var rtlLanguages = map[string]bool{
	"ar": true,
	"he": true,
	"fa": true,
	"ur": true,
	"ps": true,
}

// IsRTL reports whether tag names a right-to-left language.
func IsRTL(tag language.Tag) bool {
	base, _ := tag.Base()
	return rtlLanguages[base.String()]
}

// hebrewPattern and arabicPattern detect the scripts this processor
// treats as RTL content, independent of the target language: Hebrew
// (U+0590-05FF) and Arabic plus its Supplement and Extended-A blocks
// (U+0600-06FF, U+0750-077F, U+08A0-08FF).
var (
	hebrewPattern = regexp.MustCompile(`[\x{0590}-\x{05FF}]`)
	arabicPattern = regexp.MustCompile(`[\x{0600}-\x{06FF}\x{0750}-\x{077F}\x{08A0}-\x{08FF}]`)
)

// containsRtlCharacters reports whether text contains any Hebrew or
// Arabic script character.
func containsRtlCharacters(text string) bool {
	return hebrewPattern.MatchString(text) || arabicPattern.MatchString(text)
}

var numberPattern = regexp.MustCompile(`[$€£¥₪]?[+-]?[0-9]+(?:[,.][0-9]+)*(?::[0-9]+)?%?`)

// wrapNumbers surrounds every digit run with LRM so a run like "100%"
// embedded in an RTL line keeps left-to-right digit order instead of
// being reversed along with the surrounding text.
func wrapNumbers(s string) string {
	return numberPattern.ReplaceAllStringFunc(s, func(m string) string {
		return lrm + m + lrm
	})
}

var punctuationPattern = regexp.MustCompile(`([.!?,:;])(\s|$)`)

// fixPunctuation inserts an RLM before standalone terminal punctuation
// so it is not rendered before the line's first (logically last)
// glyph.
func fixPunctuation(line string) string {
	return punctuationPattern.ReplaceAllString(line, rlm+"$1$2")
}

var parenPattern = regexp.MustCompile(`([(\["'])([^)\]"']+)([)\]"'])`)

// handleParentheticals wraps parenthetical, bracketed, or quoted
// asides so their delimiters display on the correct side regardless
// of the content's own direction: LTR content is wrapped in LRM
// inside the delimiters, RTL content gets an RLM outside both
// delimiters instead, so a naive renderer mirrors the pair correctly.
func handleParentheticals(line string) string {
	return parenPattern.ReplaceAllStringFunc(line, func(m string) string {
		groups := parenPattern.FindStringSubmatch(m)
		open, content, close := groups[1], groups[2], groups[3]
		if !containsRtlCharacters(content) {
			return open + lrm + content + lrm + close
		}
		return rlm + open + content + close + rlm
	})
}

// ProcessLine applies the full RTL post-processing pipeline to one
// physical line of translated cue text: wrap embedded numbers, fix
// punctuation placement, wrap parenthetical/quoted asides, then embed
// the whole line in an RLE/PDF pair so the renderer treats it as a
// single right-to-left run. Blank lines and lines carrying no Hebrew
// or Arabic script character pass through unchanged.
func ProcessLine(line string) string {
	if strings.TrimSpace(line) == "" || !containsRtlCharacters(line) {
		return line
	}
	line = wrapNumbers(line)
	line = fixPunctuation(line)
	line = handleParentheticals(line)
	return rle + rlm + line + pdf
}

// ProcessCueText runs ProcessLine over every physical line of a
// (possibly multi-line) cue's text, preserving line breaks.
func ProcessCueText(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = ProcessLine(l)
	}
	return strings.Join(lines, "\n")
}

// ProcessIfRTL applies ProcessCueText only when targetLang is a
// right-to-left language; otherwise it returns text unchanged.
func ProcessIfRTL(text string, targetLang language.Tag) string {
	if !IsRTL(targetLang) {
		return text
	}
	return ProcessCueText(text)
}
