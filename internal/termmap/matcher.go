package termmap

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match filters the glossary to only the terms that appear in texts as
// whole words. Case-sensitive: proper nouns are usually capitalized in
// a way worth preserving exactly.
func Match(tm TermMap, texts []string) MatchResult {
	matched := make(TermMap)

outer:
	for source, target := range tm {
		for _, text := range texts {
			if containsWordBoundary(text, source, false) {
				matched[source] = target
				continue outer
			}
		}
	}

	return MatchResult{Matched: matched}
}

// ContainsWordFold reports whether term appears in text as a whole
// word, ignoring case.
func ContainsWordFold(text, term string) bool {
	return containsWordBoundary(text, term, true)
}

// containsWordBoundary reports whether term occurs in text bordered on
// both sides by a non-word rune (or the start/end of the string). fold
// makes the comparison case-insensitive while still checking word
// boundaries against the original text.
func containsWordBoundary(text, term string, fold bool) bool {
	if term == "" {
		return false
	}

	haystack, needle := text, term
	if fold {
		haystack = strings.ToLower(text)
		needle = strings.ToLower(term)
	}

	for offset := 0; ; {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(needle)
		if isBoundary(text, start-1) && isBoundary(text, end) {
			return true
		}
		offset = start + 1
		if offset >= len(haystack) {
			return false
		}
	}
}

// isBoundary reports whether byte position pos in s is outside a word
// rune — either past an edge of the string or sitting on a non-letter,
// non-digit rune.
func isBoundary(s string, pos int) bool {
	if pos < 0 || pos >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[pos:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
