package termmap

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match filters the term map to only terms that appear in the given texts.
// Uses case-sensitive whole-word matching (correct for proper nouns).
func Match(tm TermMap, texts []string) MatchResult {
	matched := make(TermMap)

	for source, target := range tm {
		for _, text := range texts {
			if containsWord(text, source, false) {
				matched[source] = target
				break
			}
		}
	}

	return MatchResult{Matched: matched}
}

// ContainsWordFold reports whether word occurs in text as a whole word, ignoring case.
func ContainsWordFold(text, word string) bool {
	return containsWord(text, word, true)
}

func containsWord(text, word string, fold bool) bool {
	if word == "" {
		return false
	}
	if fold {
		text = strings.ToLower(text)
		word = strings.ToLower(word)
	}

	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)
		if isBoundaryBefore(text, start) && isBoundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func isBoundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func isBoundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
