package subtitle

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// SplitFunc decides whether a source line completes a sentence.
// It returns nil to keep accumulating, or the completed sentence
// followed by any fragments that start the next one.
type SplitFunc func(line string) []string

// DefaultSplit ends a sentence on a trailing period, or splits on
// question marks and semicolons.
func DefaultSplit(line string) []string {
	trimmed := strings.TrimSpace(line)
	if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "。") {
		return []string{line}
	}
	if pieces := splitKeep(line, "?？"); pieces != nil {
		return pieces
	}
	return splitKeep(line, ";；")
}

// splitKeep splits line on any rune of seps, re-appending the matched
// separator to every piece but the last. Returns nil when no separator occurs.
func splitKeep(line, seps string) []string {
	if !strings.ContainsAny(line, seps) {
		return nil
	}

	var pieces []string
	var b strings.Builder
	for _, r := range line {
		b.WriteRune(r)
		if strings.ContainsRune(seps, r) {
			pieces = append(pieces, b.String())
			b.Reset()
		}
	}
	return append(pieces, b.String())
}

var latinSentenceEnd = regexp.MustCompile(`[.!?]+\s+`)

// SentenceSplitter returns the function that breaks a translated result
// into display sentences for the given target language.
func SentenceSplitter(target language.Tag) func(string) []string {
	base, _ := target.Base()
	switch base.String() {
	case "zh", "ja":
		return func(s string) []string {
			return nonBlank(strings.Split(s, "。"))
		}
	default:
		return func(s string) []string {
			var pieces []string
			last := 0
			for _, loc := range latinSentenceEnd.FindAllStringIndex(s, -1) {
				pieces = append(pieces, s[last:loc[1]])
				last = loc[1]
			}
			return nonBlank(append(pieces, s[last:]))
		}
	}
}

func nonBlank(pieces []string) []string {
	ret := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if p = strings.TrimSpace(p); p != "" {
			ret = append(ret, p)
		}
	}
	return ret
}
