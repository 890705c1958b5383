package termmap

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var tokenRe = regexp.MustCompile(`@\s?(\d+)`)

// Table maps opaque numeric tokens to keywords so that the keywords
// survive a round trip through a translator untouched.
// A Table is read-only after construction and safe for concurrent use.
type Table struct {
	keywords     []string          // token (index) -> keyword
	tokens       map[string]string // lower(keyword) -> token
	replacements TermMap
	ordered      []string // keywords, longest first
}

// ParseKeywords splits a comma separated keyword list.
// Both ASCII and full-width commas are accepted.
func ParseKeywords(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，'
	})

	ret := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			ret = append(ret, f)
		}
	}
	return ret
}

// NewTable assigns every distinct keyword its position as token.
func NewTable(keywords []string) *Table {
	t := &Table{tokens: make(map[string]string)}

	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, ok := t.tokens[key]; ok {
			continue
		}
		t.tokens[key] = strconv.Itoa(len(t.keywords))
		t.keywords = append(t.keywords, kw)
	}

	if len(t.keywords) == 0 {
		return t
	}

	// longest first so that overlapping keywords prefer the longer match
	t.ordered = make([]string, len(t.keywords))
	copy(t.ordered, t.keywords)
	sort.SliceStable(t.ordered, func(i, j int) bool {
		return utf8.RuneCountInString(t.ordered[i]) > utf8.RuneCountInString(t.ordered[j])
	})

	return t
}

// WithReplacements restores keywords as their term map translation when one exists.
func (t *Table) WithReplacements(tm TermMap) *Table {
	t.replacements = tm
	return t
}

// Len returns the number of keywords.
func (t *Table) Len() int {
	return len(t.keywords)
}

// Keyword returns the keyword for token.
func (t *Table) Keyword(token string) (string, bool) {
	i, err := strconv.Atoi(token)
	if err != nil || i < 0 || i >= len(t.keywords) {
		return "", false
	}
	return t.keywords[i], true
}

// Token returns the token for keyword, ignoring case.
func (t *Table) Token(keyword string) (string, bool) {
	token, ok := t.tokens[strings.ToLower(keyword)]
	return token, ok
}

// Present returns the keywords that occur as whole words in text.
func (t *Table) Present(text string) []string {
	var ret []string
	for _, kw := range t.keywords {
		if ContainsWordFold(text, kw) {
			ret = append(ret, kw)
		}
	}
	return ret
}

// Protect replaces every keyword followed by whitespace, punctuation or
// the end of the sentence with "@<token>". A keyword must start a word.
// When the longest keyword at a position is not terminated, shorter ones
// starting there are tried.
func (t *Table) Protect(sentence string) string {
	if len(t.ordered) == 0 {
		return sentence
	}

	var b strings.Builder
	last := 0
	for i := 0; i < len(sentence); {
		end, token := -1, ""
		if isBoundaryBefore(sentence, i) {
			end, token = t.matchAt(sentence, i)
		}
		if end < 0 {
			_, size := utf8.DecodeRuneInString(sentence[i:])
			i += size
			continue
		}

		b.WriteString(sentence[last:i])
		b.WriteString("@" + token)
		next, _ := utf8.DecodeRuneInString(sentence[end:])
		if end == len(sentence) || !unicode.IsSpace(next) {
			b.WriteByte(' ')
		}
		last = end
		i = end
	}
	b.WriteString(sentence[last:])
	return b.String()
}

// matchAt returns the end offset and token of the longest terminated keyword
// starting at i, or -1.
func (t *Table) matchAt(sentence string, i int) (int, string) {
	rest := sentence[i:]
	for _, kw := range t.ordered {
		if len(rest) < len(kw) || !strings.EqualFold(rest[:len(kw)], kw) {
			continue
		}
		end := i + len(kw)
		if end < len(sentence) {
			next, _ := utf8.DecodeRuneInString(sentence[end:])
			if !isKeywordTerminator(next) {
				continue
			}
		}
		token, ok := t.Token(kw)
		if !ok {
			continue
		}
		return end, token
	}
	return -1, ""
}

// Restore substitutes "@<token>" (a space after "@" is tolerated) back to
// its keyword. Unknown tokens are left untouched.
func (t *Table) Restore(translated string) string {
	if len(t.keywords) == 0 {
		return translated
	}
	return tokenRe.ReplaceAllStringFunc(translated, func(m string) string {
		token := tokenRe.FindStringSubmatch(m)[1]
		kw, ok := t.Keyword(token)
		if !ok {
			return m
		}
		if r := t.replacements[kw]; r != "" {
			return r
		}
		return kw
	})
}

func isKeywordTerminator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	return strings.ContainsRune(",.!?;:。，？！；：", r)
}
