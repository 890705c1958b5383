package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestDefaultSplit(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"period", "I am here.", []string{"I am here."}},
		{"ideographic period", "我在这里。", []string{"我在这里。"}},
		{"trailing space after period", "I am here. ", []string{"I am here. "}},
		{"question with leftover", "Are you there? I am", []string{"Are you there?", " I am"}},
		{"full width question", "是你吗？我", []string{"是你吗？", "我"}},
		{"question at end", "Really?", []string{"Really?", ""}},
		{"two questions", "Why? How? Now", []string{"Why?", " How?", " Now"}},
		{"semicolon", "First part; second", []string{"First part;", " second"}},
		{"no terminator", "and then", nil},
		{"comma only", "well,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultSplit(tt.line))
		})
	}
}

func TestSentenceSplitter(t *testing.T) {
	zh := SentenceSplitter(language.MustParse("zh-CN"))
	assert.Equal(t, []string{"你好", "世界"}, zh("你好。世界。"))
	assert.Equal(t, []string{"你好"}, zh("你好。 。"))
	assert.Empty(t, zh("  "))

	ja := SentenceSplitter(language.Japanese)
	assert.Equal(t, []string{"こんにちは", "世界"}, ja("こんにちは。世界"))

	fr := SentenceSplitter(language.French)
	assert.Equal(t, []string{"Bonjour.", "Ça va?", "Oui"}, fr("Bonjour. Ça va? Oui"))
	assert.Equal(t, []string{"M.Dupont est là."}, fr("M.Dupont est là."))
}
