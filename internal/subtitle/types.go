package subtitle

import (
	"context"
	"time"

	"golang.org/x/text/language"
)

// Reader is the interface for reading subtitle files
type Reader interface {
	Read() (*File, error)
}

// Translator translates one sentence of text.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Cue represents a single subtitle entry
type Cue struct {
	Index int           // 1-based sequence number
	Start time.Duration // start time
	End   time.Duration // end time
	Text  string        // subtitle text, may span lines
}

// Duration returns the display time of the cue
func (c Cue) Duration() time.Duration {
	return c.End - c.Start
}

// File represents subtitle file
type File struct {
	Path     string
	Cues     []Cue
	Language language.Tag
	Format   string
}

// Texts returns the text of every cue
func (f *File) Texts() []string {
	ret := make([]string, 0, len(f.Cues))
	for _, cue := range f.Cues {
		ret = append(ret, cue.Text)
	}
	return ret
}
