package subtitle

import (
	"bufio"
	"fmt"
	"io"
)

// CueWriter streams cues in SRT block format
type CueWriter struct {
	w       *bufio.Writer
	written int
}

// NewWriter creates a cue writer on top of w
func NewWriter(w io.Writer) *CueWriter {
	return &CueWriter{w: bufio.NewWriter(w)}
}

// FormatCue renders one SRT block, including the trailing blank line
func FormatCue(cue Cue) string {
	return fmt.Sprintf("%d\n%s --> %s\n%s\n\n",
		cue.Index,
		FormatTimecode(cue.Start),
		FormatTimecode(cue.End),
		cue.Text)
}

// WriteCues appends cues in order
func (w *CueWriter) WriteCues(cues ...Cue) error {
	for _, cue := range cues {
		if _, err := w.w.WriteString(FormatCue(cue)); err != nil {
			return fmt.Errorf("failed to write cue %d: %w", cue.Index, err)
		}
		w.written++
	}
	return nil
}

// Written returns the number of cues written so far
func (w *CueWriter) Written() int {
	return w.written
}

// Flush writes buffered data to the underlying writer
func (w *CueWriter) Flush() error {
	return w.w.Flush()
}
