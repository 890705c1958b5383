package subtitle

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

var indexLineRe = regexp.MustCompile(`^\d+\s*$`)

// KeywordGuard shields terms from translation and puts them back afterwards
type KeywordGuard interface {
	Protect(sentence string) string
	Restore(translated string) string
}

// CueError reports a failed translation together with its position in the source
type CueError struct {
	Source string // source file name
	Index  int    // index of the last source cue seen
	Text   string // sentence sent to the translator
	Err    error
}

func (e *CueError) Error() string {
	return fmt.Sprintf("translate %s cue %d %q: %v", e.Source, e.Index, e.Text, e.Err)
}

func (e *CueError) Unwrap() error {
	return e.Err
}

// TransformOption configures a Transformer
type TransformOption func(*Transformer)

// WithKeywords protects the guard's terms in every sentence
func WithKeywords(guard KeywordGuard) TransformOption {
	return func(t *Transformer) {
		t.keywords = guard
	}
}

// WithSplit replaces DefaultSplit
func WithSplit(fn SplitFunc) TransformOption {
	return func(t *Transformer) {
		if fn != nil {
			t.split = fn
		}
	}
}

// WithTargetLanguage selects how translated results are broken into cues
func WithTargetLanguage(tag language.Tag) TransformOption {
	return func(t *Transformer) {
		t.sentences = SentenceSplitter(tag)
	}
}

// WithProgress receives the byte length of every consumed input line
func WithProgress(fn func(n int)) TransformOption {
	return func(t *Transformer) {
		t.progress = fn
	}
}

// WithSource names the input in error reports
func WithSource(name string) TransformOption {
	return func(t *Transformer) {
		t.source = name
	}
}

// accumulator buffers text until a sentence terminator is seen
type accumulator struct {
	text       string
	start      time.Duration
	end        time.Duration
	continuing bool
}

func (a *accumulator) append(fragment string) {
	fragment = strings.TrimSpace(fragment)
	switch {
	case fragment == "":
	case a.text == "":
		a.text = fragment
	default:
		a.text += " " + fragment
	}
}

func (a *accumulator) reset(leftover string) {
	a.text = ""
	a.append(leftover)
	a.continuing = false
}

// Transformer merges subtitle lines into sentences, translates them and
// re-emits timed cues. One Transformer serves one input stream.
type Transformer struct {
	translator Translator
	keywords   KeywordGuard
	split      SplitFunc
	sentences  func(string) []string
	progress   func(n int)
	source     string

	acc       accumulator
	count     int
	lastIndex int
}

// NewTransformer creates a transform stage on top of tr
func NewTransformer(tr Translator, opts ...TransformOption) *Transformer {
	t := &Transformer{
		translator: tr,
		split:      DefaultSplit,
		sentences:  SentenceSplitter(language.SimplifiedChinese),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Emitted returns how many cues have been produced
func (t *Transformer) Emitted() int {
	return t.count
}

// Process consumes one raw input line and returns the cues it completes.
// It blocks while the sentence is being translated.
func (t *Transformer) Process(ctx context.Context, raw string) ([]Cue, error) {
	if t.progress != nil {
		defer t.progress(len(raw))
	}

	line := strings.TrimPrefix(strings.TrimRight(raw, "\r\n"), "\ufeff")

	switch {
	case indexLineRe.MatchString(line):
		if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
			t.lastIndex = n
		}
		return nil, nil

	case IsTimecodeLine(line):
		start, end, err := ParseTimecodeRange(line)
		if err != nil {
			return nil, fmt.Errorf("%s cue %d: %w", t.source, t.lastIndex, err)
		}
		if !t.acc.continuing {
			t.acc.start = start
		}
		t.acc.end = end
		return nil, nil

	case strings.TrimSpace(line) == "":
		return nil, nil
	}

	fragments := t.split(line)
	if len(fragments) == 0 {
		t.acc.append(line)
		t.acc.continuing = true
		return nil, nil
	}

	t.acc.append(fragments[0])
	sentence, start, end := t.acc.text, t.acc.start, t.acc.end
	t.acc.reset(strings.Join(fragments[1:], " "))

	return t.translate(ctx, sentence, start, end)
}

// Flush translates whatever is still buffered at the end of the stream
func (t *Transformer) Flush(ctx context.Context) ([]Cue, error) {
	sentence, start, end := t.acc.text, t.acc.start, t.acc.end
	t.acc.reset("")
	if sentence == "" {
		return nil, nil
	}
	return t.translate(ctx, sentence, start, end)
}

// Run feeds every line of r through Process and writes the produced cues to w
func (t *Transformer) Run(ctx context.Context, r io.Reader, w *CueWriter) error {
	br := bufio.NewReader(r)
	for {
		raw, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("failed to read %s: %w", t.source, readErr)
		}

		if raw != "" {
			cues, err := t.Process(ctx, raw)
			if err != nil {
				return err
			}
			if err := w.WriteCues(cues...); err != nil {
				return err
			}
		}

		if readErr != nil {
			break
		}
	}

	cues, err := t.Flush(ctx)
	if err != nil {
		return err
	}
	if err := w.WriteCues(cues...); err != nil {
		return err
	}
	return w.Flush()
}

func (t *Transformer) translate(ctx context.Context, sentence string, start, end time.Duration) ([]Cue, error) {
	query := sentence
	if t.keywords != nil {
		query = t.keywords.Protect(query)
	}

	result, err := t.translator.Translate(ctx, query)
	if err != nil {
		return nil, &CueError{Source: t.source, Index: t.lastIndex, Text: sentence, Err: err}
	}

	if t.keywords != nil {
		result = t.keywords.Restore(result)
	}

	return t.distribute(t.sentences(result), start, end), nil
}

// distribute spreads [start, end) evenly over the pieces
func (t *Transformer) distribute(pieces []string, start, end time.Duration) []Cue {
	n := int64(len(pieces))
	if n == 0 {
		return nil
	}

	span := (end - start).Milliseconds()
	if span < 0 {
		span = 0
	}
	step := time.Duration((span+n-1)/n) * time.Millisecond

	cues := make([]Cue, 0, n)
	for i, piece := range pieces {
		t.count++
		from := start + step*time.Duration(i)
		cues = append(cues, Cue{
			Index: t.count,
			Start: from,
			End:   from + step,
			Text:  piece,
		})
	}
	return cues
}
