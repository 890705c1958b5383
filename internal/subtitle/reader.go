package subtitle

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// DefaultReader is the default subtitle file reader
type DefaultReader struct {
	path string
}

// NewReader creates a new subtitle file reader
func NewReader(
	path string,
) Reader {
	return &DefaultReader{
		path: path,
	}
}

// Read parses the whole subtitle file into cues
func (r *DefaultReader) Read() (*File, error) {
	file, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("subtitle file does not exist: %s", r.path)
		}
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer file.Close()

	return readSRT(file, r.path)
}

// ReadSRTBytes parses SRT content that is already in memory
func ReadSRTBytes(data []byte, path string) (*File, error) {
	return readSRT(bytes.NewReader(data), path)
}

type readState int

const (
	stateIndex readState = iota
	stateTime
	stateText
)

func readSRT(r io.Reader, path string) (*File, error) {
	var cues []Cue
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	current := Cue{}
	state := stateIndex
	var textLines []string

	flush := func() {
		if len(textLines) > 0 {
			current.Text = strings.Join(textLines, "\n")
			cues = append(cues, current)
		}
		current = Cue{}
		textLines = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))

		switch state {
		case stateIndex:
			if line == "" {
				continue
			}
			index, err := strconv.Atoi(line)
			if err != nil {
				continue // skip non-index lines
			}
			current.Index = index
			state = stateTime

		case stateTime:
			if line == "" {
				continue
			}
			start, end, err := ParseTimecodeRange(line)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time of cue %d: %w", current.Index, err)
			}
			current.Start = start
			current.End = end
			state = stateText

		case stateText:
			if line == "" {
				flush()
				state = stateIndex
				continue
			}
			textLines = append(textLines, line)
		}
	}

	if state == stateText {
		flush()
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}

	return &File{
		Path:     path,
		Cues:     cues,
		Language: detectLanguage(cues),
		Format:   "SRT",
	}, nil
}

// detectLanguage returns the most common language among cue texts
func detectLanguage(cues []Cue) language.Tag {
	if len(cues) == 0 {
		return language.Und
	}

	counts := make(map[string]int)
	for _, cue := range cues {
		lang := whatlanggo.DetectLang(cue.Text).Iso6391()
		if lang == "" {
			continue
		}
		counts[lang]++
	}

	var topLang string
	var topCount int
	for lang, count := range counts {
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}
	if topLang == "" {
		return language.Und
	}

	return language.All.Make(topLang)
}
