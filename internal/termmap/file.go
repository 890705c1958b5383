package termmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
)

// Filename returns the term map filename for the given source and target languages.
// Uses 2-letter language base codes (e.g., "en", "zh").
func Filename(sourceLang, targetLang string) string {
	return "term_map." + normalizeLanguageCode(sourceLang) + "-" + normalizeLanguageCode(targetLang) + ".json"
}

// FilePath returns the full path to the term map file in the given directory.
func FilePath(dir, sourceLang, targetLang string) string {
	return filepath.Join(dir, Filename(sourceLang, targetLang))
}

// FindInAncestors walks up from startDir looking for a term_map file.
// Returns the closest path or empty string.
func FindInAncestors(startDir, sourceLang, targetLang string) string {
	filename := Filename(sourceLang, targetLang)

	for dir := startDir; ; {
		candidate := filepath.Join(dir, filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadNearest loads the closest term map above the given subtitle file.
// A missing file is not an error; the returned map is empty and path is "".
func LoadNearest(subtitlePath, sourceLang, targetLang string) (TermMap, string, error) {
	path := FindInAncestors(filepath.Dir(subtitlePath), sourceLang, targetLang)
	if path == "" {
		return TermMap{}, "", nil
	}

	tm, err := Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("load term map %s: %w", path, err)
	}
	return tm, path, nil
}

// Load reads a term map from a JSON file.
func Load(path string) (TermMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tm TermMap
	if err := json.Unmarshal(data, &tm); err != nil {
		return nil, err
	}
	if tm == nil {
		return nil, errors.New("term map is null")
	}

	return tm, nil
}

// Save writes a term map to a JSON file with indentation.
func Save(path string, tm TermMap) error {
	data, err := json.MarshalIndent(tm, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// normalizeLanguageCode parses a language string and returns its 2-letter base code.
func normalizeLanguageCode(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	base, _ := tag.Base()
	return base.String()
}
