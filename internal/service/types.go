package service

import (
	"time"

	"github.com/MimeLyc/subtitle-trans/internal/config"
)

// Status is the outcome of one file
type Status string

const (
	StatusTranslated Status = "translated"
	StatusSkipped    Status = "skipped"
	StatusCleared    Status = "cleared"
	StatusFailed     Status = "failed"
)

// Options controls how files are picked and translated
type Options struct {
	Language       string // target language, also the output suffix
	Ext            string // extension scanned in directories
	Worker         int    // files translated together
	Force          bool   // overwrite existing outputs
	Clear          bool   // remove existing outputs instead of translating
	Keywords       string // comma separated terms kept untranslated
	DetectLanguage bool   // skip files already in the target language
	TermMap        bool   // merge matching term map entries into the keywords
}

// OptionsFromConfig copies the file related settings of cfg
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Language:       cfg.Translate.Language,
		Ext:            cfg.Files.Ext,
		Worker:         cfg.Translate.Worker,
		Force:          cfg.Files.Force,
		Clear:          cfg.Files.Clear,
		Keywords:       cfg.Files.Keywords,
		DetectLanguage: cfg.Files.DetectLanguage,
		TermMap:        cfg.Files.TermMap,
	}
}

// Result describes what happened to one file
type Result struct {
	Path     string
	Output   string
	Status   Status
	Reason   string
	Cues     int
	Err      error
	Duration time.Duration
}

// Report collects the results of one run in input order
type Report struct {
	Results []Result
}

func (r *Report) Add(results ...Result) {
	r.Results = append(r.Results, results...)
}

// Count returns how many results have status
func (r *Report) Count(status Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Failed reports whether any file failed
func (r *Report) Failed() bool {
	return r.Count(StatusFailed) > 0
}

// Tracker follows the progress of one file
type Tracker interface {
	// Increment adds n consumed bytes
	Increment(n int64)
	// Done marks the file as finished, err is nil on success
	Done(err error)
}

// Progress creates a Tracker per file. total is the file size in bytes.
type Progress interface {
	Track(path string, total int64) Tracker
}

type noopProgress struct{}

func (noopProgress) Track(string, int64) Tracker { return noopTracker{} }

type noopTracker struct{}

func (noopTracker) Increment(int64) {}
func (noopTracker) Done(error)      {}
