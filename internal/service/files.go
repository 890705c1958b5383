package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/MimeLyc/subtitle-trans/internal/metrics"
	"github.com/MimeLyc/subtitle-trans/internal/subtitle"
	"github.com/MimeLyc/subtitle-trans/internal/termmap"
	"github.com/MimeLyc/subtitle-trans/pkg/file"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

// FileService translates subtitle files and directories of them
type FileService struct {
	translator subtitle.Translator
	opts       Options
	target     language.Tag
	progress   Progress
	metrics    *metrics.Metrics
	logger     *log.Logger
}

type FileServiceOption func(*FileService)

func WithProgress(p Progress) FileServiceOption {
	return func(s *FileService) {
		if p != nil {
			s.progress = p
		}
	}
}

func WithMetrics(m *metrics.Metrics) FileServiceOption {
	return func(s *FileService) {
		if m != nil {
			s.metrics = m
		}
	}
}

func NewFileService(tr subtitle.Translator, opts Options, fopts ...FileServiceOption) *FileService {
	if opts.Worker < 1 {
		opts.Worker = 1
	}
	if opts.Ext == "" {
		opts.Ext = ".srt"
	}
	target, err := language.Parse(opts.Language)
	if err != nil {
		target = language.SimplifiedChinese
	}

	s := &FileService{
		translator: tr,
		opts:       opts,
		target:     target,
		progress:   noopProgress{},
		metrics:    metrics.DefaultMetrics,
		logger:     log.GetLogger().With("component", "files"),
	}
	for _, opt := range fopts {
		opt(s)
	}
	return s
}

// OutputPath returns where the translation of path is written
func (s *FileService) OutputPath(path string) string {
	return file.InsertSuffix(path, s.opts.Language)
}

// TranslatePath translates a single file or every matching file of a directory.
// The returned error is only set when path itself cannot be used or ctx ends;
// per file failures are part of the report.
func (s *FileService) TranslatePath(ctx context.Context, path string) (*Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, WrapFileError(err, ErrFileNotFound, path, "path does not exist")
		}
		return nil, WrapFileError(err, ErrFileRead, path, "failed to stat path")
	}

	if !info.IsDir() {
		report := &Report{}
		report.Add(s.TranslateFile(ctx, path))
		return report, ctx.Err()
	}
	return s.TranslateDir(ctx, path)
}

// TranslateDir translates the files of dir that carry the configured
// extension and whose name does not already contain the target language.
// At most Worker files run together; a batch finishes before the next starts.
func (s *FileService) TranslateDir(ctx context.Context, dir string) (*Report, error) {
	paths, err := s.ListDir(dir)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	if len(paths) == 0 {
		s.logger.Info("No %s files to translate in %s", s.opts.Ext, dir)
		return report, nil
	}
	s.logger.Info("Found %d files in %s", len(paths), dir)

	for start := 0; start < len(paths); start += s.opts.Worker {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		end := min(start+s.opts.Worker, len(paths))
		batch := paths[start:end]
		results := make([]Result, len(batch))

		var g errgroup.Group
		for i, p := range batch {
			g.Go(func() error {
				results[i] = s.TranslateFile(ctx, p)
				return nil
			})
		}
		_ = g.Wait()

		report.Add(results...)
	}

	return report, ctx.Err()
}

// ListDir returns the candidate files of dir in name order
func (s *FileService) ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, WrapFileError(err, ErrFileRead, dir, "failed to read directory")
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !file.HasExt(name, s.opts.Ext) {
			continue
		}
		if strings.Contains(name, s.opts.Language) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// TranslateFile translates one subtitle file into OutputPath(path)
func (s *FileService) TranslateFile(ctx context.Context, path string) (res Result) {
	startedAt := time.Now()
	res = Result{Path: path, Output: s.OutputPath(path)}
	defer func() {
		res.Duration = time.Since(startedAt)
		s.metrics.RecordFile(string(res.Status), res.Cues, res.Duration)
		switch res.Status {
		case StatusFailed:
			HandleError(s.logger, res.Err)
		case StatusSkipped:
			s.logger.Info("Skip %s: %s", path, res.Reason)
		case StatusCleared:
			s.logger.Info("Removed %s", res.Output)
		default:
			s.logger.Info("Translated %s -> %s (%d cues, %s)", path, res.Output, res.Cues, res.Duration.Round(time.Millisecond))
		}
	}()

	if _, err := os.Stat(res.Output); err == nil {
		switch {
		case s.opts.Clear:
			if err := os.Remove(res.Output); err != nil {
				return failed(res, WrapFileError(err, ErrFileWrite, res.Output, "failed to remove output"))
			}
			res.Status = StatusCleared
			return res
		case !s.opts.Force:
			res.Status, res.Reason = StatusSkipped, "output exists"
			return res
		}
	} else if s.opts.Clear {
		res.Status, res.Reason = StatusSkipped, "no output to clear"
		return res
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return failed(res, WrapFileError(err, ErrFileNotFound, path, "subtitle file does not exist"))
		}
		return failed(res, WrapFileError(err, ErrFileRead, path, "failed to read subtitle file"))
	}

	parsed, err := subtitle.ReadSRTBytes(data, path)
	if err != nil {
		return failed(res, WrapFileError(err, ErrParse, path, "failed to parse subtitle file"))
	}

	if s.opts.DetectLanguage && sameLanguage(parsed.Language, s.target) {
		res.Status, res.Reason = StatusSkipped, fmt.Sprintf("already in %s", parsed.Language)
		return res
	}

	table := s.keywordTable(parsed)

	cues, err := s.write(ctx, path, res.Output, data, table)
	res.Cues = cues
	if err != nil {
		return failed(res, err)
	}

	res.Status = StatusTranslated
	return res
}

// keywordTable combines the configured keywords with the term map entries
// found in the file. Term map keywords are restored as their translation.
func (s *FileService) keywordTable(parsed *subtitle.File) *termmap.Table {
	keywords := termmap.ParseKeywords(s.opts.Keywords)
	if !s.opts.TermMap {
		return termmap.NewTable(keywords)
	}

	source := parsed.Language
	if source == language.Und {
		source = language.English
	}

	tm, tmPath, err := termmap.LoadNearest(parsed.Path, source.String(), s.target.String())
	if err != nil {
		s.logger.Warn("Ignore term map %s: %v", tmPath, err)
		return termmap.NewTable(keywords)
	}
	if len(tm) == 0 {
		return termmap.NewTable(keywords)
	}

	matched := termmap.Match(tm, parsed.Texts()).Matched
	terms := matched.Keys()
	sort.Strings(terms)
	s.logger.Debug("Term map %s contributes %d of %d terms to %s", tmPath, len(terms), len(tm), parsed.Path)

	return termmap.NewTable(append(keywords, terms...)).WithReplacements(matched)
}

// write streams the translation into a temp file next to output and renames
// it into place once every cue is written.
func (s *FileService) write(ctx context.Context, path, output string, data []byte, table *termmap.Table) (int, error) {
	tmp, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".*.tmp")
	if err != nil {
		return 0, WrapFileError(err, ErrFileWrite, output, "failed to create output")
	}
	tmpPath := tmp.Name()

	tracker := s.progress.Track(path, int64(len(data)))
	transformer := subtitle.NewTransformer(s.translator,
		subtitle.WithKeywords(table),
		subtitle.WithTargetLanguage(s.target),
		subtitle.WithSource(filepath.Base(path)),
		subtitle.WithProgress(func(n int) { tracker.Increment(int64(n)) }),
	)

	runErr := transformer.Run(ctx, bytes.NewReader(data), subtitle.NewWriter(tmp))
	closeErr := tmp.Close()
	if runErr == nil && closeErr != nil {
		runErr = WrapFileError(closeErr, ErrFileWrite, output, "failed to close output")
	}
	if runErr == nil {
		if err := os.Rename(tmpPath, output); err != nil {
			runErr = WrapFileError(err, ErrFileWrite, output, "failed to move output into place")
		}
	}
	if runErr != nil {
		_ = os.Remove(tmpPath)
		var cueErr *subtitle.CueError
		if errors.As(runErr, &cueErr) {
			runErr = WrapFileError(runErr, ErrTranslation, path, "translation failed")
		}
	}

	tracker.Done(runErr)
	return transformer.Emitted(), runErr
}

func failed(res Result, err error) Result {
	res.Status = StatusFailed
	res.Err = err
	return res
}

func sameLanguage(detected, target language.Tag) bool {
	if detected == language.Und {
		return false
	}
	db, _ := detected.Base()
	tb, _ := target.Base()
	return db == tb
}
