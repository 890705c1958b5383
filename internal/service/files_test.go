package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subtitle-trans/internal/metrics"
	"github.com/MimeLyc/subtitle-trans/internal/termmap"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:02,000
Hello

2
00:00:02,000 --> 00:00:03,000
world.
`

// fakeTranslator prefixes every sentence and fails on texts containing "boom"
type fakeTranslator struct {
	mu       sync.Mutex
	calls    []string
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeTranslator) Translate(ctx context.Context, text string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if strings.Contains(text, "boom") {
		return "", errors.New("backend exploded")
	}
	return "[zh] " + text, nil
}

func (f *fakeTranslator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type recordingProgress struct {
	mu       sync.Mutex
	totals   map[string]int64
	consumed map[string]int64
	done     map[string]error
}

func newRecordingProgress() *recordingProgress {
	return &recordingProgress{
		totals:   make(map[string]int64),
		consumed: make(map[string]int64),
		done:     make(map[string]error),
	}
}

func (p *recordingProgress) Track(path string, total int64) Tracker {
	p.mu.Lock()
	p.totals[path] = total
	p.mu.Unlock()
	return &recordingTracker{p: p, path: path}
}

type recordingTracker struct {
	p    *recordingProgress
	path string
}

func (t *recordingTracker) Increment(n int64) {
	t.p.mu.Lock()
	t.p.consumed[t.path] += n
	t.p.mu.Unlock()
}

func (t *recordingTracker) Done(err error) {
	t.p.mu.Lock()
	t.p.done[t.path] = err
	t.p.mu.Unlock()
}

func testOptions() Options {
	return Options{
		Language: "zh-CN",
		Ext:      ".srt",
		Worker:   2,
	}
}

func newTestService(tr *fakeTranslator, opts Options, extra ...FileServiceOption) *FileService {
	extra = append([]FileServiceOption{WithMetrics(metrics.NewMetrics(nil))}, extra...)
	return NewFileService(tr, opts, extra...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestFileService_TranslateFileWritesTimedOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ep01.srt")
	writeFile(t, src, sampleSRT)

	tr := &fakeTranslator{}
	res := newTestService(tr, testOptions()).TranslateFile(context.Background(), src)

	require.NoError(t, res.Err)
	assert.Equal(t, StatusTranslated, res.Status)
	assert.Equal(t, filepath.Join(dir, "ep01.zh-CN.srt"), res.Output)
	assert.Equal(t, 1, res.Cues)
	assert.Equal(t, []string{"Hello world."}, tr.Calls())
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:03,000\n[zh] Hello world.\n\n", readFile(t, res.Output))
}

func TestFileService_ExistingOutput(t *testing.T) {
	tests := []struct {
		name       string
		opts       func(*Options)
		wantStatus Status
		wantOutput string // "" means removed
		wantCalls  int
	}{
		{
			name:       "skipped without force",
			opts:       func(*Options) {},
			wantStatus: StatusSkipped,
			wantOutput: "old",
		},
		{
			name:       "overwritten with force",
			opts:       func(o *Options) { o.Force = true },
			wantStatus: StatusTranslated,
			wantOutput: "1\n00:00:01,000 --> 00:00:03,000\n[zh] Hello world.\n\n",
			wantCalls:  1,
		},
		{
			name:       "removed with clear",
			opts:       func(o *Options) { o.Clear = true },
			wantStatus: StatusCleared,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "ep01.srt")
			out := filepath.Join(dir, "ep01.zh-CN.srt")
			writeFile(t, src, sampleSRT)
			writeFile(t, out, "old")

			opts := testOptions()
			tt.opts(&opts)
			tr := &fakeTranslator{}
			res := newTestService(tr, opts).TranslateFile(context.Background(), src)

			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Len(t, tr.Calls(), tt.wantCalls)
			if tt.wantOutput == "" {
				assert.NoFileExists(t, out)
				return
			}
			assert.Equal(t, tt.wantOutput, readFile(t, out))
		})
	}
}

func TestFileService_ClearWithoutOutputTranslatesNothing(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ep01.srt")
	writeFile(t, src, sampleSRT)

	opts := testOptions()
	opts.Clear = true
	tr := &fakeTranslator{}
	res := newTestService(tr, opts).TranslateFile(context.Background(), src)

	assert.Equal(t, StatusSkipped, res.Status)
	assert.Empty(t, tr.Calls())
	assert.NoFileExists(t, filepath.Join(dir, "ep01.zh-CN.srt"))
}

func TestFileService_FailureRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ep01.srt")
	writeFile(t, src, sampleSRT+`
3
00:00:04,000 --> 00:00:05,000
Then boom.
`)

	res := newTestService(&fakeTranslator{}, testOptions()).TranslateFile(context.Background(), src)

	assert.Equal(t, StatusFailed, res.Status)
	assert.True(t, IsErrorType(res.Err, ErrTranslation))
	assert.Contains(t, res.Err.Error(), "backend exploded")
	assert.Equal(t, 1, res.Cues)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the source file should remain")
	assert.Equal(t, "ep01.srt", entries[0].Name())
}

func TestFileService_MissingFile(t *testing.T) {
	res := newTestService(&fakeTranslator{}, testOptions()).
		TranslateFile(context.Background(), filepath.Join(t.TempDir(), "nope.srt"))

	assert.Equal(t, StatusFailed, res.Status)
	assert.True(t, IsErrorType(res.Err, ErrFileNotFound))
}

func TestFileService_SkipsFilesAlreadyInTargetLanguage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ep01.srt")
	writeFile(t, src, `1
00:00:01,000 --> 00:00:03,000
今天天气很好，我们一起去公园散步吧。

2
00:00:03,000 --> 00:00:05,000
我们明天早上在学校门口见面，不要迟到。
`)

	opts := testOptions()
	opts.DetectLanguage = true
	tr := &fakeTranslator{}
	res := newTestService(tr, opts).TranslateFile(context.Background(), src)

	assert.Equal(t, StatusSkipped, res.Status)
	assert.Contains(t, res.Reason, "already in zh")
	assert.Empty(t, tr.Calls())
}

func TestFileService_KeywordsSurviveTranslation(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ep01.srt")
	writeFile(t, src, `1
00:00:01,000 --> 00:00:02,000
Momo runs.
`)

	opts := testOptions()
	opts.Keywords = "Momo"
	tr := &fakeTranslator{}
	res := newTestService(tr, opts).TranslateFile(context.Background(), src)

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"@0 runs."}, tr.Calls())
	assert.Contains(t, readFile(t, res.Output), "[zh] Momo runs.")
}

func TestFileService_TermMapEntriesAreRestoredTranslated(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "season1", "ep01.srt")
	writeFile(t, src, `1
00:00:01,000 --> 00:00:04,000
Okarun is walking to the station with his friends this morning.
`)
	require.NoError(t, termmap.Save(termmap.FilePath(root, "en", "zh"), termmap.TermMap{
		"Okarun": "奥卡伦",
		"Turbo":  "涡轮婆婆",
	}))

	opts := testOptions()
	opts.TermMap = true
	tr := &fakeTranslator{}
	res := newTestService(tr, opts).TranslateFile(context.Background(), src)

	require.NoError(t, res.Err)
	require.Len(t, tr.Calls(), 1)
	assert.True(t, strings.HasPrefix(tr.Calls()[0], "@0 is walking"))
	assert.Contains(t, readFile(t, res.Output), "[zh] 奥卡伦 is walking")
}

func TestFileService_ReportsProgress(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ep01.srt")
	writeFile(t, src, sampleSRT)

	progress := newRecordingProgress()
	res := newTestService(&fakeTranslator{}, testOptions(), WithProgress(progress)).
		TranslateFile(context.Background(), src)
	require.NoError(t, res.Err)

	assert.Equal(t, int64(len(sampleSRT)), progress.totals[src])
	assert.Equal(t, int64(len(sampleSRT)), progress.consumed[src])
	assert.Contains(t, progress.done, src)
	assert.NoError(t, progress.done[src])
}

func TestFileService_TranslateDirFiltersAndBatches(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.srt", "b.srt", "c.SRT", "d.srt", "e.srt"} {
		writeFile(t, filepath.Join(dir, name), sampleSRT)
	}
	writeFile(t, filepath.Join(dir, "z.zh-CN.srt"), sampleSRT)
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello.")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.srt"), 0o755))

	tr := &fakeTranslator{delay: 20 * time.Millisecond}
	report, err := newTestService(tr, testOptions()).TranslateDir(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, report.Results, 5)
	assert.Equal(t, 5, report.Count(StatusTranslated))
	assert.False(t, report.Failed())
	assert.Equal(t, filepath.Join(dir, "a.srt"), report.Results[0].Path)
	assert.LessOrEqual(t, tr.maxSeen.Load(), int32(2))
	assert.FileExists(t, filepath.Join(dir, "c.zh-CN.SRT"))
}

func TestFileService_TranslateDirContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.srt"), "1\n00:00:01,000 --> 00:00:02,000\nboom.\n")
	writeFile(t, filepath.Join(dir, "b.srt"), sampleSRT)

	report, err := newTestService(&fakeTranslator{}, testOptions()).TranslateDir(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, report.Failed())
	assert.Equal(t, StatusFailed, report.Results[0].Status)
	assert.Equal(t, StatusTranslated, report.Results[1].Status)
}

func TestFileService_EmptyDirMakesNoCalls(t *testing.T) {
	tr := &fakeTranslator{}
	report, err := newTestService(tr, testOptions()).TranslatePath(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Empty(t, report.Results)
	assert.Empty(t, tr.Calls())
}

func TestFileService_TranslatePathMissing(t *testing.T) {
	_, err := newTestService(&fakeTranslator{}, testOptions()).
		TranslatePath(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.True(t, IsErrorType(err, ErrFileNotFound))
}

func TestFileService_RecordsMetrics(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ep01.srt")
	writeFile(t, src, sampleSRT)

	m := metrics.NewMetrics(nil)
	svc := NewFileService(&fakeTranslator{}, testOptions(), WithMetrics(m))
	svc.TranslateFile(context.Background(), src)
	svc.TranslateFile(context.Background(), src)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.FilesProcessed.WithLabelValues("translated")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FilesProcessed.WithLabelValues("skipped")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CuesEmitted))
}

func TestAdvice(t *testing.T) {
	assert.Contains(t, Advice(NewFileError(ErrFileWrite, "/x", "boom")), "write permissions")
	assert.Contains(t, Advice(errors.New("plain")), "review the detailed error")
	assert.Equal(t, "[Parse] bad input (/x.srt): eof", WrapFileError(errors.New("eof"), ErrParse, "/x.srt", "bad input").Error())
}
