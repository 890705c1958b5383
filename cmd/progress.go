package main

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/mattn/go-isatty"

	"github.com/MimeLyc/subtitle-trans/internal/service"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

// progressRenderer is a service.Progress that can be stopped once all files are done
type progressRenderer interface {
	service.Progress
	Stop()
}

// newProgress renders live bars on a terminal and log lines elsewhere
func newProgress(w io.Writer) progressRenderer {
	if shouldRenderBars(w) {
		return newBarProgress(w)
	}
	return &logProgress{}
}

func shouldRenderBars(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type barProgress struct {
	pw   progress.Writer
	once sync.Once
}

func newBarProgress(w io.Writer) *barProgress {
	pw := progress.NewWriter()
	pw.SetOutputWriter(w)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetMessageLength(32)
	pw.SetStyle(progress.StyleDefault)
	pw.SetUpdateFrequency(200 * time.Millisecond)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Percentage = true
	pw.Style().Visibility.Value = true
	return &barProgress{pw: pw}
}

func (p *barProgress) Track(path string, total int64) service.Tracker {
	p.once.Do(func() { go p.pw.Render() })

	t := &progress.Tracker{
		Message: filepath.Base(path),
		Total:   total,
		Units:   progress.UnitsBytes,
	}
	p.pw.AppendTracker(t)
	return &barTracker{t: t}
}

func (p *barProgress) Stop() {
	if !p.pw.IsRenderInProgress() {
		return
	}
	// one more frame so the final state is drawn
	time.Sleep(250 * time.Millisecond)
	p.pw.Stop()
}

type barTracker struct {
	t *progress.Tracker
}

func (b *barTracker) Increment(n int64) {
	b.t.Increment(n)
}

func (b *barTracker) Done(err error) {
	if err != nil {
		b.t.MarkAsErrored()
		return
	}
	b.t.MarkAsDone()
}

// logProgress reports every quarter of a file as a log line
type logProgress struct{}

func (logProgress) Track(path string, total int64) service.Tracker {
	return &logTracker{name: filepath.Base(path), total: total}
}

func (logProgress) Stop() {}

type logTracker struct {
	mu       sync.Mutex
	name     string
	total    int64
	consumed int64
	reported int64
}

func (l *logTracker) Increment(n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.consumed += n
	if l.total <= 0 {
		return
	}
	quarter := l.consumed * 4 / l.total
	if quarter > l.reported && quarter < 4 {
		l.reported = quarter
		log.Info("%s: %d%%", l.name, quarter*25)
	}
}

func (l *logTracker) Done(err error) {
	if err != nil {
		log.Warn("%s: stopped after %d of %d bytes", l.name, l.consumed, l.total)
		return
	}
	log.Debug("%s: 100%%", l.name)
}
