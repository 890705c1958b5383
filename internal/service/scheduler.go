package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/subtitle-trans/internal/config"
	"github.com/MimeLyc/subtitle-trans/internal/jobs"
	"github.com/MimeLyc/subtitle-trans/pkg/file"
	"github.com/MimeLyc/subtitle-trans/pkg/icron"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

// JobSource identifies jobs created by directory scans
const JobSource = "schedule"

// CronEngine registers scheduled functions
type CronEngine interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
}

// Enqueuer accepts translation jobs
type Enqueuer interface {
	Enqueue(req jobs.EnqueueRequest) (*jobs.TranslationJob, bool)
}

// Scheduler scans the configured directories on a cron schedule and enqueues
// every subtitle file modified since the previous scan.
type Scheduler struct {
	dirs     []string
	cronExpr string
	ext      string
	language string
	queue    Enqueuer
	cron     CronEngine

	group singleflight.Group
	mu    sync.Mutex
	last  time.Time
	now   func() time.Time

	logger *log.Logger
}

func NewScheduler(cfg *config.Config, c CronEngine, queue Enqueuer) *Scheduler {
	return &Scheduler{
		dirs:     cfg.Schedule.Dirs,
		cronExpr: cfg.Schedule.Cron,
		ext:      cfg.Files.Ext,
		language: cfg.Translate.Language,
		queue:    queue,
		cron:     c,
		now:      time.Now,
		logger:   log.GetLogger().With("component", "scheduler"),
	}
}

// Schedule registers the scan with the cron engine
func (s *Scheduler) Schedule(ctx context.Context) error {
	s.logger.Info("Scan %v on %q", s.dirs, s.cronExpr)

	_, err := s.cron.AddFunc(s.cronExpr, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Scan(ctx); err != nil {
			s.logger.Error("Scan failed: %v", err)
		}
	})
	return err
}

// Scan enqueues recent files of every directory and returns how many jobs
// were created. Overlapping calls share one scan.
func (s *Scheduler) Scan(ctx context.Context) (int, error) {
	v, err, _ := s.group.Do("scan", func() (any, error) {
		scanAt := s.now()
		startTime, err := s.startTime(scanAt)
		if err != nil {
			return 0, err
		}
		s.logger.Info("Search subtitle files modified after %v", startTime)

		created := 0
		var failed []string
		for _, dir := range s.dirs {
			if err := ctx.Err(); err != nil {
				return created, err
			}
			n, err := s.scanDir(dir, startTime)
			if err != nil {
				s.logger.Error("Failed to scan dir %s: %v", dir, err)
				failed = append(failed, dir)
				continue
			}
			created += n
		}

		s.mu.Lock()
		s.last = scanAt
		s.mu.Unlock()

		if len(failed) > 0 {
			return created, fmt.Errorf("failed to scan %s", strings.Join(failed, ", "))
		}
		return created, nil
	})
	n, _ := v.(int)
	return n, err
}

func (s *Scheduler) scanDir(dir string, startTime time.Time) (int, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, fmt.Errorf("directory %s does not exist: %w", dir, err)
	}

	recent, err := file.FindRecentAfter(dir, startTime, s.ext)
	if err != nil {
		return 0, fmt.Errorf("failed to find recent files: %w", err)
	}

	created := 0
	for _, path := range recent {
		// translations written by earlier runs carry the language in their name
		if strings.Contains(filepath.Base(path), s.language) {
			continue
		}

		payload := jobs.JobPayload{SubtitleFile: path, Language: s.language}
		job, ok := s.queue.Enqueue(jobs.EnqueueRequest{
			Source:    JobSource,
			DedupeKey: payload.DedupeKey(),
			Payload:   payload,
		})
		if ok {
			created++
			s.logger.Debug("Enqueued job %s for %s", job.ID, path)
		}
	}
	s.logger.Info("Found %d files in %s, enqueued %d", len(recent), dir, created)
	return created, nil
}

// startTime returns the previous scan time. Before the first scan it is the
// last cron activation, or a week back when that activation is within a day.
func (s *Scheduler) startTime(now time.Time) (time.Time, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if !last.IsZero() {
		return last, nil
	}

	info, err := icron.GetTriggerInfo(s.cronExpr, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get cron schedule: %w", err)
	}
	if now.Add(-24 * time.Hour).Before(info.Last) {
		return now.Add(-24 * 7 * time.Hour), nil
	}
	return info.Last, nil
}

// Execute runs one queued job through the file pipeline. Skipped and
// cleared files end as jobs.ErrSkipped.
func (s *FileService) Execute(ctx context.Context, job *jobs.TranslationJob) error {
	svc := s.forJob(job.Payload)
	res := svc.TranslateFile(ctx, job.Payload.SubtitleFile)
	switch res.Status {
	case StatusFailed:
		return res.Err
	case StatusSkipped, StatusCleared:
		if res.Reason == "" {
			return jobs.ErrSkipped
		}
		return fmt.Errorf("%w: %s", jobs.ErrSkipped, res.Reason)
	default:
		return nil
	}
}

// forJob returns a service for the job's language and force flag
func (s *FileService) forJob(p jobs.JobPayload) *FileService {
	if (p.Language == "" || p.Language == s.opts.Language) && (!p.Force || s.opts.Force) {
		return s
	}

	opts := s.opts
	if p.Language != "" {
		opts.Language = p.Language
	}
	opts.Force = opts.Force || p.Force
	return NewFileService(s.translator, opts, WithProgress(s.progress), WithMetrics(s.metrics))
}
