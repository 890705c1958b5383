package events

import (
	"context"
	"time"

	"github.com/MimeLyc/subtitle-trans/internal/jobs"
)

const DefaultPublishTimeout = 5 * time.Second

// FromJob converts a job snapshot into an event of type "job.<status>".
func FromJob(job *jobs.TranslationJob) Event {
	return Event{
		Type:     "job." + string(job.Status),
		JobID:    job.ID,
		Path:     job.Payload.SubtitleFile,
		Language: job.Payload.Language,
		Status:   string(job.Status),
		Error:    job.Error,
		Time:     job.UpdatedAt,
	}
}

// JobListener publishes every job status change. Failures are logged by the
// publisher and never stop the queue.
func JobListener(p *Publisher, timeout time.Duration) jobs.Listener {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return jobs.ListenerFunc(func(job *jobs.TranslationJob) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = p.Publish(ctx, FromJob(job))
	})
}
