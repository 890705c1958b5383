package jobs

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ErrSkipped is returned by an executor that decided the job needs no work.
var ErrSkipped = errors.New("job skipped")

type EnqueueRequest struct {
	Source    string
	DedupeKey string
	Payload   JobPayload
}

type JobPayload struct {
	SubtitleFile string `json:"subtitle_file"`
	Language     string `json:"language"`
	Force        bool   `json:"force,omitempty"`
}

// DedupeKey identifies the same translation request.
func (p JobPayload) DedupeKey() string {
	return p.SubtitleFile + "|" + p.Language
}

type TranslationJob struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	DedupeKey string     `json:"dedupe_key"`
	Payload   JobPayload `json:"payload"`
	Status    Status     `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Terminal reports whether the job will not change anymore.
func (j *TranslationJob) Terminal() bool {
	return j.Status == StatusSuccess || j.Status == StatusFailed || j.Status == StatusSkipped
}

// Listener is notified after every status change.
type Listener interface {
	JobChanged(job *TranslationJob)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(job *TranslationJob)

func (f ListenerFunc) JobChanged(job *TranslationJob) {
	f(job)
}
