package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

type Executor func(ctx context.Context, job *TranslationJob) error

type Queue struct {
	workerCount int
	maxJobs     int
	listener    Listener

	mu         sync.RWMutex
	jobs       map[string]*TranslationJob
	dedupe     map[string]string
	idCounter  uint64
	started    bool
	pendingIDs chan string
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewQueue(workerCount int, listener Listener) *Queue {
	if workerCount <= 0 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		workerCount: workerCount,
		maxJobs:     1000,
		listener:    listener,
		jobs:        make(map[string]*TranslationJob),
		dedupe:      make(map[string]string),
		pendingIDs:  make(chan string, 1024),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Enqueue adds a job unless one with the same dedupe key is still pending
// or running, in which case that job is returned with created=false.
func (q *Queue) Enqueue(req EnqueueRequest) (*TranslationJob, bool) {
	now := time.Now()

	q.mu.Lock()
	if id, ok := q.dedupe[req.DedupeKey]; ok {
		if existing, exists := q.jobs[id]; exists {
			snapshot := cloneJob(existing)
			q.mu.Unlock()
			return snapshot, false
		}
		delete(q.dedupe, req.DedupeKey)
	}

	id := fmt.Sprintf("job-%d", atomic.AddUint64(&q.idCounter, 1))
	job := &TranslationJob{
		ID:        id,
		Source:    req.Source,
		DedupeKey: req.DedupeKey,
		Payload:   req.Payload,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	q.jobs[id] = job
	if req.DedupeKey != "" {
		q.dedupe[req.DedupeKey] = id
	}
	started := q.started
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.notify(snapshot)
	if started {
		q.enqueuePendingID(id)
	}
	return snapshot, true
}

func (q *Queue) Get(id string) (*TranslationJob, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, false
	}
	return cloneJob(job), true
}

// List returns all jobs, newest first.
func (q *Queue) List() []*TranslationJob {
	q.mu.RLock()
	ret := make([]*TranslationJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		ret = append(ret, cloneJob(job))
	}
	q.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].ID > ret[j].ID
		}
		return ret[i].CreatedAt.After(ret[j].CreatedAt)
	})
	return ret
}

// Counts returns the number of jobs per status.
func (q *Queue) Counts() map[Status]int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	ret := make(map[Status]int)
	for _, job := range q.jobs {
		ret[job.Status]++
	}
	return ret
}

func (q *Queue) Start(exec Executor) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true

	pending := make([]string, 0)
	for id, job := range q.jobs {
		if job.Status == StatusPending {
			pending = append(pending, id)
		}
	}
	q.mu.Unlock()

	for _, id := range pending {
		q.enqueuePendingID(id)
	}

	for range q.workerCount {
		q.wg.Add(1)
		go q.worker(exec)
	}
}

// Stop cancels running executors and waits for the workers to exit.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.cancel()
		q.wg.Wait()
	})
}

func (q *Queue) worker(exec Executor) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case id := <-q.pendingIDs:
			job, ok := q.markRunning(id)
			if !ok {
				continue
			}

			err := exec(q.ctx, job)
			switch {
			case err == nil:
				q.markDone(id, StatusSuccess, nil)
			case errors.Is(err, ErrSkipped):
				q.markDone(id, StatusSkipped, nil)
			default:
				q.markDone(id, StatusFailed, err)
			}
		}
	}
}

func (q *Queue) enqueuePendingID(id string) {
	select {
	case q.pendingIDs <- id:
	default:
		go func() {
			select {
			case q.pendingIDs <- id:
			case <-q.ctx.Done():
			}
		}()
	}
}

func (q *Queue) markRunning(id string) (*TranslationJob, bool) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || job.Status != StatusPending {
		q.mu.Unlock()
		return nil, false
	}
	job.Status = StatusRunning
	job.UpdatedAt = time.Now()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.notify(snapshot)
	return snapshot, true
}

func (q *Queue) markDone(id string, status Status, err error) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	job.Status = status
	job.Error = ""
	if err != nil {
		job.Error = err.Error()
	}
	job.UpdatedAt = time.Now()
	q.releaseDedupeLocked(job)
	pruned := q.pruneTerminalJobsLocked()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	if len(pruned) > 0 {
		log.Debug("Pruned %d finished jobs", len(pruned))
	}
	q.notify(snapshot)
}

func (q *Queue) releaseDedupeLocked(job *TranslationJob) {
	if job == nil || job.DedupeKey == "" {
		return
	}
	if id, ok := q.dedupe[job.DedupeKey]; ok && id == job.ID {
		delete(q.dedupe, job.DedupeKey)
	}
}

func (q *Queue) pruneTerminalJobsLocked() []string {
	if q.maxJobs <= 0 || len(q.jobs) <= q.maxJobs {
		return nil
	}

	type candidate struct {
		id        string
		updatedAt time.Time
	}
	terminal := make([]candidate, 0, len(q.jobs))
	for id, job := range q.jobs {
		if job == nil || !job.Terminal() {
			continue
		}
		terminal = append(terminal, candidate{id: id, updatedAt: job.UpdatedAt})
	}
	if len(terminal) == 0 {
		return nil
	}

	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].updatedAt.Before(terminal[j].updatedAt)
	})

	toRemove := min(len(q.jobs)-q.maxJobs, len(terminal))
	pruned := make([]string, 0, toRemove)
	for i := 0; i < toRemove; i++ {
		id := terminal[i].id
		if job := q.jobs[id]; job != nil {
			q.releaseDedupeLocked(job)
		}
		delete(q.jobs, id)
		pruned = append(pruned, id)
	}
	return pruned
}

func (q *Queue) notify(job *TranslationJob) {
	if q.listener == nil || job == nil {
		return
	}
	q.listener.JobChanged(job)
}

func cloneJob(job *TranslationJob) *TranslationJob {
	if job == nil {
		return nil
	}
	tmp := *job
	return &tmp
}
