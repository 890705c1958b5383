package translator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MimeLyc/subtitle-trans/internal/backend"
	"github.com/MimeLyc/subtitle-trans/internal/metrics"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

var ErrNotInitialized = errors.New("translator is not initialized")

type Option func(*Orchestrator)

// WithRetry retries Overload and Timeout failures up to attempts times,
// waiting delay, 2*delay, ... between tries.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *Orchestrator) {
		if attempts >= 0 {
			o.retryAttempts = attempts
		}
		if delay >= 0 {
			o.retryDelay = delay
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithName labels the backend in logs and metrics.
func WithName(name string) Option {
	return func(o *Orchestrator) {
		o.name = name
	}
}

// Orchestrator owns the selected backend for one run. It initializes the
// backend once, rejects work before that, and retries transient failures.
type Orchestrator struct {
	backend       backend.Backend
	name          string
	retryAttempts int
	retryDelay    time.Duration
	metrics       *metrics.Metrics
	logger        *log.Logger

	initOnce sync.Once
	initErr  error
	ready    atomic.Bool
}

func New(b backend.Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:       b,
		name:          "custom",
		retryAttempts: 3,
		retryDelay:    time.Second,
		metrics:       metrics.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = log.GetLogger().With("component", "translator").With("backend", o.name)
	return o
}

// Init prepares the backend. Later calls return the first result.
func (o *Orchestrator) Init(ctx context.Context) error {
	o.initOnce.Do(func() {
		start := time.Now()
		if err := o.backend.Init(ctx); err != nil {
			o.initErr = fmt.Errorf("failed to init %s backend: %w", o.name, err)
			return
		}
		o.ready.Store(true)
		o.logger.Info("Backend ready in %s", time.Since(start).Round(time.Millisecond))
	})
	return o.initErr
}

// Translate delegates to the backend, retrying retryable failures.
func (o *Orchestrator) Translate(ctx context.Context, text string) (string, error) {
	if !o.ready.Load() {
		return "", ErrNotInitialized
	}

	for attempt := 0; ; attempt++ {
		start := time.Now()
		result, err := o.backend.Translate(ctx, text)
		if err == nil {
			o.metrics.RecordTranslate(o.name, nil, "", time.Since(start))
			return result, nil
		}

		kind := backend.KindOf(err)
		o.metrics.RecordTranslate(o.name, err, kind.String(), time.Since(start))

		if !backend.Retryable(err) || attempt >= o.retryAttempts {
			return "", err
		}

		delay := o.retryDelay * time.Duration(attempt+1)
		o.metrics.RecordRetry(kind.String())
		o.logger.Debug("%s, retry %d/%d in %s", kind, attempt+1, o.retryAttempts, delay)

		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
	}
}

// Close releases the backend.
func (o *Orchestrator) Close() error {
	o.ready.Store(false)
	return o.backend.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backend returns the wrapped backend.
func (o *Orchestrator) Backend() backend.Backend {
	return o.backend
}
