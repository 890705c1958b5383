package browser

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/subtitle-trans/internal/backend"
	"github.com/MimeLyc/subtitle-trans/internal/metrics"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

const (
	DefaultEndpoint     = "translate.google.cn/translate_a/single"
	DefaultWorker       = 2
	DefaultMaxUses      = 200
	DefaultPollInterval = 300 * time.Millisecond
	DefaultPollAttempts = 50

	clearTimeout = 5 * time.Second
)

// Options configures a Pool.
type Options struct {
	Worker        int
	Language      string
	MaxUses       int
	PollInterval  time.Duration
	PollAttempts  int
	StripNewlines bool
	Endpoint      string
	StaleAfter    time.Duration
	Decoder       Decoder
}

func DefaultOptions() Options {
	return Options{
		Worker:        DefaultWorker,
		Language:      "zh-CN",
		MaxUses:       DefaultMaxUses,
		PollInterval:  DefaultPollInterval,
		PollAttempts:  DefaultPollAttempts,
		StripNewlines: runtime.GOOS == "darwin",
		Endpoint:      DefaultEndpoint,
		StaleAfter:    DefaultStaleAfter,
		Decoder:       GoogleDecoder,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Worker <= 0 {
		o.Worker = d.Worker
	}
	if o.Language == "" {
		o.Language = d.Language
	}
	if o.MaxUses <= 0 {
		o.MaxUses = d.MaxUses
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.PollAttempts <= 0 {
		o.PollAttempts = d.PollAttempts
	}
	if o.Endpoint == "" {
		o.Endpoint = d.Endpoint
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = d.StaleAfter
	}
	if o.Decoder == nil {
		o.Decoder = d.Decoder
	}
	return o
}

type PoolOption func(*Pool)

// WithStore replaces the pool's own correlation store.
func WithStore(s *Store) PoolOption {
	return func(p *Pool) {
		if s != nil {
			p.store = s
		}
	}
}

func WithMetrics(m *metrics.Metrics) PoolOption {
	return func(p *Pool) {
		if m != nil {
			p.metrics = m
		}
	}
}

func WithLogger(l *log.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// Stats is a snapshot of the pool.
type Stats struct {
	Free        int   `json:"free"`
	Live        int   `json:"live"`
	Repairs     int64 `json:"repairs"`
	Correlation int   `json:"correlation"`
}

// Pool keeps Worker browser sessions, each able to serve one translation at
// a time. A request that finds no free session fails with Overload instead
// of waiting; callers retry.
type Pool struct {
	driver  Driver
	opts    Options
	store   *Store
	metrics *metrics.Metrics
	logger  *log.Logger

	mu     sync.Mutex
	free   []*session // most recently returned first
	live   int        // sessions open or being opened
	nextID int
	ready  bool
	closed bool
	fatal  error

	repairing atomic.Bool
	repairs   atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(driver Driver, opts Options, options ...PoolOption) *Pool {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		driver:  driver,
		opts:    opts,
		store:   NewStore(opts.StaleAfter),
		metrics: metrics.DefaultMetrics,
		logger:  log.GetLogger().With("component", "browser-pool"),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Init opens Worker sessions concurrently. If any fails, every opened
// session is closed and the error is returned.
func (p *Pool) Init(ctx context.Context) error {
	tabs := make([]Tab, p.opts.Worker)

	g, gctx := errgroup.WithContext(ctx)
	for i := range tabs {
		g.Go(func() error {
			tab, err := p.driver.Open(gctx, p.observe)
			if err != nil {
				return fmt.Errorf("failed to open session %d: %w", i, err)
			}
			tabs[i] = tab
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, tab := range tabs {
			if tab != nil {
				_ = tab.Close()
			}
		}
		return err
	}

	p.mu.Lock()
	for _, tab := range tabs {
		p.nextID++
		p.free = append(p.free, &session{id: p.nextID, tab: tab})
		p.metrics.RecordSessionEvent("created")
	}
	p.live += len(tabs)
	p.ready = true
	p.recordLocked()
	p.mu.Unlock()

	p.logger.Info("Browser pool ready with %d sessions", len(tabs))
	return nil
}

// Translate types text into a free session and waits for the observed result.
func (p *Pool) Translate(ctx context.Context, text string) (string, error) {
	query := p.normalize(text)
	if query == "" {
		p.metrics.RecordPoolError(backend.KindEmptyQuery.String())
		return "", backend.NewError(backend.KindEmptyQuery, "query is empty")
	}

	s, err := p.acquire()
	if err != nil {
		p.metrics.RecordPoolError(backend.KindOf(err).String())
		return "", err
	}
	s.uses++

	logger := p.logger.With("request", uuid.NewString())
	logger.Debug("session %d (use %d) query %q", s.id, s.uses, query)

	if err := s.tab.Type(ctx, query); err != nil {
		if backend.IsKind(err, backend.KindElementNotFound) || ctx.Err() == nil {
			logger.Warn("session %d failed to type, retiring: %v", s.id, err)
			p.retire(s)
			p.metrics.RecordPoolError(backend.KindOf(err).String())
			return "", err
		}
		p.finish(s)
		return "", ctx.Err()
	}

	result, err := p.poll(ctx, query)
	p.finish(s)
	if err != nil {
		logger.Debug("session %d query %q: %v", s.id, query, err)
		p.metrics.RecordPoolError(backend.KindOf(err).String())
		return "", err
	}
	return result, nil
}

// Close stops repair and closes every free session. Sessions in use are
// closed when they are returned.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	free := p.free
	p.free = nil
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	var errs []error
	for _, s := range free {
		if err := s.tab.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session %d: %w", s.id, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Free:        len(p.free),
		Live:        p.live,
		Repairs:     p.repairs.Load(),
		Correlation: p.store.Len(),
	}
}

func (p *Pool) normalize(text string) string {
	text = strings.TrimSpace(text)
	if p.opts.StripNewlines {
		text = strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(text)
	}
	return text
}

func (p *Pool) acquire() (*session, error) {
	p.mu.Lock()
	if p.fatal != nil {
		err := p.fatal
		p.mu.Unlock()
		return nil, err
	}
	if p.closed {
		p.mu.Unlock()
		return nil, backend.NewError(backend.KindUnknown, "pool is closed")
	}
	if !p.ready {
		p.mu.Unlock()
		return nil, backend.NewError(backend.KindUnknown, "pool is not initialized")
	}
	if len(p.free) == 0 {
		live := p.live
		p.mu.Unlock()
		p.triggerRepair()
		return nil, backend.NewError(backend.KindOverload, "no free session").
			WithContext("worker", p.opts.Worker).
			WithContext("live", live)
	}

	s := p.free[0]
	p.free = p.free[1:]
	p.recordLocked()
	p.mu.Unlock()
	return s, nil
}

func (p *Pool) poll(ctx context.Context, query string) (string, error) {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for range p.opts.PollAttempts {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
		if result, ok := p.store.Take(query); ok {
			return result, nil
		}
	}
	return "", backend.NewError(backend.KindTimeout, "no result observed").
		WithContext("attempts", p.opts.PollAttempts).
		WithContext("interval", p.opts.PollInterval)
}

// finish clears the input and returns s, or retires it once it has served MaxUses.
func (p *Pool) finish(s *session) {
	if s.uses > p.opts.MaxUses {
		p.logger.Debug("session %d reached %d uses, recycling", s.id, s.uses)
		p.retire(s)
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, clearTimeout)
	defer cancel()
	if err := s.tab.Clear(ctx); err != nil {
		p.logger.Warn("session %d failed to clear input, retiring: %v", s.id, err)
		p.retire(s)
		return
	}
	p.release(s)
}

func (p *Pool) release(s *session) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = s.tab.Close()
		return
	}
	p.free = append([]*session{s}, p.free...)
	p.recordLocked()
	p.mu.Unlock()
}

// retire closes s and starts a repair that opens its replacement.
func (p *Pool) retire(s *session) {
	if err := s.tab.Close(); err != nil {
		p.logger.Warn("session %d close: %v", s.id, err)
	}

	p.mu.Lock()
	p.live--
	p.recordLocked()
	p.mu.Unlock()

	p.metrics.RecordSessionEvent("retired")
	p.triggerRepair()
}

func (p *Pool) triggerRepair() {
	if !p.repairing.CompareAndSwap(false, true) {
		return
	}

	p.mu.Lock()
	if p.closed || p.fatal != nil {
		p.mu.Unlock()
		p.repairing.Store(false)
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go p.repair()
}

func (p *Pool) repair() {
	defer p.wg.Done()

	p.repairs.Add(1)
	p.metrics.RecordRepair()

	for {
		p.mu.Lock()
		if p.closed || p.fatal != nil || p.live >= p.opts.Worker {
			p.mu.Unlock()
			break
		}
		p.live++
		p.nextID++
		id := p.nextID
		p.mu.Unlock()

		tab, err := p.driver.Open(p.ctx, p.observe)
		if err != nil {
			p.mu.Lock()
			p.live--
			if p.ctx.Err() == nil {
				p.fatal = fmt.Errorf("browser pool broken: %w", err)
			}
			p.recordLocked()
			p.mu.Unlock()

			p.metrics.RecordSessionEvent("failed")
			p.logger.Error("Failed to open replacement session %d: %v", id, err)
			break
		}

		p.metrics.RecordSessionEvent("created")
		p.logger.Debug("session %d opened by repair", id)
		p.release(&session{id: id, tab: tab})
	}

	p.repairing.Store(false)

	// a retirement may have slipped in after the loop's last check
	p.mu.Lock()
	deficit := !p.closed && p.fatal == nil && p.live < p.opts.Worker
	p.mu.Unlock()
	if deficit {
		p.triggerRepair()
	}
}

// observe correlates endpoint responses with the query that produced them.
func (p *Pool) observe(resp Response) {
	if !strings.Contains(resp.URL, p.opts.Endpoint) {
		return
	}

	q, ok := requestQuery(resp)
	if !ok {
		return
	}

	result, err := p.opts.Decoder(resp.Status, resp.Body)
	if err != nil {
		p.logger.Warn("Failed to decode result for %q: %v", q, err)
		return
	}

	p.store.Put(p.normalize(q), result)
	p.store.Prune()
	p.metrics.CorrelationEntries.Set(float64(p.store.Len()))
}

func (p *Pool) recordLocked() {
	p.metrics.RecordPool(p.live, len(p.free), p.store.Len())
}
