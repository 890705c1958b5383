package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-trans/internal/backend"
	"github.com/MimeLyc/subtitle-trans/internal/browser"
	"github.com/MimeLyc/subtitle-trans/internal/config"
	"github.com/MimeLyc/subtitle-trans/internal/events"
	"github.com/MimeLyc/subtitle-trans/internal/httpapi"
	"github.com/MimeLyc/subtitle-trans/internal/jobs"
	"github.com/MimeLyc/subtitle-trans/internal/service"
	"github.com/MimeLyc/subtitle-trans/internal/translator"
	"github.com/MimeLyc/subtitle-trans/pkg/icron"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Scan directories on a schedule and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.load(flagOptions(cmd)...)
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return runSchedule(runCtx, cfg)
		},
	}

	addBackendFlags(cmd, string(backend.ModeBrowser), 3)
	cmd.Flags().StringSliceP("dir", "d", nil, "Directory scanned for new subtitle files, repeatable")
	cmd.Flags().String("cron", "0 */30 * * * *", "Scan schedule")
	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	cmd.Flags().StringP("keywords", "k", "", "Comma separated terms kept untranslated")
	cmd.Flags().StringP("ext", "e", ".srt", "Subtitle extension scanned in directories")
	return cmd
}

func runSchedule(ctx context.Context, cfg *config.Config) error {
	unlock, err := acquireLock(cfg.LockPath())
	if err != nil {
		return err
	}
	defer unlock()

	orch, err := translator.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	defer orch.Close()

	log.Info("Starting %s backend with %d workers", cfg.Translate.Mode, cfg.Translate.Worker)
	if err := orch.Init(ctx); err != nil {
		return fmt.Errorf("init %s backend: %w", cfg.Translate.Mode, err)
	}

	publisher := events.New(&events.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		Enabled: len(cfg.Kafka.Brokers) > 0,
	})
	defer publisher.Close()

	queue := jobs.NewQueue(cfg.Schedule.QueueWorkers, events.JobListener(publisher, events.DefaultPublishTimeout))
	files := service.NewFileService(orch, service.OptionsFromConfig(cfg))
	queue.Start(files.Execute)
	defer queue.Stop()

	engine := cron.New(cron.WithParser(icron.Parser()))
	sched := service.NewScheduler(cfg, engine, queue)

	opts := []httpapi.Option{
		httpapi.WithTranslator(orch),
		httpapi.WithLanguage(cfg.Translate.Language),
		httpapi.WithCORSOrigins(cfg.Server.CORSOrigins),
	}
	if pool, ok := orch.Backend().(*browser.Pool); ok {
		opts = append(opts, httpapi.WithPoolStats(pool))
	}
	srv := httpapi.NewServer(queue, opts...)

	return runWithComponents(ctx, cfg, sched, engine, srv)
}

// acquireLock allows a single schedule process per data directory
func acquireLock(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another schedule process holds %s", path)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("Failed to release lock %s: %v", path, err)
		}
	}, nil
}

func runWithComponents(
	ctx context.Context,
	cfg *config.Config,
	s scheduler,
	c cronEngine,
	srv httpServer,
) error {
	if err := s.Schedule(ctx); err != nil {
		return fmt.Errorf("schedule scan: %w", err)
	}

	c.Start()
	defer c.Stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(cfg.Server.Addr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
