package translator

import (
	"fmt"
	"time"

	"github.com/MimeLyc/subtitle-trans/internal/backend"
	"github.com/MimeLyc/subtitle-trans/internal/browser"
	"github.com/MimeLyc/subtitle-trans/internal/cloudtrans"
	"github.com/MimeLyc/subtitle-trans/internal/config"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

// NewFromConfig builds the backend selected by cfg.Translate.Mode.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	mode, err := backend.ParseMode(cfg.Translate.Mode)
	if err != nil {
		return nil, err
	}

	var b backend.Backend
	switch mode {
	case backend.ModeAPI:
		b, err = cloudtrans.NewClient(&cloudtrans.Config{
			APIKey:    cfg.API.Key,
			ProjectID: cfg.API.ProjectID,
			APIURL:    cfg.API.URL,
			Target:    cfg.Translate.Language,
			Timeout:   cfg.API.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create api client: %w", err)
		}

	case backend.ModeBrowser:
		driver := browser.NewChromeDriver(browser.ChromeOptions{
			PageURL:       cfg.Browser.PageURL,
			Language:      cfg.Translate.Language,
			Endpoint:      cfg.Browser.Endpoint,
			InputSelector: cfg.Browser.InputSelector,
			Headless:      cfg.Browser.Headless,
			ExecPath:      cfg.Browser.ChromePath,
			Proxy:         cfg.Browser.Proxy,
			InitTimeout:   time.Duration(cfg.Browser.InitTimeout) * time.Second,
		})
		b = browser.NewPool(driver, browser.Options{
			Worker:        cfg.Translate.Worker,
			Language:      cfg.Translate.Language,
			MaxUses:       cfg.Browser.MaxUses,
			PollInterval:  cfg.PollInterval(),
			PollAttempts:  cfg.Browser.PollAttempts,
			StripNewlines: cfg.Browser.StripNewlines,
			Endpoint:      cfg.Browser.Endpoint,
		}, browser.WithLogger(log.GetLogger().With("backend", string(mode))))
	}

	opts = append([]Option{
		WithName(string(mode)),
		WithRetry(cfg.Translate.RetryAttempts, cfg.RetryDelay()),
	}, opts...)
	return New(b, opts...), nil
}
