package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-trans/internal/backend"
	"github.com/MimeLyc/subtitle-trans/internal/service"
	"github.com/MimeLyc/subtitle-trans/internal/subtitle"
	"github.com/MimeLyc/subtitle-trans/internal/translator"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

func newFileCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file [path]",
		Short: "Translate a subtitle file or every subtitle file of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.load(flagOptions(cmd)...)
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			// clearing only removes outputs, no backend is started for it
			var tr subtitle.Translator
			if !cfg.Files.Clear {
				orch, err := translator.NewFromConfig(cfg)
				if err != nil {
					return err
				}
				defer orch.Close()

				log.Info("Starting %s backend with %d workers", cfg.Translate.Mode, cfg.Translate.Worker)
				if err := orch.Init(runCtx); err != nil {
					return fmt.Errorf("init %s backend: %w", cfg.Translate.Mode, err)
				}
				tr = orch
			}

			progress := newProgress(os.Stderr)
			svc := service.NewFileService(tr, service.OptionsFromConfig(cfg), service.WithProgress(progress))

			report, err := svc.TranslatePath(runCtx, args[0])
			progress.Stop()
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
			}
			if err != nil {
				service.HandleError(log.GetLogger(), err)
				return err
			}
			if n := report.Count(service.StatusFailed); n > 0 {
				return fmt.Errorf("%d of %d files failed", n, len(report.Results))
			}
			return nil
		},
	}

	addBackendFlags(cmd, string(backend.ModeBrowser), 3)
	cmd.Flags().StringP("ext", "e", ".srt", "Subtitle extension scanned in directories")
	cmd.Flags().BoolP("force", "F", false, "Overwrite existing translations")
	cmd.Flags().BoolP("clear", "C", false, "Remove existing translations instead of translating")
	cmd.Flags().StringP("keywords", "k", "", "Comma separated terms kept untranslated")
	return cmd
}
