package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-trans/internal/backend"
	"github.com/MimeLyc/subtitle-trans/internal/config"
	"github.com/MimeLyc/subtitle-trans/internal/translator"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

func newTextCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "text [value]",
		Short: "Translate a piece of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// the mode flag default applies even when a config file names another mode
			mode, _ := cmd.Flags().GetString("mode")
			opts := append([]config.Option{config.WithMode(mode), config.WithWorker(1)}, flagOptions(cmd)...)

			cfg, err := ctx.load(opts...)
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			orch, err := translator.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			defer orch.Close()

			if err := orch.Init(runCtx); err != nil {
				return fmt.Errorf("init %s backend: %w", cfg.Translate.Mode, err)
			}

			input := strings.Join(args, " ")
			log.Info("input: %s", input)
			result, err := orch.Translate(runCtx, input)
			if err != nil {
				log.Error("%v\n advice: %s", err, backend.Advice(err))
				return err
			}
			log.Info("output: %s", result)

			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	addBackendFlags(cmd, string(backend.ModeAPI), 1)
	return cmd
}
