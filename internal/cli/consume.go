package cli

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/seller-rotation/internal/config"
	"github.com/iliyamo/seller-rotation/internal/queue"
)

// NewConsumeExportsCommand creates the consume-exports command, which
// archives every closed day published on the export queue.
func NewConsumeExportsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "consume-exports",
		Short:         "Archive closed days from the export queue",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			newLogger(cfg, rootOpts.Verbose)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Printf("consumer: archiving queue %q into %s", cfg.ExportQueue, cfg.ExportLogDir)
			err = queue.StartExportConsumer(ctx, queue.ConsumerConfig{
				URL:   cfg.AMQPURL,
				Queue: cfg.ExportQueue,
				Dir:   cfg.ExportLogDir,
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
