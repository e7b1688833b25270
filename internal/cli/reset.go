package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/seller-rotation/internal/config"
)

// NewResetCommand creates the reset command.  It wipes the roster, the
// event log and the session tag of the configured database, and drops
// the cached reads of any running API sharing the same Redis.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:           "reset",
		Short:         "Delete all sellers, events and session data",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, rootOpts.Verbose)
			rdb, invalidate := openCache()
			if rdb != nil {
				defer rdb.Close()
			}
			engine, db, err := openEngine(cmd.Context(), cfg, logger, invalidate)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := engine.ResetAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all rotation data deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
