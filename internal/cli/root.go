// Package cli wires configuration, storage and the rotation engine into
// the commands of the server binary.
package cli

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/iliyamo/seller-rotation/internal/config"
	"github.com/iliyamo/seller-rotation/internal/database"
	"github.com/iliyamo/seller-rotation/internal/middleware"
	"github.com/iliyamo/seller-rotation/internal/service"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand builds the command tree.  Running the binary without a
// subcommand starts the HTTP server.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	serve := NewServeCommand(opts)

	cmd := &cobra.Command{
		Use:           "rotation",
		Short:         "Seller rotation service",
		Long:          "Assigns incoming customers to sellers in strict turn order and keeps the day's sales log.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(serve)
	cmd.AddCommand(NewConsumeExportsCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	return cmd
}

// newLogger returns a JSON logger in production and a text logger
// otherwise, and installs it as the slog default.
func newLogger(cfg config.Config, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stderr, hopts)
	} else {
		h = slog.NewTextHandler(os.Stderr, hopts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// openEngine opens the configured store and builds an engine over it.
// The caller closes the returned database.
func openEngine(ctx context.Context, cfg config.Config, logger *slog.Logger, extra ...service.Option) (*service.Engine, *sql.DB, error) {
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("database: connected (driver=%s)", cfg.DB.Driver)

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMaxSellers(cfg.MaxSellers),
		service.WithRecentEvents(cfg.RecentEvents),
	}
	opts = append(opts, extra...)
	return service.NewEngine(db, opts...), db, nil
}

// openCache connects to the optional Redis server and returns the client
// (nil when Redis is off) with the hook that invalidates cached reads.
func openCache() (*redis.Client, service.Option) {
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		log.Printf("redis: connected")
	} else {
		log.Printf("redis: disabled or unreachable; cache and rate limit off")
	}
	return rdb, service.WithChangeNotifier(middleware.NewCacheInvalidator(config.LoadCacheConfig(), rdb))
}
