package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/iliyamo/seller-rotation/internal/config"
	"github.com/iliyamo/seller-rotation/internal/handler"
	"github.com/iliyamo/seller-rotation/internal/middleware"
	"github.com/iliyamo/seller-rotation/internal/queue"
	"github.com/iliyamo/seller-rotation/internal/router"
	"github.com/iliyamo/seller-rotation/internal/service"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	// WithConsumer runs the export consumer in the same process.
	WithConsumer bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the rotation HTTP API.

Configuration comes from the environment (and .env when present).

Example:
  rotation serve
  DB_DRIVER=mysql DB_USER=app DB_HOST=db DB_NAME=rotation rotation serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.WithConsumer, "with-consumer", false, "also archive closed days from the export queue")
	return cmd
}

func runServe(parent context.Context, opts *ServeOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, opts.Verbose)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, invalidate := openCache()
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	extra := []service.Option{invalidate}
	if cfg.ExportsEnabled {
		extra = append(extra, service.WithExportSink(service.NewQueuePublisher(cfg.AMQPURL, cfg.ExportQueue)))
		log.Printf("exports: publishing closed days to queue %q", cfg.ExportQueue)
	}
	engine, db, err := openEngine(ctx, cfg, logger, extra...)
	if err != nil {
		return err
	}
	defer db.Close()

	if opts.WithConsumer && cfg.ExportsEnabled {
		go queue.StartExportConsumer(ctx, queue.ConsumerConfig{
			URL:   cfg.AMQPURL,
			Queue: cfg.ExportQueue,
			Dir:   cfg.ExportLogDir,
		})
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	router.RegisterRoutes(e)
	router.RegisterRotation(e, handler.NewRotationHandler(engine), router.Middlewares{
		Cache:     middleware.NewRedisCache(cacheCfg, rdb),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
