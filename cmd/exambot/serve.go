package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/exambot/internal/adapters/channels"
	"github.com/okian/exambot/internal/adapters/http/api"
	"github.com/okian/exambot/internal/adapters/locker"
	"github.com/okian/exambot/internal/adapters/mq/events"
	"github.com/okian/exambot/internal/adapters/source"
	service "github.com/okian/exambot/internal/app"
	"github.com/okian/exambot/internal/config"
	"github.com/okian/exambot/internal/domain/ingest"
	"github.com/okian/exambot/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the data file watcher and the job worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
}

// ingestOptions maps the ingestion settings of cfg.
func ingestOptions(cfg *config.Config) []ingest.Option {
	return []ingest.Option{
		ingest.WithFirstRow(cfg.FirstRow),
		ingest.WithMaxRow(cfg.MaxRow),
		ingest.WithBlankRunLimit(cfg.BlankRunLimit),
		ingest.WithAllowEmpty(cfg.AllowEmpty),
	}
}

// backends dials the optional S3, Redis and AMQP backends named in the
// configuration. The returned cleanup closes whatever was opened and is
// never nil.
func (c *cli) backends(ctx context.Context, board *channels.Board) ([]service.Option, func(), error) {
	cfg := c.cfg
	opts := []service.Option{
		service.WithDirectory(board),
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var s3 source.Fetcher
	if cfg.S3Endpoint != "" {
		f, err := source.NewS3Fetcher(source.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Region:    cfg.S3Region,
		})
		if err != nil {
			return nil, cleanup, err
		}
		s3 = f
	}
	opts = append(opts, service.WithFetcher(source.NewRouter(source.NewHTTPFetcher(), s3)))

	if cfg.RedisAddr != "" {
		client, err := locker.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { _ = client.Close() })
		opts = append(opts, service.WithLocker(locker.New(client,
			locker.WithTTL(cfg.LockTTL),
			locker.WithLogger(c.log.Named("locker")),
		)))
		c.log.Info(ctx, "course locks held in redis", logger.String("addr", cfg.RedisAddr))
	}

	if cfg.AMQPURL != "" {
		pub, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, cleanup, err
		}
		// Service.Stop closes the publisher.
		opts = append(opts, service.WithPublisher(pub))
		c.log.Info(ctx, "publishing events to amqp", logger.String("exchange", cfg.AMQPExchange))
	}
	return opts, cleanup, nil
}

func (c *cli) newService(ctx context.Context) (*service.Service, *channels.Board, func(), error) {
	cfg := c.cfg
	board := channels.NewBoard(cfg.BotName, channels.WithAutoCreate(cfg.AutoCreateChannels))
	board.Create(cfg.Channels...)

	opts, cleanup, err := c.backends(ctx, board)
	if err != nil {
		return nil, nil, cleanup, err
	}
	opts = append(opts,
		service.WithLogger(c.log.Named("service")),
		service.WithDataFile(cfg.DataFile),
		service.WithSheet(cfg.Sheet),
		service.WithSourceURL(cfg.SourceURL),
		service.WithBudget(cfg.MessageBudget),
		service.WithIngestOptions(ingestOptions(cfg)...),
		service.WithNotifyWorkers(cfg.NotifyWorkers),
		service.WithRefreshInterval(cfg.RefreshInterval),
		service.WithWatchDataFile(cfg.WatchDataFile),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithJobTimeout(cfg.JobTimeout),
	)
	return service.New(opts...), board, cleanup, nil
}

func (c *cli) serve(ctx context.Context) error {
	cfg := c.cfg
	svc, board, cleanup, err := c.newService(ctx)
	defer cleanup()
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	apiServer := api.NewServer(svc, svc,
		api.WithAdminToken(cfg.AdminToken),
		api.WithRateLimit(cfg.RateLimit),
		api.WithBoard(board),
		api.WithLogger(c.log.Named("api")),
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		c.log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%w: %w", api.ErrServe, err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	c.log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	c.log.Info(ctx, "server stopped")
	return nil
}
