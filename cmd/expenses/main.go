package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"expenses/internal/amqp"
	"expenses/internal/cache"
	"expenses/internal/cli"
	apphttp "expenses/internal/http"
	"expenses/internal/log"
	"expenses/internal/notify"
	"expenses/internal/seed"
	"expenses/internal/services"
	"expenses/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(cli.SetupLogger("info", "", os.Stdout))
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	store := cli.OpenStore(ctx, logger, cfg)
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	}()

	if migrated, err := store.Repository.Migrate(ctx); err != nil {
		logger.Error("Stored document could not be migrated", log.FieldError, err)
		os.Exit(1)
	} else if migrated {
		logger.Info("Stored document upgraded to the current schema")
	}

	hub := notify.NewHub()
	defer hub.Close()

	views := cache.NewLRUCache[any](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(views)

	opts := []services.Option{
		services.WithHub(hub),
		services.WithCache(views),
		services.WithLocation(cfg.Location()),
	}

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		// Origin is shared by the publisher and the relay so a process
		// never reacts to its own announcements.
		origin := uuid.NewString()
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, origin)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change relay", log.FieldError, err)
		} else {
			amqpClient = c
			defer amqpClient.Close()
			opts = append(opts, services.WithOrigin(origin), services.WithPublisher(amqpClient))
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, log.FieldOrigin, origin)
		}
	}

	ledger := services.NewLedgerService(store.Repository, opts...)

	if cfg.SeedPlaceholder {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		if _, err := seed.IfEmpty(ctx, ledger, ledger.Now(), rng); err != nil {
			logger.Error("Failed to write placeholder data", log.FieldError, err)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledger, hub, apphttp.Options{
		Logger:            logger,
		Currency:          cfg.Currency,
		RequestsPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:    cfg.TrustedProxies,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting expenses server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp_enabled", amqpClient != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		return nil
	})

	g.Go(func() error { return ledger.Run(gctx) })
	g.Go(func() error { return cacheManager.Run(gctx, time.Minute) })
	g.Go(func() error { return ledger.WatchStore(gctx, cfg.StorePollInterval) })

	if amqpClient != nil {
		relay := worker.NewChangeRelay(amqpClient, hub, ledger.Origin())
		g.Go(func() error { return relay.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
