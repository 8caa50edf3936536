package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/safar/go-bookstore/internal/cache"
	"github.com/safar/go-bookstore/internal/config"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/events"
	"github.com/safar/go-bookstore/internal/health"
	"github.com/safar/go-bookstore/internal/httpapi"
	"github.com/safar/go-bookstore/internal/logging"
	"github.com/safar/go-bookstore/internal/metrics"
	"github.com/safar/go-bookstore/internal/repository"
	"github.com/safar/go-bookstore/internal/service"
	"github.com/safar/go-bookstore/internal/store"
	"github.com/safar/go-bookstore/internal/store/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, logger *log.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := health.NewHandler(cfg.ServiceName)

	factory, cleanup, err := openStorage(ctx, cfg, logger, checks)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(metrics.NewWorkflow()),
		service.WithProducer(cfg.ServiceName),
	}

	if cfg.Redis.Enabled() {
		client := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer client.Close()
		checks.RegisterChecker("redis", health.NewOptionalChecker("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(ctx).Err()
		}))
		opts = append(opts, service.WithBookCache(cache.NewRedis[service.BookDTO](client, cache.KeyBook, cfg.Redis.BookTTL)))
		logger.WithField("addr", cfg.Redis.Addr).Info("book cache enabled")
	}

	if cfg.Kafka.Enabled() {
		publisher := events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.WithError(err).Warn("close event publisher")
			}
		}()
		opts = append(opts, service.WithPublisher(publisher))
		logger.WithFields(log.Fields{"brokers": cfg.Kafka.Brokers, "topic": cfg.Kafka.Topic}).Info("order events enabled")
	}

	svc := service.New(factory, opts...)
	router := httpapi.NewRouter(httpapi.NewHandler(svc, logger), checks, cfg.Server.WriteTimeout)

	api := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", api.Addr).Info("api server starting")
		return serve(api)
	})
	g.Go(func() error {
		logger.WithField("addr", metricsServer.Addr).Info("metrics server starting")
		return serve(metricsServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(api.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", srv.Addr, err)
	}
	return nil
}

// openStorage returns the UnitOfWork factory for the configured driver and
// registers its health check.
func openStorage(ctx context.Context, cfg *config.Config, logger *log.Entry, checks *health.Handler) (repository.Factory, func(), error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		mem := memory.NewStore()
		checks.RegisterChecker("storage", health.NewSimpleChecker("storage", func() error {
			return mem.Ping(context.Background())
		}))
		logger.Warn("using in-memory storage, data is lost on exit")
		return mem, func() {}, nil
	}

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.WithField("driver", cfg.Database.Driver).Info("connected to database")

	if cfg.Database.AutoMigrate {
		n, err := database.MigrateUp(ctx, db, 0)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.WithField("applied", n).Info("migrations up to date")
	}

	checks.RegisterChecker("database", health.NewSimpleChecker("database", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}))

	opts := database.DefaultTxOptions()
	opts.MaxRetries = cfg.Database.MaxRetries

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Warn("close database")
		}
	}
	return store.NewFactory(db, opts, logger), cleanup, nil
}

