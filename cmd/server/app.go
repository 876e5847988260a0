package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/merchledger/internal/adapter/http"
	"github.com/iho/merchledger/internal/adapter/http/handler"
	"github.com/iho/merchledger/internal/adapter/http/middleware"
	"github.com/iho/merchledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/merchledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/merchledger/internal/adapter/repository/redis"
	"github.com/iho/merchledger/internal/infrastructure/auth"
	"github.com/iho/merchledger/internal/infrastructure/catalog"
	"github.com/iho/merchledger/internal/infrastructure/config"
	"github.com/iho/merchledger/internal/infrastructure/eventpublisher"
	"github.com/iho/merchledger/internal/infrastructure/idgen"
	"github.com/iho/merchledger/internal/infrastructure/metrics"
	"github.com/iho/merchledger/internal/infrastructure/postgres"
	"github.com/iho/merchledger/internal/infrastructure/redis"
	"github.com/iho/merchledger/internal/usecase"
)

const (
	rateLimiterCleanupInterval = time.Hour
	outboxRetention            = 7 * 24 * time.Hour
)

// storage bundles the repositories of one backend.
type storage struct {
	txManager usecase.TransactionManager
	accounts  usecase.AccountRepository
	users     usecase.UserRepository
	transfers usecase.TransferRepository
	purchases usecase.PurchaseRepository
	outbox    usecase.OutboxRepository
	retrier   handler.Retrier
	ping      handler.Pinger
	close     func()
}

// app is the wired service: an HTTP handler plus background workers.
type app struct {
	handler     http.Handler
	logger      zerolog.Logger
	publisher   *eventpublisher.EventPublisher
	kafka       *eventpublisher.KafkaPublisher
	rateLimiter *middleware.RateLimiter
	closers     []func()
}

func newStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storage, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		store := memory.NewStore()
		logger.Warn().Msg("using in-memory storage, data is lost on restart")

		return &storage{
			txManager: memory.NewTxManager(store),
			accounts:  memory.NewAccountRepository(store),
			users:     memory.NewUserRepository(store),
			transfers: memory.NewTransferRepository(store),
			purchases: memory.NewPurchaseRepository(store),
			outbox:    memory.NewOutboxRepository(store),
			close:     func() {},
		}, nil

	case config.StoragePostgres:
		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseTimeout,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info().Msg("connected to postgres")

		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}

		return &storage{
			txManager: postgresRepo.NewTxManager(pool),
			accounts:  postgresRepo.NewAccountRepository(pool),
			users:     postgresRepo.NewUserRepository(pool),
			transfers: postgresRepo.NewTransferRepository(pool),
			purchases: postgresRepo.NewPurchaseRepository(pool),
			outbox:    postgresRepo.NewOutboxRepository(pool),
			retrier:   postgresRepo.NewRetrier(logger),
			ping:      handler.PingFunc(pool.Ping),
			close:     pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{logger: logger}

	store, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.close)

	prices := cfg.Catalog
	if len(prices) == 0 {
		prices = catalog.DefaultPrices()
	}
	items, err := catalog.NewStatic(prices)
	if err != nil {
		a.close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewWithRegisterer(registry)

	outbox := store.outbox
	if !cfg.EventsEnabled {
		outbox = postgresRepo.NewNullOutboxRepository()
	}

	idGen := idgen.NewULIDGenerator()
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)

	authUC := usecase.NewAuthUseCase(usecase.AuthUseCaseConfig{
		TxManager:       store.txManager,
		UserRepo:        store.users,
		AccountRepo:     store.accounts,
		OutboxRepo:      outbox,
		Hasher:          auth.NewBcryptHasher(0),
		Tokens:          jwtManager,
		IDGen:           idGen,
		Metrics:         m,
		StartingBalance: cfg.StartingBalance,
	})
	ledgerUC := usecase.NewLedgerUseCase(store.txManager, store.accounts, store.transfers, store.purchases, outbox, items, idGen, m)
	accountUC := usecase.NewAccountUseCase(store.txManager, store.accounts, store.transfers, store.purchases)
	reconUC := usecase.NewReconciliationUseCase(store.txManager, store.accounts, store.purchases, cfg.StartingBalance)

	deps := map[string]handler.Pinger{}
	if store.ping != nil {
		deps["postgres"] = store.ping
	}

	var idempotencyStore usecase.IdempotencyStore
	if cfg.RedisEnabled {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info().Msg("connected to redis")

		a.closers = append(a.closers, func() { _ = client.Close() })
		idempotencyStore = redisRepo.NewIdempotencyStore(client, redisRepo.WithObserver(m))
		deps["redis"] = redisPinger{client: client}
	}

	if cfg.EventsEnabled {
		var publisher eventpublisher.Publisher = eventpublisher.NewLogPublisher(logger)
		if len(cfg.KafkaBrokers) > 0 {
			a.kafka = eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
			publisher = a.kafka
		}

		a.publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: outbox,
			Publisher:  publisher,
			Observer:   m,
			Logger:     logger,
			Interval:   cfg.EventsInterval,
			Retention:  outboxRetention,
		})
	}

	if cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		a.rateLimiter.OnLimited(m.RateLimitHits.Inc)
	}

	a.handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AuthHandler:           handler.NewAuthHandler(authUC, m),
		InfoHandler:           handler.NewInfoHandler(accountUC),
		LedgerHandler:         handler.NewLedgerHandler(ledgerUC, store.retrier),
		CatalogHandler:        handler.NewCatalogHandler(items),
		ReconciliationHandler: handler.NewReconciliationHandler(reconUC),
		HealthHandler:         handler.NewHealthHandler(deps),
		TokenVerifier:         jwtManager,
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		RateLimiter:           a.rateLimiter,
		Metrics:               m,
		MetricsHandler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:                logger,
	})

	return a, nil
}

func (a *app) close() {
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Error().Err(err).Msg("failed to close kafka writer")
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// serve runs the HTTP server and background workers on ln until ctx is
// cancelled, then shuts down gracefully.
func (a *app) serve(ctx context.Context, ln net.Listener, cfg *config.Config) error {
	server := &http.Server{
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("addr", ln.Addr().String()).Msg("starting server")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if a.publisher != nil {
		g.Go(func() error {
			return ignoreCanceled(a.publisher.Start(gctx))
		})
	}

	if a.rateLimiter != nil {
		g.Go(func() error {
			return ignoreCanceled(a.rateLimiter.RunCleanup(gctx, rateLimiterCleanupInterval))
		})
	}

	return g.Wait()
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ln, err := net.Listen("tcp", ":"+cfg.HTTPPort)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", cfg.HTTPPort, err)
	}

	return a.serve(ctx, ln, cfg)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type redisPinger struct {
	client *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
