// Package container is the composition root: it builds every component from
// configuration, wires them together, runs the process, and tears it down in
// order.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	natsio "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	goredis "github.com/redis/go-redis/v9"

	httpadapter "github.com/velopay/walletd/internal/adapters/http"
	"github.com/velopay/walletd/internal/adapters/http/handlers"
	"github.com/velopay/walletd/internal/application/commands"
	"github.com/velopay/walletd/internal/application/ports"
	"github.com/velopay/walletd/internal/application/queries"
	"github.com/velopay/walletd/internal/application/resilience"
	"github.com/velopay/walletd/internal/application/usecases"
	"github.com/velopay/walletd/internal/config"
	redisadapter "github.com/velopay/walletd/internal/infrastructure/cache/redis"
	natsadapter "github.com/velopay/walletd/internal/infrastructure/messaging/nats"
	"github.com/velopay/walletd/internal/infrastructure/persistence/postgres"
	"github.com/velopay/walletd/internal/outbox"
	"github.com/velopay/walletd/internal/pkg/logger"
	"github.com/velopay/walletd/internal/projection"
)

// Container holds every wired component.
type Container struct {
	cfg    *config.Config
	logger *slog.Logger

	writePool *pgxpool.Pool
	readPool  *pgxpool.Pool
	redis     *goredis.Client
	natsConn  *natsio.Conn
	js        jetstream.JetStream

	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	outboxRepo ports.OutboxRepository
	readRepo   ports.ReadWalletRepository
	history    ports.HistoryRepository
	processed  ports.ProcessedEventRepository
	cache      ports.WalletCache

	writeUow ports.UnitOfWork
	readUow  ports.UnitOfWork

	walletService *usecases.WalletService

	relay      *outbox.Relay
	projector  *projection.Projector
	subscriber ports.EventSubscriber

	httpServer *httpadapter.Server
}

// New creates an empty container over the configuration.
func New(cfg *config.Config) *Container {
	return &Container{cfg: cfg}
}

// Initialize connects the infrastructure and wires everything.
func (c *Container) Initialize(ctx context.Context) error {
	c.logger = logger.Setup(&logger.Config{
		Level:  c.cfg.Log.Level,
		Format: c.cfg.Log.Format,
	})
	c.logger.Info("initializing container",
		slog.String("environment", c.cfg.App.Environment),
	)

	if err := c.initInfrastructure(ctx); err != nil {
		return err
	}
	c.initRepositories()
	c.initApplication()
	c.initBackground()
	c.initHTTPServer()

	c.logger.Info("container initialized")
	return nil
}

func (c *Container) initInfrastructure(ctx context.Context) error {
	writePool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:             c.cfg.WriteDB.DSN(),
		MaxConns:        c.cfg.WriteDB.MaxConnections,
		MinConns:        c.cfg.WriteDB.MinConnections,
		MaxConnLifetime: c.cfg.WriteDB.MaxConnLifetime,
		MaxConnIdleTime: c.cfg.WriteDB.MaxConnIdleTime,
	})
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	c.writePool = writePool

	readPool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:             c.cfg.ReadDB.DSN(),
		MaxConns:        c.cfg.ReadDB.MaxConnections,
		MinConns:        c.cfg.ReadDB.MinConnections,
		MaxConnLifetime: c.cfg.ReadDB.MaxConnLifetime,
		MaxConnIdleTime: c.cfg.ReadDB.MaxConnIdleTime,
	})
	if err != nil {
		return fmt.Errorf("read store: %w", err)
	}
	c.readPool = readPool

	c.redis = goredis.NewClient(&goredis.Options{
		Addr:     c.cfg.Redis.Address,
		Password: c.cfg.Redis.Password,
		DB:       c.cfg.Redis.DB,
	})
	if err := c.redis.Ping(ctx).Err(); err != nil {
		// The cache is best-effort; a cold start without it is acceptable.
		c.logger.Warn("redis unreachable at startup", slog.String("error", err.Error()))
	}

	nc, err := natsadapter.Connect(c.cfg.NATS.URL, c.cfg.App.Name)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	c.natsConn = nc

	js, err := natsadapter.EnsureStream(ctx, nc)
	if err != nil {
		return fmt.Errorf("jetstream: %w", err)
	}
	c.js = js

	return nil
}

func (c *Container) initRepositories() {
	c.walletRepo = postgres.NewWalletRepository(c.writePool)
	c.txRepo = postgres.NewTransactionRepository(c.writePool)
	c.outboxRepo = postgres.NewOutboxRepository(c.writePool)
	c.writeUow = postgres.NewUnitOfWork(c.writePool)

	c.readRepo = postgres.NewReadWalletRepository(c.readPool)
	c.history = postgres.NewHistoryRepository(c.readPool)
	c.processed = postgres.NewProcessedEventRepository(c.readPool)
	c.readUow = postgres.NewUnitOfWork(c.readPool)

	c.cache = redisadapter.NewWalletCache(c.redis, c.cfg.Cache.TTL)
}

func (c *Container) initApplication() {
	publisher := outbox.NewPublisher(c.outboxRepo)

	degradation := resilience.NewDegradationManager(time.Minute, 3, 10_000)
	executor := resilience.NewExecutor(resilience.Policy{
		OptimisticMax:  c.cfg.Engine.OptimisticRetryMax,
		OptimisticBase: c.cfg.Engine.OptimisticRetryBase,
		OptimisticCap:  c.cfg.Engine.OptimisticRetryCap,
		TransientMax:   c.cfg.Engine.TransientRetryMax,
		TransientBase:  c.cfg.Engine.TransientRetryBase,
		TransientCap:   c.cfg.Engine.TransientRetryCap,
	}, degradation, c.logger)

	c.walletService = usecases.NewWalletService(
		commands.NewCreateWalletHandler(c.walletRepo, publisher, c.writeUow, c.cfg.Engine.SingleWalletPerUser),
		commands.NewDepositHandler(c.walletRepo, c.txRepo, publisher, c.writeUow),
		commands.NewWithdrawHandler(c.walletRepo, c.txRepo, publisher, c.writeUow),
		commands.NewTransferHandler(c.walletRepo, c.txRepo, publisher, c.writeUow),
		commands.NewFreezeHandler(c.walletRepo, publisher, c.writeUow),
		commands.NewUnfreezeHandler(c.walletRepo, publisher, c.writeUow),
		commands.NewCloseHandler(c.walletRepo, publisher, c.writeUow),
		executor,
		c.cfg.Engine.CommandDeadline,
	)
}

func (c *Container) initBackground() {
	sink := natsadapter.NewSink(c.js)
	c.relay = outbox.NewRelay(c.outboxRepo, sink, outbox.Config{
		Interval:       c.cfg.Outbox.Interval,
		BatchSize:      c.cfg.Outbox.BatchSize,
		PublishTimeout: c.cfg.Outbox.PublishTimeout,
		Retention:      c.cfg.Outbox.Retention,
		CleanupEvery:   c.cfg.Outbox.CleanupEvery,
	}, c.logger)

	c.projector = projection.NewProjector(
		c.readUow, c.readRepo, c.history, c.processed, c.cache,
		c.cfg.Projector.EventDeadline, c.logger,
	)
	c.subscriber = natsadapter.NewSubscriber(c.js, c.cfg.Projector.Concurrency, c.logger)
}

func (c *Container) initHTTPServer() {
	walletHandler := handlers.NewWalletHandler(
		c.walletService,
		queries.NewGetWalletHandler(c.cache, c.readRepo, c.walletRepo, c.logger),
		queries.NewHistoricalBalanceHandler(c.history, c.readRepo),
		queries.NewListTransactionsHandler(c.txRepo),
		c.cfg.Engine.ReadDeadline,
		c.logger,
	)
	healthHandler := handlers.NewHealthHandler(c.writePool, c.readPool, c.redis)

	router := httpadapter.NewRouter(httpadapter.RouterConfig{
		WalletHandler: walletHandler,
		HealthHandler: healthHandler,
		JWTSecret:     c.cfg.Auth.JWTSecret,
		CORSOrigins:   c.cfg.Server.CORSOrigins,
		RateLimit:     c.cfg.Server.RateLimit,
		RateWindow:    c.cfg.Server.RateWindow,
		Logger:        c.logger,
		Debug:         c.cfg.App.Debug,
	})

	c.httpServer = httpadapter.NewServer(httpadapter.ServerConfig{
		Address:         c.cfg.Server.Address(),
		ReadTimeout:     c.cfg.Server.ReadTimeout,
		WriteTimeout:    c.cfg.Server.WriteTimeout,
		IdleTimeout:     c.cfg.Server.IdleTimeout,
		ShutdownTimeout: c.cfg.Server.ShutdownTimeout,
		Logger:          c.logger,
	}, router)
}

// Logger exposes the configured logger.
func (c *Container) Logger() *slog.Logger { return c.logger }

// Run starts the HTTP server, the outbox relay, and the projector consumer,
// then blocks until a signal or a fatal server error. Shutdown order: stop
// accepting requests, stop the relay, drain the projector, close pools.
func (c *Container) Run() error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.relay.Run(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.subscriber.Start(runCtx, c.projector.Handle); err != nil && runCtx.Err() == nil {
			c.logger.Error("event subscriber failed", slog.String("error", err.Error()))
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- c.httpServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		cancel()
		wg.Wait()
		return err
	case sig := <-quit:
		c.logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), c.cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	err := c.httpServer.Shutdown(shutdownCtx)
	cancel()
	wg.Wait()
	c.closeInfrastructure()
	return err
}

func (c *Container) closeInfrastructure() {
	if c.natsConn != nil {
		c.natsConn.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.Warn("redis close failed", slog.String("error", err.Error()))
		}
	}
	if c.writePool != nil {
		c.writePool.Close()
	}
	if c.readPool != nil {
		c.readPool.Close()
	}
	c.logger.Info("infrastructure closed")
}

// Shutdown tears the container down without running. Used by tests and by
// main when initialization fails partway.
func (c *Container) Shutdown(ctx context.Context) error {
	var err error
	if c.httpServer != nil {
		err = c.httpServer.Shutdown(ctx)
	}
	c.closeInfrastructure()
	return err
}
