package container

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/app/internal/checkout"
	"storefront/app/internal/client"
	"storefront/app/internal/config"
	"storefront/app/internal/metrics"
	"storefront/app/internal/payment"
	"storefront/app/internal/pricing"
	"storefront/app/internal/queue"
	"storefront/app/internal/render"
	"storefront/app/internal/repository"
	"storefront/app/internal/service"
	"storefront/app/internal/shop"
	"storefront/app/internal/state"
	"storefront/app/internal/web"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Metrics      *metrics.Metrics
	Display      *shop.Display
	Catalog      *shop.Catalog
	Policy       pricing.Policy
	Repository   repository.OrderRepository
	Queue        queue.Queue
	StateManager state.StateManager
	Sessions     *shop.Sessions

	Service *service.Service
	Handler *web.Handler

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config:  cfg,
		Metrics: metrics.New(),
		Display: shop.NewDisplay(cfg.Catalog.DefaultCurrency),
	}

	policy, err := pricing.PolicyFromConfig(cfg.Pricing)
	if err != nil {
		return nil, fmt.Errorf("invalid pricing policy: %w", err)
	}
	container.Policy = policy

	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	container.db = db

	orderRepo := repository.NewOrderRepository(db)
	if err := orderRepo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	container.Repository = orderRepo
	log.Info("✅ Connected to Postgres successfully")

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	container.redis = rdb

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("✅ Connected to Redis successfully")

	redisQueue, err := queue.NewRedisQueue(ctx, rdb, cfg.Redis)
	if err != nil {
		container.Close()
		return nil, err
	}
	container.Queue = redisQueue

	stateManager := state.NewRedisStateManager(rdb, cfg.Redis.KeyPrefix)
	container.StateManager = stateManager

	container.Service = service.NewService(
		orderRepo,
		redisQueue,
		container.Metrics,
		cfg.Redis.ConsumerGroup,
		cfg.Redis.MinIdleTime,
	)

	container.Catalog = shop.NewCatalog(client.NewCatalogClient(cfg.Catalog), container.Display, container.Metrics)

	payment.Configure(cfg.Payment)
	container.Sessions = shop.NewSessions(shop.Deps{
		State:     stateManager,
		Pricer:    pricing.NewEngine(policy),
		Payments:  client.NewPaymentClient(cfg.Payment),
		NewWidget: func() checkout.Widget { return payment.NewStripeWidget() },
		Orders:    container.Service,
		Display:   container.Display,
		Metrics:   container.Metrics,
		ReturnURL: cfg.Payment.ReturnURL,
	})

	renderer, err := render.New()
	if err != nil {
		container.Close()
		return nil, err
	}

	container.Handler = web.New(
		container.Sessions,
		container.Catalog,
		container.Display,
		renderer,
		policy,
		container.Metrics,
		cfg.Server.SessionCookie,
		cfg.Payment.PublishableKey,
	)

	return container, nil
}

// Run serves HTTP and runs the order workers until ctx is cancelled
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:              net.JoinHostPort(c.Config.Server.Host, strconv.Itoa(c.Config.Server.Port)),
		Handler:           c.Handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Infof("🌐 Listening on http://%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return c.Service.RunWorkers(ctx, c.Config.Workers.Count)
	})

	// Warm the catalog
	g.Go(func() error {
		if _, err := c.Catalog.Load(ctx); err != nil {
			log.Warnf("⚠️ Initial catalog load failed: %v", err)
		}
		return nil
	})

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warnf("⚠️ Failed to close Redis client: %v", err)
		}
	}

	log.Info("Container shut down successfully")
	return nil
}
