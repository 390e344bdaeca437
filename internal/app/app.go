// Package app wires configuration, stores, services and the HTTP server together.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arzan03/shopfront/internal/auth"
	"github.com/arzan03/shopfront/internal/cache"
	"github.com/arzan03/shopfront/internal/config"
	"github.com/arzan03/shopfront/internal/db"
	"github.com/arzan03/shopfront/internal/events"
	"github.com/arzan03/shopfront/internal/handlers"
	"github.com/arzan03/shopfront/internal/logger"
	"github.com/arzan03/shopfront/internal/metrics"
	"github.com/arzan03/shopfront/internal/notify"
	"github.com/arzan03/shopfront/internal/repository"
	"github.com/arzan03/shopfront/internal/repository/memory"
	"github.com/arzan03/shopfront/internal/services"
	"github.com/arzan03/shopfront/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const driverMemory = "memory"

type stores struct {
	users      repository.UserRepository
	categories repository.CategoryRepository
	products   repository.ProductRepository
	carts      repository.CartRepository
	orders     repository.OrderRepository
	tx         repository.TxRunner
	tokens     repository.ResetTokenStore
	cache      repository.ProductCache
}

type App struct {
	cfg         *config.Config
	log         logger.Logger
	http        *fiber.App
	dispatcher  *notify.Dispatcher
	publisher   events.Publisher
	mongoClient *mongo.Client
	redisClient *redis.Client
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	appLogger := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	appLogger.Infof("Configuration loaded: Env=%s, HTTP port: %s, storage driver: %s", cfg.Env, cfg.HTTP.Port, cfg.Storage.Driver)

	a := &App{cfg: cfg, log: appLogger}
	st, checks, err := a.openStores(ctx)
	if err != nil {
		a.closeStores(ctx)
		return nil, err
	}

	images, err := storage.NewImageStore(cfg.MinIO, appLogger)
	if err != nil {
		a.closeStores(ctx)
		return nil, fmt.Errorf("failed to initialize image storage: %w", err)
	}

	a.publisher, err = events.NewNATSPublisher(cfg.NATS, appLogger)
	if err != nil {
		a.closeStores(ctx)
		return nil, err
	}

	m := metrics.New()
	a.dispatcher = notify.NewDispatcher(
		notify.NewSMTPGateway(cfg.SMTP, appLogger),
		cfg.Notify.Workers,
		cfg.Notify.QueueSize,
		cfg.Notify.SendTimeout,
		appLogger,
		m,
	)

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	catalog := services.NewCatalogService(st.categories, st.products, st.cache, images, appLogger)
	users := services.NewUserService(st.users, images, a.dispatcher, cfg.Auth.BcryptCost, appLogger)

	h := handlers.Handlers{
		Auth: handlers.NewAuthHandler(
			services.NewAuthService(st.users, issuer, a.dispatcher, cfg.Auth.BcryptCost, appLogger),
			services.NewPasswordService(st.users, st.tokens, a.dispatcher, services.PasswordConfig{
				TokenTTL:    cfg.Auth.ResetTokenTTL,
				ResetURL:    cfg.Auth.ResetURL,
				ExposeToken: cfg.Auth.ExposeResetToken,
				BcryptCost:  cfg.Auth.BcryptCost,
			}, appLogger),
		),
		Admin:   handlers.NewAdminHandler(users),
		User:    handlers.NewUserHandler(users),
		Catalog: handlers.NewCatalogHandler(catalog),
		Cart:    handlers.NewCartHandler(services.NewCartService(st.carts, catalog, appLogger)),
		Order: handlers.NewOrderHandler(services.NewOrderService(services.OrderDeps{
			Orders:    st.orders,
			Carts:     st.carts,
			Products:  st.products,
			Users:     st.users,
			Catalog:   catalog,
			Tx:        st.tx,
			Notifier:  a.dispatcher,
			Publisher: a.publisher,
			Metrics:   m,
		}, appLogger)),
		Health: handlers.NewHealthHandler(checks),
	}

	a.http = handlers.NewApp(handlers.AppConfig{
		BodyLimit:    cfg.HTTP.BodyLimitMB << 20,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		AccessLog:    true,
	}, appLogger, m)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	handlers.RegisterRoutes(a.http, h, issuer, m, metricsPath)
	return a, nil
}

// openStores connects Mongo and Redis, or builds in-process stores for the memory driver.
func (a *App) openStores(ctx context.Context) (*stores, map[string]handlers.Check, error) {
	if a.cfg.Storage.Driver == driverMemory {
		a.log.Warnf("Using in-memory storage: data is lost on restart")
		return &stores{
			users:      memory.NewUserRepository(),
			categories: memory.NewCategoryRepository(),
			products:   memory.NewProductRepository(),
			carts:      memory.NewCartRepository(),
			orders:     memory.NewOrderRepository(),
			tx:         memory.Tx{},
			tokens:     memory.NewResetTokenStore(),
		}, map[string]handlers.Check{}, nil
	}

	a.log.Info("Initializing MongoDB client...")
	mongoClient, err := db.NewClient(ctx, a.cfg.Mongo)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	a.mongoClient = mongoClient
	database := mongoClient.Database(a.cfg.Mongo.Database)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		return nil, nil, fmt.Errorf("failed to create MongoDB indexes: %w", err)
	}
	a.log.Info("MongoDB client initialized successfully")

	a.log.Info("Initializing Redis client...")
	redisClient, err := cache.NewClient(ctx, a.cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	a.redisClient = redisClient
	a.log.Info("Redis client initialized successfully")

	checks := map[string]handlers.Check{
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}
	return &stores{
		users:      db.NewUserRepository(database),
		categories: db.NewCategoryRepository(database),
		products:   db.NewProductRepository(database),
		carts:      db.NewCartRepository(database),
		orders:     db.NewOrderRepository(database),
		tx:         db.NewTxRunner(mongoClient, a.cfg.Mongo.Transactions),
		tokens:     cache.NewResetTokenStore(redisClient),
		cache:      cache.NewProductCache(redisClient, a.cfg.Redis.ProductCacheTTL),
	}, checks, nil
}

func (a *App) closeStores(ctx context.Context) {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		} else {
			a.log.Info("Redis client closed successfully")
		}
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.log.Errorf("Error disconnecting from MongoDB: %v", err)
		} else {
			a.log.Info("MongoDB connection closed successfully")
		}
	}
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down in dependency order.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on :%s", a.cfg.HTTP.Port)
		errCh <- a.http.Listen(":" + a.cfg.HTTP.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		a.log.Infof("Received shutdown signal: %v. Shutting down application...", sig)
	case err := <-errCh:
		runErr = fmt.Errorf("http server stopped: %w", err)
		a.log.Errorf("HTTP server stopped unexpectedly: %v", err)
	}

	if err := a.http.ShutdownWithTimeout(a.cfg.HTTP.ShutdownTimeout); err != nil {
		a.log.Errorf("Error during HTTP server shutdown: %v", err)
	}

	a.log.Info("Draining notification queue...")
	a.dispatcher.Close()
	a.publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	a.closeStores(ctx)

	a.log.Info("Application shut down successfully")
	_ = a.log.Sync()
	return runErr
}
