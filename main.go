package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giftshop-backend/cache"
	"giftshop-backend/cart"
	"giftshop-backend/config"
	"giftshop-backend/database"
	"giftshop-backend/events"
	"giftshop-backend/firebase"
	"giftshop-backend/handlers"
	"giftshop-backend/middleware"
	"giftshop-backend/routes"
	"giftshop-backend/seo"
	"giftshop-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	// Load environment variables
	if err := config.LoadEnv(); err != nil {
		panic("error loading .env file: " + err.Error())
	}
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}

func run(cfg config.Config, logger *zap.Logger) error {
	// Validate critical environment variables
	if err := config.ValidateEnv(logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Error("error closing database connection", zap.Error(err))
			} else {
				logger.Info("database connection closed")
			}
		}
	}()

	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := database.CreateDefaultAdmin(db, logger); err != nil {
		logger.Warn("could not create default admin", zap.Error(err))
	}

	// Carts live in memory; Redis keeps them across restarts when configured.
	var registryOpts []cart.RegistryOption
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func(client *redis.Client) {
			if err := client.Close(); err != nil {
				logger.Error("error closing redis client", zap.Error(err))
			}
		}(client)
		registryOpts = append(registryOpts, cart.WithPersister(cache.NewRedisCartStore(client, cfg.CartTTL)))
		logger.Info("cart persistence enabled", zap.Duration("ttl", cfg.CartTTL))
	}
	registryOpts = append(registryOpts, cart.WithIdleTimeout(cfg.CartTTL))
	registry := cart.NewRegistry(logger.Named("cart"), registryOpts...)
	defer registry.Stop()

	mailer := utils.NewSMTPMailer(utils.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, logger.Named("mail"))

	var bus *events.Bus
	if len(cfg.KafkaBrokers) > 0 {
		bus, err = events.NewKafkaBus(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, logger.Named("events"))
	} else {
		bus, err = events.NewGoChannelBus(logger.Named("events"))
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Error("error closing event bus", zap.Error(err))
		}
	}()
	bus.OnOrderPlaced("order_confirmation_email", handlers.OrderConfirmationSender(mailer))
	bus.OnOrderPlaced("staff_order_alert", handlers.StaffOrderAlert(mailer, cfg.StaffEmail))

	deps := routes.Deps{
		DB:         db,
		Registry:   registry,
		Publisher:  bus,
		Mailer:     mailer,
		Site:       seo.Site{Name: cfg.SiteName, URL: cfg.SiteURL},
		StaffEmail: cfg.StaffEmail,
		Logger:     logger,
	}

	if cfg.FirebaseBucket != "" {
		storageClient, err := firebase.New(ctx, cfg.FirebaseBucket, os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), logger.Named("storage"))
		if err != nil {
			logger.Warn("image storage unavailable", zap.Error(err))
		} else {
			deps.Storage = storageClient
		}
	}

	authLimiter := middleware.NewRateLimiter(20, time.Minute)
	defer authLimiter.Stop()
	deps.AuthLimiter = authLimiter

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	// Limit multipart form memory to 10MB
	r.MaxMultipartMemory = 10 << 20

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.CartSessionHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.CartSessionHeader},
		AllowCredentials: true,
	}))

	routes.SetupRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return bus.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
