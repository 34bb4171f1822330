// Package main starts the freshcart auth API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freshcart/internal/config"
	"freshcart/internal/handlers"
	applogger "freshcart/internal/logger"
	"freshcart/internal/middleware"
	"freshcart/internal/repositories"
	"freshcart/internal/repositories/cache"
	"freshcart/internal/routes"
	"freshcart/internal/services/auth"
	"freshcart/internal/services/billing"
	"freshcart/internal/services/customer"
	"freshcart/internal/services/device"
	"freshcart/internal/services/lockout"
	"freshcart/internal/services/notification"
	"freshcart/internal/services/reputation"
	"freshcart/internal/utils"
	"freshcart/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zlog, err := applogger.New(cfg.Env, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repositories.OpenDB(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				zlog.Warn("failed to close database connection", zap.Error(err))
			}
		}
	}()
	if err := repositories.Migrate(db); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	redisClient, err := cache.Connect(ctx, &cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		zlog.Fatal("failed to connect to redis", zap.Error(err))
	}
	cacheService := cache.NewCacheService(redisClient)
	defer func() {
		if err := cacheService.Close(); err != nil {
			zlog.Warn("failed to close redis connection", zap.Error(err))
		}
	}()

	sender, err := notification.NewSMTPSender(cfg.SMTP)
	if err != nil {
		zlog.Fatal("failed to set up smtp", zap.Error(err))
	}
	defer sender.Close()
	notifier := notification.NewService(sender, cfg.SMTP.SendTimeout, zlog.Named("mail"))

	tokens := utils.NewTokenManager(cfg.JWT)
	devices := device.NewTracker(
		repositories.NewDeviceFailureRepository(db),
		lockout.Policy{
			MaxFailures:  cfg.Security.DeviceMaxFailures,
			LockDuration: cfg.Security.DeviceLockDuration,
			MaxLocks:     cfg.Security.DeviceMaxLocks,
		},
		zlog.Named("device"),
	)

	authService := auth.NewService(cfg, auth.Deps{
		ShopOwners: repositories.NewShopOwnerRepository(db),
		Sessions:   repositories.NewLoginAttemptRepository(db),
		Devices:    devices,
		Reputation: reputation.NewChecker(cfg.Security, cacheService, zlog.Named("reputation")),
		Notifier:   notifier,
		Tokens:     tokens,
		Guard:      cacheService,
		Logger:     zlog.Named("auth"),
	})
	customerService := customer.NewService(cfg, customer.Deps{
		Customers: repositories.NewCustomerRepository(db),
		Tokens:    repositories.NewTokenRepository(db),
		JWT:       tokens,
		Google:    customer.NewGoogleVerifier(ctx, cfg.Google.ClientID),
		Billing:   billing.NewProvider(cfg.Stripe.SecretKey, zlog.Named("billing")),
		Notifier:  notifier,
		Logger:    zlog.Named("customer"),
	})

	app := fiber.New(fiber.Config{
		AppName:      "freshcart",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ProxyHeader:  proxyHeader(cfg.Server.TrustProxy),
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	v := validation.New()
	secure := cfg.IsProduction()
	routes.SetupRoutes(app, routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService, v, secure, zlog.Named("http")),
		Customer: handlers.NewCustomerAuthHandler(customerService, v, secure, zlog.Named("http")),
		Health: handlers.NewHealthHandler(map[string]handlers.HealthCheckFunc{
			"database": func(context.Context) error { return repositories.Ping(db) },
			"redis":    cacheService.HealthCheck,
		}, zlog.Named("health")),
	}, middleware.NewAuthMiddleware(tokens, authService, zlog.Named("http")), cfg.Server)

	go func() {
		<-ctx.Done()
		zlog.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zlog.Error("server shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Env))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		zlog.Error("server stopped", zap.Error(err))
	}
}

// proxyHeader makes c.IP() read the client address from X-Forwarded-For
// when the API runs behind a trusted proxy.
func proxyHeader(trust bool) string {
	if trust {
		return fiber.HeaderXForwardedFor
	}
	return ""
}
