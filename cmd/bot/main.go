package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/slotswap_bot/internal/app"
	"github.com/Freeeeeet/slotswap_bot/internal/config"
	"github.com/Freeeeeet/slotswap_bot/internal/controller"
	"github.com/Freeeeeet/slotswap_bot/internal/controller/httpapi"
	"github.com/Freeeeeet/slotswap_bot/internal/ratelimit"
	"github.com/Freeeeeet/slotswap_bot/internal/repository"
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"github.com/Freeeeeet/slotswap_bot/migrations"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.IsProduction())
	defer logger.Sync()

	logger.Sugar().Infow("Starting slot exchange bot",
		"environment", cfg.Environment,
		"token_length", len(cfg.TelegramToken),
		"http_addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Application stopped with error", zap.Error(err))
	}
	logger.Info("👋 Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := app.NewPool(ctx, cfg.GetDBDSN(), cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("✅ Database connected")

	migrator, err := app.NewMigrator(pool, migrations.FS, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		return err
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("Failed to close migrator connection", zap.Error(err))
	}

	// Репозитории работают внутри транзакций TxRunner
	userRepo := repository.NewUserRepository()
	slotRepo := repository.NewSlotRepository()
	exchangeRepo := repository.NewExchangeRepository()
	auditRepo := repository.NewAuditRepository()

	txRunner := service.NewTxRunner(pool, service.TxConfig{
		LockTimeout: cfg.LockTimeout,
		MaxRetries:  cfg.TxMaxRetries,
		RetryBase:   cfg.TxRetryBase,
	}, logger)

	userService := service.NewUserService(txRunner, userRepo, logger)
	slotService := service.NewSlotService(txRunner, slotRepo, userRepo, logger)
	exchangeService := service.NewExchangeService(txRunner, slotRepo, exchangeRepo, auditRepo, logger)

	// Один лимитер на бота и HTTP API
	limiter := ratelimit.NewStore(cfg.RateLimitRPS, cfg.RateLimitBurst)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return limiter.Run(ctx)
	})

	g.Go(func() error {
		return app.NewScheduler(exchangeService, cfg.AuditInterval, logger).Run(ctx)
	})

	if cfg.TelegramToken != "" {
		b, err := bot.New(cfg.TelegramToken,
			bot.WithMiddlewares(controller.RateLimit(limiter, logger)),
			bot.WithErrorsHandler(func(err error) {
				logger.Error("Telegram bot error", zap.Error(err))
			}),
		)
		if err != nil {
			return err
		}

		exchangeService.SetNotifier(controller.NewNotifier(b, userService, slotService, logger))

		botController := controller.NewBotController(b, userService, slotService, exchangeService, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Bot commands menu not set", zap.Error(err))
		}

		g.Go(func() error {
			return botController.Start(ctx)
		})
	} else {
		logger.Warn("TELEGRAM_TOKEN is empty, Telegram bot disabled")
	}

	if cfg.HTTPAddr != "" {
		server := httpapi.NewServer(cfg.HTTPAddr, httpapi.Deps{
			Slots:     slotService,
			Exchanges: exchangeService,
			DB:        pool,
			Limiter:   limiter,
			JWTSecret: []byte(cfg.JWTSecret),
			Logger:    logger,
		})
		g.Go(func() error {
			return server.Run(ctx)
		})
	}

	logger.Info("✅ Application started")
	return g.Wait()
}
