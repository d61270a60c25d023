package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/webagency/backend/internal/auth"
	"github.com/webagency/backend/internal/cache"
	"github.com/webagency/backend/internal/config"
	"github.com/webagency/backend/internal/events"
	"github.com/webagency/backend/internal/handler"
	"github.com/webagency/backend/internal/invoice"
	"github.com/webagency/backend/internal/logger"
	"github.com/webagency/backend/internal/middleware"
	"github.com/webagency/backend/internal/repository"
	"github.com/webagency/backend/internal/repository/memstore"
	"github.com/webagency/backend/internal/service"
	"github.com/webagency/backend/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Server.Environment, cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// amounts go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// Storage
	var store repository.Store
	switch cfg.Database.Driver {
	case config.StorageDriverMemory:
		zl.Warn("using in-memory storage, data is lost on restart")
		store = memstore.New()
	default:
		repo, err := repository.New(cfg.Database.DSN())
		if err != nil {
			zl.Fatal("failed to connect to database", zap.Error(err))
		}
		defer repo.Close()
		store = repo
	}

	// Events
	var publisher events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, zl)
		zl.Info("publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		publisher = events.NewLogPublisher(zl)
	}
	defer publisher.Close()

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Create services
	settingsSvc := service.NewSettingsService(store, zl)
	adminSvc := service.NewAdminService(store, zl)
	adminSvc.SetCredentials(cfg.Admin.Email, cfg.Admin.PasswordHash, issuer)
	walletSvc := service.NewWalletService(store, settingsSvc, zl)
	ticketSvc := service.NewTicketService(store)
	refundSvc := service.NewRefundService(store, walletSvc, ticketSvc, zl)
	invoiceSvc := service.NewInvoiceService(settingsSvc, zl)

	// Set optional dependencies (to avoid circular construction)
	walletSvc.SetAdminService(adminSvc)
	walletSvc.SetPublisher(publisher)
	refundSvc.SetAdminService(adminSvc)
	refundSvc.SetPublisher(publisher)

	if cfg.Redis.Enabled() {
		rc := cache.New(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			zl.Warn("redis unavailable, settings cache disabled", zap.Error(err))
			_ = rc.Close()
		} else {
			settingsSvc.SetCache(rc, cfg.Redis.SettingsTTL)
			defer rc.Close()
		}
		cancelPing()
	}

	if cfg.SMTP.Enabled() {
		invoiceSvc.SetMailer(invoice.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From))
	}

	// Back office alerts
	var bot *telegram.Bot
	if cfg.Telegram.Enabled() {
		bot, err = telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, refundSvc, walletSvc, zl)
		if err != nil {
			zl.Warn("telegram bot unavailable, alerts disabled", zap.Error(err))
		} else {
			walletSvc.SetNotifier(bot)
			refundSvc.SetNotifier(bot)
		}
	}

	if cfg.Admin.Email == "" || cfg.Admin.PasswordHash == "" {
		zl.Warn("admin credentials not configured, back office login disabled")
	}

	// Create handlers
	h := handler.New(walletSvc, refundSvc, ticketSvc, settingsSvc, adminSvc, zl)
	adminHandler := handler.NewAdminHandler(adminSvc, walletSvc, refundSvc, ticketSvc, settingsSvc, invoiceSvc, zl)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handler.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(zl))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Signature",
	}))

	handler.Register(app, h, adminHandler, issuer, cfg.Payments.WebhookSecret)

	// Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconcileWorker := service.NewReconcileWorker(walletSvc, zl, cfg.Wallet.ReconcileInterval, cfg.Wallet.ReconcileRepair)
	go reconcileWorker.Start(ctx)

	if bot != nil {
		go bot.StartPolling(ctx)
		zl.Info("telegram bot started", zap.String("username", bot.GetBotUsername()))
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zl.Info("shutting down server")
		cancel()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	// Start server
	zl.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("environment", cfg.Server.Environment))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		zl.Fatal("failed to start server", zap.Error(err))
	}
}
