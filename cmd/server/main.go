package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	newlife "github.com/manutd22/newlife"
	"github.com/manutd22/newlife/internal/catalog"
	"github.com/manutd22/newlife/internal/config"
	"github.com/manutd22/newlife/internal/handler"
	"github.com/manutd22/newlife/internal/middleware"
	"github.com/manutd22/newlife/internal/repository"
	"github.com/manutd22/newlife/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, reading environment directly")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	migrationsFS, err := fs.Sub(newlife.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	users := repository.NewUsers(pool)
	edges := repository.NewReferrals(pool)
	codes := repository.NewCodes(pool)
	pending := repository.NewPendingTokens(pool)
	quests := repository.NewQuests(pool)
	ledgerRepo := repository.NewLedger(pool)

	// Sync the quest catalog before serving.
	defs, err := catalog.Load(cfg.QuestCatalogPath)
	if err != nil {
		slog.Error("failed to load quest catalog", "error", err)
		os.Exit(1)
	}
	if err := catalog.Sync(ctx, quests, defs); err != nil {
		slog.Error("failed to sync quest catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("quest catalog synced", "quests", len(defs))

	b, err := bot.New(cfg.BotToken)
	if err != nil {
		slog.Error("failed to create bot client", "error", err)
		os.Exit(1)
	}

	identityService := service.NewIdentityService(cfg.BotToken, cfg.InitDataTTL)
	ledgerService := service.NewLedgerService(ledgerRepo)
	registryService := service.NewRegistryService(users, codes)
	referralService := service.NewReferralService(edges, codes, users, pending, ledgerService, cfg.ReferralBonus)
	pageChecker := service.NewPageChecker(&http.Client{Timeout: config.PageCheckClientTimeout})
	questService := service.NewQuestService(quests, users, ledgerService,
		service.DefaultCheckers(b, pageChecker, edges), cfg.EligibilityTimeout)

	app := fiber.New(fiber.Config{
		AppName: "newlife",
	})
	app.Use(recover.New())
	app.Use(middleware.Logging())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	h := handler.New(handler.Deps{
		Identity: identityService,
		Registry: registryService,
		Referral: referralService,
		Ledger:   ledgerService,
		Quests:   questService,
	})
	h.Register(app)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		slog.Info("starting server", "addr", addr)
		if err := app.Listen(addr); err != nil {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	slog.Info("server stopped gracefully")
}
