package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/arturoeanton/go-property-search/internal/adapter/notify"
	"github.com/arturoeanton/go-property-search/internal/adapter/store"
	"github.com/arturoeanton/go-property-search/internal/app"
	"github.com/arturoeanton/go-property-search/internal/handler"
	"github.com/arturoeanton/go-property-search/internal/mcp"
	"github.com/arturoeanton/go-property-search/internal/middleware"
	"github.com/arturoeanton/go-property-search/internal/port"
	"github.com/arturoeanton/go-property-search/internal/service"
	"github.com/arturoeanton/go-property-search/pkg/config"
	"github.com/arturoeanton/go-property-search/pkg/logging"
)

// auditStore is implemented by both database stores.
type auditStore interface {
	middleware.AuditWriter
	handler.AuditReader
}

type shortlistPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

func main() {
	_ = godotenv.Load() // .env is optional

	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// run wires and serves the API until a signal arrives. Deferred closers run
// on every return path.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logging.Setup(cfg.LogFormat, cfg.LogLevel)

	slog.Info("🚀 Starting property search",
		"port", cfg.Port,
		"realtime", cfg.UseRealtimeData,
		"narrator", cfg.Narrator,
		"database", cfg.DSN(),
		"mcp_enabled", cfg.MCPEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Persistence ──────────────────────────────────────────────────────
	fileStore, err := store.NewSQLiteStore(cfg.SQLitePath, cfg.ShortlistTTL())
	if err != nil {
		return fmt.Errorf("open sqlite store %s: %w", cfg.SQLitePath, err)
	}
	defer fileStore.Close()

	var (
		primaryLeads      port.LeadStore
		primaryShortlists port.ShortlistStore
		audit             auditStore = fileStore
		purgers                      = []shortlistPurger{fileStore}
	)
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.ShortlistTTL())
		if err != nil {
			slog.Warn("postgres unavailable, using sqlite only", "error", err)
		} else {
			defer pgStore.Close()
			primaryLeads, primaryShortlists, audit = pgStore, pgStore, pgStore
			purgers = append(purgers, pgStore)
		}
	}

	var notifier port.LeadNotifier = notify.LogNotifier{}
	if cfg.RabbitMQURL != "" {
		rmq, err := notify.NewRabbitMQNotifier(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			slog.Warn("rabbitmq unavailable, lead events will only be logged", "error", err)
		} else {
			defer rmq.Close()
			notifier = rmq
		}
	}

	// ── Core ─────────────────────────────────────────────────────────────
	core, err := app.NewCore(cfg)
	if err != nil {
		return fmt.Errorf("build search core: %w", err)
	}
	defer core.Close()
	core.Refresher.Start(ctx)

	leads := service.NewLeadService(primaryLeads, fileStore, notifier)
	shortlists := service.NewShortlistService(primaryShortlists, fileStore, core.Recommender)

	go purgeShortlists(ctx, purgers)

	// ── Fiber App ────────────────────────────────────────────────────────
	server := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	server.Use(recover.New())
	server.Use(middleware.TraceMiddleware())
	server.Use(fiberlogger.New())
	server.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Origins(),
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.TraceHeader},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))
	server.Use(middleware.AuditMiddleware(audit))

	api := server.Group("/api")
	handler.NewHealthHandler(cfg.AppName, core.Recommender, core.Narrator).Register(api)
	handler.NewChatHandler(core.Search, core.Recommender, audit).Register(api)
	leadHandler := handler.NewLeadHandler(leads, audit)
	leadHandler.Register(api)
	handler.NewShortlistHandler(shortlists, audit).Register(api)

	// ── Admin Routes ─────────────────────────────────────────────────────
	admin := api.Group("/admin",
		middleware.JWTMiddleware(middleware.JWTConfig{
			Secret:    cfg.JWTSecret,
			Issuer:    cfg.JWTIssuer,
			ExpiresIn: time.Duration(cfg.JWTExpiration) * time.Hour,
		}),
		middleware.RequireAdmin(),
	)
	leadHandler.RegisterAdmin(admin)
	handler.NewRefreshHandler(core.Refresher, core.Recommender, audit).Register(admin)
	handler.NewAuditHandler(audit).Register(admin)

	// ── MCP Server (separate port) ───────────────────────────────────────
	if cfg.MCPEnabled {
		mcpServer := mcp.NewServer(core.Search, core.Recommender, audit, cfg.MCPPort)
		go func() {
			if err := mcpServer.Start(ctx); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := server.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		stop()
		core.Refresher.Wait()
		return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
	}
	core.Refresher.Wait()
	return nil
}

// purgeShortlists removes expired shortlists hourly.
func purgeShortlists(ctx context.Context, stores []shortlistPurger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range stores {
				n, err := s.PurgeExpired(ctx)
				if err != nil {
					slog.Warn("shortlist purge failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Info("expired shortlists purged", "count", n)
				}
			}
		}
	}
}
