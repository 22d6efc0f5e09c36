package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/aegisx-platform/budget-service/internal/config"
	"github.com/aegisx-platform/budget-service/internal/domain/budget"
	"github.com/aegisx-platform/budget-service/internal/domain/catalog"
	"github.com/aegisx-platform/budget-service/internal/domain/lineitems"
	"github.com/aegisx-platform/budget-service/internal/infra/db"
	httpx "github.com/aegisx-platform/budget-service/internal/infra/http"
	"github.com/aegisx-platform/budget-service/internal/infra/logger"
	"github.com/aegisx-platform/budget-service/internal/infra/notify"
	"github.com/aegisx-platform/budget-service/internal/session"
	"github.com/aegisx-platform/budget-service/internal/workflow"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/subosito/gotenv"
)

func runMigrations(dsn string, log *slog.Logger) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN, log); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	var notifier workflow.Notifier
	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
	if err != nil {
		log.Error("telegram init failed", "err", err)
		return
	}
	if tg != nil {
		notifier = tg
		log.Info("telegram notifications enabled", "chat_id", cfg.Telegram.AdminChatID)
	}

	svc := workflow.New(log,
		budget.NewRepo(pool),
		lineitems.NewRepo(pool),
		catalog.NewRepo(pool),
		session.NewManager(),
		notifier,
	)

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, httpx.NewHandler(log, svc))
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
