// Package bot initializes and runs the application: it wires the database,
// services, the Telegram poller, and the HTTP endpoint, and handles
// graceful shutdown.
package bot

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/contentgate/contentgate/internal/bot/config"
	"github.com/contentgate/contentgate/internal/bot/httpapi"
	"github.com/contentgate/contentgate/internal/bot/repositories/repomanager"
	"github.com/contentgate/contentgate/internal/bot/services"
	"github.com/contentgate/contentgate/internal/bot/shortener"
	"github.com/contentgate/contentgate/internal/bot/telegram"
	"github.com/contentgate/contentgate/internal/bot/upload"
	"github.com/contentgate/contentgate/internal/logging"
)

const sessionMaxAge = 24 * time.Hour

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	rm       repomanager.RepositoryManager
	identity *services.IdentityService

	bot        *telegram.Bot
	httpServer *httpapi.Server
	sessions   *upload.MemoryStore
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	identity := services.NewIdentityService(db, rm, cfg)
	tokens := services.NewTokenService(db, rm, cfg)
	access := services.NewAccessService(db, rm, identity, tokens)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("bot api init error: %w", err)
	}

	dispatcher := telegram.NewDispatcher(api, cfg.MainChannelID, api.Self.UserName, cfg.ProtectContent)
	publish := services.NewPublishService(db, rm, dispatcher, logger)

	sessions := upload.NewMemoryStore()
	engine := upload.NewEngine(identity, publish, sessions, logger)

	gateway := shortener.NewExeService(db, rm, cfg, logger)
	handler := telegram.NewHandler(api, engine, access, tokens, identity, gateway, dispatcher, api.Self.UserName, logger)

	return &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		rm:         rm,
		identity:   identity,
		bot:        telegram.NewBot(api, handler, logger),
		httpServer: httpapi.NewServer(db, rm, cfg, logger),
		sessions:   sessions,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the database, seeds the upload password, and serves until a
// termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	if err := app.rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	if err := app.identity.EnsurePassword(ctx); err != nil {
		return fmt.Errorf("password init error: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.bot.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweepSessions(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
	return nil
}

// sweepSessions drops abandoned upload sessions once an hour.
func (app *App) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := app.sessions.Sweep(sessionMaxAge); n > 0 {
				app.logger.Info(ctx, "dropped stale upload sessions", "count", n)
			}
		}
	}
}
