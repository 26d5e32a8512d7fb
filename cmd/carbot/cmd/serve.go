package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/itransmotors/carbot/internal/adwatch"
	"github.com/itransmotors/carbot/internal/autoria"
	"github.com/itransmotors/carbot/internal/bot"
	"github.com/itransmotors/carbot/internal/calculator"
	"github.com/itransmotors/carbot/internal/database"
	"github.com/itransmotors/carbot/internal/handlers"
)

const (
	staffCacheTTL          = 10 * time.Minute
	sessionCleanupInterval = time.Hour
	shutdownTimeout        = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot, the HTTP API and the background jobs",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	sheet, err := openSheets(ctx)
	if err != nil {
		return fmt.Errorf("failed to create sheets client: %w", err)
	}
	tariffs := newTariffService(db, sheet)

	var (
		sheetWriter bot.SheetWriter
		managers    bot.ManagerSource
	)
	if sheet != nil {
		sheetWriter, managers = sheet, sheet
		if _, err := tariffs.Refresh(ctx); err != nil {
			logger.Error("Initial tariff refresh failed", zap.Error(err))
		}
	}
	if tariffs.Table().Len() == 0 {
		logger.Warn("No tariffs loaded - calculations will fail until a refresh succeeds")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))

	botSessions, err := newBotSessions(ctx)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	goRun := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	if sheet != nil {
		goRun(func() { tariffs.Run(ctx, cfg.TariffRefreshInterval) })
	}

	var ads bot.AdManager
	if cfg.AutoRIAAPIKey != "" {
		client := autoria.NewClient(autoria.Config{APIKey: cfg.AutoRIAAPIKey, BaseURL: cfg.AutoRIABaseURL}, logger)
		watcher := adwatch.NewWatcher(db, client, bot.NewNotifier(api), cfg.RIAChannelID, logger)
		ads = watcher
		goRun(func() { watcher.Run(ctx, cfg.AdsCheckInterval) })
	} else {
		logger.Warn("AUTORIA_API_KEY not set - ad tracking disabled")
	}

	contacts := calculator.Contacts{Phone: cfg.ContactPhone, Name: cfg.ContactName, Telegram: cfg.ContactTelegram}

	webSessions := database.NewDBSessionStore(db, sessionKey())
	goRun(func() { cleanupSessions(ctx, webSessions) })

	h := handlers.NewHandler(db, tariffs, webSessions, handlers.Options{
		StaffToken: cfg.StaffAPIToken,
		Contacts:   contacts,
	}, logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	goRun(func() {
		logger.Info("Starting HTTP API", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	})

	b := bot.New(bot.Deps{
		API:      api,
		Sessions: botSessions,
		Tariffs:  tariffs,
		Staff:    bot.NewStaff(cfg.StaffIDs, managers, cfg.SheetManagers, staffCacheTTL, logger),
		Store:    db,
		Sheet:    sheetWriter,
		Ads:      ads,
		Logger:   logger,
	}, bot.Options{
		CalculationsSheet: cfg.SheetCalculations,
		Contacts:          contacts,
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	logger.Info("Bot started")
	b.Run(ctx, updates)

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown failed", zap.Error(err))
	}
	wg.Wait()

	if closer, ok := botSessions.(io.Closer); ok {
		closer.Close()
	}
	return nil
}

// newBotSessions keeps conversations in redis when REDIS_ADDR is set, in memory otherwise
func newBotSessions(ctx context.Context) (bot.SessionStore, error) {
	if cfg.RedisAddr == "" {
		return bot.NewMemoryStore(bot.DefaultSessionTTL), nil
	}
	store, err := bot.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, bot.DefaultSessionTTL)
	if err != nil {
		return nil, err
	}
	logger.Info("Using redis for bot sessions", zap.String("addr", cfg.RedisAddr))
	return store, nil
}

// sessionKey returns the cookie signing key. Without SESSION_KEY a random key
// is used and staff sessions do not survive a restart.
func sessionKey() []byte {
	if cfg.SessionKey != "" {
		return []byte(cfg.SessionKey)
	}
	logger.Warn("SESSION_KEY not set - generated a temporary key")
	return securecookie.GenerateRandomKey(32)
}

func cleanupSessions(ctx context.Context, store *database.DBSessionStore) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.CleanupExpiredSessions()
			if err != nil {
				logger.Warn("Session cleanup failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("Removed expired sessions", zap.Int64("count", n))
			}
		}
	}
}
