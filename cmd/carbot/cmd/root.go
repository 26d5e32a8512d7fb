// Package cmd provides the carbot commands.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/itransmotors/carbot/internal/config"
	"github.com/itransmotors/carbot/internal/database"
	"github.com/itransmotors/carbot/internal/logging"
	"github.com/itransmotors/carbot/internal/sheets"
	tariffsync "github.com/itransmotors/carbot/internal/sync"
)

var (
	dbPath   string
	httpAddr string
	logLevel string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "carbot",
	Short: "Landed-cost calculator for cars bought at US auctions",
	Long: `carbot estimates the full cost of importing a used car from a US auction
(Copart or IAAI) to Ukraine and serves the estimate through a Telegram bot
and a JSON API.

Examples:
  carbot serve
  carbot quote --auction copart --bid 10000 --location "TX - DALLAS" --year 2019 --engine gasoline --volume 2000
  carbot tariffs list --auction iaai
  carbot tariffs refresh`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dbPath != "" {
			cfg.DBPath = dbPath
		}
		if httpAddr != "" {
			cfg.HTTPAddr = httpAddr
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}

		logCfg := logging.DefaultConfig()
		logCfg.Level = cfg.LogLevel
		logCfg.Format = cfg.LogFormat
		if logger, err = logging.New(logCfg); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&httpAddr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(tariffsCmd)
}

// openDB opens the database and enables contact encryption when a key is set
func openDB() (*database.DB, error) {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	key, err := database.ParseEncryptionKey(cfg.EncryptionKey)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.SetEncryptionKey(key); err != nil {
		db.Close()
		return nil, err
	}
	if key == nil {
		logger.Warn("ENCRYPTION_KEY not set - client contacts are stored in plain text")
	}
	return db, nil
}

// openSheets returns nil without error when no spreadsheet is configured
func openSheets(ctx context.Context) (*sheets.Client, error) {
	if cfg.SpreadsheetID == "" {
		logger.Warn("SPREADSHEET_ID not set - tariffs come from the local snapshot only")
		return nil, nil
	}
	return sheets.NewClient(ctx, cfg.GoogleCredentialsFile, cfg.SpreadsheetID)
}

// newTariffService restores the last snapshot. sheet may be nil.
func newTariffService(db *database.DB, sheet *sheets.Client) *tariffsync.Service {
	var source tariffsync.Source
	if sheet != nil {
		source = sheet
	}
	svc := tariffsync.NewService(db, source, tariffsync.Sheets{Copart: cfg.SheetCopart, IAAI: cfg.SheetIAAI}, logger)
	if _, err := svc.LoadSnapshot(); err != nil {
		logger.Warn("Tariff snapshot unavailable", zap.Error(err))
	}
	return svc
}
