package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/itransmotors/carbot/internal/calculator"
	"github.com/itransmotors/carbot/internal/database"
	"github.com/itransmotors/carbot/internal/metrics"
)

const syncTypeTariffs = "tariffs"

// ErrNoTariffs is returned when neither auction sheet yields a usable entry
var ErrNoTariffs = errors.New("no tariff entries loaded")

// Source reads raw sheet rows
type Source interface {
	Values(ctx context.Context, sheet string) ([][]string, error)
}

// Sheets names the tariff sheet of each auction house
type Sheets struct {
	Copart string
	IAAI   string
}

// Service keeps the process-wide tariff table current. Readers always see a
// complete table: new tables are built aside and published atomically.
type Service struct {
	db     *database.DB
	source Source
	sheets Sheets
	logger *zap.Logger

	table atomic.Pointer[calculator.Table]
	mu    sync.Mutex // one refresh at a time
}

// NewService creates a tariff service starting from an empty table.
// source may be nil when no spreadsheet is configured.
func NewService(db *database.DB, source Source, sheets Sheets, logger *zap.Logger) *Service {
	s := &Service{db: db, source: source, sheets: sheets, logger: logger}
	s.publish(calculator.NewTable(nil))
	return s
}

// Table returns the current tariff table; never nil
func (s *Service) Table() *calculator.Table {
	return s.table.Load()
}

func (s *Service) publish(t *calculator.Table) {
	s.table.Store(t)
	for _, a := range calculator.Auctions() {
		metrics.TariffEntries.WithLabelValues(string(a)).Set(float64(t.Count(a)))
	}
}

// LoadSnapshot restores the last persisted table from the database.
// It returns the number of entries loaded; an empty snapshot leaves the table unchanged.
func (s *Service) LoadSnapshot() (int, error) {
	entries, err := s.db.GetTariffs()
	if err != nil {
		return 0, fmt.Errorf("failed to load tariff snapshot: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}
	s.publish(calculator.NewTable(entries))
	s.logger.Info("Loaded tariff snapshot", zap.Int("entries", len(entries)))
	return len(entries), nil
}

// Refresh fetches both tariff sheets, swaps in the new table and persists a snapshot.
// When no entries can be loaded at all the previous table stays active.
func (s *Service) Refresh(ctx context.Context) (*database.SyncHistory, error) {
	if s.source == nil {
		return nil, errors.New("tariff source not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := &database.SyncHistory{
		SyncType:  syncTypeTariffs,
		Status:    database.SyncRunning,
		StartedAt: time.Now(),
	}
	if err := s.db.CreateSyncHistory(history); err != nil {
		return nil, fmt.Errorf("failed to create sync history: %w", err)
	}

	var errs []error
	var entries []calculator.TariffEntry
	for _, house := range []struct {
		auction calculator.Auction
		sheet   string
	}{
		{calculator.Copart, s.sheets.Copart},
		{calculator.IAAI, s.sheets.IAAI},
	} {
		rows, err := s.source.Values(ctx, house.sheet)
		if err != nil {
			s.logger.Warn("Failed to read tariff sheet", zap.String("sheet", house.sheet), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		parsed := calculator.ParseRows(house.auction, rows)
		if len(parsed) == 0 {
			s.logger.Warn("Tariff sheet has no usable rows",
				zap.String("auction", house.auction.DisplayName()), zap.String("sheet", house.sheet))
			errs = append(errs, fmt.Errorf("sheet %s: no usable rows", house.sheet))
			continue
		}
		entries = append(entries, parsed...)
	}

	if len(entries) == 0 {
		errs = append(errs, ErrNoTariffs)
		return history, s.finish(history, database.SyncFailed, 0, errors.Join(errs...))
	}

	table := calculator.NewTable(entries)
	s.publish(table)
	s.logger.Info("Tariff table refreshed",
		zap.Int("copart", table.Count(calculator.Copart)),
		zap.Int("iaai", table.Count(calculator.IAAI)))

	if err := s.db.ReplaceTariffs(table.Entries()); err != nil {
		s.logger.Error("Failed to persist tariff snapshot", zap.Error(err))
		errs = append(errs, err)
	}

	status := database.SyncSuccess
	if len(errs) > 0 {
		status = database.SyncPartial
	}
	return history, s.finish(history, status, table.Len(), errors.Join(errs...))
}

func (s *Service) finish(history *database.SyncHistory, status string, items int, cause error) error {
	now := time.Now()
	history.CompletedAt = &now
	history.Status = status
	history.ItemsSynced = items
	if cause != nil {
		history.ErrorMessage = cause.Error()
	}
	metrics.TariffRefreshes.WithLabelValues(status).Inc()

	if err := s.db.UpdateSyncHistory(history); err != nil {
		return fmt.Errorf("failed to update sync history: %w", err)
	}
	if status == database.SyncFailed {
		return cause
	}
	return nil
}

// Run refreshes the table every interval until ctx is done
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Error("Scheduled tariff refresh failed", zap.Error(err))
			}
		}
	}
}
