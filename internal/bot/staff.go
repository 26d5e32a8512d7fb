package bot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ManagerSource lists manager Telegram ids, one per row of a sheet
type ManagerSource interface {
	ManagerIDs(ctx context.Context, sheet string) ([]int64, error)
}

// Staff decides who gets the staff menu: configured ids plus the managers sheet.
// The sheet is re-read at most once per ttl; a failed read keeps the last good list.
type Staff struct {
	static map[int64]bool
	source ManagerSource
	sheet  string
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	managers map[int64]bool
	loadedAt time.Time
}

// NewStaff creates a staff directory. source may be nil when Sheets is not configured.
func NewStaff(ids []int64, source ManagerSource, sheet string, ttl time.Duration, logger *zap.Logger) *Staff {
	static := make(map[int64]bool, len(ids))
	for _, id := range ids {
		static[id] = true
	}
	return &Staff{
		static: static,
		source: source,
		sheet:  sheet,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// IsStaff reports whether userID is a configured staff member or a listed manager
func (s *Staff) IsStaff(ctx context.Context, userID int64) bool {
	if s.static[userID] {
		return true
	}
	if s.source == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.managers == nil || s.now().Sub(s.loadedAt) > s.ttl {
		s.reload(ctx)
	}
	return s.managers[userID]
}

func (s *Staff) reload(ctx context.Context) {
	ids, err := s.source.ManagerIDs(ctx, s.sheet)
	if err != nil {
		s.logger.Warn("Failed to load managers", zap.String("sheet", s.sheet), zap.Error(err))
		if s.managers == nil {
			s.managers = map[int64]bool{}
		}
		s.loadedAt = s.now()
		return
	}

	managers := make(map[int64]bool, len(ids))
	for _, id := range ids {
		managers[id] = true
	}
	if len(managers) == 0 {
		s.logger.Warn("No manager ids found", zap.String("sheet", s.sheet))
	}
	s.managers = managers
	s.loadedAt = s.now()
	s.logger.Info("Managers loaded", zap.Int("count", len(managers)))
}
