// Package adwatch archives expired AutoRIA ads and reminds managers before
// an ad drops out of publication.
package adwatch

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"

	"github.com/itransmotors/carbot/internal/autoria"
	"github.com/itransmotors/carbot/internal/database"
	"github.com/itransmotors/carbot/internal/metrics"
)

// LevelArchived is the notice level sent when an ad is archived
const LevelArchived = "archived"

var (
	ErrAdNotTracked = errors.New("ad is not tracked")
	ErrAdInactive   = errors.New("ad is not active on AutoRIA")
	ErrNoExpiryDate = errors.New("AutoRIA returned no expiry date")
)

// AdStore persists tracked ads
type AdStore interface {
	GetActiveAds() ([]database.TrackedAd, error)
	GetAd(autoID int64) (*database.TrackedAd, error)
	UpsertAd(ad *database.TrackedAd) error
	UpdateAd(ad *database.TrackedAd) error
}

// AdSource fetches live ad data
type AdSource interface {
	GetAdInfo(ctx context.Context, autoID int64) (*autoria.AdInfo, error)
}

// Notice is a message about one ad. Text is Telegram HTML.
type Notice struct {
	Level string
	Ad    database.TrackedAd
	Text  string
	// Renewable asks the notifier to attach renew controls
	Renewable bool
}

// Notifier delivers notices to a chat
type Notifier interface {
	Notify(ctx context.Context, chatID int64, n Notice) error
}

// Report summarizes one check run
type Report struct {
	Archived int
	Sent24h  int
	Sent12h  int
}

func (r Report) String() string {
	return fmt.Sprintf("Заархівовано оголошень: %d\nНадіслано сповіщень:\n • ~24 години: %d\n • ~12 годин: %d",
		r.Archived, r.Sent24h, r.Sent12h)
}

// Watcher runs the ad expiry checks
type Watcher struct {
	store     AdStore
	source    AdSource
	notifier  Notifier
	channelID int64
	logger    *zap.Logger
	now       func() time.Time
}

// NewWatcher creates a watcher posting to channelID. A zero channel disables channel posts.
func NewWatcher(store AdStore, source AdSource, notifier Notifier, channelID int64, logger *zap.Logger) *Watcher {
	return &Watcher{
		store:     store,
		source:    source,
		notifier:  notifier,
		channelID: channelID,
		logger:    logger,
		now:       time.Now,
	}
}

// Track starts watching an AutoRIA ad on behalf of a manager
func (w *Watcher) Track(ctx context.Context, autoID int64, vin string, managerID int64) (*database.TrackedAd, error) {
	info, err := w.source.GetAdInfo(ctx, autoID)
	if err != nil {
		return nil, err
	}
	// AutoRIA reports some published ads as inactive while their term is still running
	if !info.Active() && !info.ExpireAt.After(w.now()) {
		return nil, fmt.Errorf("%w: %s", ErrAdInactive, info.StatusName)
	}
	if info.ExpireAt.IsZero() {
		return nil, ErrNoExpiryDate
	}

	ad := &database.TrackedAd{
		AutoID:    autoID,
		VIN:       vin,
		Model:     info.Title,
		Link:      info.Link,
		ManagerID: managerID,
		ExpireAt:  info.ExpireAt,
		Status:    database.AdActive,
	}
	if err := w.store.UpsertAd(ad); err != nil {
		return nil, fmt.Errorf("failed to save ad %d: %w", autoID, err)
	}
	w.logger.Info("Tracking ad", zap.Int64("autoId", autoID), zap.Time("expireAt", ad.ExpireAt))
	return ad, nil
}

// ArchiveExpired archives active ads whose term has passed and announces them
func (w *Watcher) ArchiveExpired(ctx context.Context) (int, error) {
	ads, err := w.store.GetActiveAds()
	if err != nil {
		return 0, fmt.Errorf("failed to load ads: %w", err)
	}

	now := w.now()
	archived := 0
	for _, ad := range ads {
		if ad.ExpireAt.IsZero() || !ad.ExpireAt.Before(now) {
			continue
		}

		notice := Notice{Level: LevelArchived, Ad: ad, Text: archivedText(ad)}
		if err := w.notifyChannel(ctx, notice); err != nil {
			w.logger.Warn("Failed to announce archived ad", zap.Int64("autoId", ad.AutoID), zap.Error(err))
			continue
		}

		ad.Status = database.AdArchived
		if err := w.store.UpdateAd(&ad); err != nil {
			w.logger.Error("Failed to archive ad", zap.Int64("autoId", ad.AutoID), zap.Error(err))
			continue
		}
		metrics.AdNotifications.WithLabelValues(LevelArchived).Inc()
		w.logger.Info("Ad archived", zap.Int64("autoId", ad.AutoID), zap.String("vin", ad.VIN))
		archived++
	}
	return archived, nil
}

// NotifyUpcoming sends the ~24h and ~12h reminders, each at most once per term
func (w *Watcher) NotifyUpcoming(ctx context.Context) (Report, error) {
	var report Report
	ads, err := w.store.GetActiveAds()
	if err != nil {
		return report, fmt.Errorf("failed to load ads: %w", err)
	}

	now := w.now()
	for _, ad := range ads {
		if ad.ExpireAt.IsZero() {
			continue
		}
		level := reminderLevel(ad.ExpireAt.Sub(now), ad.NotifyStatus)
		if level == "" {
			continue
		}

		notice := Notice{Level: level, Ad: ad, Text: reminderText(ad, level), Renewable: true}
		if err := w.notifyChannel(ctx, notice); err != nil {
			w.logger.Warn("Failed to send ad reminder", zap.Int64("autoId", ad.AutoID), zap.Error(err))
			continue
		}
		if ad.ManagerID != 0 {
			if err := w.notifier.Notify(ctx, ad.ManagerID, notice); err != nil {
				w.logger.Warn("Failed to notify manager",
					zap.Int64("managerId", ad.ManagerID), zap.Int64("autoId", ad.AutoID), zap.Error(err))
			}
		}

		ad.NotifyStatus = level
		if err := w.store.UpdateAd(&ad); err != nil {
			w.logger.Error("Failed to record reminder", zap.Int64("autoId", ad.AutoID), zap.Error(err))
			continue
		}
		metrics.AdNotifications.WithLabelValues(level).Inc()
		if level == database.NotifySent24h {
			report.Sent24h++
		} else {
			report.Sent12h++
		}
	}
	return report, nil
}

func reminderLevel(left time.Duration, status string) string {
	switch {
	case left > 12*time.Hour && left <= 24*time.Hour &&
		status != database.NotifySent24h && status != database.NotifySent12h:
		return database.NotifySent24h
	case left > 0 && left <= 12*time.Hour && status != database.NotifySent12h:
		return database.NotifySent12h
	}
	return ""
}

// Renew refreshes the expiry of a tracked ad after the manager extended it on AutoRIA
func (w *Watcher) Renew(ctx context.Context, autoID int64) (*database.TrackedAd, error) {
	ad, err := w.store.GetAd(autoID)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		return nil, ErrAdNotTracked
	}

	info, err := w.source.GetAdInfo(ctx, autoID)
	if err != nil {
		return nil, err
	}
	if info.ExpireAt.IsZero() {
		return nil, ErrNoExpiryDate
	}

	ad.ExpireAt = info.ExpireAt
	ad.Status = database.AdActive
	ad.NotifyStatus = database.NotifyRenewed
	if err := w.store.UpdateAd(ad); err != nil {
		return nil, fmt.Errorf("failed to update ad %d: %w", autoID, err)
	}
	w.logger.Info("Ad renewed", zap.Int64("autoId", autoID), zap.Time("expireAt", ad.ExpireAt))
	return ad, nil
}

// Check archives expired ads and then sends reminders
func (w *Watcher) Check(ctx context.Context) (Report, error) {
	archived, err := w.ArchiveExpired(ctx)
	if err != nil {
		return Report{}, err
	}
	report, err := w.NotifyUpcoming(ctx)
	report.Archived = archived
	return report, err
}

// Run checks ads every interval until ctx is done
func (w *Watcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := w.Check(ctx)
			if err != nil {
				w.logger.Error("Ad check failed", zap.Error(err))
				continue
			}
			w.logger.Info("Ad check complete",
				zap.Int("archived", report.Archived), zap.Int("sent24h", report.Sent24h), zap.Int("sent12h", report.Sent12h))
		}
	}
}

func (w *Watcher) notifyChannel(ctx context.Context, n Notice) error {
	if w.channelID == 0 {
		return nil
	}
	return w.notifier.Notify(ctx, w.channelID, n)
}

func describe(ad database.TrackedAd) (model, vin string) {
	model, vin = ad.Model, ad.VIN
	if model == "" {
		model = "Авто"
	}
	if vin == "" {
		vin = "N/A"
	}
	return html.EscapeString(model), html.EscapeString(vin)
}

func archivedText(ad database.TrackedAd) string {
	model, vin := describe(ad)
	text := fmt.Sprintf("🗂️ <b>В архіві</b>\nОголошення для <b>%s</b> (VIN: <code>%s</code>) переміщено в архів (термін дії минув).", model, vin)
	if ad.Link != "" {
		text += fmt.Sprintf("\n<a href=\"%s\">Відновити оголошення</a>", html.EscapeString(ad.Link))
	}
	return text
}

func reminderText(ad database.TrackedAd, level string) string {
	model, vin := describe(ad)
	var text string
	if level == database.NotifySent24h {
		text = fmt.Sprintf("🔔 <b>Увага!</b> ~24 години\nОголошення для <b>%s</b> (VIN: <code>%s</code>) буде в архіві завтра.", model, vin)
	} else {
		text = fmt.Sprintf("⏳ <b>Увага!</b> ~12 годин\nОголошення для <b>%s</b> (VIN: <code>%s</code>) буде в архіві сьогодні.", model, vin)
	}
	if ad.Link != "" {
		text += fmt.Sprintf("\n👉 <a href=\"%s\">Перейти до оголошення</a>", html.EscapeString(ad.Link))
	}
	return text
}
