package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/itransmotors/carbot/internal/adwatch"
	"github.com/itransmotors/carbot/internal/autoria"
)

const (
	msgAdsDisabled  = "Auto.RIA не налаштовано."
	adDateLayout    = "02.01.2006 15:04"
	msgTrackUsage   = "Використання: /track &lt;auto_id&gt; [VIN]"
	msgRiaFetchFail = "❌ Не вдалося отримати оновлену інформацію з Auto.RIA. Можливо, оголошення видалено."
)

// trackAd handles /track <auto_id> [VIN]
func (b *Bot) trackAd(ctx context.Context, chatID, userID int64, args string) {
	if b.ads == nil {
		b.sendText(chatID, msgAdsDisabled)
		return
	}
	fields := strings.Fields(args)
	if len(fields) == 0 || len(fields) > 2 {
		b.sendText(chatID, msgTrackUsage)
		return
	}
	autoID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || autoID <= 0 {
		b.sendText(chatID, msgTrackUsage)
		return
	}
	var vin string
	if len(fields) == 2 {
		vin = strings.ToUpper(fields[1])
	}

	ad, err := b.ads.Track(ctx, autoID, vin, userID)
	switch {
	case err == nil:
		b.sendText(chatID, fmt.Sprintf("✅ Оголошення <b>%s</b> відстежується.\nДата закінчення: <b>%s</b>",
			escape(ad.Model), ad.ExpireAt.Format(adDateLayout)))
	case errors.Is(err, adwatch.ErrAdInactive):
		b.sendText(chatID, "❌ Оголошення неактивне на Auto.RIA.")
	case errors.Is(err, autoria.ErrNotFound):
		b.sendText(chatID, "❌ Оголошення не знайдено на Auto.RIA.")
	case errors.Is(err, adwatch.ErrNoExpiryDate):
		b.sendText(chatID, "❌ Помилка: RIA API не повернуло дату закінчення.")
	default:
		b.logger.Error("Failed to track ad", zap.Int64("autoId", autoID), zap.Error(err))
		b.sendText(chatID, msgRiaFetchFail)
	}
}

// renewAd re-reads the expiry after the manager extended the ad on AutoRIA
func (b *Bot) renewAd(ctx context.Context, chatID, autoID int64) {
	if b.ads == nil {
		b.sendText(chatID, msgAdsDisabled)
		return
	}

	ad, err := b.ads.Renew(ctx, autoID)
	switch {
	case err == nil:
		b.sendText(chatID, fmt.Sprintf("✅ Успішно оновлено!\nНова дата закінчення: <b>%s</b>", ad.ExpireAt.Format(adDateLayout)))
	case errors.Is(err, adwatch.ErrAdNotTracked):
		b.sendText(chatID, "Помилка: Не вдалося знайти це оголошення в базі даних для оновлення.")
	case errors.Is(err, adwatch.ErrNoExpiryDate):
		b.sendText(chatID, "❌ Помилка: RIA API не повернуло нову дату закінчення.")
	default:
		b.logger.Warn("Failed to renew ad", zap.Int64("autoId", autoID), zap.Error(err))
		b.sendText(chatID, msgRiaFetchFail)
	}
}

func (b *Bot) checkAds(ctx context.Context, chatID int64) {
	if b.ads == nil {
		b.sendText(chatID, msgAdsDisabled)
		return
	}
	b.sendText(chatID, "⏳ Перевіряю оголошення...")
	report, err := b.ads.Check(ctx)
	if err != nil {
		b.logger.Error("Ad check failed", zap.Error(err))
		b.sendText(chatID, "Сталася критична помилка під час перевірки сповіщень.")
		return
	}
	b.sendText(chatID, escape(report.String()))
}

// Notifier delivers ad watcher notices through the Telegram API
type Notifier struct {
	api Sender
}

// NewNotifier creates a notifier sending with api
func NewNotifier(api Sender) *Notifier {
	return &Notifier{api: api}
}

// Notify sends n to chatID. Renewable notices get a link to the ad and a renew button.
func (n *Notifier) Notify(_ context.Context, chatID int64, notice adwatch.Notice) error {
	msg := tgbotapi.NewMessage(chatID, notice.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if notice.Renewable && notice.Ad.AutoID != 0 && notice.Ad.Link != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🔄 Оновити на RIA та перевірити", notice.Ad.Link)),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Я вже оновив, перевір дату",
				cbRenew+strconv.FormatInt(notice.Ad.AutoID, 10))),
		)
	}
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to notify chat %d: %w", chatID, err)
	}
	return nil
}
