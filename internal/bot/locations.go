package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/itransmotors/carbot/internal/calculator"
)

const locationsPerPage = 30

func (b *Bot) sendAuctionChoice(chatID int64) {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Аукціони Copart 🔵", cbShowAuction+string(calculator.Copart))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Аукціони IAAI 🟡", cbShowAuction+string(calculator.IAAI))),
	)
	b.sendWithMarkup(chatID, "Оберіть, список яких аукціонів ви хочете переглянути:", markup)
}

func (b *Bot) showLocationPage(chatID int64, messageID int, auction calculator.Auction, page int) {
	text, markup := locationPage(b.tariffs.Table(), auction, page)

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = markup
	if _, err := b.api.Send(edit); err != nil {
		// the page on screen was requested again
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		b.logger.Warn("Failed to show location page",
			zap.String("auction", string(auction)), zap.Int("page", page), zap.Error(err))
	}
}

// locationPage renders one page of an auction's locations with prev/next buttons.
// Out-of-range pages are clamped.
func locationPage(table *calculator.Table, auction calculator.Auction, page int) (string, *tgbotapi.InlineKeyboardMarkup) {
	name := strings.ToUpper(auction.DisplayName())
	locations := table.Locations(auction)
	if len(locations) == 0 {
		return fmt.Sprintf("Список для %s порожній.", name), nil
	}

	totalPages := (len(locations) + locationsPerPage - 1) / locationsPerPage
	page = max(0, min(page, totalPages-1))
	start := page * locationsPerPage
	end := min(start+locationsPerPage, len(locations))

	var sb strings.Builder
	fmt.Fprintf(&sb, "📜 <b>Список локацій %s (Сторінка %d з %d)</b>:\n", name, page+1, totalPages)
	prefix := auction.DisplayName() + ": "
	for _, key := range locations[start:end] {
		fmt.Fprintf(&sb, "\n📍 <code>%s</code>", escape(strings.TrimPrefix(key, prefix)))
	}

	var row []tgbotapi.InlineKeyboardButton
	if page > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️ Попередня", locationPageData(auction, page-1)))
	}
	if page < totalPages-1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Наступна ➡️", locationPageData(auction, page+1)))
	}
	if len(row) == 0 {
		return sb.String(), nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	return sb.String(), &markup
}

func locationPageData(auction calculator.Auction, page int) string {
	return cbLocationPage + string(auction) + "_" + strconv.Itoa(page)
}

// parseLocationPage decodes locpage_<auction>_<page>
func parseLocationPage(data string) (calculator.Auction, int, bool) {
	parts := strings.Split(strings.TrimPrefix(data, cbLocationPage), "_")
	if len(parts) != 2 {
		return "", 0, false
	}
	auction, err := calculator.ParseAuction(parts[0])
	if err != nil {
		return "", 0, false
	}
	page, err := strconv.Atoi(parts[1])
	if err != nil || page < 0 {
		return "", 0, false
	}
	return auction, page, true
}
