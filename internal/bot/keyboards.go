package bot

import (
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/itransmotors/carbot/internal/calculator"
)

// Menu buttons
const (
	btnCalculate    = "🧮 Калькулятор авто із США"
	btnProCalculate = "🧮 PRO Розрахунок"
	btnAuctions     = "📍 Список аукціонів"
	btnContacts     = "📞 Зв'язатися з нами"
	btnCheckAds     = "🚀 Перевірити оголошення Auto.RIA"
	btnOtherLoc     = "Інша локація (ввести текстом)"
	btnYes          = "Так"
	btnNo           = "Ні"
)

// Callback data prefixes
const (
	cbShowAuction  = "show_auction_"
	cbLocationPage = "locpage_"
	cbRenew        = "ria_renew_"
)

const (
	msgGenericError   = "Вибачте, сталася помилка. Спробуйте знову /start."
	msgNoAccess       = "⛔️ У вас немає доступу до цієї команди."
	msgChooseAction   = "Оберіть дію з меню:"
	msgCancelled      = "Дію скасовано. Повертаюся в головне меню."
	msgUnknownCommand = "Невідома команда. Скористайтесь /start."
	msgClientWelcome  = "<b>Вітаю!</b> 👋\n\nЯ - ваш персональний помічник від <b>iTrans Motors</b>.\n\nЧим можу допомогти?"
)

// locationButtons is how many locations the location step offers as buttons
const locationButtons = 20

func menuKeyboard(staff bool) tgbotapi.ReplyKeyboardMarkup {
	var kb tgbotapi.ReplyKeyboardMarkup
	if staff {
		kb = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnProCalculate), tgbotapi.NewKeyboardButton(btnCalculate)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAuctions), tgbotapi.NewKeyboardButton(btnCheckAds)),
		)
	} else {
		kb = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCalculate)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAuctions)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnContacts)),
		)
	}
	return kb
}

func auctionKeyboard() tgbotapi.ReplyKeyboardMarkup {
	row := tgbotapi.NewKeyboardButtonRow()
	for _, a := range calculator.Auctions() {
		row = append(row, tgbotapi.NewKeyboardButton(a.DisplayName()))
	}
	return tgbotapi.NewOneTimeReplyKeyboard(row)
}

func yesNoKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewOneTimeReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnYes), tgbotapi.NewKeyboardButton(btnNo)),
	)
}

func engineKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewOneTimeReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(calculator.Gasoline.Label()),
			tgbotapi.NewKeyboardButton(calculator.Diesel.Label()),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(calculator.Electric.Label()),
			tgbotapi.NewKeyboardButton(calculator.Hybrid.Label()),
		),
	)
}

// locationKeyboard offers the first locations of the auction, one per row
func locationKeyboard(locations []string) tgbotapi.ReplyKeyboardMarkup {
	if len(locations) > locationButtons {
		locations = locations[:locationButtons]
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(locations)+1)
	for _, loc := range locations {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(loc)))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnOtherLoc)))
	return tgbotapi.NewOneTimeReplyKeyboard(rows...)
}

func removeKeyboard() tgbotapi.ReplyKeyboardRemove {
	return tgbotapi.NewRemoveKeyboard(true)
}

func escape(s string) string {
	return html.EscapeString(s)
}
