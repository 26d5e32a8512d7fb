package calculator

import (
	"fmt"
	"html"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Money formats an amount as $12,345.67
func Money(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// Contacts are the manager details printed under client quotes
type Contacts struct {
	Phone    string
	Name     string
	Telegram string
}

// ProReport renders the itemized cost breakdown for staff as Telegram HTML
func ProReport(r *Result) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	code := func(v float64) string {
		return "<code>" + Money(v) + "</code>"
	}

	line("<b>PRO РОЗРАХУНОК (СОБІВАРТІСТЬ)</b>")
	line("<i>Аукціон: %s</i>", strings.ToUpper(r.Request.Auction.DisplayName()))
	line("")

	line("<b>1. Витрати в США:</b>")
	line(" • Ставка: %s", code(r.Request.Bid))
	line(" • <b>Збори аукціону (Разом: %s):</b>", code(r.AuctionFees.Total))
	for _, item := range r.AuctionFees.Items() {
		line("    - %s: %s", item.Name, code(item.Amount))
	}
	line(" • Доставка по США (%s): %s", html.EscapeString(r.Request.Location), code(r.ShippingToPort))
	line(" • SWIFT (3%%): %s", code(r.SwiftFee))
	line(" • Страхування (2%%): %s", code(r.Insurance))
	line("")

	line("<b>2. Логістика:</b>")
	line(" • Доставка морем (%s): %s", html.EscapeString(r.Port), code(r.OceanFreight))
	line("")

	line("<b>3. Розмитнення (Разом: %s):</b>", code(r.Customs.Total))
	line(" • Мито: %s", code(r.Customs.Duty))
	line(" • Акциз: %s", code(r.Customs.Excise))
	line(" • ПДВ: %s", code(r.Customs.VAT))
	line(" • Брокер: %s", code(r.Customs.BrokerFee))
	line("")

	line("<b>4. Інші послуги (без комісії):</b>")
	for _, item := range r.FixedCosts {
		line(" • %s: %s", item.Name, code(item.Amount))
	}
	line("――――――――――――――――――")
	b.WriteString("<b>ЗАГАЛЬНА СОБІВАРТІСТЬ:</b> " + code(r.Total))
	return b.String()
}

// ClientReport renders the turnkey total shown to clients as Telegram HTML
func ClientReport(r *Result, c Contacts) string {
	var b strings.Builder
	b.WriteString("🎉 <b>Ваш розрахунок готовий!</b> 🎉\n\n")
	b.WriteString("Орієнтовна вартість авто в Україні \"під ключ\":\n")
	fmt.Fprintf(&b, "💵 <b>%s</b> 💵\n\n", Money(r.Total))
	b.WriteString("✅ <b>У вартість входить:</b>\n")
	b.WriteString("  - Послуги компанії, покупка, доставка\n")
	b.WriteString("  - Розмитнення, усі збори та комісії\n\n")
	b.WriteString("⚠️ <b>У вартість НЕ входить ремонт.</b>\n\n")
	b.WriteString("Для детальної консультації звертайтесь:")
	if c.Phone != "" {
		phone := html.EscapeString(c.Phone)
		if c.Name != "" {
			phone += " (" + html.EscapeString(c.Name) + ")"
		}
		fmt.Fprintf(&b, "\n📞 <b>%s</b>", phone)
	}
	if c.Telegram != "" {
		fmt.Fprintf(&b, "\n📲 <b>Telegram:</b> %s", html.EscapeString(c.Telegram))
	}
	return b.String()
}
