package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/itransmotors/carbot/internal/calculator"
	"github.com/itransmotors/carbot/internal/database"
	"github.com/itransmotors/carbot/internal/metrics"
)

func (b *Bot) startCalculation(ctx context.Context, chatID, userID int64, mode calculator.Mode) {
	session := &Session{State: StateAuction, Request: calculator.Request{Mode: mode}}
	if !b.saveSession(ctx, chatID, userID, session) {
		return
	}
	b.sendWithMarkup(chatID, "Для якого аукціону робимо розрахунок?", auctionKeyboard())
}

// step advances the calculator conversation. Invalid input re-prompts the same step.
func (b *Bot) step(ctx context.Context, chatID, userID int64, staff bool, s *Session, text string) {
	switch s.State {
	case StateAuction:
		auction, err := calculator.ParseAuction(text)
		if err != nil {
			b.sendWithMarkup(chatID, "Будь ласка, оберіть аукціон за допомогою кнопок.", auctionKeyboard())
			return
		}
		s.Request.Auction = auction
		s.State = StateBid
		if b.saveSession(ctx, chatID, userID, s) {
			b.sendWithMarkup(chatID, "Введіть прогнозовану ставку (USD):", removeKeyboard())
		}

	case StateBid:
		bid, err := parseNumber(text)
		if err != nil {
			b.sendText(chatID, "Будь ласка, введіть числове значення, наприклад: 15000")
			return
		}
		if bid <= 0 {
			b.sendText(chatID, "Ставка має бути додатньою.")
			return
		}
		s.Request.Bid = bid
		s.State = StateLocation
		if b.saveSession(ctx, chatID, userID, s) {
			locations := b.tariffs.Table().Locations(s.Request.Auction)
			b.sendWithMarkup(chatID, "📍 Чудово! Тепер оберіть локацію аукціону:", locationKeyboard(locations))
		}

	case StateLocation:
		if text == btnOtherLoc {
			b.sendWithMarkup(chatID, "Введіть назву локації текстом:", removeKeyboard())
			return
		}
		key, ok := b.tariffs.Table().MatchLocation(s.Request.Auction, text)
		if !ok {
			b.sendText(chatID, fmt.Sprintf("Локацію '%s' не знайдено. Будь ласка, перевірте назву або скористайтесь кнопками зі списку.", escape(text)))
			return
		}
		if key != text {
			b.sendText(chatID, fmt.Sprintf("Знайдено локацію: <code>%s</code>. Продовжуємо розрахунок.", escape(key)))
		}
		s.Request.Location = key
		s.State = StateInsurance
		if b.saveSession(ctx, chatID, userID, s) {
			b.sendWithMarkup(chatID, "🛡️ Додати страхування?", yesNoKeyboard())
		}

	case StateInsurance:
		yes, ok := parseYesNo(text)
		if !ok {
			b.sendWithMarkup(chatID, "Оберіть 'Так' або 'Ні'.", yesNoKeyboard())
			return
		}
		s.Request.Insurance = yes
		s.State = StateYear
		if b.saveSession(ctx, chatID, userID, s) {
			b.sendWithMarkup(chatID, "📅 Майже готово! Введіть рік випуску авто (напр. 2018):", removeKeyboard())
		}

	case StateYear:
		year, err := strconv.Atoi(text)
		if err != nil {
			b.sendText(chatID, "Невірний формат. Введіть рік числом.")
			return
		}
		maxYear := b.now().Year() + 1
		if year < 1980 || year > maxYear {
			b.sendText(chatID, fmt.Sprintf("Введіть коректний рік (від 1980 до %d).", maxYear))
			return
		}
		s.Request.VehicleYear = year
		s.State = StateEngine
		if b.saveSession(ctx, chatID, userID, s) {
			b.sendWithMarkup(chatID, "⚙️ Останній крок! Оберіть тип двигуна:", engineKeyboard())
		}

	case StateEngine:
		engine, err := calculator.ParseEngineType(text)
		if err != nil {
			b.sendWithMarkup(chatID, "Будь ласка, оберіть тип двигуна за допомогою кнопок.", engineKeyboard())
			return
		}
		s.Request.Engine = engine
		s.Request.VolumeCC, s.Request.BatteryKWh = nil, nil
		switch engine {
		case calculator.Gasoline, calculator.Diesel:
			s.State = StateVolume
			if b.saveSession(ctx, chatID, userID, s) {
				b.sendWithMarkup(chatID, "Введіть об'єм двигуна в см³ (напр. 1998):", removeKeyboard())
			}
		case calculator.Electric:
			s.State = StateBattery
			if b.saveSession(ctx, chatID, userID, s) {
				b.sendWithMarkup(chatID, "Введіть ємність батареї в кВт-год (напр. 75): 🔌", removeKeyboard())
			}
		default:
			b.sendWithMarkup(chatID, "Для гібриду об'єм не потрібен. Рахую...", removeKeyboard())
			b.calculate(ctx, chatID, userID, staff, s)
		}

	case StateVolume:
		volume, err := parseNumber(text)
		if err != nil {
			b.sendText(chatID, "Невірний формат. Введіть число (напр. 1998).")
			return
		}
		if volume <= 0 {
			b.sendText(chatID, "Об'єм має бути додатнім.")
			return
		}
		s.Request.VolumeCC = &volume
		b.sendText(chatID, "⏳ Рахую вартість...")
		b.calculate(ctx, chatID, userID, staff, s)

	case StateBattery:
		capacity, err := parseNumber(text)
		if err != nil {
			b.sendText(chatID, "Невірний формат. Введіть число (напр. 75).")
			return
		}
		if capacity <= 0 {
			b.sendText(chatID, "Ємність має бути додатньою.")
			return
		}
		s.Request.BatteryKWh = &capacity
		b.sendText(chatID, "⏳ Рахую вартість...")
		b.calculate(ctx, chatID, userID, staff, s)

	case StateSaveChoice:
		yes, ok := parseYesNo(text)
		if !ok {
			b.sendWithMarkup(chatID, "Оберіть 'Так' або 'Ні'.", yesNoKeyboard())
			return
		}
		if !yes {
			b.clearSession(ctx, userID)
			b.sendMenu(chatID, staff, "Розрахунок не збережено.")
			return
		}
		s.State = StateSaveVIN
		if b.saveSession(ctx, chatID, userID, s) {
			b.sendWithMarkup(chatID, "Введіть ВІН-код автомобіля:", removeKeyboard())
		}

	case StateSaveVIN:
		s.VIN = strings.ToUpper(text)
		s.State = StateSaveModel
		if b.saveSession(ctx, chatID, userID, s) {
			b.sendText(chatID, "Введіть назву авто:")
		}

	case StateSaveModel:
		s.Model = text
		s.State = StateSaveClient
		if b.saveSession(ctx, chatID, userID, s) {
			b.sendText(chatID, "Введіть ім'я або контакт клієнта:")
		}

	case StateSaveClient:
		b.saveCalculation(ctx, chatID, userID, staff, s, text)

	default:
		b.clearSession(ctx, userID)
		b.sendMenu(chatID, staff, msgChooseAction)
	}
}

// calculate runs the calculation for a completed request and renders the report
func (b *Bot) calculate(ctx context.Context, chatID, userID int64, staff bool, s *Session) {
	req := s.Request
	// pro mode is only honoured for staff, even from a stale session
	if req.Mode == calculator.ModePro && !staff {
		req.Mode = calculator.ModeClient
	}

	result, err := calculator.Calculate(req, b.tariffs.Table(), b.now())
	if err != nil {
		b.handleCalculationError(ctx, chatID, userID, staff, s, err)
		return
	}
	metrics.Calculations.WithLabelValues(string(req.Mode), string(req.Auction), metrics.OutcomeOK).Inc()
	b.logger.Info("Calculation complete",
		zap.Int64("userId", userID),
		zap.String("mode", string(req.Mode)),
		zap.String("location", req.Location),
		zap.Float64("total", result.Total))

	if req.Mode != calculator.ModePro {
		b.clearSession(ctx, userID)
		b.sendMenu(chatID, staff, calculator.ClientReport(result, b.opts.Contacts))
		return
	}

	b.sendText(chatID, calculator.ProReport(result))
	if b.store == nil && b.sheet == nil {
		b.clearSession(ctx, userID)
		b.sendMenu(chatID, staff, msgChooseAction)
		return
	}
	s.Result = result
	s.State = StateSaveChoice
	if b.saveSession(ctx, chatID, userID, s) {
		b.sendWithMarkup(chatID, "Зберегти цей розрахунок?", yesNoKeyboard())
	}
}

func (b *Bot) handleCalculationError(ctx context.Context, chatID, userID int64, staff bool, s *Session, err error) {
	req := s.Request
	var verr *calculator.ValidationError
	switch {
	case errors.As(err, &verr):
		metrics.Calculations.WithLabelValues(string(req.Mode), string(req.Auction), metrics.OutcomeInvalid).Inc()
		b.logger.Warn("Calculation rejected", zap.Int64("userId", userID), zap.Error(err))
		if state, prompt, ok := repromptFor(verr.Field); ok {
			s.State = state
			if b.saveSession(ctx, chatID, userID, s) {
				b.sendWithMarkup(chatID, prompt, removeKeyboard())
			}
			return
		}
	case errors.Is(err, calculator.ErrLocationNotFound):
		metrics.Calculations.WithLabelValues(string(req.Mode), string(req.Auction), metrics.OutcomeLocationNotFound).Inc()
		b.clearSession(ctx, userID)
		b.sendMenu(chatID, staff, fmt.Sprintf("Не вдалося розрахувати доставку з %s.", escape(req.Location)))
		return
	default:
		metrics.Calculations.WithLabelValues(string(req.Mode), string(req.Auction), metrics.OutcomeError).Inc()
		b.logger.Error("Calculation failed", zap.Int64("userId", userID), zap.Error(err))
	}
	b.clearSession(ctx, userID)
	b.sendText(chatID, msgGenericError)
}

// repromptFor maps a rejected request field back to the step that collects it
func repromptFor(field string) (State, string, bool) {
	switch field {
	case "bid":
		return StateBid, "Введіть прогнозовану ставку (USD):", true
	case "vehicleYear":
		return StateYear, "Введіть рік випуску авто (напр. 2018):", true
	case "engineVolumeCc":
		return StateVolume, "Введіть об'єм двигуна в см³ (напр. 1998):", true
	case "batteryCapacityKwh":
		return StateBattery, "Введіть ємність батареї в кВт-год (напр. 75): 🔌", true
	}
	return StateIdle, "", false
}

// saveCalculation stores the pro result in sqlite and appends it to the calculations sheet
func (b *Bot) saveCalculation(ctx context.Context, chatID, userID int64, staff bool, s *Session, client string) {
	defer b.clearSession(ctx, userID)

	if s.Result == nil {
		b.sendMenu(chatID, staff, "❌ Помилка збереження.")
		return
	}

	payload, err := json.Marshal(s.Result)
	if err != nil {
		b.logger.Error("Failed to encode calculation", zap.Error(err))
		b.sendMenu(chatID, staff, "❌ Помилка збереження.")
		return
	}
	calc := &database.Calculation{
		Ref:           uuid.NewString(),
		StaffID:       userID,
		VIN:           s.VIN,
		Model:         s.Model,
		ClientContact: client,
		Auction:       string(s.Result.Request.Auction),
		Location:      s.Result.Request.Location,
		Bid:           s.Result.Request.Bid,
		TotalCost:     s.Result.Total,
		Payload:       payload,
		CreatedAt:     b.now(),
	}

	if b.store != nil {
		if err := b.store.SaveCalculation(calc); err != nil {
			b.logger.Error("Failed to save calculation", zap.Int64("userId", userID), zap.Error(err))
			b.sendMenu(chatID, staff, "❌ Помилка збереження.")
			return
		}
	}

	if b.sheet != nil {
		if err := b.sheet.AppendRow(ctx, b.opts.CalculationsSheet, calculationRow(calc)); err != nil {
			b.logger.Error("Failed to append calculation row", zap.String("sheet", b.opts.CalculationsSheet), zap.Error(err))
			if b.store != nil {
				b.sendMenu(chatID, staff, "⚠️ Збережено в базі, але не вдалося додати рядок у таблицю.")
			} else {
				b.sendMenu(chatID, staff, "❌ Помилка збереження.")
			}
			return
		}
	}

	b.logger.Info("Calculation saved", zap.String("ref", calc.Ref), zap.String("vin", calc.VIN))
	b.sendMenu(chatID, staff, "✅ Успішно збережено!")
}

func calculationRow(c *database.Calculation) []string {
	return []string{
		c.CreatedAt.Format("2006-01-02 15:04:05"),
		c.VIN,
		c.Model,
		fmt.Sprintf("%.2f", c.TotalCost),
		"Розрахунок для: " + c.ClientContact,
		c.Auction,
		c.Location,
		c.Ref,
	}
}

var errNotFinite = errors.New("not a finite number")

// parseNumber accepts a decimal comma and ignores spaces and a dollar sign.
// NaN and infinities are rejected.
func parseNumber(s string) (float64, error) {
	s = strings.NewReplacer(" ", "", "$", "", ",", ".").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

func parseYesNo(s string) (yes, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "так":
		return true, true
	case "ні":
		return false, true
	}
	return false, false
}
