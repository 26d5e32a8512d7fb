// Package bot is the Telegram conversation layer: client and staff menus,
// the calculator flow, the auction location browser and AutoRIA ad commands.
package bot

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/itransmotors/carbot/internal/adwatch"
	"github.com/itransmotors/carbot/internal/calculator"
	"github.com/itransmotors/carbot/internal/database"
)

// Sender is the subset of *tgbotapi.BotAPI the bot uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TariffSource returns the live tariff table
type TariffSource interface {
	Table() *calculator.Table
}

// StaffChecker decides who sees the staff menu
type StaffChecker interface {
	IsStaff(ctx context.Context, userID int64) bool
}

// CalculationStore persists saved staff calculations
type CalculationStore interface {
	SaveCalculation(c *database.Calculation) error
}

// SheetWriter appends rows to a spreadsheet tab
type SheetWriter interface {
	AppendRow(ctx context.Context, sheet string, row []string) error
}

// AdManager tracks and renews AutoRIA ads
type AdManager interface {
	Track(ctx context.Context, autoID int64, vin string, managerID int64) (*database.TrackedAd, error)
	Renew(ctx context.Context, autoID int64) (*database.TrackedAd, error)
	Check(ctx context.Context) (adwatch.Report, error)
}

// Deps are the collaborators of the bot. Store, Sheet and Ads are optional.
type Deps struct {
	API      Sender
	Sessions SessionStore
	Tariffs  TariffSource
	Staff    StaffChecker
	Store    CalculationStore
	Sheet    SheetWriter
	Ads      AdManager
	Logger   *zap.Logger
}

// Options configure texts and destinations
type Options struct {
	CalculationsSheet string
	Contacts          calculator.Contacts
}

// Bot handles Telegram updates
type Bot struct {
	api      Sender
	sessions SessionStore
	tariffs  TariffSource
	staff    StaffChecker
	store    CalculationStore
	sheet    SheetWriter
	ads      AdManager
	opts     Options
	logger   *zap.Logger
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
	wg      sync.WaitGroup
}

// New creates a bot
func New(deps Deps, opts Options) *Bot {
	return &Bot{
		api:      deps.API,
		sessions: deps.Sessions,
		tariffs:  deps.Tariffs,
		staff:    deps.Staff,
		store:    deps.Store,
		sheet:    deps.Sheet,
		ads:      deps.Ads,
		opts:     opts,
		logger:   deps.Logger,
		now:      time.Now,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Run handles updates until ctx is done or the channel closes, one goroutine per update.
// It waits for in-flight updates before returning.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate processes a single update. Updates of one user are serialized.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var userID, chatID int64
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		userID = update.CallbackQuery.From.ID
		if update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil {
			chatID = update.CallbackQuery.Message.Chat.ID
		}
	case update.Message != nil && update.Message.From != nil && update.Message.Chat != nil:
		userID = update.Message.From.ID
		chatID = update.Message.Chat.ID
	default:
		return
	}

	unlock := b.lockUser(userID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic while handling update",
				zap.Int64("userId", userID), zap.Any("panic", r), zap.Stack("stack"))
			if err := b.sessions.Clear(ctx, userID); err != nil {
				b.logger.Warn("Failed to clear session", zap.Int64("userId", userID), zap.Error(err))
			}
			if chatID != 0 {
				b.sendText(chatID, msgGenericError)
			}
		}
	}()

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	b.handleMessage(ctx, update.Message)
}

func (b *Bot) lockUser(userID int64) func() {
	b.locksMu.Lock()
	mu, ok := b.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		b.locks[userID] = mu
	}
	b.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID
	staff := b.staff.IsStaff(ctx, userID)

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, staff)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch text {
	case btnCalculate:
		b.startCalculation(ctx, chatID, userID, calculator.ModeClient)
		return
	case btnProCalculate:
		if staff {
			b.startCalculation(ctx, chatID, userID, calculator.ModePro)
		} else {
			b.sendText(chatID, msgNoAccess)
		}
		return
	case btnAuctions:
		b.sendAuctionChoice(chatID)
		return
	case btnContacts:
		b.sendContacts(chatID)
		return
	case btnCheckAds:
		if staff {
			b.checkAds(ctx, chatID)
		} else {
			b.sendText(chatID, msgNoAccess)
		}
		return
	}

	session, err := b.sessions.Load(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to load session", zap.Int64("userId", userID), zap.Error(err))
		b.sendText(chatID, msgGenericError)
		return
	}
	if session == nil || session.State == StateIdle {
		b.sendMenu(chatID, staff, msgChooseAction)
		return
	}
	b.step(ctx, chatID, userID, staff, session, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, staff bool) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.clearSession(ctx, userID)
		if staff {
			b.logger.Info("Staff member started the bot", zap.Int64("userId", userID))
			b.sendMenu(chatID, staff, "<b>Вітаю, "+escape(fullName(msg.From))+"!</b> 👋\n\nВи увійшли в робочу панель. Оберіть дію:")
			return
		}
		b.logger.Info("Client started the bot", zap.Int64("userId", userID))
		b.sendMenu(chatID, staff, msgClientWelcome)
	case "cancel":
		b.clearSession(ctx, userID)
		b.sendMenu(chatID, staff, msgCancelled)
	case "track":
		if !staff {
			b.sendText(chatID, msgNoAccess)
			return
		}
		b.trackAd(ctx, chatID, userID, msg.CommandArguments())
	case "ria_check":
		if !staff {
			b.sendText(chatID, msgNoAccess)
			return
		}
		b.checkAds(ctx, chatID)
	default:
		b.sendText(chatID, msgUnknownCommand)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	data := cq.Data
	if cq.Message == nil || cq.Message.Chat == nil {
		b.answer(cq.ID, "")
		return
	}
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID

	switch {
	case strings.HasPrefix(data, cbShowAuction):
		b.answer(cq.ID, "")
		auction, err := calculator.ParseAuction(strings.TrimPrefix(data, cbShowAuction))
		if err != nil {
			return
		}
		b.showLocationPage(chatID, messageID, auction, 0)

	case strings.HasPrefix(data, cbLocationPage):
		b.answer(cq.ID, "")
		auction, page, ok := parseLocationPage(data)
		if !ok {
			b.logger.Warn("Bad location page callback", zap.String("data", data))
			return
		}
		b.showLocationPage(chatID, messageID, auction, page)

	case strings.HasPrefix(data, cbRenew):
		if !b.staff.IsStaff(ctx, cq.From.ID) {
			b.answer(cq.ID, msgNoAccess)
			return
		}
		b.answer(cq.ID, "Перевіряю...")
		autoID, err := strconv.ParseInt(strings.TrimPrefix(data, cbRenew), 10, 64)
		if err != nil {
			b.sendText(chatID, "Помилка: Неправильний ID авто.")
			return
		}
		b.renewAd(ctx, chatID, autoID)

	default:
		b.answer(cq.ID, "")
	}
}

func (b *Bot) clearSession(ctx context.Context, userID int64) {
	if err := b.sessions.Clear(ctx, userID); err != nil {
		b.logger.Warn("Failed to clear session", zap.Int64("userId", userID), zap.Error(err))
	}
}

func (b *Bot) saveSession(ctx context.Context, chatID, userID int64, s *Session) bool {
	if err := b.sessions.Save(ctx, userID, s); err != nil {
		b.logger.Error("Failed to save session", zap.Int64("userId", userID), zap.Error(err))
		b.sendText(chatID, msgGenericError)
		return false
	}
	return true
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err))
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("Failed to send message", zap.Error(err))
	}
}

// sendText sends an HTML message
func (b *Bot) sendText(chatID int64, text string) {
	b.sendWithMarkup(chatID, text, nil)
}

func (b *Bot) sendWithMarkup(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	b.send(msg)
}

func (b *Bot) sendMenu(chatID int64, staff bool, text string) {
	b.sendWithMarkup(chatID, text, menuKeyboard(staff))
}

func (b *Bot) sendContacts(chatID int64) {
	c := b.opts.Contacts
	var sb strings.Builder
	sb.WriteString("<b>Наші контакти:</b>\n")
	if c.Phone != "" {
		sb.WriteString("\n📞 " + escape(c.Phone))
		if c.Name != "" {
			sb.WriteString(" - " + escape(c.Name))
		}
	}
	if c.Telegram != "" {
		sb.WriteString("\n📲 Telegram: " + escape(c.Telegram))
	}
	sb.WriteString("\n\nЧекаємо на ваш дзвінок або повідомлення!")
	b.sendText(chatID, sb.String())
}

func fullName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
