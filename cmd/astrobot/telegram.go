package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/birth"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/store"
)

// messenger is the part of *bot.Bot the application talks to.
type messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
}

type webhookSetter interface {
	SetWebhook(ctx context.Context, params *bot.SetWebhookParams) (bool, error)
}

const callbackFullReport = "full_report"

const (
	msgStart = "👋 Привет! Я составлю вашу натальную карту.\n\n" +
		"Отправьте дату, время и город рождения одним сообщением, например:\n" +
		"07.10.1990 14:30 Казань"
	msgHelp = "ℹ️ Формат: ДД.ММ.ГГГГ ЧЧ:ММ Город\n" +
		"Например: 07.10.1990 14:30 Казань\n\n" +
		"/me - сохранённые данные\n" +
		"Кнопка «Полный разбор» под картой присылает расширенный PDF-отчёт."
	msgQueued       = "✅ Данные приняты. Считаю карту..."
	msgBusy         = "⏳ Ваш предыдущий запрос ещё обрабатывается. Дождитесь результата."
	msgOverloaded   = "⚠️ Сейчас слишком много запросов. Попробуйте через минуту."
	msgUnknown      = "❓ Неизвестная команда. Наберите /help."
	msgNoBirthData  = "📝 Сначала отправьте данные рождения: ДД.ММ.ГГГГ ЧЧ:ММ Город"
	msgAdminOnly    = "⛔ Команда доступна только администраторам."
	msgGrantUsage   = "Использование: /grant <id пользователя>"
	msgReportQueued = "📜 Готовлю расширенный разбор..."
)

// TelegramRequest is a unit of work passed from the handlers to the main
// loop.
type TelegramRequest struct {
	ID     string
	Kind   requestKind
	ChatID int64
	UserID int64
	Birth  birth.Input
}

type requestKind int

const (
	requestChart requestKind = iota
	requestFullReport
)

func (k requestKind) String() string {
	if k == requestFullReport {
		return "report"
	}
	return "chart"
}

// newTelegramBot registers command and callback handlers on a new client.
func (app *application) newTelegramBot() (*bot.Bot, error) {
	tg := app.config.Telegram
	if tg.Token == "" {
		return nil, errors.New("telegram token is missing: set telegram.token or TELEGRAM_BOT_TOKEN")
	}
	opts := []bot.Option{
		bot.WithDefaultHandler(app.handleText),
		bot.WithCallbackQueryDataHandler(callbackFullReport, bot.MatchTypeExact, app.handleFullReportCallback),
	}
	if tg.WebhookSecret != "" {
		opts = append(opts, bot.WithWebhookSecretToken(tg.WebhookSecret))
	}
	b, err := bot.New(tg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, app.handleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, app.handleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/me", bot.MatchTypeExact, app.handleMe)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/grant", bot.MatchTypePrefix, app.handleGrant)
	return b, nil
}

// startDelivery blocks receiving updates by long polling, or by webhook when
// a webhook URL is configured.
func (app *application) startDelivery(ctx context.Context, b *bot.Bot) error {
	tg := app.config.Telegram
	if tg.WebhookURL == "" {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
			app.LogError("delete webhook", err)
		}
		b.Start(ctx)
		return nil
	}

	if err := registerWebhook(ctx, b, tg.WebhookURL, tg.WebhookSecret, tg.WebhookAttempts, 2*time.Second); err != nil {
		return err
	}
	srv := &http.Server{Addr: tg.WebhookListen, Handler: b.WebhookHandler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	go b.StartWebhook(ctx)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook server: %w", err)
	}
	return nil
}

// registerWebhook calls setWebhook up to attempts times, waiting
// backoff*attempt between tries.
func registerWebhook(ctx context.Context, s webhookSetter, url, secret string, attempts int, backoff time.Duration) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ok, err := s.SetWebhook(ctx, &bot.SetWebhookParams{URL: url, SecretToken: secret})
		if err == nil && ok {
			return nil
		}
		if err == nil {
			err = errors.New("telegram refused the webhook")
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("set webhook after %d attempts: %w", attempts, lastErr)
}

// sendText sends text and logs failures; chat delivery is best effort.
func (app *application) sendText(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	_, err := app.telegramBot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		app.LogError(fmt.Sprintf("[chat %d] send message", chatID), err)
	}
}

func (app *application) sendDocument(ctx context.Context, chatID int64, path, filename, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if filename == "" {
		filename = filepath.Base(path)
	}
	_, err = app.telegramBot.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: filename, Data: f},
		Caption:  caption,
	})
	return err
}

// Single button offering the extended report.
func fullReportKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "📜 Полный разбор", CallbackData: callbackFullReport}},
		},
	}
}

// enqueue hands req to the main loop without blocking the update handler.
func (app *application) enqueue(ctx context.Context, req TelegramRequest) bool {
	select {
	case app.requests <- req:
		return true
	default:
		app.sendText(ctx, req.ChatID, msgOverloaded, nil)
		return false
	}
}

func (app *application) handleStart(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	app.sendText(ctx, update.Message.Chat.ID, msgStart, nil)
}

func (app *application) handleHelp(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	app.sendText(ctx, update.Message.Chat.ID, msgHelp, nil)
}

func (app *application) handleMe(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	rec, err := app.store.Get(ctx, msg.From.ID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !rec.HasBirthData()) {
		app.sendText(ctx, msg.Chat.ID, msgNoBirthData, nil)
		return
	}
	if err != nil {
		app.LogError(fmt.Sprintf("[user %d] load record", msg.From.ID), err)
		app.sendText(ctx, msg.Chat.ID, msgFailed, nil)
		return
	}
	app.sendText(ctx, msg.Chat.ID, describeRecord(rec), nil)
}

func describeRecord(rec store.UserRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🗂 Ваши данные\nДата: %s %s\nМесто: %s\n", rec.BirthDate, rec.BirthTime, rec.Place)
	if rec.Ascendant != "" {
		fmt.Fprintf(&b, "Асцендент: %s\n", rec.Ascendant)
	}
	if rec.Subscribed {
		b.WriteString("Подписка: активна\n")
	}
	fmt.Fprintf(&b, "Расширенных отчётов: %d", rec.Reports)
	return b.String()
}

func (app *application) handleGrant(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !app.config.IsAdmin(msg.From.ID) {
		app.sendText(ctx, msg.Chat.ID, msgAdminOnly, nil)
		return
	}
	fields := strings.Fields(msg.Text)
	if len(fields) != 2 {
		app.sendText(ctx, msg.Chat.ID, msgGrantUsage, nil)
		return
	}
	userID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || userID <= 0 {
		app.sendText(ctx, msg.Chat.ID, msgGrantUsage, nil)
		return
	}
	_, err = store.Update(ctx, app.store, userID, func(r *store.UserRecord) error {
		r.Subscribed = true
		return nil
	})
	if err != nil {
		app.LogError(fmt.Sprintf("[user %d] grant", userID), err)
		app.sendText(ctx, msg.Chat.ID, msgFailed, nil)
		return
	}
	app.LogInfo(fmt.Sprintf("Admin %d granted subscription to %d", msg.From.ID, userID))
	app.sendText(ctx, msg.Chat.ID, fmt.Sprintf("✅ Подписка выдана пользователю %d.", userID), nil)
}

// handleText treats any other message as birth data.
func (app *application) handleText(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.From == nil {
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		app.sendText(ctx, msg.Chat.ID, msgUnknown, nil)
		return
	}

	in, err := birth.Parse(msg.Text)
	if err != nil {
		app.sendText(ctx, msg.Chat.ID, birthErrorMessage(err), nil)
		return
	}
	req := TelegramRequest{
		ID:     uuid.NewString(),
		Kind:   requestChart,
		ChatID: msg.Chat.ID,
		UserID: msg.From.ID,
		Birth:  in,
	}
	if app.enqueue(ctx, req) {
		app.sendText(ctx, msg.Chat.ID, msgQueued, nil)
	}
}

func birthErrorMessage(err error) string {
	switch {
	case errors.Is(err, birth.ErrDate):
		return "❌ Такой даты не существует. Проверьте день, месяц и год."
	case errors.Is(err, birth.ErrTime):
		return "❌ Время указано неверно. Используйте формат ЧЧ:ММ, например 14:30."
	case errors.Is(err, birth.ErrCity):
		return "❌ Не указан город рождения. Пример: 07.10.1990 14:30 Казань"
	default:
		return "❌ Не удалось разобрать сообщение.\n" + msgHelp
	}
}

func (app *application) handleFullReportCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	// The button only needs acknowledging; the report worker posts its own
	// status once access is checked.
	if _, err := app.telegramBot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cq.ID,
	}); err != nil {
		app.LogError(fmt.Sprintf("[user %d] answer callback", cq.From.ID), err)
	}

	chatID := cq.From.ID
	if cq.Message.Message != nil {
		chatID = cq.Message.Message.Chat.ID
	}
	app.enqueue(ctx, TelegramRequest{
		ID:     uuid.NewString(),
		Kind:   requestFullReport,
		ChatID: chatID,
		UserID: cq.From.ID,
	})
}
