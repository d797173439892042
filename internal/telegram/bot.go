// Package telegram serves the planning session as a Telegram bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
)

const (
	statsDays      = 7
	commandTimeout = 1 * time.Minute
)

// Importer clips a recipe page into the catalog.
type Importer interface {
	ImportRecipe(ctx context.Context, url string) (*recipe.Recipe, error)
}

// Stats summarizes API call metrics.
type Stats interface {
	GetDailySummary(ctx context.Context, days int) ([]metrics.DailySummary, error)
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Deps are the collaborators of a Bot. Importer, Stats and Health may be nil.
type Deps struct {
	Session  *app.Session
	Importer Importer
	Stats    Stats
	Health   func() metrics.SysHealth
	Logger   *zap.Logger
}

// Bot wraps the Telegram API and the planning session.
type Bot struct {
	api      *tgbotapi.BotAPI
	send     sender
	session  *app.Session
	importer Importer
	stats    Stats
	health   func() metrics.SysHealth
	allowed  map[int64]bool
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, deps Deps) (*Bot, error) {
	ids, err := cfg.Telegram.AllowedUserIDs()
	if err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	deps.Logger.Info("Authorized on account", zap.String("username", api.Self.UserName))

	webhookURL := cfg.Telegram.WebhookURL
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", webhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	deps.Logger.Info("Webhook set", zap.String("description", resp.Description))

	b := newBot(api, ids, deps)
	b.api = api
	return b, nil
}

func newBot(send sender, allowedIDs []int64, deps Deps) *Bot {
	allowed := make(map[int64]bool, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = true
	}
	return &Bot{
		send:     send,
		session:  deps.Session,
		importer: deps.Importer,
		stats:    deps.Stats,
		health:   deps.Health,
		allowed:  allowed,
		logger:   deps.Logger,
	}
}

// RegisterHandlers registers the webhook handler on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Wait blocks until every message being processed has been answered.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("Error parsing update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.allowed[msg.From.ID] {
		b.logger.Warn("Unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.UserName))
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.processMessage(msg)
	}()
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	text := strings.TrimSpace(msg.Text)
	if isURL(text) {
		b.handleClipperRequest(ctx, msg.Chat.ID, text)
		return
	}
	b.sendMarkdown(msg.Chat.ID, b.reply(ctx, text))
}

func (b *Bot) handleClipperRequest(ctx context.Context, chatID int64, url string) {
	if b.importer == nil {
		b.sendMarkdown(chatID, "Recipe import is not enabled.")
		return
	}

	status := tgbotapi.NewMessage(chatID, "✂️ *Clipping recipe...*")
	status.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.send.Send(status)
	if err != nil {
		b.logger.Warn("Failed to send initial reply", zap.Error(err))
		return
	}

	var finalText string
	rec, err := b.importer.ImportRecipe(ctx, url)
	if err != nil {
		b.logger.Warn("Error clipping recipe", zap.String("url", url), zap.Error(err))
		finalText = formatError("clipping recipe", err)
	} else {
		finalText = formatImported(rec)
	}

	edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID, finalText)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.send.Send(edit); err != nil {
		b.logger.Warn("Failed to edit reply", zap.Error(err))
	}
}

// reply runs a command and returns the Markdown answer.
func (b *Bot) reply(ctx context.Context, text string) string {
	cmd, args := parseCommand(text)
	switch cmd {
	case "/start", "/help", "":
		return helpText
	case "/week":
		day := b.session.Today()
		if len(args) > 0 {
			d, err := planner.ParseDate(args[0])
			if err != nil {
				return "Dates look like 2024-03-04."
			}
			day = d
		}
		return formatWeek(b.session.Week(day))
	case "/shopping":
		return formatShoppingList(b.session.ShoppingList())
	case "/suggest":
		return formatSuggestions(b.session.Suggestions(args))
	case "/assign":
		return b.assign(ctx, args)
	case "/dislike", "/undislike", "/pantry", "/unpantry":
		return b.updateTokens(ctx, cmd, args)
	case "/refresh":
		if err := b.session.RefreshAround(ctx, b.session.Today()); err != nil {
			if errors.Is(err, app.ErrSuperseded) {
				return "Another refresh is already running."
			}
			return formatError("refreshing", err)
		}
		st := b.session.Status()
		return fmt.Sprintf("🔄 Refreshed: %d recipes, %d planned slots.", st.Recipes, st.Plans)
	case "/stats":
		return b.statsReport(ctx)
	default:
		return "Unknown command. Send /help for the list."
	}
}

func (b *Bot) assign(ctx context.Context, args []string) string {
	if len(args) != 3 {
		return "Usage: /assign <date> <slot> <recipe-id>"
	}
	a, err := b.session.Assign(ctx, args[0], args[1], args[2])
	if err != nil {
		switch {
		case errors.Is(err, planner.ErrInvalidDate), errors.Is(err, planner.ErrInvalidSlot), errors.Is(err, planner.ErrMissingRecipe):
			return esc(err.Error())
		default:
			// The local plan keeps the change.
			return formatError("saving plan", err)
		}
	}

	name := a.RecipeID
	if r, ok := b.session.Recipe(a.RecipeID); ok {
		name = r.Name
	}
	return fmt.Sprintf("✅ %s %s: %s", a.Date, slotTitle(a.Slot), esc(name))
}

func (b *Bot) updateTokens(ctx context.Context, cmd string, args []string) string {
	token := strings.Join(args, " ")
	if token == "" {
		p := b.session.Preferences()
		if cmd == "/pantry" || cmd == "/unpantry" {
			return formatTokens("Pantry", p.Pantry)
		}
		return formatTokens("Dislikes", p.Dislikes)
	}

	var err error
	switch cmd {
	case "/dislike":
		_, err = b.session.AddDislike(ctx, token)
	case "/undislike":
		_, err = b.session.RemoveDislike(ctx, token)
	case "/pantry":
		_, err = b.session.AddPantry(ctx, token)
	case "/unpantry":
		_, err = b.session.RemovePantry(ctx, token)
	}
	if err != nil {
		return formatError("saving preferences", err)
	}

	p := b.session.Preferences()
	if cmd == "/pantry" || cmd == "/unpantry" {
		return formatTokens("Pantry", p.Pantry)
	}
	return formatTokens("Dislikes", p.Dislikes)
}

func (b *Bot) statsReport(ctx context.Context) string {
	var usage []metrics.DailySummary
	if b.stats != nil {
		var err error
		usage, err = b.stats.GetDailySummary(ctx, statsDays)
		if err != nil {
			return "❌ Error fetching metrics."
		}
	}
	var health metrics.SysHealth
	if b.health != nil {
		health = b.health()
	}
	return formatStats(usage, health, b.session.Status())
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.send.Send(msg); err != nil {
		b.logger.Warn("Failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// parseCommand splits "/cmd@botname a b" into "/cmd" and its arguments.
// Text that is not a command yields an empty command.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd, fields[1:]
}

func isURL(text string) bool {
	return strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://")
}
