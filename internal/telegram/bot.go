// Package telegram runs the chat front end: it answers text commands from
// accepted chats and delivers reminders and git failure notices to them.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageLen is Telegram's limit for a single text message.
const maxMessageLen = 4096

// Processor answers one text command.
type Processor interface {
	ProcessCommand(ctx context.Context, input string) (string, error)
}

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Config holds the bot settings.
type Config struct {
	Token           string
	AcceptedChatIDs []int64
	PollTimeout     int // long-poll timeout in seconds
}

var commands = []tgbotapi.BotCommand{
	{Command: "ls", Description: "List all ToDos [in section]. Use: /ls [section]"},
	{Command: "sections", Description: "List sections"},
	{Command: "add", Description: "Add ToDo. Use: /add <section> <ToDo>"},
	{Command: "done", Description: "Mark complete. Use: /done <number...>"},
	{Command: "move", Description: "Reorder. Use: /move <number> up|down"},
	{Command: "pull", Description: "Force git pull"},
	{Command: "push", Description: "Force git commit and push"},
}

// Bot is a long-polling Telegram bot.
type Bot struct {
	api         API
	proc        Processor
	logger      *slog.Logger
	accepted    map[int64]bool
	chats       []int64
	pollTimeout int
}

// New connects to Telegram with cfg.Token.
func New(cfg Config, proc Processor, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	logger.Info("telegram: connected", slog.String("bot", api.Self.UserName))
	return NewWithAPI(api, cfg, proc, logger), nil
}

// NewWithAPI builds a bot on an existing API client.
func NewWithAPI(api API, cfg Config, proc Processor, logger *slog.Logger) *Bot {
	b := &Bot{
		api:         api,
		proc:        proc,
		logger:      logger,
		accepted:    make(map[int64]bool, len(cfg.AcceptedChatIDs)),
		pollTimeout: cfg.PollTimeout,
	}
	for _, id := range cfg.AcceptedChatIDs {
		if !b.accepted[id] {
			b.accepted[id] = true
			b.chats = append(b.chats, id)
		}
	}
	if b.pollTimeout <= 0 {
		b.pollTimeout = 60
	}
	return b
}

// Run receives updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		b.logger.Warn("telegram: register commands failed", slog.String("error", err.Error()))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info("telegram: listening", slog.Int("accepted_chats", len(b.chats)))
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				b.handle(ctx, update.Message)
			}
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	if !b.accepted[chatID] {
		b.logger.Warn("telegram: message from unknown chat ignored", slog.Int64("chat_id", chatID))
		return
	}
	b.logger.Info("telegram: command received",
		slog.Int64("chat_id", chatID),
		slog.String("text", msg.Text))

	reply, err := b.proc.ProcessCommand(ctx, msg.Text)
	if err != nil {
		reply = "Error: " + err.Error()
	}
	if err := b.send(chatID, reply); err != nil {
		b.logger.Error("telegram: reply failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()))
	}
}

// SendReminder delivers a due reminder to every accepted chat.
func (b *Bot) SendReminder(_ context.Context, text string) error {
	return b.broadcast("Reminder: " + text)
}

// NotifyGitFailure tells every accepted chat a git operation needs a manual
// fix.
func (b *Bot) NotifyGitFailure(op string, err error) {
	msg := fmt.Sprintf("Git op fail, manual fix will be needed (%s): %v", op, err)
	if sendErr := b.broadcast(msg); sendErr != nil {
		b.logger.Error("telegram: git failure notice not delivered", slog.String("error", sendErr.Error()))
	}
}

func (b *Bot) broadcast(text string) error {
	if len(b.chats) == 0 {
		return errors.New("telegram: no accepted chats configured")
	}
	var errs []error
	for _, id := range b.chats {
		if err := b.send(id, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) send(chatID int64, text string) error {
	if strings.TrimSpace(text) == "" {
		text = "<empty>"
	}
	for _, part := range split(text, maxMessageLen) {
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			return err
		}
	}
	return nil
}

// split breaks text into pieces of at most limit bytes, preferring line
// boundaries and never cutting a rune.
func split(text string, limit int) []string {
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n') + 1
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	return append(parts, text)
}
