// Package telegram delivers reminders to a Telegram chat and answers a few
// status commands there.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/notify"
	"github.com/gmsas95/medreminder/internal/reminder"
)

const maxMessageLength = 4096

// Lister reports the registered reminders for the /reminders command
type Lister interface {
	List(ctx context.Context) ([]reminder.Scheduled, error)
}

// Config holds Telegram bot configuration
type Config struct {
	Token   string
	ChatID  int64
	Enabled bool

	// PreDoseMinutes is quoted in /help; zero means no early reminder
	PreDoseMinutes int

	// Endpoint overrides the Bot API URL format, mainly for tests
	Endpoint string
}

// Bot sends reminders to the configured chat
type Bot struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	preDose int
	lister  Lister
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewBot connects to the Bot API. It returns nil when the channel is disabled.
func NewBot(cfg Config, lister Lister, logger *zap.Logger) (*Bot, error) {
	if !cfg.Enabled || cfg.Token == "" {
		return nil, nil
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = false

	logger.Info("Telegram bot authorized", zap.String("username", api.Self.UserName))

	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		api:     api,
		chatID:  cfg.ChatID,
		preDose: cfg.PreDoseMinutes,
		lister:  lister,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

func (b *Bot) Name() string {
	return "telegram"
}

// Send delivers a fired reminder to the configured chat
func (b *Bot) Send(ctx context.Context, n notify.Notification) error {
	text := fmt.Sprintf("💊 *%s*\n%s", n.Title, n.Body)
	_, err := b.sendMessage(b.chatID, text)
	return err
}

// Start polls for commands until Stop
func (b *Bot) Start() error {
	b.wg.Add(1)
	go b.run()
	return nil
}

// Stop stops the bot
func (b *Bot) Stop() {
	b.cancel()
	b.api.StopReceivingUpdates()
	b.wg.Wait()
}

func (b *Bot) run() {
	defer b.wg.Done()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-b.ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := b.handleUpdate(update); err != nil {
				b.logger.Error("Failed to handle update", zap.Error(err))
			}
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return nil
	}

	// Only the configured chat may query reminders
	if msg.Chat.ID != b.chatID {
		return nil
	}

	_, err := b.sendMessage(msg.Chat.ID, b.reply(msg.Command()))
	return err
}

func (b *Bot) reply(command string) string {
	switch command {
	case "start", "help":
		when := "when it is time to take a medicine"
		if b.preDose > 0 {
			when += fmt.Sprintf(", and %d minutes before", b.preDose)
		}
		return "*Medicine Reminders*\n\n" +
			"You will get a message here " + when + ".\n\n" +
			"/reminders - list registered reminders\n" +
			"/help - show this help"

	case "reminders":
		return b.describeReminders()

	default:
		return "Unknown command. Send /help for the list."
	}
}

func (b *Bot) describeReminders() string {
	if b.lister == nil {
		return "Reminders are not available."
	}

	entries, err := b.lister.List(b.ctx)
	if err != nil {
		b.logger.Error("Failed to list reminders", zap.Error(err))
		return "Could not load reminders."
	}

	var lines []string
	for _, e := range entries {
		if e.Content.Data.OffsetMinutes != 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s (%s)", strings.TrimPrefix(e.Content.Title, "Medicine Reminder: "), e.Trigger))
	}
	if len(lines) == 0 {
		return "No reminders scheduled."
	}
	return fmt.Sprintf("*Reminders (%d)*\n%s\n", len(lines), strings.Join(lines, "\n"))
}

// truncate cuts text to at most limit runes
func truncate(text string, limit int) string {
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}

func (b *Bot) sendMessage(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, truncate(text, maxMessageLength))
	msg.ParseMode = tgbotapi.ModeMarkdown

	sent, err := b.api.Send(msg)
	if err != nil {
		// Try without markdown if it fails
		msg.ParseMode = ""
		sent, err = b.api.Send(msg)
		if err != nil {
			return 0, err
		}
	}

	return sent.MessageID, nil
}

var _ notify.Sender = (*Bot)(nil)
