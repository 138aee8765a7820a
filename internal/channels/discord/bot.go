// Package discord delivers reminders to a Discord channel
package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/notify"
)

const maxMessageLength = 2000

// Config holds Discord bot configuration
type Config struct {
	Token     string
	ChannelID string
	Enabled   bool
}

// messenger is the part of a discordgo session the bot uses
type messenger interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Bot posts reminders to a channel
type Bot struct {
	session   messenger
	channelID string
	logger    *zap.Logger
}

// NewBot creates a Discord bot. It returns nil when the channel is disabled.
func NewBot(cfg Config, logger *zap.Logger) (*Bot, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	if cfg.ChannelID == "" {
		return nil, fmt.Errorf("discord channel id is required")
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return newBot(session, cfg.ChannelID, logger), nil
}

func newBot(session messenger, channelID string, logger *zap.Logger) *Bot {
	return &Bot{
		session:   session,
		channelID: channelID,
		logger:    logger,
	}
}

func (b *Bot) Name() string {
	return "discord"
}

// Send posts a fired reminder. Long bodies are split across messages.
func (b *Bot) Send(ctx context.Context, n notify.Notification) error {
	content := fmt.Sprintf("💊 **%s**\n%s", n.Title, n.Body)

	for _, part := range splitMessage(content, maxMessageLength) {
		if _, err := b.session.ChannelMessageSend(b.channelID, part, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("failed to send discord message: %w", err)
		}
	}

	b.logger.Debug("Reminder posted to discord",
		zap.String("channel_id", b.channelID),
		zap.String("notification_id", n.ID))
	return nil
}

// splitMessage packs whole lines into chunks of at most maxLen runes.
// A line that alone exceeds maxLen is cut at the limit.
func splitMessage(text string, maxLen int) []string {
	var parts []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			parts = append(parts, string(current))
			current = current[:0]
		}
	}

	for _, line := range strings.Split(text, "\n") {
		r := []rune(line)
		for len(r) > maxLen {
			flush()
			parts = append(parts, string(r[:maxLen]))
			r = r[maxLen:]
		}
		if len(current) > 0 && len(current)+1+len(r) > maxLen {
			flush()
		}
		if len(current) > 0 {
			current = append(current, '\n')
		}
		current = append(current, r...)
	}
	flush()

	return parts
}

var _ notify.Sender = (*Bot)(nil)
