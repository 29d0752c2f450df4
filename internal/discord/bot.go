package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/NgigiN/wallet/internal/config"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// replyTimeout bounds the engine work done for one chat message.
const replyTimeout = 30 * time.Second

type Bot struct {
	session   *discordgo.Session
	handler   *Handler
	channelID string
	log       zerolog.Logger
}

func NewBot(cfg config.DiscordConfig, handler *Handler, log zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	bot := &Bot{
		session:   session,
		handler:   handler,
		channelID: cfg.ChannelID,
		log:       log,
	}

	session.AddHandler(bot.handleMessage)
	session.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	b.log.Info().Str("channel", b.channelID).Msg("discord bot connected")
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

// Connected reports whether the gateway session is up.
func (b *Bot) Connected() bool {
	if b.session == nil {
		return false
	}
	b.session.RLock()
	defer b.session.RUnlock()
	return b.session.DataReady
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return // bot's messages
	}
	if m.ChannelID != b.channelID {
		return // specific to the channel
	}

	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	reply := b.handler.Handle(ctx, m.Content)
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		b.log.Warn().Err(err).Str("channel", m.ChannelID).Msg("failed to send reply")
	}
}
