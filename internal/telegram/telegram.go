// Package telegram connects the bot to the Telegram Bot API using long polling.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/vicentereig/mediabot/internal/types"
)

// API is the subset of *tgbotapi.BotAPI the adapter needs; tests substitute it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(u tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client is the Telegram platform adapter.
type Client struct {
	api         API
	pollTimeout int
	logger      zerolog.Logger

	// stopOnce guards StopReceivingUpdates, which panics when called twice.
	stopOnce sync.Once
}

// Config holds Telegram settings.
type Config struct {
	Token string
	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout int
	Debug       bool
}

// New authenticates against the Bot API with cfg.Token.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	api.Debug = cfg.Debug

	c := NewWithAPI(api, cfg.PollTimeout, logger)
	c.logger.Info().Str("username", api.Self.UserName).Msg("authorized")
	return c, nil
}

// NewWithAPI wraps an existing API implementation.
func NewWithAPI(api API, pollTimeout int, logger zerolog.Logger) *Client {
	if pollTimeout <= 0 {
		pollTimeout = 60
	}
	return &Client{
		api:         api,
		pollTimeout: pollTimeout,
		logger:      logger.With().Str("platform", types.PlatformTelegram).Logger(),
	}
}

func (c *Client) Name() string {
	return types.PlatformTelegram
}

// Run polls for updates and dispatches them to h until ctx is cancelled.
// Updates are handled one at a time; long work is expected to be scheduled
// elsewhere by the handler.
func (c *Client) Run(ctx context.Context, h types.EventHandler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout
	updates := c.api.GetUpdatesChan(u)

	c.logger.Info().Msg("listening for updates")
	for {
		select {
		case <-ctx.Done():
			c.stopPolling()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			c.dispatch(ctx, h, update)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, h types.EventHandler, update tgbotapi.Update) {
	if evt, ok := TextEvent(update); ok {
		h.HandleText(ctx, evt)
		return
	}
	if evt, ok := ChoiceEvent(update); ok {
		h.HandleChoice(ctx, evt)
	}
}

// Close stops polling. It is safe to call after Run has returned.
func (c *Client) Close() error {
	c.stopPolling()
	return nil
}

func (c *Client) stopPolling() {
	c.stopOnce.Do(c.api.StopReceivingUpdates)
}

// TextEvent converts a text message update.
func TextEvent(update tgbotapi.Update) (types.TextEvent, bool) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.From == nil || msg.Chat == nil {
		return types.TextEvent{}, false
	}
	return types.TextEvent{
		UserID:  strconv.FormatInt(msg.From.ID, 10),
		Chat:    chatRef(msg.Chat.ID),
		Text:    msg.Text,
		Command: msg.Command(),
	}, true
}

// ChoiceEvent converts a callback query update.
func ChoiceEvent(update tgbotapi.Update) (types.ChoiceEvent, bool) {
	q := update.CallbackQuery
	if q == nil || q.From == nil {
		return types.ChoiceEvent{}, false
	}
	evt := types.ChoiceEvent{
		ID:     q.ID,
		UserID: strconv.FormatInt(q.From.ID, 10),
		Token:  q.Data,
	}
	if q.Message != nil && q.Message.Chat != nil {
		evt.Message = types.MessageRef{
			Chat: chatRef(q.Message.Chat.ID),
			ID:   strconv.Itoa(q.Message.MessageID),
		}
	}
	return evt, true
}

// SendText sends a plain message.
func (c *Client) SendText(ctx context.Context, to types.ChatRef, text string) error {
	chatID, err := parseChatID(to)
	if err != nil {
		return err
	}
	_, err = c.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendChoices sends text with an inline keyboard.
func (c *Client) SendChoices(ctx context.Context, to types.ChatRef, text string, kb types.Keyboard) error {
	chatID, err := parseChatID(to)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = InlineKeyboard(kb)
	_, err = c.api.Send(msg)
	return err
}

// EditText replaces the text (and keyboard) of a message the bot sent.
func (c *Client) EditText(ctx context.Context, ref types.MessageRef, text string) error {
	chatID, err := parseChatID(ref.Chat)
	if err != nil {
		return err
	}
	msgID, err := strconv.Atoi(ref.ID)
	if err != nil {
		return fmt.Errorf("invalid telegram message id %q: %w", ref.ID, err)
	}
	_, err = c.api.Request(tgbotapi.NewEditMessageText(chatID, msgID, text))
	return err
}

// Answer answers a callback query, optionally with an alert.
func (c *Client) Answer(ctx context.Context, choice types.ChoiceEvent, text string, alert bool) error {
	cb := tgbotapi.NewCallback(choice.ID, text)
	cb.ShowAlert = alert
	_, err := c.api.Request(cb)
	return err
}

// SendVideo uploads a streaming-capable video.
func (c *Client) SendVideo(ctx context.Context, to types.ChatRef, path, caption string) error {
	chatID, err := parseChatID(to)
	if err != nil {
		return err
	}
	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	video.Caption = caption
	video.SupportsStreaming = true
	_, err = c.api.Send(video)
	return err
}

// SendAudio uploads an audio file.
func (c *Client) SendAudio(ctx context.Context, to types.ChatRef, path, caption string) error {
	chatID, err := parseChatID(to)
	if err != nil {
		return err
	}
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(path))
	audio.Caption = caption
	_, err = c.api.Send(audio)
	return err
}

// InlineKeyboard renders kb as callback buttons.
func InlineKeyboard(kb types.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, choice := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(choice.Label, choice.Token))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func chatRef(id int64) types.ChatRef {
	return types.ChatRef{Platform: types.PlatformTelegram, ID: strconv.FormatInt(id, 10)}
}

func parseChatID(ref types.ChatRef) (int64, error) {
	id, err := strconv.ParseInt(ref.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", ref.ID, err)
	}
	return id, nil
}
