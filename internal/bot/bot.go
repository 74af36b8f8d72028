package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vicentereig/mediabot/internal/capability"
	"github.com/vicentereig/mediabot/internal/download"
	"github.com/vicentereig/mediabot/internal/linkcheck"
	"github.com/vicentereig/mediabot/internal/types"
)

// User-facing texts.
const (
	StartCommand = "start"

	greetingFormat = "Hello! Send me a video link from Instagram, YouTube, or TikTok and I'll download it for you.\n\nFFmpeg Status: %s"

	UnsupportedURLMessage = "⚠️ Unsupported URL. Please send a link from YouTube, Instagram, or TikTok."
	ChooseModeMessage     = "📥 Choose download type:"
	LinkExpiredMessage    = "❌ Link expired. Please send the link again."
	DownloadingMessage    = "⏳ Downloading... Please wait"
	FFmpegMissingAlert    = "FFmpeg is not installed! Audio conversion disabled."

	LabelVideo         = "Download Video 🎬"
	LabelAudio         = "Download Audio Only 🎵"
	LabelAudioDisabled = "Audio Disabled (FFmpeg missing)"
	LabelHighQuality   = "High Quality Video (if available) 📺"
)

// Bot handles inbound events. It implements types.EventHandler.
type Bot struct {
	messenger Messenger
	sessions  SessionStore
	downloads Downloader
	scheduler Scheduler
	caps      capability.Capabilities
	logger    zerolog.Logger
}

var _ types.EventHandler = (*Bot)(nil)

func New(m Messenger, sessions SessionStore, downloads Downloader, scheduler Scheduler, caps capability.Capabilities, logger zerolog.Logger) *Bot {
	return &Bot{
		messenger: m,
		sessions:  sessions,
		downloads: downloads,
		scheduler: scheduler,
		caps:      caps,
		logger:    logger.With().Str("component", "bot").Logger(),
	}
}

// Greeting is the reply to /start.
func Greeting(caps capability.Capabilities) string {
	return fmt.Sprintf(greetingFormat, caps.TranscoderStatus())
}

// ModeKeyboard builds the download type keyboard. When audio conversion is
// unavailable the audio button is replaced with a disabled variant.
func ModeKeyboard(caps capability.Capabilities) types.Keyboard {
	audio := types.Choice{Label: LabelAudio, Token: types.TokenAudio}
	if !caps.Transcoder {
		audio = types.Choice{Label: LabelAudioDisabled, Token: types.TokenFFmpegMissing}
	}
	return types.Keyboard{
		{{Label: LabelVideo, Token: types.TokenVideo}, audio},
		{{Label: LabelHighQuality, Token: types.TokenHighQuality}},
	}
}

// HandleText handles /start and link messages. Other commands are ignored.
func (b *Bot) HandleText(ctx context.Context, evt types.TextEvent) {
	logger := b.logger.With().Str("user_id", evt.UserID).Stringer("chat", evt.Chat).Logger()
	defer b.recoverPanic(logger)

	if evt.Command != "" {
		if evt.Command == StartCommand {
			b.send(ctx, logger, evt.Chat, Greeting(b.caps))
		}
		return
	}

	url := strings.TrimSpace(evt.Text)
	if !linkcheck.IsSupported(url) {
		b.send(ctx, logger, evt.Chat, UnsupportedURLMessage)
		return
	}

	b.sessions.Put(evt.UserID, url, evt.Chat)
	logger.Info().Str("url", url).Msg("link accepted")

	if err := b.messenger.SendChoices(ctx, evt.Chat, ChooseModeMessage, ModeKeyboard(b.caps)); err != nil {
		logger.Error().Err(err).Msg("failed to send choices")
	}
}

// HandleChoice handles a mode button press.
func (b *Bot) HandleChoice(ctx context.Context, evt types.ChoiceEvent) {
	logger := b.logger.With().Str("user_id", evt.UserID).Str("choice", evt.Token).Logger()
	defer b.recoverPanic(logger)

	if evt.Token == types.TokenFFmpegMissing {
		b.alert(ctx, logger, evt)
		return
	}

	mode, ok := types.ParseMode(evt.Token)
	if !ok {
		logger.Warn().Msg("unknown choice")
		b.answer(ctx, logger, evt)
		return
	}
	if mode == types.ModeAudio && !b.caps.Transcoder {
		b.alert(ctx, logger, evt)
		return
	}

	b.answer(ctx, logger, evt)

	req, ok := b.sessions.Get(evt.UserID)
	if !ok {
		b.edit(ctx, logger, evt.Message, LinkExpiredMessage)
		return
	}

	b.edit(ctx, logger, evt.Message, DownloadingMessage)

	dl := download.Request{URL: req.URL, Mode: mode, Destination: req.Destination}
	err := b.scheduler.Submit(ctx, func(jobCtx context.Context) {
		b.downloads.Download(jobCtx, dl)
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to schedule download")
		b.send(ctx, logger, req.Destination, download.GenericFailure)
	}
}

func (b *Bot) alert(ctx context.Context, logger zerolog.Logger, evt types.ChoiceEvent) {
	if err := b.messenger.Answer(ctx, evt, FFmpegMissingAlert, true); err != nil {
		logger.Error().Err(err).Msg("failed to show alert")
	}
}

func (b *Bot) answer(ctx context.Context, logger zerolog.Logger, evt types.ChoiceEvent) {
	if err := b.messenger.Answer(ctx, evt, "", false); err != nil {
		logger.Warn().Err(err).Msg("failed to acknowledge choice")
	}
}

func (b *Bot) edit(ctx context.Context, logger zerolog.Logger, msg types.MessageRef, text string) {
	if err := b.messenger.EditText(ctx, msg, text); err != nil {
		logger.Error().Err(err).Msg("failed to edit message")
	}
}

func (b *Bot) send(ctx context.Context, logger zerolog.Logger, to types.ChatRef, text string) {
	if err := b.messenger.SendText(ctx, to, text); err != nil {
		logger.Error().Err(err).Msg("failed to send message")
	}
}

func (b *Bot) recoverPanic(logger zerolog.Logger) {
	if r := recover(); r != nil {
		logger.Error().Interface("panic", r).Msg("event handler panicked")
	}
}
