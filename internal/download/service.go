package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vicentereig/mediabot/internal/extractor"
	"github.com/vicentereig/mediabot/internal/linkcheck"
	"github.com/vicentereig/mediabot/internal/types"
)

// Outcome is the terminal state of a download request.
type Outcome int

const (
	Delivered Outcome = iota
	Rejected
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Rejected:
		return "rejected"
	default:
		return "failed"
	}
}

// User-facing messages.
const (
	VideoCaption = "Video downloaded successfully! ✅"
	AudioCaption = "Audio downloaded successfully! ✅"

	VideoTooLargeMessage = "⚠️ Video size exceeds 50MB Telegram limit."
	AudioTooLargeMessage = "⚠️ Audio file size exceeds 20MB limit."

	DownloadErrorPrefix = "❌ Download error: "
	FFmpegHint          = "\n\nFFmpeg is not installed or not in your system PATH!\nPlease install FFmpeg to enable audio conversion."
	GenericFailure      = "❌ An error occurred while processing your request"
)

// Format selectors.
const (
	FormatVideo = "best[filesize<50M]"
	FormatBest  = "best"
	FormatAudio = "bestaudio/best"

	AudioCodec   = "mp3"
	AudioQuality = "192"
)

// Request is one download to perform.
type Request struct {
	URL         string
	Mode        types.Mode
	Destination types.ChatRef
}

// OptionsFor builds the extractor options for a mode and URL.
func OptionsFor(mode types.Mode, url string) extractor.Options {
	opts := extractor.Options{MaxFileSize: mode.MaxBytes()}
	switch mode {
	case types.ModeHighQualityVideo:
		opts.Format = FormatBest
	case types.ModeAudio:
		opts.Format = FormatAudio
		opts.AudioFormat = AudioCodec
		opts.AudioQuality = AudioQuality
	default:
		opts.Format = FormatVideo
	}
	if linkcheck.IsInstagram(url) {
		opts.Format = FormatBest
	}
	return opts
}

// Service performs downloads and reports their result to the destination chat.
type Service struct {
	extractor Extractor
	deliverer Deliverer
	workDir   string
	timeout   time.Duration
	logger    zerolog.Logger
	newID     func() string
}

// Config holds orchestrator settings.
type Config struct {
	// WorkDir is the parent of the per-request directories.
	WorkDir string
	// Timeout bounds a single download; zero means no limit.
	Timeout time.Duration
}

func NewService(cfg Config, ext Extractor, deliverer Deliverer, logger zerolog.Logger) *Service {
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "mediabot")
	}
	return &Service{
		extractor: ext,
		deliverer: deliverer,
		workDir:   cfg.WorkDir,
		timeout:   cfg.Timeout,
		logger:    logger.With().Str("component", "download").Logger(),
		newID:     func() string { return uuid.NewString() },
	}
}

// Download fetches req.URL in req.Mode and delivers it to req.Destination.
// Every failure is reported to the destination; none is retried.
func (s *Service) Download(ctx context.Context, req Request) Outcome {
	id := s.newID()
	logger := s.logger.With().
		Str("request_id", id).
		Str("url", req.URL).
		Stringer("mode", req.Mode).
		Stringer("chat", req.Destination).
		Logger()

	outcome, err := s.run(ctx, logger, id, req)
	if err != nil {
		logger.Error().Err(err).Msg("download failed")
		s.reply(ctx, logger, req.Destination, GenericFailure)
		return Failed
	}
	logger.Info().Stringer("outcome", outcome).Msg("download finished")
	return outcome
}

func (s *Service) run(ctx context.Context, logger zerolog.Logger, id string, req Request) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during download: %v", r)
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	dir := filepath.Join(s.workDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Failed, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logger.Warn().Err(rmErr).Str("dir", dir).Msg("failed to remove work dir")
		}
	}()

	opts := OptionsFor(req.Mode, req.URL)
	path, err := s.extractor.Extract(ctx, req.URL, opts, dir)
	if err != nil {
		var dlErr *extractor.DownloadError
		if errors.As(err, &dlErr) {
			logger.Warn().Int("exit_code", dlErr.ExitCode).Str("error", dlErr.Message).Msg("extractor reported an error")
			s.reply(ctx, logger, req.Destination, DownloadErrorMessage(dlErr.Message))
			return Failed, nil
		}
		return Failed, fmt.Errorf("extract: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Failed, fmt.Errorf("stat download: %w", err)
	}
	size := info.Size()

	if size > req.Mode.MaxBytes() {
		logger.Info().Str("size", humanize.IBytes(uint64(size))).Msg("download exceeds size limit")
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Err(err).Msg("failed to remove oversized file")
		}
		s.reply(ctx, logger, req.Destination, TooLargeMessage(req.Mode))
		return Rejected, nil
	}

	logger.Info().Str("file", filepath.Base(path)).Str("size", humanize.IBytes(uint64(size))).Msg("delivering")
	if req.Mode.IsVideo() {
		err = s.deliverer.SendVideo(ctx, req.Destination, path, VideoCaption)
	} else {
		err = s.deliverer.SendAudio(ctx, req.Destination, path, AudioCaption)
	}
	if err != nil {
		return Failed, fmt.Errorf("deliver: %w", err)
	}
	return Delivered, nil
}

func (s *Service) reply(ctx context.Context, logger zerolog.Logger, to types.ChatRef, text string) {
	if err := s.deliverer.SendText(ctx, to, text); err != nil {
		logger.Error().Err(err).Msg("failed to send status message")
	}
}

// DownloadErrorMessage composes the message shown for an extractor failure,
// adding an installation hint when the failure mentions ffmpeg or ffprobe.
func DownloadErrorMessage(text string) string {
	msg := DownloadErrorPrefix + text
	lower := strings.ToLower(text)
	if strings.Contains(lower, "ffmpeg") || strings.Contains(lower, "ffprobe") {
		msg += FFmpegHint
	}
	return msg
}

// TooLargeMessage returns the message shown when a file exceeds the mode's ceiling.
func TooLargeMessage(mode types.Mode) string {
	if mode.IsVideo() {
		return VideoTooLargeMessage
	}
	return AudioTooLargeMessage
}
