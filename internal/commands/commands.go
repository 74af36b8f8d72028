package commands

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/vicentereig/mediabot/internal/bot"
	"github.com/vicentereig/mediabot/internal/capability"
	"github.com/vicentereig/mediabot/internal/client"
	"github.com/vicentereig/mediabot/internal/config"
	"github.com/vicentereig/mediabot/internal/download"
	"github.com/vicentereig/mediabot/internal/extractor"
	"github.com/vicentereig/mediabot/internal/health"
	"github.com/vicentereig/mediabot/internal/output"
	"github.com/vicentereig/mediabot/internal/store"
	"github.com/vicentereig/mediabot/internal/telegram"
	"github.com/vicentereig/mediabot/internal/types"
	"github.com/vicentereig/mediabot/internal/worker"
)

const healthShutdownTimeout = 5 * time.Second

type App struct {
	cfg     *config.Config
	logger  zerolog.Logger
	version string

	openPlatform  func(ctx context.Context) (Platform, error)
	openExtractor func(ctx context.Context) (download.Extractor, error)
	openPairing   func() (Pairing, error)
	lookPath      capability.LookPathFunc
	describe      func() (string, error)
}

func NewApp(cfg *config.Config, logger zerolog.Logger, version string) *App {
	a := &App{
		cfg:      cfg,
		logger:   logger,
		version:  version,
		describe: gitDescribe,
	}
	a.openPlatform = a.newPlatform
	a.openExtractor = a.newExtractor
	a.openPairing = func() (Pairing, error) {
		return client.NewWAClient(cfg.WhatsApp.StoreDir, logger)
	}
	return a
}

// NewAppWithDeps builds an App around injected collaborators.
func NewAppWithDeps(cfg *config.Config, logger zerolog.Logger, platform Platform, ext download.Extractor, pairing Pairing, lookPath capability.LookPathFunc) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		openPlatform: func(ctx context.Context) (Platform, error) {
			return platform, nil
		},
		openExtractor: func(ctx context.Context) (download.Extractor, error) {
			return ext, nil
		},
		openPairing: func() (Pairing, error) {
			return pairing, nil
		},
		lookPath: lookPath,
		describe: func() (string, error) { return "", fmt.Errorf("no git") },
	}
}

func (a *App) newPlatform(ctx context.Context) (Platform, error) {
	switch a.cfg.Platform {
	case types.PlatformTelegram:
		return telegram.New(telegram.Config{
			Token:       a.cfg.Telegram.Token,
			PollTimeout: a.cfg.Telegram.PollTimeout,
			Debug:       a.cfg.Telegram.Debug,
		}, a.logger)
	case types.PlatformWhatsApp:
		return client.NewWAClient(a.cfg.WhatsApp.StoreDir, a.logger)
	default:
		return nil, fmt.Errorf("unknown platform %q", a.cfg.Platform)
	}
}

func (a *App) newExtractor(ctx context.Context) (download.Extractor, error) {
	path := a.cfg.Download.YTDLPPath
	if path == "" && a.cfg.Download.AutoInstall {
		installed, err := extractor.Install(ctx)
		if err != nil {
			return nil, err
		}
		path = installed
	}
	return extractor.New(path, a.logger), nil
}

// Run serves the bot until ctx is cancelled, then drains in-flight downloads.
func (a *App) Run(ctx context.Context) (err error) {
	caps := capability.Probe(a.lookPath)
	if !caps.Transcoder {
		a.logger.Error().Msg("ffmpeg/ffprobe not found, audio conversion disabled")
	}

	platform, err := a.openPlatform(ctx)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", a.cfg.Platform, err)
	}
	defer func() {
		if cerr := platform.Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("close %s: %w", platform.Name(), cerr)).ErrorOrNil()
		}
	}()

	ext, err := a.openExtractor(ctx)
	if err != nil {
		return err
	}

	sessions := store.NewSessionStore()

	pool := worker.NewPool(worker.Config{
		Workers:   a.cfg.Worker.Count,
		QueueSize: a.cfg.Worker.QueueSize,
	}, a.logger)
	pool.Start()

	svc := download.NewService(download.Config{
		WorkDir: a.cfg.Download.WorkDir,
		Timeout: a.cfg.Download.Timeout,
	}, ext, platform, a.logger)

	var srv *health.Server
	if a.cfg.Health.Addr != "" {
		srv = health.NewServer(a.cfg.Health.Addr, health.NewHandler(platform.Name(), caps.Transcoder, sessions, a.logger), a.logger)
		srv.Start()
	}

	b := bot.New(platform, sessions, svc, pool, caps, a.logger)

	a.logger.Info().
		Str("platform", platform.Name()).
		Bool("transcoder", caps.Transcoder).
		Msg("bot started")

	var result *multierror.Error
	if err := platform.Run(ctx, b); err != nil {
		result = multierror.Append(result, fmt.Errorf("run %s: %w", platform.Name(), err))
	}

	if err := pool.Stop(a.cfg.Worker.ShutdownTimeout); err != nil {
		result = multierror.Append(result, fmt.Errorf("stop workers: %w", err))
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), healthShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop health endpoint: %w", err))
		}
	}

	a.logger.Info().Msg("bot stopped")
	return result.ErrorOrNil()
}

// Auth pairs the WhatsApp linked device.
func (a *App) Auth(ctx context.Context) string {
	pairing, err := a.openPairing()
	if err != nil {
		return output.Error(err)
	}
	defer pairing.Close()

	if pairing.IsAuthenticated() {
		return output.Success(map[string]interface{}{
			"authenticated": true,
			"message":       "Already authenticated",
		})
	}

	if err := pairing.Authenticate(ctx); err != nil {
		return output.Error(err)
	}

	return output.Success(map[string]interface{}{
		"authenticated": true,
		"message":       "Successfully authenticated",
	})
}

// Probe reports the external tools available to the bot.
func (a *App) Probe() string {
	caps := capability.Probe(a.lookPath)

	lookPath := a.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	ytdlpPath := a.cfg.Download.YTDLPPath
	if ytdlpPath == "" {
		ytdlpPath, _ = lookPath("yt-dlp")
	}

	return output.Success(map[string]interface{}{
		"platform":     a.cfg.Platform,
		"transcoder":   caps.Transcoder,
		"audio_status": caps.TranscoderStatus(),
		"ytdlp":        ytdlpPath,
	})
}

func (a *App) Version() string {
	return output.Success(map[string]interface{}{
		"version": resolveVersion(a.version, a.describe),
	})
}

// resolveVersion prefers a version stamped at build time and falls back to
// git describe for local builds.
func resolveVersion(version string, describeFn func() (string, error)) string {
	if version != "" && version != "dev" {
		return version
	}
	if describeFn == nil {
		return "dev"
	}
	described, err := describeFn()
	if err != nil || strings.TrimSpace(described) == "" {
		return "dev"
	}
	return strings.TrimSpace(described)
}

func gitDescribe() (string, error) {
	out, err := exec.Command("git", "describe", "--tags", "--always", "--dirty").Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
