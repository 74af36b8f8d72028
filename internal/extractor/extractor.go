// Package extractor materializes a media URL as a local file using yt-dlp
// (via github.com/lrstanley/go-ytdlp).
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"
)

// OutputName is the base name of every downloaded file; yt-dlp fills in the
// extension from the source container (or mp3 after audio extraction).
const OutputName = "downloaded"

const outputTemplate = OutputName + ".%(ext)s"

// ErrNoOutput is returned when yt-dlp exits cleanly without writing a file,
// for example when --max-filesize made it skip the download.
var ErrNoOutput = errors.New("extractor produced no output file")

// Options describes one extraction.
type Options struct {
	Format string
	// AudioFormat, when set, extracts the audio track and converts it with ffmpeg.
	AudioFormat  string
	AudioQuality string
	MaxFileSize  int64
}

// DownloadError is a failure reported by yt-dlp itself. Message is the text
// yt-dlp printed, suitable for showing to the user.
type DownloadError struct {
	URL      string
	ExitCode int
	Message  string
}

func (e *DownloadError) Error() string {
	return e.Message
}

// YTDLP runs the yt-dlp executable.
type YTDLP struct {
	executable string
	logger     zerolog.Logger
}

// New returns an extractor using the given yt-dlp executable; an empty path
// lets go-ytdlp resolve it from PATH or its cache.
func New(executable string, logger zerolog.Logger) *YTDLP {
	return &YTDLP{
		executable: executable,
		logger:     logger.With().Str("component", "extractor").Logger(),
	}
}

// Install downloads a yt-dlp release into go-ytdlp's cache if none is available.
func Install(ctx context.Context) (string, error) {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("install yt-dlp: %w", err)
	}
	return resolved.Executable, nil
}

// Extract downloads url into dir according to opts and returns the path of
// the produced file.
func (y *YTDLP) Extract(ctx context.Context, url string, opts Options, dir string) (string, error) {
	dl := ytdlp.New().
		Format(opts.Format).
		Output(filepath.Join(dir, outputTemplate)).
		NoPlaylist().
		NoProgress().
		Quiet().
		NoWarnings()

	if opts.MaxFileSize > 0 {
		dl.MaxFileSize(strconv.FormatInt(opts.MaxFileSize, 10))
	}
	if opts.AudioFormat != "" {
		dl.ExtractAudio().AudioFormat(opts.AudioFormat)
		if opts.AudioQuality != "" {
			dl.AudioQuality(opts.AudioQuality)
		}
	}
	if y.executable != "" {
		dl.SetExecutable(y.executable)
	}

	y.logger.Debug().Str("url", url).Str("format", opts.Format).Str("dir", dir).Msg("running yt-dlp")

	res, err := dl.Run(ctx, url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if res != nil && res.ExitCode > 0 {
			return "", &DownloadError{
				URL:      url,
				ExitCode: res.ExitCode,
				Message:  failureText(res.Stderr, err),
			}
		}
		return "", fmt.Errorf("run yt-dlp: %w", err)
	}

	return findOutput(dir)
}

// failureText picks the most useful line of yt-dlp's stderr: the last
// "ERROR:" line if there is one, otherwise the whole trimmed output.
func failureText(stderr string, fallback error) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return line
		}
	}
	if s := strings.TrimSpace(stderr); s != "" {
		return s
	}
	return fallback.Error()
}

// findOutput locates the file yt-dlp wrote into dir.
func findOutput(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, OutputName+".*"))
	if err != nil {
		return "", fmt.Errorf("scan output dir: %w", err)
	}
	for _, m := range matches {
		// Skip partial downloads left behind by an interrupted run.
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		return m, nil
	}
	return "", ErrNoOutput
}
