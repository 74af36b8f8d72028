package types

// Mode selects the format preference, post-processing and size ceiling of a download.
type Mode int

const (
	ModeVideo Mode = iota
	ModeHighQualityVideo
	ModeAudio
)

// Choice tokens carried by buttons.
const (
	TokenVideo       = "video"
	TokenHighQuality = "high_quality"
	TokenAudio       = "audio"
	// TokenFFmpegMissing replaces TokenAudio when audio conversion is unavailable.
	TokenFFmpegMissing = "ffmpeg_error"
)

const megabyte = 1024 * 1024

// Size ceilings per mode.
const (
	MaxVideoBytes int64 = 50 * megabyte
	MaxAudioBytes int64 = 20 * megabyte
)

// ParseMode maps a choice token to a Mode.
func ParseMode(token string) (Mode, bool) {
	switch token {
	case TokenVideo:
		return ModeVideo, true
	case TokenHighQuality:
		return ModeHighQualityVideo, true
	case TokenAudio:
		return ModeAudio, true
	default:
		return 0, false
	}
}

// Token returns the choice token for the mode.
func (m Mode) Token() string {
	switch m {
	case ModeHighQualityVideo:
		return TokenHighQuality
	case ModeAudio:
		return TokenAudio
	default:
		return TokenVideo
	}
}

func (m Mode) String() string {
	return m.Token()
}

// IsVideo reports whether the mode delivers a video attachment.
func (m Mode) IsVideo() bool {
	return m != ModeAudio
}

// MaxBytes returns the largest file the mode will deliver.
func (m Mode) MaxBytes() int64 {
	if m == ModeAudio {
		return MaxAudioBytes
	}
	return MaxVideoBytes
}

// PendingRequest links a submitted URL to the chat the result goes to.
type PendingRequest struct {
	URL         string
	Destination ChatRef
}
