// Package capability detects optional external tools once at startup.
package capability

import "os/exec"

// Executables required for audio conversion.
const (
	FFmpegCommand  = "ffmpeg"
	FFprobeCommand = "ffprobe"
)

// Capabilities is computed once at startup and passed to the components that
// depend on it. It is never re-evaluated.
type Capabilities struct {
	// Transcoder is true when both ffmpeg and ffprobe are on PATH.
	Transcoder bool `json:"transcoder"`
}

// LookPathFunc resolves an executable name, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// Probe checks for the transcoding tools using lookPath. A nil lookPath uses exec.LookPath.
func Probe(lookPath LookPathFunc) Capabilities {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, name := range []string{FFmpegCommand, FFprobeCommand} {
		if _, err := lookPath(name); err != nil {
			return Capabilities{}
		}
	}
	return Capabilities{Transcoder: true}
}

// TranscoderStatus renders the transcoder state for the greeting message.
func (c Capabilities) TranscoderStatus() string {
	if c.Transcoder {
		return "✅ Installed"
	}
	return "❌ Not installed - Audio conversion disabled"
}
