// Package download runs a single user download from link to delivered file.
//
// Each request gets its own working directory so concurrent downloads never
// share a file name. The directory is removed once the request is finished,
// whatever the outcome.
package download

import (
	"context"

	"github.com/vicentereig/mediabot/internal/extractor"
	"github.com/vicentereig/mediabot/internal/types"
)

// Extractor materializes a URL as a file inside dir.
// The concrete implementation is extractor.YTDLP.
type Extractor interface {
	Extract(ctx context.Context, url string, opts extractor.Options, dir string) (string, error)
}

// Deliverer sends results back to a chat. Both platform adapters implement it.
type Deliverer interface {
	SendText(ctx context.Context, to types.ChatRef, text string) error
	SendVideo(ctx context.Context, to types.ChatRef, path, caption string) error
	SendAudio(ctx context.Context, to types.ChatRef, path, caption string) error
}
