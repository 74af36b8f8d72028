package client

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"google.golang.org/protobuf/proto"

	"github.com/vicentereig/mediabot/internal/types"
)

// SendVideo uploads the file at path and sends it as a video message.
func (w *WAClient) SendVideo(ctx context.Context, to types.ChatRef, path, caption string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read video: %w", err)
	}

	uploaded, err := w.client.Upload(ctx, data, whatsmeow.MediaVideo)
	if err != nil {
		return fmt.Errorf("failed to upload video: %w", err)
	}

	_, err = w.send(ctx, to.ID, &waProto.Message{
		VideoMessage: &waProto.VideoMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(MimeType(path, "video/mp4")),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
		},
	})
	return err
}

// SendAudio uploads the file at path as an audio message. Audio messages carry
// no caption, so a non-empty caption follows as a separate text.
func (w *WAClient) SendAudio(ctx context.Context, to types.ChatRef, path, caption string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}

	uploaded, err := w.client.Upload(ctx, data, whatsmeow.MediaAudio)
	if err != nil {
		return fmt.Errorf("failed to upload audio: %w", err)
	}

	_, err = w.send(ctx, to.ID, &waProto.Message{
		AudioMessage: &waProto.AudioMessage{
			Mimetype:      proto.String(MimeType(path, "audio/mpeg")),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
		},
	})
	if err != nil || caption == "" {
		return err
	}
	return w.SendText(ctx, to, caption)
}

// MimeType guesses a mime type from the file extension.
func MimeType(path, fallback string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return fallback
}
