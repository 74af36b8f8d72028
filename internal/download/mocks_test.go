package download

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/vicentereig/mediabot/internal/extractor"
	"github.com/vicentereig/mediabot/internal/types"
)

// MockExtractor implements Extractor for testing.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, url string, opts extractor.Options, dir string) (string, error)

	calls []extractCall
}

type extractCall struct {
	URL  string
	Options extractor.Options
	Dir  string
}

func (m *MockExtractor) Extract(ctx context.Context, url string, opts extractor.Options, dir string) (string, error) {
	m.calls = append(m.calls, extractCall{URL: url, Options: opts, Dir: dir})
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, url, opts, dir)
	}
	return "", nil
}

// writesFile returns an ExtractFunc that creates a file of size bytes named
// downloaded.<ext> in the request directory.
func writesFile(ext string, size int64) func(ctx context.Context, url string, opts extractor.Options, dir string) (string, error) {
	return func(ctx context.Context, url string, opts extractor.Options, dir string) (string, error) {
		path := filepath.Join(dir, extractor.OutputName+"."+ext)
		f, err := os.Create(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		if err := f.Truncate(size); err != nil {
			return "", err
		}
		return path, nil
	}
}

type sentFile struct {
	To      types.ChatRef
	Path    string
	Caption string
	Existed bool
}

// MockDeliverer implements Deliverer for testing and records every call.
type MockDeliverer struct {
	mu     sync.Mutex
	Texts  []string
	Videos []sentFile
	Audios []sentFile

	SendVideoErr error
	SendTextErr  error
}

func (m *MockDeliverer) SendText(ctx context.Context, to types.ChatRef, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Texts = append(m.Texts, text)
	return m.SendTextErr
}

func (m *MockDeliverer) SendVideo(ctx context.Context, to types.ChatRef, path, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Videos = append(m.Videos, sentFile{To: to, Path: path, Caption: caption, Existed: fileExists(path)})
	return m.SendVideoErr
}

func (m *MockDeliverer) SendAudio(ctx context.Context, to types.ChatRef, path, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Audios = append(m.Audios, sentFile{To: to, Path: path, Caption: caption, Existed: fileExists(path)})
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
