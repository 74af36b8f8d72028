package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vicentereig/mediabot/internal/extractor"
	"github.com/vicentereig/mediabot/internal/types"
)

var errPlatformClosed = errors.New("platform closed")

type sentFile struct {
	To      types.ChatRef
	Path    string
	Caption string
}

// MockPlatform implements Platform for testing. RunFunc plays the role of the
// remote chat service by feeding events into the handler. Sends fail once
// Close has been called, like a disconnected client.
type MockPlatform struct {
	RunFunc   func(ctx context.Context, h types.EventHandler) error
	CloseFunc func() error

	mu      sync.Mutex
	Texts   []string
	Menus   []types.Keyboard
	Edits   []string
	Answers []string
	Videos  []sentFile
	Audios  []sentFile
	Closed  bool
}

func (m *MockPlatform) Name() string { return "mock" }

func (m *MockPlatform) Run(ctx context.Context, h types.EventHandler) error {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, h)
	}
	<-ctx.Done()
	return nil
}

func (m *MockPlatform) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockPlatform) SendText(ctx context.Context, to types.ChatRef, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return errPlatformClosed
	}
	m.Texts = append(m.Texts, text)
	return nil
}

func (m *MockPlatform) SendChoices(ctx context.Context, to types.ChatRef, text string, kb types.Keyboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return errPlatformClosed
	}
	m.Menus = append(m.Menus, kb)
	return nil
}

func (m *MockPlatform) EditText(ctx context.Context, msg types.MessageRef, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return errPlatformClosed
	}
	m.Edits = append(m.Edits, text)
	return nil
}

func (m *MockPlatform) Answer(ctx context.Context, choice types.ChoiceEvent, text string, alert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return errPlatformClosed
	}
	m.Answers = append(m.Answers, text)
	return nil
}

func (m *MockPlatform) SendVideo(ctx context.Context, to types.ChatRef, path, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return errPlatformClosed
	}
	m.Videos = append(m.Videos, sentFile{To: to, Path: path, Caption: caption})
	return nil
}

func (m *MockPlatform) SendAudio(ctx context.Context, to types.ChatRef, path, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return errPlatformClosed
	}
	m.Audios = append(m.Audios, sentFile{To: to, Path: path, Caption: caption})
	return nil
}

type platformState struct {
	Texts   []string
	Menus   []types.Keyboard
	Edits   []string
	Answers []string
	Videos  []sentFile
	Audios  []sentFile
	Closed  bool
}

func (m *MockPlatform) snapshot() platformState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return platformState{
		Texts:   append([]string(nil), m.Texts...),
		Menus:   append([]types.Keyboard(nil), m.Menus...),
		Edits:   append([]string(nil), m.Edits...),
		Answers: append([]string(nil), m.Answers...),
		Videos:  append([]sentFile(nil), m.Videos...),
		Audios:  append([]sentFile(nil), m.Audios...),
		Closed:  m.Closed,
	}
}

// MockExtractor implements download.Extractor by writing a small file.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, url string, opts extractor.Options, dir string) (string, error)

	mu    sync.Mutex
	Opts []extractor.Options
}

func (m *MockExtractor) Extract(ctx context.Context, url string, opts extractor.Options, dir string) (string, error) {
	m.mu.Lock()
	m.Opts = append(m.Opts, opts)
	m.mu.Unlock()
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, url, opts, dir)
	}
	ext := "mp4"
	if opts.AudioFormat != "" {
		ext = opts.AudioFormat
	}
	path := filepath.Join(dir, extractor.OutputName+"."+ext)
	return path, os.WriteFile(path, []byte("media"), 0644)
}

// MockPairing implements Pairing for testing.
type MockPairing struct {
	Authenticated    bool
	AuthenticateFunc func(ctx context.Context) error

	AuthenticateCalls int
	Closed            bool
}

func (m *MockPairing) IsAuthenticated() bool { return m.Authenticated }

func (m *MockPairing) Authenticate(ctx context.Context) error {
	m.AuthenticateCalls++
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx)
	}
	return nil
}

func (m *MockPairing) Close() error {
	m.Closed = true
	return nil
}

func foundAll(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

func foundNone(file string) (string, error) {
	return "", os.ErrNotExist
}
