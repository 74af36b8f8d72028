package bot

import (
	"context"

	"github.com/vicentereig/mediabot/internal/download"
	"github.com/vicentereig/mediabot/internal/types"
	"github.com/vicentereig/mediabot/internal/worker"
)

type answered struct {
	Choice types.ChoiceEvent
	Text   string
	Alert  bool
}

type edited struct {
	Msg  types.MessageRef
	Text string
}

type sentChoices struct {
	To       types.ChatRef
	Text     string
	Keyboard types.Keyboard
}

// MockMessenger implements Messenger for testing and records every call.
type MockMessenger struct {
	SendTextFunc func(ctx context.Context, to types.ChatRef, text string) error

	Texts   []string
	Choices []sentChoices
	Edits   []edited
	Answers []answered
}

func (m *MockMessenger) SendText(ctx context.Context, to types.ChatRef, text string) error {
	m.Texts = append(m.Texts, text)
	if m.SendTextFunc != nil {
		return m.SendTextFunc(ctx, to, text)
	}
	return nil
}

func (m *MockMessenger) SendChoices(ctx context.Context, to types.ChatRef, text string, kb types.Keyboard) error {
	m.Choices = append(m.Choices, sentChoices{To: to, Text: text, Keyboard: kb})
	return nil
}

func (m *MockMessenger) EditText(ctx context.Context, msg types.MessageRef, text string) error {
	m.Edits = append(m.Edits, edited{Msg: msg, Text: text})
	return nil
}

func (m *MockMessenger) Answer(ctx context.Context, choice types.ChoiceEvent, text string, alert bool) error {
	m.Answers = append(m.Answers, answered{Choice: choice, Text: text, Alert: alert})
	return nil
}

// MockDownloader implements Downloader for testing.
type MockDownloader struct {
	DownloadFunc func(ctx context.Context, req download.Request) download.Outcome

	Requests []download.Request
}

func (m *MockDownloader) Download(ctx context.Context, req download.Request) download.Outcome {
	m.Requests = append(m.Requests, req)
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, req)
	}
	return download.Delivered
}

// inlineScheduler runs jobs synchronously on Submit.
type inlineScheduler struct {
	err error
}

func (s *inlineScheduler) Submit(ctx context.Context, job worker.Job) error {
	if s.err != nil {
		return s.err
	}
	job(ctx)
	return nil
}
