// Package bot implements the conversation: a user sends a link, picks a
// download mode from a keyboard, and receives the file.
//
// # Dependency Injection
//
// The interfaces below define what the Bot needs from the chat platform, the
// session store, the download orchestrator and the worker pool. Production
// wiring happens in internal/commands; tests inject mocks.
package bot

import (
	"context"

	"github.com/vicentereig/mediabot/internal/download"
	"github.com/vicentereig/mediabot/internal/types"
	"github.com/vicentereig/mediabot/internal/worker"
)

// Messenger is the outbound half of a chat platform used by the conversation.
type Messenger interface {
	SendText(ctx context.Context, to types.ChatRef, text string) error
	SendChoices(ctx context.Context, to types.ChatRef, text string, kb types.Keyboard) error
	EditText(ctx context.Context, msg types.MessageRef, text string) error
	// Answer acknowledges a choice. A non-empty text is shown to the user,
	// as a modal alert when alert is set and the platform supports it.
	Answer(ctx context.Context, choice types.ChoiceEvent, text string, alert bool) error
}

// SessionStore keeps the pending link of each user.
// The concrete implementation is store.SessionStore.
type SessionStore interface {
	Put(userID, url string, dest types.ChatRef)
	Get(userID string) (types.PendingRequest, bool)
}

// Downloader performs one download and reports the result to the user.
// The concrete implementation is download.Service.
type Downloader interface {
	Download(ctx context.Context, req download.Request) download.Outcome
}

// Scheduler runs jobs off the event dispatcher.
// The concrete implementation is worker.Pool.
type Scheduler interface {
	Submit(ctx context.Context, job worker.Job) error
}
