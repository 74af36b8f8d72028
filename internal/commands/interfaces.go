// Package commands provides the CLI command implementations.
//
// # Dependency Injection
//
// The interfaces below define the dependencies of App, enabling testability
// through mock injection. Types are shared via internal/types to avoid
// circular dependencies.
//
// Usage:
//   - Production: Use NewApp() which creates concrete implementations
//   - Testing: Use NewAppWithDeps() to inject mocks
package commands

import (
	"context"

	"github.com/vicentereig/mediabot/internal/bot"
	"github.com/vicentereig/mediabot/internal/download"
	"github.com/vicentereig/mediabot/internal/types"
)

// Platform is a chat transport the bot runs on.
// The concrete implementations are telegram.Client and client.WAClient.
type Platform interface {
	bot.Messenger
	download.Deliverer

	Name() string
	Run(ctx context.Context, h types.EventHandler) error
	Close() error
}

// Pairing links this process to a WhatsApp account.
// The concrete implementation is client.WAClient.
type Pairing interface {
	IsAuthenticated() bool
	Authenticate(ctx context.Context) error
	Close() error
}
