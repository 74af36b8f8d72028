// Package types provides shared data structures used across packages.
// This enables dependency inversion: the platform adapters and the bot both
// import types, rather than the bot importing a concrete chat client.
package types

import "context"

// Platform names.
const (
	PlatformTelegram = "telegram"
	PlatformWhatsApp = "whatsapp"
)

// ChatRef identifies a chat on a given platform. The ID is platform specific:
// a decimal chat id on Telegram, a JID on WhatsApp.
type ChatRef struct {
	Platform string
	ID       string
}

func (c ChatRef) String() string {
	return c.Platform + ":" + c.ID
}

// MessageRef points at a message previously sent by the bot.
type MessageRef struct {
	Chat ChatRef
	ID   string
}

// TextEvent is an inbound text message. Command is set (without the leading
// slash) when the text is a bot command such as /start.
type TextEvent struct {
	UserID  string
	Chat    ChatRef
	Text    string
	Command string
}

// ChoiceEvent is a button press (or numbered menu reply) carrying a choice token.
type ChoiceEvent struct {
	ID      string
	UserID  string
	Message MessageRef
	Token   string
}

// Choice is a single button.
type Choice struct {
	Label string
	Token string
}

// Keyboard is a grid of buttons, one slice per row.
type Keyboard [][]Choice

// Tokens returns all choice tokens in row order.
func (k Keyboard) Tokens() []string {
	var tokens []string
	for _, row := range k {
		for _, c := range row {
			tokens = append(tokens, c.Token)
		}
	}
	return tokens
}

// EventHandler receives inbound events from a platform adapter.
type EventHandler interface {
	HandleText(ctx context.Context, evt TextEvent)
	HandleChoice(ctx context.Context, evt ChoiceEvent)
}
