package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mau.fi/whatsmeow"
	wtypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/vicentereig/mediabot/internal/types"
)

type MessageDetails struct {
	ID        string
	ChatJID   string
	Sender    string
	Content   string
	Timestamp time.Time
	IsFromMe  bool
}

// HandleMessage extracts the text a user sent, falling back to media captions.
func HandleMessage(msg *events.Message) MessageDetails {
	sender := msg.Info.Sender.User
	if sender == "" {
		if s := msg.Info.Sender.String(); s != "" {
			sender = s
		}
	}

	details := MessageDetails{
		ID:        msg.Info.ID,
		ChatJID:   msg.Info.Chat.String(),
		Sender:    sender,
		Timestamp: msg.Info.Timestamp,
		IsFromMe:  msg.Info.IsFromMe,
	}

	if msg.Message == nil {
		return details
	}

	switch {
	case msg.Message.GetConversation() != "":
		details.Content = msg.Message.GetConversation()
	case msg.Message.GetExtendedTextMessage() != nil:
		details.Content = msg.Message.GetExtendedTextMessage().GetText()
	case msg.Message.GetImageMessage() != nil:
		details.Content = msg.Message.GetImageMessage().GetCaption()
	case msg.Message.GetVideoMessage() != nil:
		details.Content = msg.Message.GetVideoMessage().GetCaption()
	}

	return details
}

// menu is the last set of numbered choices sent to a chat.
type menu struct {
	messageID string
	tokens    []string
}

func (m menu) tokenFor(reply string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil || n < 1 || n > len(m.tokens) {
		return "", false
	}
	return m.tokens[n-1], true
}

// RenderMenu lays kb out as a numbered list below text. The returned tokens
// are indexed by the number shown minus one.
func RenderMenu(text string, kb types.Keyboard) (string, []string) {
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n")

	var tokens []string
	for _, row := range kb {
		for _, choice := range row {
			tokens = append(tokens, choice.Token)
			fmt.Fprintf(&b, "\n%d. %s", len(tokens), choice.Label)
		}
	}
	b.WriteString("\n\nReply with a number.")
	return b.String(), tokens
}

func contactLookupFunc(cli *whatsmeow.Client) func(ctx context.Context, user wtypes.JID) (wtypes.ContactInfo, error) {
	if cli == nil || cli.Store == nil || cli.Store.Contacts == nil {
		return nil
	}
	return func(ctx context.Context, user wtypes.JID) (wtypes.ContactInfo, error) {
		return cli.Store.Contacts.GetContact(ctx, user)
	}
}

func bestContactName(info wtypes.ContactInfo) string {
	if !info.Found {
		return ""
	}
	if name := strings.TrimSpace(info.FullName); name != "" {
		return name
	}
	if name := strings.TrimSpace(info.FirstName); name != "" {
		return name
	}
	if name := strings.TrimSpace(info.BusinessName); name != "" {
		return name
	}
	if name := strings.TrimSpace(info.PushName); name != "" && name != "-" {
		return name
	}
	return ""
}

// SenderName resolves a display name for log lines, falling back to the push
// name carried on the message and finally the raw JID.
func (w *WAClient) SenderName(ctx context.Context, msg *events.Message) string {
	jid := msg.Info.Sender.ToNonAD()
	if w.contactLookup != nil {
		if info, err := w.contactLookup(ctx, jid); err == nil {
			if name := bestContactName(info); name != "" {
				return name
			}
		}
	}
	if name := strings.TrimSpace(msg.Info.PushName); name != "" && name != "-" {
		return name
	}
	return jid.String()
}
