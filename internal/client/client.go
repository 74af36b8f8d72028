// Package client connects the bot to WhatsApp through a linked device.
//
// WhatsApp has no inline keyboards for linked devices, so choices are sent as
// a numbered menu and a numeric reply is turned into a choice event.
package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	wtypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/vicentereig/mediabot/internal/types"
)

// ErrNotAuthenticated is returned by Run when no device has been paired yet.
var ErrNotAuthenticated = errors.New("whatsapp device is not paired; run the auth command first")

type WAClient struct {
	client   *whatsmeow.Client
	storeDir string
	logger   zerolog.Logger

	contactLookup func(ctx context.Context, user wtypes.JID) (wtypes.ContactInfo, error)

	mu    sync.Mutex
	menus map[string]menu
}

func NewWAClient(storeDir string, logger zerolog.Logger) (*WAClient, error) {
	// Create store directory
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %v", err)
	}

	logger = logger.With().Str("platform", types.PlatformWhatsApp).Logger()

	ctx := context.Background()
	dbLog := waLog.Zerolog(logger.With().Str("module", "database").Logger().Level(zerolog.ErrorLevel))
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsapp.db?_foreign_keys=on", storeDir), dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			deviceStore = container.NewDevice()
		} else {
			return nil, fmt.Errorf("failed to get device: %v", err)
		}
	}

	clientLog := waLog.Zerolog(logger.With().Str("module", "client").Logger().Level(zerolog.WarnLevel))
	client := whatsmeow.NewClient(deviceStore, clientLog)

	return &WAClient{
		client:        client,
		storeDir:      storeDir,
		logger:        logger,
		contactLookup: contactLookupFunc(client),
		menus:         make(map[string]menu),
	}, nil
}

func (w *WAClient) Name() string {
	return types.PlatformWhatsApp
}

func (w *WAClient) IsAuthenticated() bool {
	return w.client.Store.ID != nil
}

// Authenticate pairs this process as a linked device by printing a QR code.
func (w *WAClient) Authenticate(ctx context.Context) error {
	if w.IsAuthenticated() {
		return nil
	}

	qrChan, _ := w.client.GetQRChannel(ctx)
	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %v", err)
	}

	for evt := range qrChan {
		if evt.Event == "code" {
			fmt.Println("\nScan this QR code with your WhatsApp app:")
			// Use Medium error correction and compact output
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.M, os.Stdout)
		} else if evt.Event == "success" {
			fmt.Println("\n✓ Successfully authenticated!")
			return nil
		}
	}

	return fmt.Errorf("authentication failed")
}

func (w *WAClient) Connect(ctx context.Context) error {
	if !w.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %v", err)
	}

	return nil
}

func (w *WAClient) Disconnect() {
	if w.client != nil {
		w.client.Disconnect()
	}
}

// Close disconnects from WhatsApp.
func (w *WAClient) Close() error {
	w.Disconnect()
	return nil
}

// Run connects and dispatches inbound messages to h until ctx is cancelled.
// The connection stays open after Run returns so that in-flight downloads can
// still deliver; Close disconnects.
func (w *WAClient) Run(ctx context.Context, h types.EventHandler) error {
	w.client.AddEventHandler(func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Message:
			w.dispatch(ctx, h, v)
		case *events.Connected:
			w.logger.Info().Msg("connected to WhatsApp")
		case *events.Disconnected:
			w.logger.Warn().Msg("disconnected from WhatsApp")
		}
	})

	if err := w.Connect(ctx); err != nil {
		return err
	}
	w.logger.Info().Msg("listening for messages")

	<-ctx.Done()
	return nil
}

func (w *WAClient) dispatch(ctx context.Context, h types.EventHandler, msg *events.Message) {
	details := HandleMessage(msg)
	if details.IsFromMe || details.Content == "" {
		return
	}
	w.logger.Debug().
		Str("chat", details.ChatJID).
		Str("from", w.SenderName(ctx, msg)).
		Msg("message received")

	if choice, ok := w.choiceFor(details); ok {
		h.HandleChoice(ctx, choice)
		return
	}

	text := strings.TrimSpace(details.Content)
	evt := types.TextEvent{
		UserID: details.Sender,
		Chat:   chatRef(details.ChatJID),
		Text:   details.Content,
	}
	if strings.HasPrefix(text, "/") {
		evt.Command = strings.TrimPrefix(strings.Fields(text)[0], "/")
	}
	h.HandleText(ctx, evt)
}

// choiceFor maps a numeric reply to the menu last sent to that chat.
func (w *WAClient) choiceFor(details MessageDetails) (types.ChoiceEvent, bool) {
	w.mu.Lock()
	m, ok := w.menus[details.ChatJID]
	w.mu.Unlock()
	if !ok {
		return types.ChoiceEvent{}, false
	}

	token, ok := m.tokenFor(details.Content)
	if !ok {
		return types.ChoiceEvent{}, false
	}
	return types.ChoiceEvent{
		ID:      details.ID,
		UserID:  details.Sender,
		Token:   token,
		Message: types.MessageRef{Chat: chatRef(details.ChatJID), ID: m.messageID},
	}, true
}

func (w *WAClient) send(ctx context.Context, chatJID string, msg *waProto.Message) (string, error) {
	if !w.client.IsConnected() {
		return "", fmt.Errorf("not connected to WhatsApp")
	}

	recipientJID, err := parseJID(chatJID)
	if err != nil {
		return "", err
	}

	resp, err := w.client.SendMessage(ctx, recipientJID, msg)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// SendText sends a plain message.
func (w *WAClient) SendText(ctx context.Context, to types.ChatRef, text string) error {
	_, err := w.send(ctx, to.ID, &waProto.Message{
		Conversation: proto.String(text),
	})
	return err
}

// SendChoices sends a numbered menu and remembers it for the chat.
func (w *WAClient) SendChoices(ctx context.Context, to types.ChatRef, text string, kb types.Keyboard) error {
	body, tokens := RenderMenu(text, kb)
	id, err := w.send(ctx, to.ID, &waProto.Message{
		Conversation: proto.String(body),
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.menus[to.ID] = menu{messageID: id, tokens: tokens}
	w.mu.Unlock()
	return nil
}

// EditText edits a message previously sent by this device.
func (w *WAClient) EditText(ctx context.Context, ref types.MessageRef, text string) error {
	if ref.ID == "" {
		return w.SendText(ctx, ref.Chat, text)
	}
	chatJID, err := parseJID(ref.Chat.ID)
	if err != nil {
		return err
	}
	edit := w.client.BuildEdit(chatJID, ref.ID, &waProto.Message{
		Conversation: proto.String(text),
	})
	_, err = w.send(ctx, ref.Chat.ID, edit)
	return err
}

// Answer has no acknowledgement on WhatsApp; a text, if any, is sent as a message.
func (w *WAClient) Answer(ctx context.Context, choice types.ChoiceEvent, text string, alert bool) error {
	if text == "" {
		return nil
	}
	return w.SendText(ctx, choice.Message.Chat, text)
}

func chatRef(jid string) types.ChatRef {
	return types.ChatRef{Platform: types.PlatformWhatsApp, ID: jid}
}

func parseJID(recipient string) (wtypes.JID, error) {
	// If already a JID, parse it
	if strings.Contains(recipient, "@") {
		return wtypes.ParseJID(recipient)
	}

	// Otherwise, assume it's a phone number
	return wtypes.JID{
		User:   recipient,
		Server: wtypes.DefaultUserServer,
	}, nil
}
