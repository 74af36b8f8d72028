package bot

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicentereig/mediabot/internal/capability"
	"github.com/vicentereig/mediabot/internal/download"
	"github.com/vicentereig/mediabot/internal/store"
	"github.com/vicentereig/mediabot/internal/types"
	"github.com/vicentereig/mediabot/internal/worker"
)

var (
	userChat = types.ChatRef{Platform: types.PlatformTelegram, ID: "555"}
	prompt   = types.MessageRef{Chat: userChat, ID: "10"}
)

type fixture struct {
	bot       *Bot
	messenger *MockMessenger
	sessions  *store.SessionStore
	downloads *MockDownloader
	scheduler *inlineScheduler
}

func newFixture(transcoder bool) *fixture {
	f := &fixture{
		messenger: &MockMessenger{},
		sessions:  store.NewSessionStore(),
		downloads: &MockDownloader{},
		scheduler: &inlineScheduler{},
	}
	f.bot = New(f.messenger, f.sessions, f.downloads, f.scheduler, capability.Capabilities{Transcoder: transcoder}, zerolog.Nop())
	return f
}

func sendLink(f *fixture, url string) {
	f.bot.HandleText(context.Background(), types.TextEvent{UserID: "u1", Chat: userChat, Text: url})
}

func press(f *fixture, token string) {
	f.bot.HandleChoice(context.Background(), types.ChoiceEvent{ID: "cb", UserID: "u1", Message: prompt, Token: token})
}

func TestStartGreetingShowsTranscoderStatus(t *testing.T) {
	f := newFixture(false)

	f.bot.HandleText(context.Background(), types.TextEvent{UserID: "u1", Chat: userChat, Text: "/start", Command: "start"})

	require.Len(t, f.messenger.Texts, 1)
	assert.Contains(t, f.messenger.Texts[0], "Send me a video link")
	assert.Contains(t, f.messenger.Texts[0], "❌ Not installed - Audio conversion disabled")
}

func TestOtherCommandsAreIgnored(t *testing.T) {
	f := newFixture(true)

	f.bot.HandleText(context.Background(), types.TextEvent{UserID: "u1", Chat: userChat, Text: "/help", Command: "help"})

	assert.Empty(t, f.messenger.Texts)
	assert.Empty(t, f.messenger.Choices)
}

func TestUnsupportedLinkLeavesSessionUntouched(t *testing.T) {
	f := newFixture(true)

	sendLink(f, "https://vimeo.com/123")

	assert.Equal(t, []string{UnsupportedURLMessage}, f.messenger.Texts)
	assert.Empty(t, f.messenger.Choices)
	_, ok := f.sessions.Get("u1")
	assert.False(t, ok)
}

func TestSupportedLinkStoresSessionAndOffersChoices(t *testing.T) {
	f := newFixture(true)

	sendLink(f, "  https://youtu.be/abc123  ")

	req, ok := f.sessions.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "https://youtu.be/abc123", req.URL, "link should be trimmed")
	assert.Equal(t, userChat, req.Destination)

	require.Len(t, f.messenger.Choices, 1)
	assert.Equal(t, ChooseModeMessage, f.messenger.Choices[0].Text)
	assert.Equal(t, []string{types.TokenVideo, types.TokenAudio, types.TokenHighQuality}, f.messenger.Choices[0].Keyboard.Tokens())
}

func TestKeyboardDisablesAudioWithoutTranscoder(t *testing.T) {
	kb := ModeKeyboard(capability.Capabilities{Transcoder: false})

	require.Len(t, kb, 2)
	require.Len(t, kb[0], 2)
	assert.Equal(t, types.Choice{Label: LabelAudioDisabled, Token: types.TokenFFmpegMissing}, kb[0][1])
	assert.Equal(t, LabelHighQuality, kb[1][0].Label)
}

func TestVideoChoiceDownloadsStoredLink(t *testing.T) {
	f := newFixture(true)
	sendLink(f, "https://youtu.be/abc123")

	press(f, types.TokenVideo)

	require.Len(t, f.downloads.Requests, 1)
	assert.Equal(t, download.Request{URL: "https://youtu.be/abc123", Mode: types.ModeVideo, Destination: userChat}, f.downloads.Requests[0])
	require.Len(t, f.messenger.Answers, 1)
	assert.False(t, f.messenger.Answers[0].Alert)
	assert.Equal(t, []edited{{Msg: prompt, Text: DownloadingMessage}}, f.messenger.Edits)
}

func TestHighQualityAndAudioChoicesMapToModes(t *testing.T) {
	f := newFixture(true)
	sendLink(f, "https://youtu.be/abc123")

	press(f, types.TokenHighQuality)
	press(f, types.TokenAudio)

	require.Len(t, f.downloads.Requests, 2)
	assert.Equal(t, types.ModeHighQualityVideo, f.downloads.Requests[0].Mode)
	assert.Equal(t, types.ModeAudio, f.downloads.Requests[1].Mode)
}

func TestSecondLinkOverwritesFirst(t *testing.T) {
	f := newFixture(true)
	sendLink(f, "https://youtu.be/first")
	sendLink(f, "https://youtu.be/second")

	press(f, types.TokenVideo)

	require.Len(t, f.downloads.Requests, 1)
	assert.Equal(t, "https://youtu.be/second", f.downloads.Requests[0].URL)
}

func TestChoiceWithoutSessionReportsExpiredLink(t *testing.T) {
	f := newFixture(true)

	press(f, types.TokenVideo)

	assert.Empty(t, f.downloads.Requests, "downloader must not be invoked")
	assert.Equal(t, []edited{{Msg: prompt, Text: LinkExpiredMessage}}, f.messenger.Edits)
	assert.Empty(t, f.messenger.Texts)
}

func TestAudioWithoutTranscoderOnlyAlerts(t *testing.T) {
	for _, token := range []string{types.TokenAudio, types.TokenFFmpegMissing} {
		t.Run(token, func(t *testing.T) {
			f := newFixture(false)
			sendLink(f, "https://youtu.be/abc123")

			press(f, token)

			assert.Empty(t, f.downloads.Requests)
			assert.Empty(t, f.messenger.Edits)
			require.Len(t, f.messenger.Answers, 1)
			assert.Equal(t, FFmpegMissingAlert, f.messenger.Answers[0].Text)
			assert.True(t, f.messenger.Answers[0].Alert)
		})
	}
}

// Sessions are not single-use: pressing a button again repeats the download.
func TestRepeatedChoiceRedownloadsSameLink(t *testing.T) {
	f := newFixture(true)
	sendLink(f, "https://youtu.be/abc123")

	press(f, types.TokenVideo)
	press(f, types.TokenVideo)

	require.Len(t, f.downloads.Requests, 2)
	assert.Equal(t, f.downloads.Requests[0], f.downloads.Requests[1])
}

func TestUnknownChoiceIsAcknowledgedAndIgnored(t *testing.T) {
	f := newFixture(true)
	sendLink(f, "https://youtu.be/abc123")

	press(f, "bogus")

	assert.Empty(t, f.downloads.Requests)
	require.Len(t, f.messenger.Answers, 1)
	assert.Empty(t, f.messenger.Answers[0].Text)
}

func TestSchedulerRejectionReportsGenericFailure(t *testing.T) {
	f := newFixture(true)
	f.scheduler.err = worker.ErrPoolStopped
	sendLink(f, "https://youtu.be/abc123")

	press(f, types.TokenVideo)

	assert.Empty(t, f.downloads.Requests)
	assert.Equal(t, []string{download.GenericFailure}, f.messenger.Texts)
}

func TestHandlerRecoversFromPanics(t *testing.T) {
	f := newFixture(true)
	f.messenger.SendTextFunc = func(ctx context.Context, to types.ChatRef, text string) error {
		panic("transport exploded")
	}

	assert.NotPanics(t, func() {
		sendLink(f, "not a link")
	})
}
