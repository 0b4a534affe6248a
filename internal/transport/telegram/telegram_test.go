package telegram

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/socialchef/recipebot/internal/delivery"
	"github.com/socialchef/recipebot/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	endpoint string
	params   tgbotapi.Params
	fileName string
	content  string
}

type fakeBot struct {
	mu       sync.Mutex
	sendErr  error
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
	uploads  []upload
	updates  chan tgbotapi.Update
	stopped  bool
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, msg)
	}
	return tgbotapi.Message{}, b.sendErr
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) UploadFiles(endpoint string, params tgbotapi.Params, files []tgbotapi.RequestFile) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := upload{endpoint: endpoint, params: params}
	if len(files) == 1 {
		if fr, ok := files[0].Data.(tgbotapi.FileReader); ok {
			u.fileName = fr.Name
			data, _ := io.ReadAll(fr.Reader)
			u.content = string(data)
		}
	}
	b.uploads = append(b.uploads, u)
	return &tgbotapi.APIResponse{Ok: true}, b.sendErr
}

func (b *fakeBot) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return b.updates
}

func (b *fakeBot) StopReceivingUpdates() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
}

func TestReply(t *testing.T) {
	bot := &fakeBot{}
	client := newWithAPI(bot)

	require.NoError(t, client.Reply(context.Background(), 42, 7, "hello"))

	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Equal(t, 7, bot.sent[0].ReplyToMessageID)
	assert.Equal(t, "hello", bot.sent[0].Text)
}

func TestReplyErrors(t *testing.T) {
	bot := &fakeBot{sendErr: errors.New("Forbidden: bot was blocked by the user")}
	err := newWithAPI(bot).Reply(context.Background(), 42, 7, "hello")
	assert.ErrorContains(t, err, "blocked")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, newWithAPI(&fakeBot{}).Reply(ctx, 1, 1, "x"), context.Canceled)
}

func TestSendVideo(t *testing.T) {
	bot := &fakeBot{}
	client := newWithAPI(bot)

	err := client.SendVideo(context.Background(), delivery.VideoUpload{
		ChatID:    42,
		FileName:  "video_42_x.mp4",
		Reader:    strings.NewReader("bytes"),
		Caption:   "```Pancakes```",
		ParseMode: delivery.ParseModeMarkdownV2,
		Width:     720,
		Height:    1280,
	})

	require.NoError(t, err)
	require.Len(t, bot.uploads, 1)
	u := bot.uploads[0]
	assert.Equal(t, "sendVideo", u.endpoint)
	assert.Equal(t, "42", u.params["chat_id"])
	assert.Equal(t, "```Pancakes```", u.params["caption"])
	assert.Equal(t, "MarkdownV2", u.params["parse_mode"])
	assert.Equal(t, "720", u.params["width"])
	assert.Equal(t, "1280", u.params["height"])
	assert.NotContains(t, u.params, "duration")
	assert.Equal(t, "video_42_x.mp4", u.fileName)
	assert.Equal(t, "bytes", u.content)
}

func TestSendVideoPlainCaptionOmitsParseMode(t *testing.T) {
	bot := &fakeBot{}

	err := newWithAPI(bot).SendVideo(context.Background(), delivery.VideoUpload{
		ChatID:  1,
		Reader:  strings.NewReader(""),
		Caption: "plain",
	})

	require.NoError(t, err)
	assert.NotContains(t, bot.uploads[0].params, "parse_mode")
}

func TestWebhookRequests(t *testing.T) {
	bot := &fakeBot{}
	client := newWithAPI(bot)

	require.NoError(t, client.SetWebhook(context.Background(), "https://bot.example.com/telegram/webhook/s3cret"))
	require.NoError(t, client.DeleteWebhook(context.Background()))

	require.Len(t, bot.requests, 2)
	wh, ok := bot.requests[0].(tgbotapi.WebhookConfig)
	require.True(t, ok)
	assert.Equal(t, "/telegram/webhook/s3cret", wh.URL.Path)
	_, ok = bot.requests[1].(tgbotapi.DeleteWebhookConfig)
	assert.True(t, ok)
}

func TestPollStopsOnCancel(t *testing.T) {
	bot := &fakeBot{updates: make(chan tgbotapi.Update, 1)}
	client := newWithAPI(bot)
	bot.updates <- tgbotapi.Update{UpdateID: 1}

	ctx, cancel := context.WithCancel(context.Background())
	handled := make(chan int, 1)
	done := make(chan error, 1)
	go func() {
		done <- client.Poll(ctx, func(ctx context.Context, u tgbotapi.Update) {
			handled <- u.UpdateID
		})
	}()

	select {
	case id := <-handled:
		assert.Equal(t, 1, id)
	case <-time.After(time.Second):
		t.Fatal("update not handled")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poll did not stop")
	}
	assert.True(t, bot.stopped)
}

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"full url", "look https://www.instagram.com/reel/abc123/ wow", []string{"https://www.instagram.com/reel/abc123/"}},
		{"no scheme", "instagram.com/reel/xyz", []string{"https://instagram.com/reel/xyz"}},
		{"keeps order", "https://a.com/1 then http://b.com/2", []string{"https://a.com/1", "http://b.com/2"}},
		{"email is not a link", "mail me at chef@example.com", []string{}},
		{"no links", "just some words", []string{}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractURLs(tt.text))
		})
	}
}

type recordingReplier struct {
	replies []string
}

func (r *recordingReplier) Reply(ctx context.Context, chatID int64, replyTo int, text string) error {
	r.replies = append(r.replies, text)
	return nil
}

type recordingDispatcher struct {
	err  error
	reqs []pipeline.Request
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, req pipeline.Request) error {
	d.reqs = append(d.reqs, req)
	return d.err
}

func message(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 7,
		Chat:      &tgbotapi.Chat{ID: 42},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		end := strings.IndexByte(text, ' ')
		if end < 0 {
			end = len(text)
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestHandleUpdate(t *testing.T) {
	tests := []struct {
		name        string
		update      tgbotapi.Update
		wantReplies []string
		wantURL     string
	}{
		{"start", message("/start"), []string{MsgWelcome}, ""},
		{"help", message("/help"), []string{MsgHelp}, ""},
		{"no url", message("hello there"), []string{MsgNoURL}, ""},
		{"first url wins", message("https://www.instagram.com/reel/a/ https://www.tiktok.com/@x/video/1"), nil, "https://www.instagram.com/reel/a/"},
		{"no message", tgbotapi.Update{UpdateID: 3}, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replier := &recordingReplier{}
			dispatcher := &recordingDispatcher{}

			NewHandler(replier, dispatcher).HandleUpdate(context.Background(), tt.update)

			assert.Equal(t, tt.wantReplies, replier.replies)
			if tt.wantURL == "" {
				assert.Empty(t, dispatcher.reqs)
				return
			}
			require.Len(t, dispatcher.reqs, 1)
			assert.Equal(t, pipeline.Request{ChatID: 42, MessageID: 7, URL: tt.wantURL}, dispatcher.reqs[0])
		})
	}
}

func TestHandleUpdateUsesCaption(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 9,
		Chat:      &tgbotapi.Chat{ID: 5},
		Caption:   "recipe at youtu.be/abc",
	}}

	NewHandler(&recordingReplier{}, dispatcher).HandleUpdate(context.Background(), update)

	require.Len(t, dispatcher.reqs, 1)
	assert.Equal(t, "https://youtu.be/abc", dispatcher.reqs[0].URL)
}

func TestHandleUpdateDispatchFailure(t *testing.T) {
	replier := &recordingReplier{}
	dispatcher := &recordingDispatcher{err: errors.New("queue unavailable")}

	NewHandler(replier, dispatcher).HandleUpdate(context.Background(), message("https://instagram.com/reel/a"))

	assert.Equal(t, []string{"An unexpected error occurred: queue unavailable"}, replier.replies)
}
