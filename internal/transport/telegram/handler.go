package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	apperrors "github.com/socialchef/recipebot/internal/errors"
	"github.com/socialchef/recipebot/internal/pipeline"
)

const (
	MsgWelcome = "Welcome! Send me a link to an Instagram video, and I'll extract the recipe."
	MsgHelp    = "Send me a link to a cooking video (Instagram, TikTok or YouTube). " +
		"I'll download it and reply with the recipe, converted to grams, as the video caption."
	MsgNoURL = "Please send a message with a valid URL."
)

// Replier answers a chat message.
type Replier interface {
	Reply(ctx context.Context, chatID int64, replyTo int, text string) error
}

// Dispatcher hands an accepted request to whatever runs the pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, req pipeline.Request) error
}

// Handler routes incoming updates: commands are answered directly and the
// first link in any other message is dispatched.
type Handler struct {
	replier    Replier
	dispatcher Dispatcher
}

func NewHandler(replier Replier, dispatcher Dispatcher) *Handler {
	return &Handler{replier: replier, dispatcher: dispatcher}
}

// HandleUpdate processes one update. Updates without a message are ignored.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			h.reply(ctx, chatID, msg.MessageID, MsgWelcome)
			return
		case "help":
			h.reply(ctx, chatID, msg.MessageID, MsgHelp)
			return
		}
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	urls := ExtractURLs(text)
	if len(urls) == 0 {
		h.reply(ctx, chatID, msg.MessageID, MsgNoURL)
		return
	}

	req := pipeline.Request{ChatID: chatID, MessageID: msg.MessageID, URL: urls[0]}
	slog.InfoContext(ctx, "Dispatching recipe request", "chat_id", chatID, "url", req.URL)
	if err := h.dispatcher.Dispatch(ctx, req); err != nil {
		slog.ErrorContext(ctx, "Failed to dispatch recipe request", "chat_id", chatID, "error", err)
		h.reply(ctx, chatID, msg.MessageID, apperrors.UserMessageFor(err))
	}
}

func (h *Handler) reply(ctx context.Context, chatID int64, replyTo int, text string) {
	if err := h.replier.Reply(ctx, chatID, replyTo, text); err != nil {
		slog.WarnContext(ctx, "Failed to reply", "chat_id", chatID, "error", err)
	}
}
