package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/socialchef/recipebot/internal/delivery"
	"github.com/socialchef/recipebot/internal/metrics"
	"github.com/socialchef/recipebot/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const pollTimeoutSeconds = 60

// botAPI is the part of tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	UploadFiles(endpoint string, params tgbotapi.Params, files []tgbotapi.RequestFile) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client sends and receives chat messages through the Telegram Bot API.
type Client struct {
	bot botAPI
}

// New authenticates with the Bot API using httpClient for every call.
func New(token string, httpClient *http.Client) (*Client, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	slog.Info("Authorized on Telegram", "bot", bot.Self.UserName)
	return &Client{bot: bot}, nil
}

func newWithAPI(bot botAPI) *Client {
	return &Client{bot: bot}
}

// Reply sends a plain text message answering the message replyTo.
func (c *Client) Reply(ctx context.Context, chatID int64, replyTo int, text string) error {
	return c.call(ctx, "sendMessage", chatID, func() error {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyToMessageID = replyTo
		_, err := c.bot.Send(msg)
		return err
	})
}

// SendVideo uploads a video with its caption.
func (c *Client) SendVideo(ctx context.Context, upload delivery.VideoUpload) error {
	return c.call(ctx, "sendVideo", upload.ChatID, func() error {
		params := tgbotapi.Params{"chat_id": strconv.FormatInt(upload.ChatID, 10)}
		params.AddNonEmpty("caption", upload.Caption)
		params.AddNonEmpty("parse_mode", upload.ParseMode)
		params.AddNonZero("width", upload.Width)
		params.AddNonZero("height", upload.Height)
		params.AddNonZero("duration", upload.Duration)
		params["supports_streaming"] = "true"

		files := []tgbotapi.RequestFile{{
			Name: "video",
			Data: tgbotapi.FileReader{Name: upload.FileName, Reader: upload.Reader},
		}}
		_, err := c.bot.UploadFiles("sendVideo", params, files)
		return err
	})
}

// SetWebhook points the bot at url so updates are pushed instead of polled.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	return c.call(ctx, "setWebhook", 0, func() error {
		wh, err := tgbotapi.NewWebhook(url)
		if err != nil {
			return err
		}
		_, err = c.bot.Request(wh)
		return err
	})
}

// DeleteWebhook switches the bot back to long polling.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", 0, func() error {
		_, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{})
		return err
	})
}

// Poll long-polls for updates and passes each one to handle until ctx is done.
func (c *Client) Poll(ctx context.Context, handle func(ctx context.Context, update tgbotapi.Update)) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := c.bot.GetUpdatesChan(u)

	slog.InfoContext(ctx, "Polling for updates")
	for {
		select {
		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			handle(ctx, update)
		}
	}
}

func (c *Client) call(ctx context.Context, method string, chatID int64, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := telemetry.Tracer("telegram").Start(ctx, "telegram."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int64("chat.id", chatID)),
	)
	defer span.End()

	start := time.Now()
	err := fn()
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.RecordExternalCall(ctx, "Telegram", method, status, time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	return nil
}
