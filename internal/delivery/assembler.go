package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/socialchef/recipebot/internal/config"
	apperrors "github.com/socialchef/recipebot/internal/errors"
	"github.com/socialchef/recipebot/internal/metrics"
	"github.com/socialchef/recipebot/internal/services/media"
	"github.com/socialchef/recipebot/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MissingVideoNote prefixes the recipe when it is sent without its video.
const MissingVideoNote = "⚠️ The video could not be attached. Here is the recipe:"

// VideoUpload is one video message with its caption.
type VideoUpload struct {
	ChatID    int64
	FileName  string
	Reader    io.Reader
	Caption   string
	ParseMode string
	Width     int
	Height    int
	Duration  int
}

// Transport sends messages to a chat.
type Transport interface {
	SendVideo(ctx context.Context, upload VideoUpload) error
	Reply(ctx context.Context, chatID int64, replyTo int, text string) error
}

// Assembler delivers the final recipe together with its video.
type Assembler struct {
	transport    Transport
	missingVideo string
}

func NewAssembler(transport Transport, missingVideo string) *Assembler {
	if missingVideo == "" {
		missingVideo = config.MissingVideoNotify
	}
	return &Assembler{transport: transport, missingVideo: missingVideo}
}

// Deliver sends the video with the recipe as a formatted caption. If the chat
// API rejects the caption the file is rewound and sent once more with the
// plain text. A second rejection is returned as a delivery error.
func (a *Assembler) Deliver(ctx context.Context, chatID int64, replyTo int, video *media.Video, text string) error {
	ctx, span := telemetry.Tracer("delivery").Start(ctx, "delivery.deliver")
	defer span.End()

	f, err := os.Open(video.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			span.SetAttributes(attribute.Bool("video.missing", true))
			return a.deliverWithoutVideo(ctx, chatID, replyTo, text)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return apperrors.NewDeliveryError("open video", "VIDEO_OPEN_FAILED", err)
	}
	defer f.Close()

	caption, truncated := BuildCaption(text)
	if truncated {
		metrics.CaptionTruncatedTotal.Add(ctx, 1)
	}

	upload := VideoUpload{
		ChatID:    chatID,
		FileName:  filepath.Base(video.Path),
		Reader:    f,
		Caption:   caption,
		ParseMode: ParseModeMarkdownV2,
		Width:     deref(video.Width),
		Height:    deref(video.Height),
		Duration:  deref(video.Duration),
	}

	firstErr := a.transport.SendVideo(ctx, upload)
	if firstErr == nil {
		return nil
	}

	slog.WarnContext(ctx, "Formatted caption rejected, sending plain caption",
		"chat_id", chatID,
		"error", firstErr,
	)
	metrics.DeliveryFallbackTotal.Add(ctx, 1)
	span.AddEvent("plain_caption_fallback")

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return apperrors.NewDeliveryError("rewind video", "VIDEO_REWIND_FAILED", err)
	}

	upload.Caption = PlainCaption(text)
	upload.ParseMode = ""
	if err := a.transport.SendVideo(ctx, upload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return apperrors.NewDeliveryError("send video", "VIDEO_SEND_FAILED", fmt.Errorf("plain caption: %w (formatted caption: %v)", err, firstErr))
	}
	return nil
}

func (a *Assembler) deliverWithoutVideo(ctx context.Context, chatID int64, replyTo int, text string) error {
	if a.missingVideo == config.MissingVideoSkip {
		slog.WarnContext(ctx, "Video missing at delivery, nothing sent", "chat_id", chatID)
		return nil
	}

	slog.WarnContext(ctx, "Video missing at delivery, sending recipe as text", "chat_id", chatID)
	if err := a.transport.Reply(ctx, chatID, replyTo, PlainMessage(MissingVideoNote+"\n\n"+text)); err != nil {
		return apperrors.NewDeliveryError("send recipe text", "TEXT_SEND_FAILED", err)
	}
	return nil
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
