package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/statusbot/core/logger"
	"github.com/m3rciful/statusbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// Dispatcher returns the currently wired asynchronous sender, or nil.
func Dispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := Dispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// ReplyText replies to the originating message with plain text and optional markup.
func ReplyText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return sendAsync(c, "reply.text", "sendMessage", func() error {
		if rm != nil {
			return c.Reply(text, rm)
		}
		return c.Reply(text)
	})
}

// NotifyUploadingPhoto shows the "uploading a photo" chat action while a
// sticker is being rendered. Failures are ignored; the action is cosmetic.
func NotifyUploadingPhoto(c tele.Context) {
	_ = c.Notify(tele.UploadingPhoto)
}

// ReplySticker replies to the originating message with a cached sticker.
func ReplySticker(c tele.Context, fileID string) error {
	return sendAsync(c, "reply.sticker", "sendSticker", func() error {
		return c.Reply(&tele.Sticker{File: tele.File{FileID: fileID}})
	})
}
