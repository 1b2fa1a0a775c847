package stickers

import (
	"context"
	"log/slog"

	"github.com/m3rciful/statusbot/bot/render"
	"github.com/m3rciful/statusbot/core/logger"
	"github.com/m3rciful/statusbot/core/telegram/sender"
)

// Publisher turns text into a delivered sticker reference: it renders the
// artwork, appends it to the vault, and schedules the trim that returns the
// set to its seed once delivery is done.
type Publisher struct {
	renderer render.Renderer
	vault    *Vault
	disp     *sender.Dispatcher
}

// NewPublisher wires the publisher. The dispatcher is optional; without it
// trims run on a plain goroutine.
func NewPublisher(r render.Renderer, v *Vault, disp *sender.Dispatcher) *Publisher {
	return &Publisher{renderer: r, vault: v, disp: disp}
}

// Publish renders the text and returns the platform file ID of the freshly
// appended sticker. Rendering failures pass through unchanged so callers
// can show them to the user verbatim.
func (p *Publisher) Publish(ctx context.Context, req render.Request) (string, error) {
	image, err := p.renderer.Render(ctx, req)
	if err != nil {
		return "", err
	}

	fileID, err := p.vault.Append(ctx, image)
	if err != nil {
		return "", err
	}

	p.scheduleTrim(ctx)
	return fileID, nil
}

// scheduleTrim queues the trim as a best-effort follow-up so delivery is
// never blocked on it.
func (p *Publisher) scheduleTrim(ctx context.Context) {
	run := func() error {
		return p.vault.TrimToSeed(context.Background())
	}
	if p.disp != nil {
		if err := p.disp.Enqueue(ctx, "stickers.trim", "deleteStickerFromSet", run); err == nil {
			return
		}
	}
	go func() {
		if err := run(); err != nil {
			logger.Warn(context.Background(), "stickers", "set.trim",
				slog.String("status", "fail"),
				slog.String("set_name", p.vault.Name()),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	}()
}
