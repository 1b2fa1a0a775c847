package stickers

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/statusbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

const stickerEmoji = "🐦"

// TelebotAPI adapts the telebot sticker-set endpoints to the vault's API.
// Every call retries once after the mandated delay when the platform
// answers with a flood wait.
type TelebotAPI struct {
	bot     *tele.Bot
	ownerID int64
}

// NewTelebotAPI wires the adapter for the set-owning user.
func NewTelebotAPI(bot *tele.Bot, ownerID int64) *TelebotAPI {
	return &TelebotAPI{bot: bot, ownerID: ownerID}
}

func (a *TelebotAPI) owner() *tele.User {
	return &tele.User{ID: a.ownerID}
}

// withFloodRetry runs fn, sleeping out a single flood wait if the platform
// demands one. A second flood wait is returned to the caller.
func withFloodRetry(ctx context.Context, fn func() error) error {
	err := fn()
	wait, ok := netutil.RetryAfter(err)
	if !ok {
		return err
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return ctx.Err()
	}
	return fn()
}

func (a *TelebotAPI) SetStickers(ctx context.Context, name string) ([]string, bool, error) {
	var set *tele.StickerSet
	err := withFloodRetry(ctx, func() error {
		var err error
		set, err = a.bot.StickerSet(name)
		return err
	})
	if err != nil {
		if isMissingSet(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stickers: get set %s: %w", name, err)
	}
	ids := make([]string, len(set.Stickers))
	for i := range set.Stickers {
		ids[i] = set.Stickers[i].FileID
	}
	return ids, true, nil
}

func (a *TelebotAPI) CreateSet(ctx context.Context, name, title string, seed []byte) error {
	file, err := a.upload(ctx, seed)
	if err != nil {
		return err
	}
	err = withFloodRetry(ctx, func() error {
		return a.bot.CreateStickerSet(a.owner(), &tele.StickerSet{
			Name:  name,
			Title: title,
			Input: []tele.InputSticker{newInputSticker(file)},
		})
	})
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("stickers: create set %s: %w", name, err)
	}
	return nil
}

func (a *TelebotAPI) AddSticker(ctx context.Context, name string, image []byte) error {
	file, err := a.upload(ctx, image)
	if err != nil {
		return err
	}
	err = withFloodRetry(ctx, func() error {
		return a.bot.AddStickerToSet(a.owner(), name, newInputSticker(file))
	})
	if err != nil {
		if isCapacityExceeded(err) {
			return ErrCapacityExceeded
		}
		return fmt.Errorf("stickers: add to set %s: %w", name, err)
	}
	return nil
}

func (a *TelebotAPI) DeleteSticker(ctx context.Context, fileID string) error {
	err := withFloodRetry(ctx, func() error {
		return a.bot.DeleteSticker(fileID)
	})
	if err != nil && !isNotModified(err) {
		return fmt.Errorf("stickers: delete sticker: %w", err)
	}
	return nil
}

func (a *TelebotAPI) upload(ctx context.Context, image []byte) (tele.File, error) {
	var file *tele.File
	err := withFloodRetry(ctx, func() error {
		var err error
		file, err = a.bot.UploadSticker(a.owner(), tele.StickerStatic, tele.FromReader(bytes.NewReader(image)))
		return err
	})
	if err != nil {
		return tele.File{}, fmt.Errorf("stickers: upload: %w", err)
	}
	return *file, nil
}

func newInputSticker(file tele.File) tele.InputSticker {
	return tele.InputSticker{
		File:   file,
		Format: "static",
		Emojis: []string{stickerEmoji},
	}
}

func isMissingSet(err error) bool {
	return containsAny(err, "stickerset_invalid", "not found")
}

func isAlreadyExists(err error) bool {
	return containsAny(err, "already occupied", "already exists")
}

func isNotModified(err error) bool {
	return containsAny(err, "stickerset_not_modified", "not modified")
}

func isCapacityExceeded(err error) bool {
	return containsAny(err, "stickers_too_much", "too much")
}

func containsAny(err error, needles ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}
