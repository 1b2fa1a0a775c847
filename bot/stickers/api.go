// Package stickers owns the bot-global sticker set slot: a permanent seed
// sticker plus at most one transient live sticker at a time. The vault
// serializes every publish cycle bot-wide; the publisher drives rendering
// and schedules the trim follow-up.
package stickers

import (
	"context"
	"errors"
)

// ErrCapacityExceeded reports that the platform rejected an append because
// the set is full. The slot policy caps the set at two stickers, so seeing
// this means trims have been failing.
var ErrCapacityExceeded = errors.New("stickers: set capacity exceeded")

// API is the narrow slice of platform sticker-set operations the vault
// needs. Implementations must treat "already exists" on create and "not
// modified" on delete as success.
type API interface {
	// SetStickers lists the file IDs of the named set in platform order,
	// reporting exists=false when the set has not been created yet.
	SetStickers(ctx context.Context, name string) (ids []string, exists bool, err error)
	// CreateSet registers a new set with a single permanent seed sticker.
	CreateSet(ctx context.Context, name, title string, seed []byte) error
	// AddSticker appends rendered sticker bytes to the set.
	AddSticker(ctx context.Context, name string, image []byte) error
	// DeleteSticker removes one sticker from its set by file ID.
	DeleteSticker(ctx context.Context, fileID string) error
}
