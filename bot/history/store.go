// Package history keeps the per-user record of confirmed stickers and
// settings. Stickers are append-only; nothing here prunes them.
package history

import "context"

// Store persists per-user sticker history and settings.
type Store interface {
	// AppendSticker records a confirmed sticker file ID for the user.
	AppendSticker(ctx context.Context, userID int64, fileID string) error
	// Stickers returns the user's confirmed file IDs in append order,
	// oldest first.
	Stickers(ctx context.Context, userID int64) ([]string, error)
	// SetTimezone stores the user's IANA timezone name.
	SetTimezone(ctx context.Context, userID int64, zone string) error
	// Timezone returns the user's timezone, or "" when unset.
	Timezone(ctx context.Context, userID int64) (string, error)
}
