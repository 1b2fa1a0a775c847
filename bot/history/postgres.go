package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/statusbot/core/logger"
)

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore constructs a Store backed by the bot database. The
// schema is managed by the migrations shipped with the binary.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (p *postgresStore) AppendSticker(ctx context.Context, userID int64, fileID string) error {
	const q = `INSERT INTO sticker_history (user_id, file_id) VALUES ($1, $2)`
	if _, err := p.db.ExecContext(ctx, q, userID, fileID); err != nil {
		return fmt.Errorf("history: append sticker: %w", err)
	}
	logger.Debug(ctx, "history", "sticker.append",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
	)
	return nil
}

func (p *postgresStore) Stickers(ctx context.Context, userID int64) ([]string, error) {
	const q = `SELECT file_id FROM sticker_history WHERE user_id = $1 ORDER BY id ASC`
	var out []string
	if err := p.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, fmt.Errorf("history: list stickers: %w", err)
	}
	return out, nil
}

func (p *postgresStore) SetTimezone(ctx context.Context, userID int64, zone string) error {
	const q = `INSERT INTO user_settings (user_id, timezone)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET timezone = EXCLUDED.timezone, updated_at = now()`
	if _, err := p.db.ExecContext(ctx, q, userID, zone); err != nil {
		return fmt.Errorf("history: set timezone: %w", err)
	}
	return nil
}

func (p *postgresStore) Timezone(ctx context.Context, userID int64) (string, error) {
	const q = `SELECT timezone FROM user_settings WHERE user_id = $1`
	var zone string
	err := p.db.GetContext(ctx, &zone, q, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("history: get timezone: %w", err)
	}
	return zone, nil
}
