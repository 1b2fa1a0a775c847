package stickers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/m3rciful/statusbot/core/logger"
)

// Vault is the slot manager for the bot-global sticker set. The set holds
// a permanent seed sticker plus at most one live sticker; every append
// cycle runs under a bot-wide mutex so two users can never be handed each
// other's sticker.
type Vault struct {
	api      API
	name     string
	title    string
	seedPath string

	mu       sync.Mutex
	seeded   bool
	seedData []byte
}

// SetName derives the platform set name from the configured base and the
// bot's username, as the platform requires for bot-owned sets.
func SetName(base, botUsername string) string {
	return fmt.Sprintf("%s_by_%s", base, strings.ToLower(botUsername))
}

// NewVault constructs the slot manager. The seed file is read lazily on
// the first EnsureSeeded call.
func NewVault(a API, name, title, seedPath string) *Vault {
	return &Vault{api: a, name: name, title: title, seedPath: seedPath}
}

// Name returns the full platform set name.
func (v *Vault) Name() string { return v.name }

// EnsureSeeded creates the set with its permanent seed sticker when it
// does not exist yet. Idempotent; callers may invoke it on every publish.
func (v *Vault) EnsureSeeded(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ensureSeededLocked(ctx)
}

func (v *Vault) ensureSeededLocked(ctx context.Context) error {
	if v.seeded {
		return nil
	}
	_, exists, err := v.api.SetStickers(ctx, v.name)
	if err != nil {
		return err
	}
	if !exists {
		seed, err := v.seed()
		if err != nil {
			return err
		}
		if err := v.api.CreateSet(ctx, v.name, v.title, seed); err != nil {
			return err
		}
		logger.Info(ctx, "stickers", "set.create",
			slog.String("status", "ok"),
			slog.String("set_name", v.name),
		)
	}
	v.seeded = true
	return nil
}

func (v *Vault) seed() ([]byte, error) {
	if v.seedData != nil {
		return v.seedData, nil
	}
	data, err := os.ReadFile(v.seedPath)
	if err != nil {
		return nil, fmt.Errorf("stickers: read seed %s: %w", v.seedPath, err)
	}
	v.seedData = data
	return data, nil
}

// Append registers the rendered image in the set and returns its platform
// file ID. The whole ensure → append → fetch-last sequence runs inside the
// bot-wide critical section. A leftover live sticker from an earlier cycle
// is cleared first so the set never grows past two; when it cannot be
// cleared the publish is aborted.
func (v *Vault) Append(ctx context.Context, image []byte) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ensureSeededLocked(ctx); err != nil {
		return "", err
	}
	if err := v.trimLocked(ctx); err != nil {
		logger.Warn(ctx, "stickers", "set.pretrim",
			slog.String("status", "fail"),
			slog.String("set_name", v.name),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return "", fmt.Errorf("stickers: clear leftover in %s: %w", v.name, err)
	}

	if err := v.api.AddSticker(ctx, v.name, image); err != nil {
		return "", err
	}
	ids, exists, err := v.api.SetStickers(ctx, v.name)
	if err != nil {
		return "", err
	}
	if !exists || len(ids) == 0 {
		return "", fmt.Errorf("stickers: set %s vanished after append", v.name)
	}

	fileID := ids[len(ids)-1]
	logger.Info(ctx, "stickers", "set.append",
		slog.String("status", "ok"),
		slog.String("set_name", v.name),
		slog.Int("size", len(ids)),
	)
	return fileID, nil
}

// TrimToSeed deletes every sticker except the permanent seed. No-op when
// the set is already at size one.
func (v *Vault) TrimToSeed(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.trimLocked(ctx)
}

func (v *Vault) trimLocked(ctx context.Context) error {
	ids, exists, err := v.api.SetStickers(ctx, v.name)
	if err != nil {
		return err
	}
	if !exists || len(ids) <= 1 {
		return nil
	}
	for _, id := range ids[1:] {
		if err := v.api.DeleteSticker(ctx, id); err != nil {
			return err
		}
	}
	logger.Debug(ctx, "stickers", "set.trim",
		slog.String("status", "ok"),
		slog.String("set_name", v.name),
		slog.Int("removed", len(ids)-1),
	)
	return nil
}
