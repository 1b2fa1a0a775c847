// Package inline correlates inline-query answers with the asynchronous
// chosen-result notifications that follow. A freshly published sticker is
// tracked as a per-user pending selection until the platform confirms the
// user actually picked it, at which point it is promoted into history.
package inline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/m3rciful/statusbot/bot/history"
	"github.com/m3rciful/statusbot/bot/render"
	"github.com/m3rciful/statusbot/core/logger"
	"github.com/m3rciful/statusbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

const historyIDPrefix = "history:"

// Publisher is the slice of the sticker publisher the reconciler needs.
type Publisher interface {
	Publish(ctx context.Context, req render.Request) (string, error)
}

type pendingSelection struct {
	key    string
	fileID string
}

// Reconciler tracks at most one pending selection per user and resolves
// chosen-result notifications against it.
type Reconciler struct {
	publisher Publisher
	store     history.Store

	mu      sync.Mutex
	pending map[int64]pendingSelection
}

// NewReconciler wires the reconciler to its collaborators.
func NewReconciler(p Publisher, store history.Store) *Reconciler {
	return &Reconciler{
		publisher: p,
		store:     store,
		pending:   make(map[int64]pendingSelection),
	}
}

// BuildResults answers an inline query: non-empty text publishes a fresh
// sticker and records it as the user's pending selection, superseding any
// previous one. The answer lists the pending sticker first, then history
// most-recent first. Empty text returns history only and records nothing.
// A rendering failure degrades to history plus an article naming the
// reason; it never fails the answer.
func (r *Reconciler) BuildResults(ctx context.Context, user *tele.User, text string) (tele.Results, error) {
	past, err := r.store.Stickers(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	results := make(tele.Results, 0, len(past)+1)

	if strings.TrimSpace(text) != "" {
		// Timezone stamping is cosmetic; a store hiccup must not block
		// the answer.
		zone, _ := r.store.Timezone(ctx, user.ID)
		fileID, err := r.publisher.Publish(ctx, render.Request{
			Text:     text,
			Username: user.Username,
			FullName: fullName(user),
			Timezone: zone,
		})
		switch {
		case err == nil:
			key := uuid.NewString()
			r.supersede(ctx, user.ID, pendingSelection{key: key, fileID: fileID})
			results = append(results, ui.NewCachedStickerResult(key, fileID))
		case isRenderError(err):
			results = append(results, ui.NewSimpleArticleResult(
				uuid.NewString(), "Can't render that", err.Error()))
		default:
			return nil, err
		}
	}

	// History candidates, most-recent first. The result ID encodes the
	// append position so resolution can tell history picks from pending.
	for i := len(past) - 1; i >= 0; i-- {
		results = append(results, ui.NewCachedStickerResult(
			fmt.Sprintf("%s%d", historyIDPrefix, i), past[i]))
	}

	return results, nil
}

// Resolve consumes a chosen-result notification. A matching pending key
// promotes the sticker into history; a history pick or an unknown key only
// clears whatever pending selection is left.
func (r *Reconciler) Resolve(ctx context.Context, userID int64, resultID string) error {
	r.mu.Lock()
	p, ok := r.pending[userID]
	switch {
	case ok && resultID == p.key:
		delete(r.pending, userID)
	case strings.HasPrefix(resultID, historyIDPrefix):
		// A history pick makes any leftover pending selection stale.
		delete(r.pending, userID)
	}
	r.mu.Unlock()

	switch {
	case ok && resultID == p.key:
		if err := r.store.AppendSticker(ctx, userID, p.fileID); err != nil {
			return err
		}
		logger.Info(ctx, "inline", "pending.promote",
			slog.String("status", "ok"),
			slog.String("pending_key", p.key),
			slog.Int64("user_id", userID),
		)
	case strings.HasPrefix(resultID, historyIDPrefix):
		logger.Debug(ctx, "inline", "history.pick",
			slog.String("status", "ok"),
			slog.String("result_id", resultID),
			slog.Int64("user_id", userID),
		)
	default:
		// The sticker was already shown to the user as a candidate, so a
		// miss has no user-visible effect; it only signals stale state.
		logger.Warn(ctx, "inline", "reconcile.miss",
			slog.String("status", "skip"),
			slog.String("result_id", logger.SanitizeLimit(resultID, 64)),
			slog.Int64("user_id", userID),
		)
	}
	return nil
}

// Pending reports whether the user currently has a pending selection.
func (r *Reconciler) Pending(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[userID]
	return ok
}

func (r *Reconciler) supersede(ctx context.Context, userID int64, p pendingSelection) {
	r.mu.Lock()
	old, had := r.pending[userID]
	r.pending[userID] = p
	r.mu.Unlock()

	if had {
		logger.Debug(ctx, "inline", "pending.supersede",
			slog.String("status", "ok"),
			slog.String("pending_key", old.key),
			slog.Int64("user_id", userID),
		)
	}
}

func isRenderError(err error) bool {
	var rerr *render.Error
	return errors.As(err, &rerr)
}

func fullName(user *tele.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}
	return name
}

// IsQueryExpired reports the platform telling us the inline query died
// before we answered. Callers drop the answer instead of failing.
func IsQueryExpired(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "query is too old") ||
		strings.Contains(msg, "query id is invalid")
}
