package timezone

import (
	"log/slog"
	"strings"

	"github.com/m3rciful/statusbot/bot/history"
	"github.com/m3rciful/statusbot/core/logger"
	"github.com/m3rciful/statusbot/core/telegram/dialog"
	tghelpers "github.com/m3rciful/statusbot/core/telegram/helpers"
	"github.com/m3rciful/statusbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

const (
	// StateChoosing is the single active state of the dialog.
	StateChoosing dialog.State = "choosing"

	resultIDPrefix  = "tz:"
	suggestionLimit = 10
)

// NewDialog builds the timezone-selection dialog. The user picks a zone
// from fuzzy inline suggestions; the platform then delivers a chosen-result
// notification, a via-bot message, or both, in no guaranteed order. Either
// one completes the dialog.
func NewDialog(store history.Store) *dialog.Dialog {
	return &dialog.Dialog{
		Name: "set_timezone",
		States: map[dialog.State][]dialog.Transition{
			StateChoosing: {
				{
					Kind:   dialog.KindInlineQuery,
					Handle: suggest,
				},
				{
					Kind: dialog.KindInlineResult,
					Match: func(c tele.Context) bool {
						return strings.HasPrefix(c.Update().InlineResult.ResultID, resultIDPrefix)
					},
					Handle: completeFromChosenResult(store),
				},
				{
					Kind: dialog.KindMessage,
					Match: func(c tele.Context) bool {
						msg := c.Update().Message
						return msg != nil && msg.Via != nil && Valid(strings.TrimSpace(msg.Text))
					},
					Handle: completeFromMessage(store),
				},
			},
		},
		OnTimeout: func(c tele.Context) error {
			return tghelpers.SendText(c, "Timezone selection timed out. Send /set_timezone to try again.")
		},
		OnFallback: func(c tele.Context) error {
			return tghelpers.ReplyText(c, "Please pick a timezone from the suggestions.")
		},
	}
}

// suggest answers the inline query with fuzzy-ranked zone articles. Picking
// one sends its zone name back through the bot, which is what the
// completion transitions listen for.
func suggest(c tele.Context, _ *dialog.Session) (dialog.State, error) {
	query := strings.TrimSpace(c.Query().Text)
	names := Search(query, suggestionLimit)

	results := make(tele.Results, 0, len(names))
	for _, name := range names {
		results = append(results, ui.NewSimpleArticleResult(resultIDPrefix+name, name, name))
	}

	err := c.Answer(&tele.QueryResponse{
		Results:    results,
		CacheTime:  1,
		IsPersonal: true,
	})
	if err != nil && !isQueryExpired(err) {
		return StateChoosing, err
	}
	return StateChoosing, nil
}

func completeFromChosenResult(store history.Store) dialog.Handler {
	return func(c tele.Context, _ *dialog.Session) (dialog.State, error) {
		zone := strings.TrimPrefix(c.Update().InlineResult.ResultID, resultIDPrefix)
		return finish(c, store, zone)
	}
}

func completeFromMessage(store history.Store) dialog.Handler {
	return func(c tele.Context, _ *dialog.Session) (dialog.State, error) {
		return finish(c, store, strings.TrimSpace(c.Text()))
	}
}

func finish(c tele.Context, store history.Store, zone string) (dialog.State, error) {
	if !Valid(zone) {
		if err := tghelpers.ReplyText(c, "That doesn't look like a known timezone, try again."); err != nil {
			return StateChoosing, err
		}
		return StateChoosing, nil
	}

	ctx := tghelpers.BuildContext(c)
	if err := store.SetTimezone(ctx, c.Sender().ID, zone); err != nil {
		return dialog.StateEnd, err
	}
	logger.Info(ctx, "dialog", "timezone.set",
		slog.String("status", "ok"),
		slog.String("state", string(dialog.StateEnd)),
		slog.Int64("user_id", c.Sender().ID),
	)
	if c.Chat() != nil {
		if err := tghelpers.SendText(c, "Timezone set to "+zone+"."); err != nil {
			return dialog.StateEnd, err
		}
	}
	return dialog.StateEnd, nil
}

func isQueryExpired(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "query is too old") ||
		strings.Contains(msg, "query id is invalid")
}
