// Package handlers hosts the bot-facing entry points: the text-to-sticker
// reply flow, the inline query surface, and the settings commands.
package handlers

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/statusbot/bot/inline"
	"github.com/m3rciful/statusbot/bot/render"
	"github.com/m3rciful/statusbot/core/logger"
	tghelpers "github.com/m3rciful/statusbot/core/telegram/helpers"
	"github.com/m3rciful/statusbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

const (
	homepageURL = "https://github.com/m3rciful/statusbot"

	startText = "Hi! Send me any text and I'll turn it into a status sticker. " +
		"You can also use me inline in any chat: type my username followed by your text."
	helpText = "Send text here to get a sticker reply.\n" +
		"Inline: mention me in any chat, type your text, pick the sticker.\n" +
		"/set_timezone changes the timestamp on your stickers."
	nonTextReply = "I can only turn text into stickers."
)

// handleStatus renders the incoming text and replies with the published
// sticker. This is the text fallback, so it sees everything that is not a
// command and not part of an active dialog.
func (a *App) handleStatus(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	if text == "" {
		return tghelpers.ReplyText(c, nonTextReply)
	}

	ctx := tghelpers.BuildContext(c)
	tghelpers.NotifyUploadingPhoto(c)

	zone, _ := a.store.Timezone(ctx, c.Sender().ID)
	fileID, err := a.publisher.Publish(ctx, render.Request{
		Text:     text,
		Username: c.Sender().Username,
		FullName: strings.TrimSpace(c.Sender().FirstName + " " + c.Sender().LastName),
		Timezone: zone,
	})
	if err != nil {
		var rerr *render.Error
		if errors.As(err, &rerr) {
			return tghelpers.ReplyText(c, rerr.Reason,
				keyboard.SwitchInlineMarkup("Try again", text))
		}
		a.notifier.Escalate(c, err)
		return nil
	}

	if err := tghelpers.ReplySticker(c, fileID); err != nil {
		a.notifier.Escalate(c, err)
		return nil
	}

	// Direct sends are confirmed by construction, so they go straight
	// into history.
	if err := a.store.AppendSticker(ctx, c.Sender().ID, fileID); err != nil {
		logger.Warn(ctx, "history", "sticker.append",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	return nil
}

// handleInlineQuery publishes (for non-empty text) and answers with the
// pending candidate first, then history.
func (a *App) handleInlineQuery(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	query := c.Query()

	results, err := a.reconciler.BuildResults(ctx, c.Sender(), query.Text)
	if err != nil {
		// No chat to apologize in; the operator still hears about it.
		a.notifier.Escalate(c, err)
		return nil
	}

	err = c.Answer(&tele.QueryResponse{
		Results:    results,
		CacheTime:  1,
		IsPersonal: true,
	})
	if err != nil {
		if inline.IsQueryExpired(err) {
			logger.Debug(ctx, "inline", "answer.expired",
				slog.String("status", "skip"),
				slog.Int("candidates", len(results)),
			)
			return nil
		}
		return err
	}
	return nil
}

// handleChosenResult resolves the platform's pick notification against the
// user's pending selection.
func (a *App) handleChosenResult(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	chosen := c.Update().InlineResult
	if chosen == nil {
		return nil
	}
	return a.reconciler.Resolve(ctx, c.Sender().ID, chosen.ResultID)
}

func (a *App) handleStart(c tele.Context) error {
	return tghelpers.ReplyText(c, startText,
		keyboard.SwitchInlineAnywhereMarkup("Try it inline", "Hello world!"))
}

func (a *App) handleHelp(c tele.Context) error {
	return tghelpers.ReplyText(c, helpText)
}

func (a *App) handleInfo(c tele.Context) error {
	return tghelpers.ReplyText(c, "I'm an open-source status sticker bot.",
		keyboard.URLMarkup("Source code", homepageURL))
}

// handleSetTimezone opens the selection dialog and nudges the user into
// inline mode where the fuzzy suggestions live.
func (a *App) handleSetTimezone(c tele.Context) error {
	if err := a.engine.Start(c, a.tzDialog, a.tzEntryState); err != nil {
		return err
	}
	return tghelpers.ReplyText(c,
		"Pick your timezone from the suggestions.",
		keyboard.SwitchInlineMarkup("Choose timezone", ""))
}

func (a *App) handleStats(c tele.Context) error {
	var b strings.Builder
	b.WriteString("set: " + a.vault.Name() + "\n")
	zone, _ := a.store.Timezone(tghelpers.BuildContext(c), c.Sender().ID)
	if zone != "" {
		b.WriteString("your timezone: " + zone + "\n")
	}
	if d := tghelpers.Dispatcher(); d != nil {
		b.WriteString("sender errors: " + strconv.FormatUint(d.ErrorCount(), 10) + "\n")
	}
	return tghelpers.ReplyText(c, strings.TrimRight(b.String(), "\n"))
}

// handleNonText answers media messages that no dialog wanted.
func (a *App) handleNonText(c tele.Context) error {
	return tghelpers.ReplyText(c, nonTextReply)
}
