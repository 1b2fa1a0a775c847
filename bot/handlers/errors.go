package handlers

import (
	"fmt"
	"log/slog"

	"github.com/m3rciful/statusbot/core/logger"
	tghelpers "github.com/m3rciful/statusbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const genericFailureText = "Something went wrong, sorry! The gears are being inspected."

// escalator is the slice of the notifier the handlers depend on.
type escalator interface {
	Escalate(c tele.Context, err error)
}

// Notifier escalates permanent platform failures to the operator with the
// originating user and chat attached, while the user only sees a generic
// apology.
type Notifier struct {
	bot     *tele.Bot
	adminID int64
}

// NewNotifier wires operator escalation. A zero adminID disables it.
func NewNotifier(bot *tele.Bot, adminID int64) *Notifier {
	return &Notifier{bot: bot, adminID: adminID}
}

// Escalate reports the failure to the operator and apologizes to the user.
func (n *Notifier) Escalate(c tele.Context, err error) {
	ctx := tghelpers.BuildContext(c)
	logger.Error(ctx, "tg", "escalate",
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)

	if n.adminID != 0 {
		var userRef, chatRef string
		if u := c.Sender(); u != nil {
			userRef = fmt.Sprintf("%s (%d)", u.Username, u.ID)
		}
		if ch := c.Chat(); ch != nil {
			chatRef = fmt.Sprintf("%d", ch.ID)
		}
		text := fmt.Sprintf("An error occurred:\n%s\nuser: %s\nchat: %s",
			logger.Sanitize(err.Error()), userRef, chatRef)
		if _, sendErr := n.bot.Send(&tele.User{ID: n.adminID}, text); sendErr != nil {
			logger.Warn(ctx, "tg", "escalate.notify",
				slog.String("status", "fail"),
				slog.String("err", sendErr.Error()),
			)
		}
	}

	if c.Chat() != nil {
		_ = tghelpers.ReplyText(c, genericFailureText)
	}
}
