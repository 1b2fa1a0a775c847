package router

import (
	"time"

	tg "github.com/m3rciful/statusbot/core/telegram"
	"github.com/m3rciful/statusbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Dialogs is the minimal interface routing needs from the conversation engine.
// Every update kind is offered to the engine first; it reports whether an
// active dialog consumed the update.
type Dialogs interface {
	Dispatch(c tele.Context) (bool, error)
}

// TextOptions controls fallback behaviour for text and non-text messages.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownOther tele.HandlerFunc
}

// TextRoutes builds handlers for private message routing: active dialogs get
// first pick, then registered commands, then the registry text fallback.
func TextRoutes(dialogs Dialogs, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if dialogs != nil {
			handled := false
			err := handleWithSummary(c, "dialog", start, "", "", func() error {
				var derr error
				handled, derr = dialogs.Dispatch(c)
				return derr
			})
			if handled || err != nil {
				return err
			}
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	otherHandler := func(c tele.Context) error {
		start := time.Now()
		if dialogs != nil {
			handled := false
			err := handleWithSummary(c, "dialog", start, "", "", func() error {
				var derr error
				handled, derr = dialogs.Dispatch(c)
				return derr
			})
			if handled || err != nil {
				return err
			}
		}
		if opts.UnknownOther != nil {
			return handleWithSummary(c, "unexpected_media", start, "", "", func() error {
				return opts.UnknownOther(c)
			})
		}
		logHandlerSummary(c, "unexpected_media", start, "skip", "ok", nil)
		return nil
	}

	routes := []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
	}
	for _, ep := range []string{tele.OnPhoto, tele.OnDocument, tele.OnSticker, tele.OnVoice, tele.OnVideo} {
		routes = append(routes, tg.Route{
			Endpoint: ep,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(otherHandler)),
		})
	}
	return routes
}

// InlineOptions wires the inline query and chosen-result handlers used after
// the conversation engine declines an inline update.
type InlineOptions struct {
	OnQuery  tele.HandlerFunc
	OnResult tele.HandlerFunc
}

// InlineRoutes builds handlers for inline queries and chosen inline results.
// Active dialogs get first pick so inline-driven conversations can complete;
// otherwise the updates fall through to the shared reconciliation handlers.
func InlineRoutes(dialogs Dialogs, opts InlineOptions) []tg.Route {
	queryHandler := func(c tele.Context) error {
		start := time.Now()
		if dialogs != nil {
			handled := false
			err := handleWithSummary(c, "dialog_inline", start, "", "", func() error {
				var derr error
				handled, derr = dialogs.Dispatch(c)
				return derr
			})
			if handled || err != nil {
				return err
			}
		}
		if opts.OnQuery == nil {
			logHandlerSummary(c, "inline_query", start, "skip", "ok", nil)
			return nil
		}
		return handleWithSummary(c, "inline_query", start, "", "", func() error {
			return opts.OnQuery(c)
		})
	}

	resultHandler := func(c tele.Context) error {
		start := time.Now()
		if dialogs != nil {
			handled := false
			err := handleWithSummary(c, "dialog_inline_result", start, "", "", func() error {
				var derr error
				handled, derr = dialogs.Dispatch(c)
				return derr
			})
			if handled || err != nil {
				return err
			}
		}
		if opts.OnResult == nil {
			logHandlerSummary(c, "inline_result", start, "skip", "ok", nil)
			return nil
		}
		return handleWithSummary(c, "inline_result", start, "", "", func() error {
			return opts.OnResult(c)
		})
	}

	return []tg.Route{
		{
			Endpoint: tele.OnQuery,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(queryHandler)),
		},
		{
			Endpoint: tele.OnInlineResult,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(resultHandler)),
		},
	}
}
