package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/statusbot/bot/history"
	"github.com/m3rciful/statusbot/bot/inline"
	"github.com/m3rciful/statusbot/bot/render"
	"github.com/m3rciful/statusbot/bot/stickers"
	"github.com/m3rciful/statusbot/bot/timezone"
	coreconfig "github.com/m3rciful/statusbot/core/config"
	"github.com/m3rciful/statusbot/core/logger"
	tg "github.com/m3rciful/statusbot/core/telegram"
	"github.com/m3rciful/statusbot/core/telegram/commands"
	"github.com/m3rciful/statusbot/core/telegram/dialog"
	"github.com/m3rciful/statusbot/core/telegram/router"

	tele "gopkg.in/telebot.v4"
)

// App owns the bot's domain components and produces the Telegram runtime
// wiring. Collaborators that need the live bot handle (the sticker vault,
// the operator notifier) are attached in the OnStart hook, which runs
// before the first update is dispatched.
type App struct {
	cfg   *coreconfig.Config
	store history.Store

	engine       *dialog.Engine
	tzDialog     *dialog.Dialog
	tzEntryState dialog.State

	vault      *stickers.Vault
	publisher  *stickers.Publisher
	reconciler *inline.Reconciler
	notifier   escalator
}

// New constructs the application around the given settings and store.
func New(cfg *coreconfig.Config, store history.Store) *App {
	a := &App{
		cfg:          cfg,
		store:        store,
		engine:       dialog.NewEngine(time.Duration(cfg.Dialogs.TimeoutSeconds) * time.Second),
		tzDialog:     timezone.NewDialog(store),
		tzEntryState: timezone.StateChoosing,
	}
	return a
}

// TelegramRunOptions assembles the routes, middlewares, and lifecycle hooks
// for the core Telegram runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "What this bot does",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.handleHelp,
		Description: "How to use the bot",
	})
	reg.RegisterCommand("/info", commands.Command{
		Handler:     a.handleInfo,
		Description: "About this bot",
	})
	reg.RegisterCommand("/set_timezone", commands.Command{
		Handler:     a.handleSetTimezone,
		Description: "Set the timezone shown on your stickers",
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleStats,
		Description: "Runtime counters",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.SetTextFallback(a.handleStatus)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(a.engine, reg, router.TextOptions{
		UnknownOther: a.handleNonText,
	})...)
	routes = append(routes, router.InlineRoutes(a.engine, router.InlineOptions{
		OnQuery:  a.handleInlineQuery,
		OnResult: a.handleChosenResult,
	})...)

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg, nil),
		Routes:      routes,
		OnStart:     a.onStart,
	}, nil
}

// onStart attaches the bot-dependent collaborators and seeds the sticker
// set before updates start flowing.
func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	a.attach(rt.Bot, rt)

	if err := a.vault.EnsureSeeded(ctx); err != nil {
		// The set is also created lazily on first publish; startup only
		// warns so a platform hiccup doesn't keep the bot down.
		logger.Warn(ctx, "stickers", "set.seed",
			slog.String("status", "fail"),
			slog.String("set_name", a.vault.Name()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	return nil
}

func (a *App) attach(bot *tele.Bot, rt tg.Runtime) {
	api := stickers.NewTelebotAPI(bot, a.cfg.Telegram.AdminID)
	setName := stickers.SetName(a.cfg.Stickers.SetName, bot.Me.Username)

	a.vault = stickers.NewVault(api, setName, a.cfg.Stickers.SetTitle, a.cfg.Stickers.SeedPath)
	renderer := render.NewHTTPRenderer(a.cfg.Renderer.URL,
		time.Duration(a.cfg.Renderer.TimeoutSeconds)*time.Second)
	a.publisher = stickers.NewPublisher(renderer, a.vault, rt.Dispatcher)
	a.reconciler = inline.NewReconciler(a.publisher, a.store)
	a.notifier = NewNotifier(bot, a.cfg.Telegram.AdminID)
}
