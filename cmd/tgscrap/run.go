package main

import (
	"context"
	"os"

	"github.com/go-faster/errors"
	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/peers"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayvex/tgscrap/app/bot"
	"github.com/ayvex/tgscrap/pkg/acl"
	"github.com/ayvex/tgscrap/pkg/actionlog"
	"github.com/ayvex/tgscrap/pkg/config"
	"github.com/ayvex/tgscrap/pkg/logger"
	"github.com/ayvex/tgscrap/pkg/prog"
	"github.com/ayvex/tgscrap/pkg/relay"
	"github.com/ayvex/tgscrap/pkg/storage"
	"github.com/ayvex/tgscrap/pkg/tclient"
)

func run(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	lg := logger.New(debug || cfg.Log.Debug)
	defer func() { _ = lg.Sync() }()
	ctx = logger.With(ctx, lg)

	store, err := storage.Open(cfg.Bot.DataFile, lg)
	if err != nil {
		return errors.Wrap(err, "open state")
	}
	if cfg.Bot.OwnerID != 0 {
		// Config may pre-seed the owner; a claimed owner is never
		// overwritten.
		err := store.Update(func(st *storage.State) error {
			if st.OwnerID == 0 {
				st.OwnerID = cfg.Bot.OwnerID
			}
			return nil
		})
		if err != nil {
			return errors.Wrap(err, "seed owner")
		}
	}
	ctrl := acl.New(store, cfg.Bot.UsageLimit)

	actions, err := actionlog.Open(cfg.Bot.ActionLog, lg)
	if err != nil {
		return err
	}
	defer func() { _ = actions.Close() }()

	if err := os.MkdirAll(cfg.Bot.DownloadDir, 0o755); err != nil {
		return errors.Wrap(err, "create download dir")
	}

	dispatcher := tg.NewUpdateDispatcher()
	waiter := floodwait.NewWaiter().WithCallback(func(_ context.Context, wait floodwait.FloodWait) {
		lg.Warn("flood wait", zap.Duration("duration", wait.Duration))
	})

	client := telegram.NewClient(cfg.Telegram.APIID, cfg.Telegram.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.Telegram.SessionFile},
		UpdateHandler:  dispatcher,
		Middlewares:    []telegram.Middleware{waiter},
		Logger:         lg.Named("gotd"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return waiter.Run(gctx, func(ctx context.Context) error {
			return client.Run(ctx, func(ctx context.Context) error {
				flow := auth.NewFlow(termAuth{}, auth.SendCodeOptions{})
				if err := client.Auth().IfNecessary(ctx, flow); err != nil {
					return errors.Wrap(err, "auth")
				}
				self, err := client.Self(ctx)
				if err != nil {
					return errors.Wrap(err, "self")
				}
				lg.Info("logged in",
					zap.Int64("id", self.ID),
					zap.String("username", self.Username))

				api := client.API()
				manager := peers.Options{Logger: lg.Named("peers")}.Build(api)
				tc := tclient.NewTelegram(api, manager, lg)

				console := prog.NewConsole()
				go console.Render()

				engine := relay.New(relay.Options{
					Client:      tc,
					DownloadDir: cfg.Bot.DownloadDir,
					Creator:     cfg.Bot.Creator,
					Console:     console,
					Logger:      lg,
				})
				bot.New(tc, ctrl, engine, actions, lg).Attach(dispatcher)

				lg.Info("userbot running, send .help to the account")
				<-ctx.Done()
				return ctx.Err()
			})
		})
	})
	return g.Wait()
}
