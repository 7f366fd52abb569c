package app

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"github.com/orgball2608/storyshare/internal/audit"
	"github.com/orgball2608/storyshare/internal/audit/auditimpl"
	"github.com/orgball2608/storyshare/internal/command"
	"github.com/orgball2608/storyshare/internal/command/commandimpl"
	"github.com/orgball2608/storyshare/internal/feed"
	"github.com/orgball2608/storyshare/internal/feed/feedimpl"
	"github.com/orgball2608/storyshare/internal/httpapi"
	"github.com/orgball2608/storyshare/internal/identity"
	"github.com/orgball2608/storyshare/internal/identity/identityimpl"
	_ "github.com/orgball2608/storyshare/internal/migrations"
	"github.com/orgball2608/storyshare/internal/publish"
	"github.com/orgball2608/storyshare/internal/publish/publishimpl"
	"github.com/orgball2608/storyshare/internal/ratelimit"
	repositories "github.com/orgball2608/storyshare/internal/repositories/fx"
	storage "github.com/orgball2608/storyshare/internal/storage/fx"
	"github.com/orgball2608/storyshare/internal/telegram"
	"github.com/orgball2608/storyshare/internal/telegram/telegramimpl"
	"github.com/orgball2608/storyshare/pkg/config"
	"github.com/orgball2608/storyshare/pkg/logger"
	"github.com/orgball2608/storyshare/pkg/pgx"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module wires the record store, object store, services and the HTTP API.
var Module = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		pgx.New,
		clockwork.NewRealClock,
		func() prometheus.Registerer { return prometheus.DefaultRegisterer },
		func() prometheus.Gatherer { return prometheus.DefaultGatherer },
		func(pool *pgxpool.Pool) httpapi.Pinger { return pool },
	),
	repositories.Module,
	storage.Module,
	ratelimit.Module,
	fx.Provide(
		fx.Annotate(
			identityimpl.New,
			fx.As(new(identity.Service)),
		),
		fx.Annotate(
			publishimpl.New,
			fx.As(new(publish.Pipeline)),
		),
		fx.Annotate(
			feedimpl.New,
			fx.As(new(feed.Service)),
		),
		fx.Annotate(
			auditimpl.New,
			fx.As(new(audit.Auditor)),
		),
		httpapi.New,
	),
	fx.Invoke(migrate),
	fx.Invoke(run),
)

// BotModule adds the Telegram front end. It also becomes the audit notifier.
var BotModule = fx.Options(
	fx.Provide(
		fx.Annotate(
			telegramimpl.New,
			fx.As(new(telegram.Client)),
			fx.As(new(auditimpl.Notifier)),
		),
		fx.Annotate(
			commandimpl.New,
			fx.As(new(command.Client)),
		),
	),
	fx.Invoke(runBot),
)

func migrate(c *config.Config, log logger.Logger) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := sql.Open("postgres", c.GetDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	// migrations are compiled in, so there is no directory to scan
	if err := goose.Up(db, "."); err != nil {
		return err
	}
	log.Info("Migrations applied")
	return nil
}

func run(lc fx.Lifecycle, log logger.Logger, cfg *config.Config, srv *httpapi.Server, auditor audit.Auditor) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := srv.Start(); err != nil {
				cancel()
				return err
			}

			if cfg.Audit.Enabled {
				if err := auditor.Schedule(ctx); err != nil {
					log.Error("Failed to schedule storage audit", "error", err)
				}
			}
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			return srv.Stop(stopCtx)
		},
	})
}

func runBot(lc fx.Lifecycle, log logger.Logger, tgClient telegram.Client, cmdClient command.Client) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := cmdClient.HandleCommand(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("Command error", "error", err)
					tgClient.SendMessageToAdmin("Command error: " + err.Error())
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
