package commandimpl

import (
	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/command"
	"github.com/orgball2608/storyshare/internal/feed"
	"github.com/orgball2608/storyshare/internal/identity"
	"github.com/orgball2608/storyshare/internal/publish"
	"github.com/orgball2608/storyshare/internal/ratelimit"
	"github.com/orgball2608/storyshare/internal/telegram"
	"github.com/orgball2608/storyshare/pkg/config"
	"github.com/orgball2608/storyshare/pkg/logger"
	"go.uber.org/fx"
)

const defaultWorkers = 16

type Opts struct {
	fx.In

	Telegram telegram.Client
	Identity identity.Service
	Publish  publish.Pipeline
	Feed     feed.Service
	Limiter  ratelimit.Limiter
	Logger   logger.Logger
	Config   *config.Config
	Clock    clockwork.Clock
}

type CommandImpl struct {
	Telegram telegram.Client
	Identity identity.Service
	Publish  publish.Pipeline
	Feed     feed.Service
	Limiter  ratelimit.Limiter
	Logger   logger.Logger
	Config   *config.Config
	Clock    clockwork.Clock

	chats   *chats
	workers int
}

func New(opts Opts) *CommandImpl {
	workers := defaultWorkers
	if opts.Config != nil && opts.Config.Telegram.Workers > 0 {
		workers = opts.Config.Telegram.Workers
	}
	return &CommandImpl{
		Telegram: opts.Telegram,
		Identity: opts.Identity,
		Publish:  opts.Publish,
		Feed:     opts.Feed,
		Limiter:  opts.Limiter,
		Logger:   opts.Logger.WithComponent("Bot"),
		Config:   opts.Config,
		Clock:    opts.Clock,
		chats:    newChats(),
		workers:  workers,
	}
}

var _ command.Client = (*CommandImpl)(nil)
