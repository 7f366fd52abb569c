package main

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/identity"
	"github.com/orgball2608/storyshare/internal/identity/identityimpl"
	"github.com/orgball2608/storyshare/internal/publish"
	"github.com/orgball2608/storyshare/internal/publish/publishimpl"
	repositories "github.com/orgball2608/storyshare/internal/repositories/fx"
	storage "github.com/orgball2608/storyshare/internal/storage/fx"
	"github.com/orgball2608/storyshare/pkg/config"
	"github.com/orgball2608/storyshare/pkg/logger"
	"github.com/orgball2608/storyshare/pkg/pgx"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type services struct {
	identity identity.Service
	publish  publish.Pipeline
	app      *fx.App
}

// startServices brings up only what sharing needs: the record store, the
// object store and the identity and publish services.
func startServices(ctx context.Context) (*services, error) {
	svc := &services{}
	svc.app = fx.New(
		fx.NopLogger,
		fx.Provide(
			config.New,
			logger.FxOption,
			pgx.New,
			clockwork.NewRealClock,
			func() prometheus.Registerer { return prometheus.NewRegistry() },
		),
		repositories.Module,
		storage.Module,
		fx.Provide(
			fx.Annotate(identityimpl.New, fx.As(new(identity.Service))),
			fx.Annotate(publishimpl.New, fx.As(new(publish.Pipeline))),
		),
		fx.Populate(&svc.identity, &svc.publish),
	)
	if err := svc.app.Err(); err != nil {
		return nil, err
	}
	if err := svc.app.Start(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *services) stop() {
	_ = s.app.Stop(context.Background())
}
