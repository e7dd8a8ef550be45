package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/gfw-api/story-api/internal/api"
	"github.com/gfw-api/story-api/internal/carto"
	"github.com/gfw-api/story-api/internal/carto/cartoimpl"
	"github.com/gfw-api/story-api/internal/geostore"
	"github.com/gfw-api/story-api/internal/geostore/geostoreimpl"
	"github.com/gfw-api/story-api/internal/identity"
	"github.com/gfw-api/story-api/internal/identity/identityimpl"
	"github.com/gfw-api/story-api/internal/mail"
	"github.com/gfw-api/story-api/internal/mail/mailimpl"
	_ "github.com/gfw-api/story-api/internal/migrations"
	"github.com/gfw-api/story-api/internal/ratelimit"
	"github.com/gfw-api/story-api/internal/repositories/storycache"
	"github.com/gfw-api/story-api/internal/story"
	"github.com/gfw-api/story-api/internal/story/storyimpl"
	"github.com/gfw-api/story-api/internal/sweeper"
	"github.com/gfw-api/story-api/pkg/config"
	"github.com/gfw-api/story-api/pkg/logger"
	"github.com/gfw-api/story-api/pkg/pgx"
	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
)

var App = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		pgx.New,
	),
	fx.Provide(
		fx.Annotate(
			cartoimpl.New,
			fx.As(new(carto.Client)),
		), fx.Annotate(
			geostoreimpl.New,
			fx.As(new(geostore.Client)),
		), fx.Annotate(
			identityimpl.New,
			fx.As(new(identity.Client)),
		), fx.Annotate(
			mailimpl.New,
			fx.As(new(mail.Client)),
		), fx.Annotate(
			storyimpl.New,
			fx.As(new(story.Client)),
		),
		func() ratelimit.Limiter {
			return ratelimit.NewInMemoryLimiter(1, time.Second, 5)
		},
		api.New,
		sweeper.New,
	),
	storycache.Module,
	fx.Invoke(migrate),
	fx.Invoke(run),
)

// migrate brings the local cache schema up before anything reads it.
func migrate(c *config.Config) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := sql.Open("postgres", c.GetDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	return goose.Up(db, ".")
}

func run(lc fx.Lifecycle, log logger.Logger, cfg *config.Config, server *api.Server, sw *sweeper.Sweeper) {
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: server.Handler(),
	}

	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := sw.Schedule(runCtx); err != nil {
				return err
			}

			go func() {
				log.Info("Starting server", "port", cfg.App.Port)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("Server failed", "error", err)
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return httpServer.Shutdown(ctx)
		},
	})
}
