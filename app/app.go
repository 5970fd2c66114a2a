package app

import (
	"context"

	"log/slog"

	"github.com/wickery/storepulse/config"
	"github.com/wickery/storepulse/internal/analytics"
	httpapi "github.com/wickery/storepulse/internal/api/http"
	"github.com/wickery/storepulse/internal/dependency"
	"github.com/wickery/storepulse/internal/goals"
	"github.com/wickery/storepulse/internal/insights"
	"github.com/wickery/storepulse/internal/mail"
	"github.com/wickery/storepulse/internal/report"
	"github.com/wickery/storepulse/internal/shopify"
	"github.com/wickery/storepulse/internal/store"
)

// App is the main application
type App struct {
	hs     *httpapi.Server
	db     dependency.Repository
	mailer dependency.Mailer
	worker *report.Worker
	c      *config.Config
	done   chan struct{}
}

// New returns a new instance of App
func New(c *config.Config) *App {
	return &App{
		c:    c,
		done: make(chan struct{}),
	}
}

// Start starts the app
func (a *App) Start(ctx context.Context) error {
	slog.Default().InfoContext(ctx, "starting storepulse")

	db, err := store.New(ctx, a.c.DB)
	if err != nil {
		slog.Default().ErrorContext(ctx, "couldn't connect to mysql",
			slog.String("err", err.Error()))
		return err
	}
	a.db = db

	orderSource, err := shopify.New(&a.c.Shopify)
	if err != nil {
		slog.Default().ErrorContext(ctx, "couldn't create order source",
			slog.String("err", err.Error()))
		return err
	}

	goalSource, err := goals.New(ctx, &a.c.Goals)
	if err != nil {
		slog.Default().ErrorContext(ctx, "couldn't create goal source",
			slog.String("err", err.Error()))
		return err
	}

	analyzer := analytics.New(orderSource, goalSource, nil)

	insightsCli := insights.New(&a.c.Insights)

	a.mailer, err = mail.New(&a.c.Mailer, a.db.Mail())
	if err != nil {
		slog.Default().ErrorContext(ctx, "couldn't create mailer",
			slog.String("err", err.Error()))
		return err
	}
	if err := a.mailer.Start(ctx); err != nil {
		slog.Default().ErrorContext(ctx, "cannot start mailer worker",
			slog.String("err", err.Error()))
		return err
	}

	svc, err := report.New(&a.c.Report, a.db, analyzer, insightsCli, a.mailer)
	if err != nil {
		slog.Default().ErrorContext(ctx, "couldn't create report service",
			slog.String("err", err.Error()))
		return err
	}

	a.worker = report.NewWorker(svc)
	if err := a.worker.Start(ctx); err != nil {
		slog.Default().ErrorContext(ctx, "cannot start report worker",
			slog.String("err", err.Error()))
		return err
	}

	a.hs = httpapi.New(&a.c.HTTP, svc, a.db)
	if err := a.hs.Start(ctx); err != nil {
		slog.Default().ErrorContext(ctx, "cannot start http server",
			slog.String("err", err.Error()))
		return err
	}

	return nil
}

// Stop stops the application and waits for all services to exit
func (a *App) Stop(ctx context.Context) {
	if a.worker != nil {
		if err := a.worker.Stop(); err != nil {
			slog.Default().ErrorContext(ctx, "can't stop report worker",
				slog.String("err", err.Error()))
		}
	}
	if a.mailer != nil {
		if err := a.mailer.Stop(); err != nil {
			slog.Default().ErrorContext(ctx, "can't stop mailer",
				slog.String("err", err.Error()))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	close(a.done)
}

// Done returns a channel that is closed after the application has exited
func (a *App) Done() chan struct{} {
	return a.done
}
