package report

import (
	"context"
	"fmt"
	"time"

	"log/slog"
)

// Worker drives the schedule: the weekly report at the configured weekday
// and hour, reply processing on a short interval.
type Worker struct {
	svc    *Service
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(svc *Service) *Worker {
	return &Worker{svc: svc}
}

// Start starts the scheduler.
func (w *Worker) Start(ctx context.Context) error {
	if w.ctx != nil && w.cancel != nil {
		return fmt.Errorf("report worker already started")
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(w.ctx)
	return nil
}

// Stop stops the scheduler gracefully.
func (w *Worker) Stop() error {
	if w.cancel == nil {
		return fmt.Errorf("report worker already stopped or not started")
	}
	w.cancel()
	w.cancel = nil
	<-w.done
	return nil
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)

	next := nextRun(time.Now().In(w.svc.tz), time.Weekday(w.svc.c.ReportWeekday), w.svc.c.ReportHour)
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()
	slog.Default().InfoContext(ctx, "weekly report scheduled",
		slog.Time("next_run", next),
	)

	ticker := time.NewTicker(w.svc.c.ReplyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timer.C:
			if err := w.svc.Run(ctx); err != nil {
				slog.Default().ErrorContext(ctx, "weekly report run failed",
					slog.String("err", err.Error()),
				)
			}
			next = nextRun(time.Now().In(w.svc.tz), time.Weekday(w.svc.c.ReportWeekday), w.svc.c.ReportHour)
			timer.Reset(time.Until(next))
			slog.Default().InfoContext(ctx, "weekly report scheduled",
				slog.Time("next_run", next),
			)
		case <-ticker.C:
			if err := w.svc.ProcessReplies(ctx); err != nil {
				slog.Default().ErrorContext(ctx, "can't process replies",
					slog.String("err", err.Error()),
				)
			}
		case <-ctx.Done():
			return
		}
	}
}

// nextRun returns the next occurrence of weekday at hour after now, in
// now's location.
func nextRun(now time.Time, weekday time.Weekday, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	daysAhead := (int(weekday) - int(now.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, daysAhead)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
