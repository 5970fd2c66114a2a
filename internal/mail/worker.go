package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"
)

// Start starts the retry worker.
func (m *Mailer) Start(ctx context.Context) error {
	if m.ctx != nil && m.cancel != nil {
		return fmt.Errorf("mailer already started")
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	go m.worker(m.ctx)
	return nil
}

// Stop stops the worker gracefully.
func (m *Mailer) Stop() error {
	if m.cancel == nil {
		return fmt.Errorf("mailer already stopped or not started")
	}

	m.cancel()
	m.cancel = nil
	return nil
}

func (m *Mailer) worker(ctx context.Context) {
	ticker := time.NewTicker(m.c.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.handleUnsent(ctx); err != nil {
				slog.Default().ErrorContext(ctx, "can't handle unsent mails",
					slog.String("err", err.Error()),
				)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Mailer) handleUnsent(ctx context.Context) error {
	unsent, err := m.mailRepository.GetAllUnsent(ctx, true)
	if err != nil {
		return fmt.Errorf("can't get unsent mails: %w", err)
	}

	for _, email := range unsent {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := m.sendRaw(ctx, &email); err != nil {
			slog.Default().ErrorContext(ctx, "can't send mail",
				slog.Int("id", email.Id),
				slog.String("err", err.Error()),
			)

			if errors.Is(err, ErrAPILimitReached) {
				// back off until the next tick
				return nil
			}

			if err := m.mailRepository.AddError(ctx, email.Id, err.Error()); err != nil {
				return fmt.Errorf("can't log error for email %v: %w", email.Id, err)
			}
			continue
		}

		if err := m.mailRepository.UpdateSent(ctx, email.Id); err != nil {
			return fmt.Errorf("can't update sent status for email %v: %w", email.Id, err)
		}
	}

	return nil
}
