package report

import (
	"context"
	"fmt"

	"log/slog"
)

// ProcessReplies drains the inbound reply queue: each reply is run through
// feedback extraction and persisted. One bad reply does not block the rest.
func (s *Service) ProcessReplies(ctx context.Context) error {
	replies, err := s.rep.Feedback().UnprocessedReplies(ctx)
	if err != nil {
		return fmt.Errorf("can't list unprocessed replies: %w", err)
	}

	for _, r := range replies {
		if err := ctx.Err(); err != nil {
			return err
		}

		extracted, err := s.insights.ExtractFeedback(ctx, r.Body, r.Sender)
		if err != nil {
			slog.Default().ErrorContext(ctx, "can't extract feedback",
				slog.Int("reply_id", r.Id),
				slog.String("err", err.Error()),
			)
			continue
		}

		if err := s.rep.Feedback().AddFeedback(ctx, r.Sender, r.Body, extracted); err != nil {
			slog.Default().ErrorContext(ctx, "can't save feedback",
				slog.Int("reply_id", r.Id),
				slog.String("err", err.Error()),
			)
			continue
		}

		if err := s.rep.Feedback().MarkReplyProcessed(ctx, r.Id); err != nil {
			return fmt.Errorf("can't mark reply %d processed: %w", r.Id, err)
		}

		slog.Default().InfoContext(ctx, "reply processed",
			slog.Int("reply_id", r.Id),
			slog.String("sender", r.Sender),
			slog.Int("tracked_items", len(extracted.TrackItems)),
		)
	}
	return nil
}
