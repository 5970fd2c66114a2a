package store

import (
	"context"
	"encoding/json"
	"fmt"

	"log/slog"

	"github.com/wickery/storepulse/internal/dependency"
	"github.com/wickery/storepulse/internal/entity"
)

type feedbackStore struct {
	*MYSQLStore
}

// Feedback returns an object implementing the feedback interface
func (ms *MYSQLStore) Feedback() dependency.Feedback {
	return &feedbackStore{
		MYSQLStore: ms,
	}
}

func (ms *MYSQLStore) ActiveRecipients(ctx context.Context) ([]entity.Recipient, error) {
	query := `SELECT * FROM recipient WHERE active = true ORDER BY id`
	rs, err := QueryListNamed[entity.Recipient](ctx, ms.DB(), query, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("failed to get recipients: %w", err)
	}
	return rs, nil
}

func (ms *MYSQLStore) UpsertRecipient(ctx context.Context, email, name string, active bool) error {
	query := `
	INSERT INTO recipient (email, name, active)
	VALUES (:email, :name, :active)
	ON DUPLICATE KEY UPDATE name = :name, active = :active
	`
	err := ExecNamed(ctx, ms.DB(), query, map[string]any{
		"email":  email,
		"name":   name,
		"active": active,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert recipient: %w", err)
	}
	return nil
}

func (ms *MYSQLStore) AddFeedback(ctx context.Context, email, content string, extracted *entity.ExtractedFeedback) error {
	var contextJSON any
	if extracted != nil {
		raw, err := json.Marshal(extracted)
		if err != nil {
			return fmt.Errorf("failed to marshal feedback context: %w", err)
		}
		contextJSON = string(raw)
	}

	// The feedback row and its tracked items land together or not at all,
	// so a failed reply can be retried without duplicating feedback.
	return ms.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		query := `
		INSERT INTO feedback (email, content, context_json)
		VALUES (:email, :content, :contextJson)
		`
		err := ExecNamed(ctx, rep.DB(), query, map[string]any{
			"email":       email,
			"content":     content,
			"contextJson": contextJSON,
		})
		if err != nil {
			return fmt.Errorf("failed to add feedback: %w", err)
		}

		if extracted == nil {
			return nil
		}
		for _, item := range extracted.TrackItems {
			q := `INSERT INTO tracked_item (item, requested_by) VALUES (:item, :email)`
			err := ExecNamed(ctx, rep.DB(), q, map[string]any{
				"item":  item,
				"email": email,
			})
			if err != nil {
				if ms.IsErrUniqueViolation(err) {
					continue
				}
				return fmt.Errorf("failed to add tracked item: %w", err)
			}
		}
		return nil
	})
}

// RecipientContext merges everything one recipient has asked for across
// their feedback history.
func (ms *MYSQLStore) RecipientContext(ctx context.Context, email string) (*entity.FeedbackContext, error) {
	query := `SELECT * FROM feedback WHERE email = :email ORDER BY received_at`
	rows, err := QueryListNamed[entity.Feedback](ctx, ms.DB(), query, map[string]any{
		"email": email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	fc := &entity.FeedbackContext{}
	seenItems := make(map[string]bool)
	for _, row := range rows {
		if !row.ContextJSON.Valid {
			continue
		}
		var ex entity.ExtractedFeedback
		if err := json.Unmarshal([]byte(row.ContextJSON.String), &ex); err != nil {
			// old rows with free-form context stay readable as notes
			slog.Default().WarnContext(ctx, "unparseable feedback context",
				slog.Int("id", row.Id),
			)
			fc.Notes = append(fc.Notes, row.ContextJSON.String)
			continue
		}
		if ex.Context != "" {
			fc.Notes = append(fc.Notes, ex.Context)
		}
		fc.Questions = append(fc.Questions, ex.Questions...)
		for _, item := range ex.TrackItems {
			if !seenItems[item] {
				seenItems[item] = true
				fc.TrackItems = append(fc.TrackItems, item)
			}
		}
	}
	return fc, nil
}

func (ms *MYSQLStore) TrackedItems(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT item FROM tracked_item ORDER BY item`
	rows, err := ms.DB().QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get tracked items: %w", err)
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("failed to scan tracked item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (ms *MYSQLStore) SaveConversation(ctx context.Context, cm *entity.ConversationMemory) error {
	query := `
	INSERT INTO conversation_memory
		(recipient_email, week_start, week_end, revenue_total,
		revenue_charleston, revenue_boston, goal_charleston, goal_boston,
		attainment_charleston_pct, attainment_boston_pct,
		top_products, key_topics, questions_asked, email_excerpt)
	VALUES
		(:recipientEmail, :weekStart, :weekEnd, :revenueTotal,
		:revenueCharleston, :revenueBoston, :goalCharleston, :goalBoston,
		:attainmentCharlestonPct, :attainmentBostonPct,
		:topProducts, :keyTopics, :questionsAsked, :emailExcerpt)
	`
	err := ExecNamed(ctx, ms.DB(), query, map[string]any{
		"recipientEmail":          cm.RecipientEmail,
		"weekStart":               cm.WeekStart,
		"weekEnd":                 cm.WeekEnd,
		"revenueTotal":            cm.RevenueTotal,
		"revenueCharleston":       cm.RevenueCha,
		"revenueBoston":           cm.RevenueBos,
		"goalCharleston":          cm.GoalCha,
		"goalBoston":              cm.GoalBos,
		"attainmentCharlestonPct": cm.AttainChaPct,
		"attainmentBostonPct":     cm.AttainBosPct,
		"topProducts":             cm.TopProducts,
		"keyTopics":               cm.KeyTopics,
		"questionsAsked":          cm.QuestionsAsked,
		"emailExcerpt":            cm.EmailExcerpt,
	})
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func (ms *MYSQLStore) RecentConversations(ctx context.Context, email string, limit int) ([]entity.ConversationMemory, error) {
	query := `
	SELECT * FROM conversation_memory
	WHERE recipient_email = :email
	ORDER BY week_start DESC
	LIMIT :limit
	`
	cms, err := QueryListNamed[entity.ConversationMemory](ctx, ms.DB(), query, map[string]any{
		"email": email,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get conversations: %w", err)
	}
	return cms, nil
}

func (ms *MYSQLStore) UnprocessedReplies(ctx context.Context) ([]entity.InboundReply, error) {
	query := `SELECT * FROM inbound_reply WHERE processed = false ORDER BY received_at`
	rs, err := QueryListNamed[entity.InboundReply](ctx, ms.DB(), query, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("failed to get replies: %w", err)
	}
	return rs, nil
}

func (ms *MYSQLStore) MarkReplyProcessed(ctx context.Context, id int) error {
	query := `UPDATE inbound_reply SET processed = true WHERE id = :id`
	err := ExecNamed(ctx, ms.DB(), query, map[string]any{
		"id": id,
	})
	if err != nil {
		return fmt.Errorf("failed to mark reply processed: %w", err)
	}
	return nil
}
