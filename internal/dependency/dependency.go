package dependency

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/wickery/storepulse/internal/entity"
)

type (
	// OrderSource supplies raw orders for an inclusive date range. An empty
	// range is a nil error with an empty slice; errors mean the fetch itself
	// failed and the caller must not treat the result as "no sales".
	OrderSource interface {
		GetOrders(ctx context.Context, from, to time.Time) ([]entity.Order, error)
	}

	// GoalSource resolves the weekly goal for one store location.
	GoalSource interface {
		GetGoal(ctx context.Context, location entity.Location, periodStart time.Time) (entity.Goal, error)
	}

	// Analyzer builds the weekly report. A zero periodStart defaults to the
	// last completed week. feedback may be nil.
	Analyzer interface {
		Analyze(ctx context.Context, periodStart time.Time, includeTrends bool, feedback *entity.FeedbackContext) (*entity.WeeklyReport, error)
	}

	// Insights renders conversational email copy and extracts structure from
	// replies.
	Insights interface {
		WeeklyEmail(ctx context.Context, report *entity.WeeklyReport, recipientName string, feedback *entity.FeedbackContext, memory []entity.ConversationMemory) (*entity.EmailCopy, error)
		ExtractFeedback(ctx context.Context, replyBody, sender string) (*entity.ExtractedFeedback, error)
	}

	// Mail is the outbox access layer.
	Mail interface {
		AddMail(ctx context.Context, ser *entity.SendEmailRequest) (int, error)
		GetAllUnsent(ctx context.Context, withError bool) ([]entity.SendEmailRequest, error)
		UpdateSent(ctx context.Context, id int) error
		AddError(ctx context.Context, id int, errMsg string) error
	}

	// Feedback is the recipient, reply and conversation memory access layer.
	Feedback interface {
		ActiveRecipients(ctx context.Context) ([]entity.Recipient, error)
		UpsertRecipient(ctx context.Context, email, name string, active bool) error
		AddFeedback(ctx context.Context, email, content string, extracted *entity.ExtractedFeedback) error
		RecipientContext(ctx context.Context, email string) (*entity.FeedbackContext, error)
		TrackedItems(ctx context.Context) ([]string, error)
		SaveConversation(ctx context.Context, cm *entity.ConversationMemory) error
		RecentConversations(ctx context.Context, email string, limit int) ([]entity.ConversationMemory, error)
		UnprocessedReplies(ctx context.Context) ([]entity.InboundReply, error)
		MarkReplyProcessed(ctx context.Context, id int) error
	}

	// Mailer queues and delivers email.
	Mailer interface {
		Start(ctx context.Context) error
		Stop() error
		SendReport(ctx context.Context, rep Repository, to, subject, body string) error
		SendErrorNotification(ctx context.Context, rep Repository, msg string) error
	}

	// Repository groups the store access layers.
	Repository interface {
		Mail() Mail
		Feedback() Feedback
		Now() time.Time
		Ping(ctx context.Context) error
		Close()
		DB() DB
		Tx(ctx context.Context, f func(context.Context, Repository) error) error
	}

	// DB is the sqlx surface the store helpers use.
	DB interface {
		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
		NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
		QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
		QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
		Rebind(query string) string
	}
)
