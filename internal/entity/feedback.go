package entity

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Recipient is a report subscriber.
type Recipient struct {
	Id        int       `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

// FeedbackContext is the accumulated guidance a recipient has given through
// replies. It is passed explicitly into the analysis run.
type FeedbackContext struct {
	TrackItems []string `json:"track_items"`
	Notes      []string `json:"notes"`
	Questions  []string `json:"questions"`
}

// ExtractedFeedback is the structured result of parsing one reply.
type ExtractedFeedback struct {
	Context     string            `json:"context"`
	TrackItems  []string          `json:"track_items"`
	Preferences map[string]string `json:"preferences"`
	Questions   []string          `json:"questions"`
}

type Feedback struct {
	Id          int            `db:"id"`
	Email       string         `db:"email"`
	Content     string         `db:"content"`
	ContextJSON sql.NullString `db:"context_json"`
	ReceivedAt  time.Time      `db:"received_at"`
}

// InboundReply is a raw reply delivered by the inbound mail gateway,
// waiting for feedback extraction.
type InboundReply struct {
	Id         int       `db:"id"`
	Sender     string    `db:"sender"`
	Subject    string    `db:"subject"`
	Body       string    `db:"body"`
	ReceivedAt time.Time `db:"received_at"`
	Processed  bool      `db:"processed"`
}

// ConversationMemory is the per-recipient record of one sent report,
// kept so the next email can reference what was already discussed.
type ConversationMemory struct {
	Id             int             `db:"id"`
	RecipientEmail string          `db:"recipient_email"`
	WeekStart      time.Time       `db:"week_start"`
	WeekEnd        time.Time       `db:"week_end"`
	RevenueTotal   decimal.Decimal `db:"revenue_total"`
	RevenueCha     decimal.Decimal `db:"revenue_charleston"`
	RevenueBos     decimal.Decimal `db:"revenue_boston"`
	GoalCha        decimal.Decimal `db:"goal_charleston"`
	GoalBos        decimal.Decimal `db:"goal_boston"`
	AttainChaPct   decimal.Decimal `db:"attainment_charleston_pct"`
	AttainBosPct   decimal.Decimal `db:"attainment_boston_pct"`
	TopProducts    string          `db:"top_products"` // comma separated
	KeyTopics      string          `db:"key_topics"`
	QuestionsAsked string          `db:"questions_asked"`
	EmailExcerpt   string          `db:"email_excerpt"`
	CreatedAt      time.Time       `db:"created_at"`
}

// EmailCopy is a rendered report email plus the questions it asked,
// recorded so replies can be matched back to them.
type EmailCopy struct {
	Subject   string
	Body      string
	Questions []string
}
