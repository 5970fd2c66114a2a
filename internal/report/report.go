// Package report runs the weekly cycle: build the analysis once, render and
// queue one email per active recipient, remember what was sent, and feed
// reply feedback back into the store.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/wickery/storepulse/internal/dependency"
	"github.com/wickery/storepulse/internal/entity"
)

const emailExcerptLen = 300

type Config struct {
	// ReportWeekday follows time.Weekday numbering, 1 is Monday.
	ReportWeekday int           `mapstructure:"report_weekday"`
	ReportHour    int           `mapstructure:"report_hour"`
	Timezone      string        `mapstructure:"timezone"`
	ReplyInterval time.Duration `mapstructure:"reply_interval"`
	MemoryDepth   int           `mapstructure:"memory_depth"`
	IncludeTrends bool          `mapstructure:"include_trends"`
}

func DefaultConfig() *Config {
	return &Config{
		ReportWeekday: int(time.Monday),
		ReportHour:    8,
		Timezone:      "America/New_York",
		ReplyInterval: 5 * time.Minute,
		MemoryDepth:   4,
		IncludeTrends: true,
	}
}

type Service struct {
	c        *Config
	rep      dependency.Repository
	analyzer dependency.Analyzer
	insights dependency.Insights
	mailer   dependency.Mailer
	tz       *time.Location
}

func New(c *Config, rep dependency.Repository, analyzer dependency.Analyzer, insights dependency.Insights, mailer dependency.Mailer) (*Service, error) {
	if c == nil {
		c = DefaultConfig()
	}
	if c.ReplyInterval == 0 {
		c.ReplyInterval = 5 * time.Minute
	}
	if c.MemoryDepth == 0 {
		c.MemoryDepth = 4
	}
	tz := time.UTC
	if c.Timezone != "" {
		var err error
		tz, err = time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, fmt.Errorf("can't load timezone %q: %w", c.Timezone, err)
		}
	}
	return &Service{
		c:        c,
		rep:      rep,
		analyzer: analyzer,
		insights: insights,
		mailer:   mailer,
		tz:       tz,
	}, nil
}

// Run builds the last completed week's report once and sends it to every
// active recipient. A failed analysis aborts the run and notifies the
// admin; a failure for one recipient does not stop the others.
func (s *Service) Run(ctx context.Context) error {
	runId := uuid.New().String()
	l := slog.Default().With(slog.String("run_id", runId))

	recipients, err := s.rep.Feedback().ActiveRecipients(ctx)
	if err != nil {
		return fmt.Errorf("can't list recipients: %w", err)
	}
	if len(recipients) == 0 {
		l.InfoContext(ctx, "no active recipients, skipping run")
		return nil
	}

	rep, err := s.buildReport(ctx, time.Time{})
	if err != nil {
		l.ErrorContext(ctx, "report run failed", slog.String("err", err.Error()))
		if nerr := s.mailer.SendErrorNotification(ctx, s.rep, err.Error()); nerr != nil {
			l.ErrorContext(ctx, "can't send error notification", slog.String("err", nerr.Error()))
		}
		return err
	}

	for _, r := range recipients {
		if err := s.sendTo(ctx, rep, r.Email, r.Name); err != nil {
			l.ErrorContext(ctx, "can't send report",
				slog.String("to", r.Email),
				slog.String("err", err.Error()),
			)
			continue
		}
		l.InfoContext(ctx, "report sent", slog.String("to", r.Email))
	}
	return nil
}

// TriggerFor sends the current report to a single recipient, subscribing
// them if needed. Backs the manual trigger endpoint.
func (s *Service) TriggerFor(ctx context.Context, email, name string) error {
	if err := s.rep.Feedback().UpsertRecipient(ctx, email, name, true); err != nil {
		return fmt.Errorf("can't upsert recipient: %w", err)
	}
	rep, err := s.buildReport(ctx, time.Time{})
	if err != nil {
		return err
	}
	return s.sendTo(ctx, rep, email, name)
}

// Preview builds the report without sending anything.
func (s *Service) Preview(ctx context.Context, weekStart time.Time, includeTrends bool) (*entity.WeeklyReport, error) {
	feedback := s.globalFeedback(ctx)
	return s.analyzer.Analyze(ctx, weekStart, includeTrends, feedback)
}

func (s *Service) buildReport(ctx context.Context, weekStart time.Time) (*entity.WeeklyReport, error) {
	feedback := s.globalFeedback(ctx)
	rep, err := s.analyzer.Analyze(ctx, weekStart, s.c.IncludeTrends, feedback)
	if err != nil {
		return nil, fmt.Errorf("can't analyze week: %w", err)
	}
	return rep, nil
}

// globalFeedback collects tracked items across all recipients; they feed
// the shared trend notes. Degrades to nil.
func (s *Service) globalFeedback(ctx context.Context) *entity.FeedbackContext {
	items, err := s.rep.Feedback().TrackedItems(ctx)
	if err != nil {
		slog.Default().ErrorContext(ctx, "can't load tracked items",
			slog.String("err", err.Error()))
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	return &entity.FeedbackContext{TrackItems: items}
}

func (s *Service) sendTo(ctx context.Context, rep *entity.WeeklyReport, email, name string) error {
	fctx, err := s.rep.Feedback().RecipientContext(ctx, email)
	if err != nil {
		slog.Default().ErrorContext(ctx, "can't load recipient context",
			slog.String("email", email),
			slog.String("err", err.Error()))
		fctx = nil
	}
	memory, err := s.rep.Feedback().RecentConversations(ctx, email, s.c.MemoryDepth)
	if err != nil {
		slog.Default().ErrorContext(ctx, "can't load conversation memory",
			slog.String("email", email),
			slog.String("err", err.Error()))
		memory = nil
	}

	ec, err := s.insights.WeeklyEmail(ctx, rep, name, fctx, memory)
	if err != nil {
		return fmt.Errorf("can't render email: %w", err)
	}

	if err := s.mailer.SendReport(ctx, s.rep, email, ec.Subject, ec.Body); err != nil {
		return fmt.Errorf("can't queue email: %w", err)
	}

	if err := s.saveMemory(ctx, rep, email, ec); err != nil {
		// the email is already queued, memory is best effort
		slog.Default().ErrorContext(ctx, "can't save conversation memory",
			slog.String("email", email),
			slog.String("err", err.Error()))
	}
	return nil
}

func (s *Service) saveMemory(ctx context.Context, rep *entity.WeeklyReport, email string, ec *entity.EmailCopy) error {
	cm := &entity.ConversationMemory{
		RecipientEmail: email,
		WeekStart:      rep.WeekStart,
		WeekEnd:        rep.WeekEnd,
		RevenueTotal:   rep.Total.TotalRevenue,
		RevenueCha:     rep.Current[entity.LocationCharleston].TotalRevenue,
		RevenueBos:     rep.Current[entity.LocationBoston].TotalRevenue,
		QuestionsAsked: strings.Join(ec.Questions, "; "),
		EmailExcerpt:   excerpt(ec.Body, emailExcerptLen),
	}
	if goal, ok := rep.Goals[entity.LocationCharleston]; ok {
		cm.GoalCha = goal.Revenue
		cm.AttainChaPct = rep.Attainment[entity.LocationCharleston].RevenuePct
	}
	if goal, ok := rep.Goals[entity.LocationBoston]; ok {
		cm.GoalBos = goal.Revenue
		cm.AttainBosPct = rep.Attainment[entity.LocationBoston].RevenuePct
	}
	var tops []string
	for i, p := range rep.TopProducts {
		if i == 3 {
			break
		}
		tops = append(tops, p.Product)
	}
	cm.TopProducts = strings.Join(tops, ", ")
	cm.KeyTopics = strings.Join(rep.TrendNotes, "; ")

	return s.rep.Feedback().SaveConversation(ctx, cm)
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
