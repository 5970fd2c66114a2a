package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wickery/storepulse/internal/dependency"
	"github.com/wickery/storepulse/internal/entity"
)

type fakeFeedback struct {
	dependency.Feedback

	recipients    []entity.Recipient
	recipientsErr error
	upserted      []string
	tracked       []string
	trackedErr    error
	contexts      map[string]*entity.FeedbackContext
	memories      map[string][]entity.ConversationMemory
	saved         []*entity.ConversationMemory
	savedErr      error
	replies       []entity.InboundReply
	feedbackAdded []string
	addErr        error
	processed     []int
	markErr       error
}

func (f *fakeFeedback) ActiveRecipients(_ context.Context) ([]entity.Recipient, error) {
	return f.recipients, f.recipientsErr
}

func (f *fakeFeedback) UpsertRecipient(_ context.Context, email, _ string, _ bool) error {
	f.upserted = append(f.upserted, email)
	return nil
}

func (f *fakeFeedback) TrackedItems(_ context.Context) ([]string, error) {
	return f.tracked, f.trackedErr
}

func (f *fakeFeedback) RecipientContext(_ context.Context, email string) (*entity.FeedbackContext, error) {
	return f.contexts[email], nil
}

func (f *fakeFeedback) RecentConversations(_ context.Context, email string, _ int) ([]entity.ConversationMemory, error) {
	return f.memories[email], nil
}

func (f *fakeFeedback) SaveConversation(_ context.Context, cm *entity.ConversationMemory) error {
	if f.savedErr != nil {
		return f.savedErr
	}
	f.saved = append(f.saved, cm)
	return nil
}

func (f *fakeFeedback) UnprocessedReplies(_ context.Context) ([]entity.InboundReply, error) {
	return f.replies, nil
}

func (f *fakeFeedback) AddFeedback(_ context.Context, email, _ string, _ *entity.ExtractedFeedback) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.feedbackAdded = append(f.feedbackAdded, email)
	return nil
}

func (f *fakeFeedback) MarkReplyProcessed(_ context.Context, id int) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.processed = append(f.processed, id)
	return nil
}

type fakeRepo struct {
	dependency.Repository
	feedback *fakeFeedback
}

func (f *fakeRepo) Feedback() dependency.Feedback { return f.feedback }

type fakeAnalyzer struct {
	rep      *entity.WeeklyReport
	err      error
	feedback *entity.FeedbackContext
	calls    int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ time.Time, _ bool, fctx *entity.FeedbackContext) (*entity.WeeklyReport, error) {
	f.calls++
	f.feedback = fctx
	return f.rep, f.err
}

type fakeInsights struct {
	copy      *entity.EmailCopy
	copyErr   error
	extracted map[string]*entity.ExtractedFeedback
	extErr    error
}

func (f *fakeInsights) WeeklyEmail(_ context.Context, _ *entity.WeeklyReport, _ string, _ *entity.FeedbackContext, _ []entity.ConversationMemory) (*entity.EmailCopy, error) {
	return f.copy, f.copyErr
}

func (f *fakeInsights) ExtractFeedback(_ context.Context, body, _ string) (*entity.ExtractedFeedback, error) {
	if f.extErr != nil {
		return nil, f.extErr
	}
	if fb, ok := f.extracted[body]; ok {
		return fb, nil
	}
	return &entity.ExtractedFeedback{Context: body}, nil
}

type fakeMailer struct {
	sentTo     []string
	sendErr    map[string]error
	errNotices []string
}

func (f *fakeMailer) Start(context.Context) error { return nil }
func (f *fakeMailer) Stop() error                 { return nil }

func (f *fakeMailer) SendReport(_ context.Context, _ dependency.Repository, to, _, _ string) error {
	if err := f.sendErr[to]; err != nil {
		return err
	}
	f.sentTo = append(f.sentTo, to)
	return nil
}

func (f *fakeMailer) SendErrorNotification(_ context.Context, _ dependency.Repository, msg string) error {
	f.errNotices = append(f.errNotices, msg)
	return nil
}

func weeklyReport() *entity.WeeklyReport {
	rep := &entity.WeeklyReport{
		WeekStart: time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC),
		WeekEnd:   time.Date(2025, time.June, 15, 23, 59, 59, 0, time.UTC),
		Total:     entity.Snapshot{TotalRevenue: decimal.RequireFromString("4200.00")},
		Current:   make(map[entity.Location]entity.Snapshot),
		Goals: map[entity.Location]entity.Goal{
			entity.LocationCharleston: {Revenue: decimal.NewFromInt(25000)},
		},
		Attainment: map[entity.Location]entity.Attainment{
			entity.LocationCharleston: {RevenuePct: decimal.RequireFromString("16.8")},
		},
		TopProducts: []entity.ProductPerformance{
			{Product: "Lavender Candle"}, {Product: "Signature Candle"},
			{Product: "Wick Trimmer"}, {Product: "Match Bottle"},
		},
		TrendNotes: []string{"Friday was the strongest sales day at $900.00"},
	}
	for _, loc := range entity.Locations() {
		rep.Current[loc] = entity.Snapshot{TotalRevenue: decimal.Zero, AvgOrderValue: decimal.Zero}
	}
	return rep
}

func newTestService(t *testing.T, fb *fakeFeedback, an *fakeAnalyzer, in *fakeInsights, ml *fakeMailer) *Service {
	t.Helper()
	c := DefaultConfig()
	c.Timezone = "UTC"
	svc, err := New(c, &fakeRepo{feedback: fb}, an, in, ml)
	require.NoError(t, err)
	return svc
}

func TestRun(t *testing.T) {
	fb := &fakeFeedback{
		recipients: []entity.Recipient{
			{Email: "jordan@example.com", Name: "Jordan"},
			{Email: "sam@example.com", Name: "Sam"},
		},
		tracked: []string{"pumpkin candle"},
	}
	an := &fakeAnalyzer{rep: weeklyReport()}
	in := &fakeInsights{copy: &entity.EmailCopy{Subject: "s", Body: "b", Questions: []string{"q1"}}}
	ml := &fakeMailer{}
	svc := newTestService(t, fb, an, in, ml)

	require.NoError(t, svc.Run(context.Background()))

	// one analysis serves every recipient
	assert.Equal(t, 1, an.calls)
	require.NotNil(t, an.feedback)
	assert.Equal(t, []string{"pumpkin candle"}, an.feedback.TrackItems)
	assert.Equal(t, []string{"jordan@example.com", "sam@example.com"}, ml.sentTo)

	require.Len(t, fb.saved, 2)
	cm := fb.saved[0]
	assert.Equal(t, "jordan@example.com", cm.RecipientEmail)
	assert.True(t, cm.RevenueTotal.Equal(decimal.RequireFromString("4200.00")))
	assert.True(t, cm.GoalCha.Equal(decimal.NewFromInt(25000)))
	// memory keeps the top three products only
	assert.Equal(t, "Lavender Candle, Signature Candle, Wick Trimmer", cm.TopProducts)
	assert.Equal(t, "q1", cm.QuestionsAsked)
	assert.Contains(t, cm.KeyTopics, "strongest sales day")
}

func TestRunNoRecipients(t *testing.T) {
	fb := &fakeFeedback{}
	an := &fakeAnalyzer{rep: weeklyReport()}
	svc := newTestService(t, fb, an, &fakeInsights{}, &fakeMailer{})

	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, 0, an.calls)
}

func TestRunAnalysisFailureNotifiesAdmin(t *testing.T) {
	fb := &fakeFeedback{recipients: []entity.Recipient{{Email: "jordan@example.com"}}}
	an := &fakeAnalyzer{err: errors.New("orders api down")}
	ml := &fakeMailer{}
	svc := newTestService(t, fb, an, &fakeInsights{}, ml)

	err := svc.Run(context.Background())
	require.Error(t, err)
	require.Len(t, ml.errNotices, 1)
	assert.Contains(t, ml.errNotices[0], "orders api down")
	assert.Empty(t, ml.sentTo)
}

func TestRunOneRecipientFailureContinues(t *testing.T) {
	fb := &fakeFeedback{recipients: []entity.Recipient{
		{Email: "jordan@example.com"},
		{Email: "sam@example.com"},
	}}
	an := &fakeAnalyzer{rep: weeklyReport()}
	in := &fakeInsights{copy: &entity.EmailCopy{Subject: "s", Body: "b"}}
	ml := &fakeMailer{sendErr: map[string]error{"jordan@example.com": errors.New("smtp down")}}
	svc := newTestService(t, fb, an, in, ml)

	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, []string{"sam@example.com"}, ml.sentTo)
}

func TestRunMemoryFailureDoesNotFailSend(t *testing.T) {
	fb := &fakeFeedback{
		recipients: []entity.Recipient{{Email: "jordan@example.com"}},
		savedErr:   errors.New("db down"),
	}
	an := &fakeAnalyzer{rep: weeklyReport()}
	in := &fakeInsights{copy: &entity.EmailCopy{Subject: "s", Body: "b"}}
	ml := &fakeMailer{}
	svc := newTestService(t, fb, an, in, ml)

	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, []string{"jordan@example.com"}, ml.sentTo)
}

func TestTriggerFor(t *testing.T) {
	fb := &fakeFeedback{}
	an := &fakeAnalyzer{rep: weeklyReport()}
	in := &fakeInsights{copy: &entity.EmailCopy{Subject: "s", Body: "b"}}
	ml := &fakeMailer{}
	svc := newTestService(t, fb, an, in, ml)

	require.NoError(t, svc.TriggerFor(context.Background(), "new@example.com", "New Owner"))
	assert.Equal(t, []string{"new@example.com"}, fb.upserted)
	assert.Equal(t, []string{"new@example.com"}, ml.sentTo)
}

func TestPreview(t *testing.T) {
	fb := &fakeFeedback{tracked: []string{"matches"}}
	an := &fakeAnalyzer{rep: weeklyReport()}
	svc := newTestService(t, fb, an, &fakeInsights{}, &fakeMailer{})

	rep, err := svc.Preview(context.Background(), time.Time{}, true)
	require.NoError(t, err)
	assert.NotNil(t, rep)
	require.NotNil(t, an.feedback)
	assert.Equal(t, []string{"matches"}, an.feedback.TrackItems)
}

func TestGlobalFeedbackDegrades(t *testing.T) {
	fb := &fakeFeedback{trackedErr: errors.New("db down")}
	svc := newTestService(t, fb, &fakeAnalyzer{}, &fakeInsights{}, &fakeMailer{})

	assert.Nil(t, svc.globalFeedback(context.Background()))
}

func TestProcessReplies(t *testing.T) {
	fb := &fakeFeedback{replies: []entity.InboundReply{
		{Id: 1, Sender: "jordan@example.com", Body: "track the pumpkin candle"},
		{Id: 2, Sender: "sam@example.com", Body: "great week"},
	}}
	in := &fakeInsights{extracted: map[string]*entity.ExtractedFeedback{
		"track the pumpkin candle": {Context: "fall launch", TrackItems: []string{"pumpkin candle"}},
	}}
	svc := newTestService(t, fb, &fakeAnalyzer{}, in, &fakeMailer{})

	require.NoError(t, svc.ProcessReplies(context.Background()))
	assert.Equal(t, []string{"jordan@example.com", "sam@example.com"}, fb.feedbackAdded)
	assert.Equal(t, []int{1, 2}, fb.processed)
}

func TestProcessRepliesExtractionFailureContinues(t *testing.T) {
	fb := &fakeFeedback{replies: []entity.InboundReply{{Id: 1, Sender: "a@example.com", Body: "x"}}}
	in := &fakeInsights{extErr: errors.New("model down")}
	svc := newTestService(t, fb, &fakeAnalyzer{}, in, &fakeMailer{})

	require.NoError(t, svc.ProcessReplies(context.Background()))
	assert.Empty(t, fb.feedbackAdded)
	assert.Empty(t, fb.processed)
}

func TestProcessRepliesSaveFailureLeavesUnprocessed(t *testing.T) {
	fb := &fakeFeedback{
		replies: []entity.InboundReply{{Id: 1, Sender: "a@example.com", Body: "x"}},
		addErr:  errors.New("db down"),
	}
	svc := newTestService(t, fb, &fakeAnalyzer{}, &fakeInsights{}, &fakeMailer{})

	require.NoError(t, svc.ProcessReplies(context.Background()))
	assert.Empty(t, fb.processed)
}

func TestProcessRepliesMarkFailureFatal(t *testing.T) {
	fb := &fakeFeedback{
		replies: []entity.InboundReply{{Id: 1, Sender: "a@example.com", Body: "x"}},
		markErr: errors.New("db down"),
	}
	svc := newTestService(t, fb, &fakeAnalyzer{}, &fakeInsights{}, &fakeMailer{})

	require.Error(t, svc.ProcessReplies(context.Background()))
}

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("a", emailExcerptLen+50)
	assert.Len(t, excerpt(long, emailExcerptLen), emailExcerptLen)
	assert.Equal(t, "short", excerpt("short", emailExcerptLen))
}

func TestNextRun(t *testing.T) {
	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "midweek rolls to next monday",
			now:  time.Date(2025, time.June, 11, 10, 0, 0, 0, tz), // Wednesday
			want: time.Date(2025, time.June, 16, 8, 0, 0, 0, tz),
		},
		{
			name: "monday before the hour runs same day",
			now:  time.Date(2025, time.June, 9, 7, 30, 0, 0, tz),
			want: time.Date(2025, time.June, 9, 8, 0, 0, 0, tz),
		},
		{
			name: "monday after the hour waits a week",
			now:  time.Date(2025, time.June, 9, 8, 0, 1, 0, tz),
			want: time.Date(2025, time.June, 16, 8, 0, 0, 0, tz),
		},
		{
			name: "exactly at the hour waits a week",
			now:  time.Date(2025, time.June, 9, 8, 0, 0, 0, tz),
			want: time.Date(2025, time.June, 16, 8, 0, 0, 0, tz),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextRun(tt.now, time.Monday, 8)
			assert.True(t, got.Equal(tt.want), got.String())
			assert.Equal(t, time.Monday, got.Weekday())
		})
	}
}

func TestWorkerStartStop(t *testing.T) {
	fb := &fakeFeedback{}
	svc := newTestService(t, fb, &fakeAnalyzer{rep: weeklyReport()}, &fakeInsights{}, &fakeMailer{})

	w := NewWorker(svc)
	require.NoError(t, w.Start(context.Background()))
	require.Error(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	require.Error(t, w.Stop())
}
