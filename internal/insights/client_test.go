package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wickery/storepulse/internal/entity"
)

func withTestServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	prev := anthropicBaseURL
	anthropicBaseURL = srv.URL
	t.Cleanup(func() {
		anthropicBaseURL = prev
		srv.Close()
	})
}

func modelText(text string) string {
	resp := map[string]any{
		"content": []map[string]string{{"type": "text", "text": text}},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func testReport() *entity.WeeklyReport {
	up := decimal.RequireFromString("12.5")
	rep := &entity.WeeklyReport{
		WeekStart:    time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC),
		WeekEnd:      time.Date(2025, time.June, 15, 23, 59, 59, 0, time.UTC),
		Total:        entity.Snapshot{OrderCount: 42, TotalRevenue: decimal.RequireFromString("4200.00"), AvgOrderValue: decimal.RequireFromString("100.00")},
		TotalChanges: entity.YoYChanges{TotalRevenue: &up},
		Current:      make(map[entity.Location]entity.Snapshot),
		Changes:      make(map[entity.Location]entity.YoYChanges),
	}
	for _, loc := range entity.Locations() {
		rep.Current[loc] = entity.Snapshot{TotalRevenue: decimal.Zero, AvgOrderValue: decimal.Zero}
		rep.Changes[loc] = entity.YoYChanges{}
	}
	return rep
}

func TestWeeklyEmail(t *testing.T) {
	var gotReq messagesRequest
	var gotVersion, gotKey string
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		gotVersion = r.Header.Get("anthropic-version")
		gotKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, modelText(`{"full_email": "Hi Jordan, great week!", "questions": ["Restock lavender?"]}`))
	})

	c := New(&Config{APIKey: "key"})
	ec, err := c.WeeklyEmail(context.Background(), testReport(), "Jordan", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "2023-06-01", gotVersion)
	assert.Equal(t, "key", gotKey)
	assert.Equal(t, defaultModel, gotReq.Model)
	assert.Equal(t, reportTemperature, gotReq.Temperature)
	require.Len(t, gotReq.Messages, 1)
	assert.Contains(t, gotReq.Messages[0].Content, "$4200.00")
	assert.Contains(t, gotReq.Messages[0].Content, "+12.5%")

	assert.Equal(t, "Weekly store update - week of Jun 9", ec.Subject)
	assert.Equal(t, "Hi Jordan, great week!", ec.Body)
	assert.Equal(t, []string{"Restock lavender?"}, ec.Questions)
}

func TestWeeklyEmailFencedResponse(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, modelText("```json\n{\"full_email\": \"Hello\", \"questions\": []}\n```"))
	})

	c := New(&Config{APIKey: "key"})
	ec, err := c.WeeklyEmail(context.Background(), testReport(), "Jordan", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello", ec.Body)
}

func TestWeeklyEmailFallbackOnAPIError(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error": {"type": "overloaded_error", "message": "try later"}}`)
	})

	c := New(&Config{APIKey: "key"})
	ec, err := c.WeeklyEmail(context.Background(), testReport(), "Jordan", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "Weekly store update - week of Jun 9", ec.Subject)
	assert.Contains(t, ec.Body, "Hi Jordan,")
	assert.Contains(t, ec.Body, "$4200.00")
	assert.Contains(t, ec.Body, "+12.5%")
	assert.Empty(t, ec.Questions)
}

func TestWeeklyEmailFallbackOnBadJSON(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, modelText("Sure! Here is the email you asked for."))
	})

	c := New(&Config{APIKey: "key"})
	ec, err := c.WeeklyEmail(context.Background(), testReport(), "Jordan", nil, nil)
	require.NoError(t, err)
	assert.Contains(t, ec.Body, "Hi Jordan,")
}

func TestWeeklyEmailNotOpenCopy(t *testing.T) {
	var prompt string
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt = req.Messages[0].Content
		fmt.Fprint(w, modelText(`{"full_email": "ok", "questions": []}`))
	})

	c := New(&Config{APIKey: "key"})
	_, err := c.WeeklyEmail(context.Background(), testReport(), "Jordan", nil, nil)
	require.NoError(t, err)

	// nil changes render as N/A, never as a percentage
	assert.Contains(t, prompt, "N/A (store not open last year)")
}

func TestExtractFeedback(t *testing.T) {
	var gotReq messagesRequest
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, modelText(`{"context": "planning a fall launch", "track_items": ["pumpkin candle"], "preferences": {"tone": "short"}, "questions": ["how did boston do?"]}`))
	})

	c := New(&Config{APIKey: "key"})
	fb, err := c.ExtractFeedback(context.Background(), "Can you track the pumpkin candle? Planning a fall launch.", "jordan@example.com")
	require.NoError(t, err)

	assert.Equal(t, extractTemperature, gotReq.Temperature)
	assert.Contains(t, gotReq.Messages[0].Content, "jordan@example.com")

	assert.Equal(t, "planning a fall launch", fb.Context)
	assert.Equal(t, []string{"pumpkin candle"}, fb.TrackItems)
	assert.Equal(t, map[string]string{"tone": "short"}, fb.Preferences)
	assert.Equal(t, []string{"how did boston do?"}, fb.Questions)
}

func TestExtractFeedbackFallback(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	c := New(&Config{APIKey: "key"})
	fb, err := c.ExtractFeedback(context.Background(), "keep an eye on matches", "jordan@example.com")
	require.NoError(t, err)

	// the raw reply survives as free-form context
	assert.Equal(t, "keep an eye on matches", fb.Context)
	assert.Empty(t, fb.TrackItems)
}

func TestExtractFeedbackEmptyContextFilled(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, modelText(`{"context": "", "track_items": ["matches"]}`))
	})

	c := New(&Config{APIKey: "key"})
	fb, err := c.ExtractFeedback(context.Background(), "keep an eye on matches", "jordan@example.com")
	require.NoError(t, err)

	assert.Equal(t, "keep an eye on matches", fb.Context)
	assert.Equal(t, []string{"matches"}, fb.TrackItems)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
