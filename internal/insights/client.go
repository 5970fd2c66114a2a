// Package insights renders the weekly report into conversational email copy
// through the Anthropic messages API and extracts structure from replies.
// Every API failure degrades to deterministic copy so the weekly send never
// blocks on the model.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/wickery/storepulse/internal/entity"
)

// anthropicBaseURL is a var so tests can point the client at a local server.
var anthropicBaseURL = "https://api.anthropic.com"

const (
	anthropicVersion = "2023-06-01"
	defaultModel     = "claude-3-sonnet-20240229"
	defaultMaxTokens = 2000

	// The report email runs hot for a conversational voice; extraction
	// runs cold for stable JSON.
	reportTemperature  = 0.9
	extractTemperature = 0.3
)

type Config struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// Client implements dependency.Insights.
type Client struct {
	c   *Config
	cli *resty.Client
}

func New(c *Config) *Client {
	cli := resty.New()
	cli.SetBaseURL(anthropicBaseURL)
	cli.SetHeader("x-api-key", c.APIKey)
	cli.SetHeader("anthropic-version", anthropicVersion)
	cli.SetHeader("content-type", "application/json")
	cli.SetTimeout(60 * time.Second)
	return &Client{c: c, cli: cli}
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// WeeklyEmail turns a report into a complete conversational email plus the
// questions it asked. On any API or parse failure the deterministic
// fallback copy is returned with a nil error.
func (c *Client) WeeklyEmail(ctx context.Context, report *entity.WeeklyReport, recipientName string, feedback *entity.FeedbackContext, memory []entity.ConversationMemory) (*entity.EmailCopy, error) {
	subject := fmt.Sprintf("Weekly store update - week of %s", report.WeekStart.Format("Jan 2"))

	raw, err := c.complete(ctx, reportPrompt(report, recipientName, feedback, memory), reportTemperature)
	if err != nil {
		return &entity.EmailCopy{Subject: subject, Body: fallbackEmail(report, recipientName)}, nil
	}

	var parsed struct {
		FullEmail string   `json:"full_email"`
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil || parsed.FullEmail == "" {
		return &entity.EmailCopy{Subject: subject, Body: fallbackEmail(report, recipientName)}, nil
	}
	return &entity.EmailCopy{
		Subject:   subject,
		Body:      parsed.FullEmail,
		Questions: parsed.Questions,
	}, nil
}

// ExtractFeedback parses one reply into structured feedback. On failure the
// raw reply is preserved as free-form context.
func (c *Client) ExtractFeedback(ctx context.Context, replyBody, sender string) (*entity.ExtractedFeedback, error) {
	raw, err := c.complete(ctx, extractPrompt(replyBody, sender), extractTemperature)
	if err != nil {
		return &entity.ExtractedFeedback{Context: replyBody}, nil
	}
	var parsed entity.ExtractedFeedback
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return &entity.ExtractedFeedback{Context: replyBody}, nil
	}
	if parsed.Context == "" {
		parsed.Context = replyBody
	}
	return &parsed, nil
}

func (c *Client) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	model := c.c.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := c.c.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	var body messagesResponse
	resp, err := c.cli.R().
		SetContext(ctx).
		SetBody(messagesRequest{
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
			Messages:    []message{{Role: "user", Content: prompt}},
		}).
		SetResult(&body).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("can't call messages api: %w", err)
	}
	if resp.IsError() {
		msg := resp.String()
		if body.Error != nil {
			msg = body.Error.Message
		}
		return "", fmt.Errorf("messages api failed: status %d: %s", resp.StatusCode(), msg)
	}
	if len(body.Content) == 0 {
		return "", fmt.Errorf("messages api returned no content")
	}
	return body.Content[0].Text, nil
}

// stripFences unwraps ```json fenced blocks the model sometimes emits
// around its JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
