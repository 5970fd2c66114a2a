package insights

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wickery/storepulse/internal/entity"
)

// pctString renders a YoY delta, or N/A when there is no valid comparison.
func pctString(pct *decimal.Decimal) string {
	if pct == nil {
		return "N/A (store not open last year)"
	}
	if pct.GreaterThanOrEqual(decimal.Zero) {
		return "+" + pct.StringFixed(1) + "%"
	}
	return pct.StringFixed(1) + "%"
}

func reportPrompt(rep *entity.WeeklyReport, recipientName string, feedback *entity.FeedbackContext, memory []entity.ConversationMemory) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You write the weekly sales email for a candle store owner. Write a warm, conversational email to %s covering the week of %s to %s.\n\n",
		recipientName, rep.WeekStart.Format("Jan 2"), rep.WeekEnd.Format("Jan 2, 2006"))

	fmt.Fprintf(&b, "This week's numbers:\n")
	fmt.Fprintf(&b, "- Total: $%s revenue, %d orders, $%s avg order (%s vs last year)\n",
		rep.Total.TotalRevenue.StringFixed(2), rep.Total.OrderCount,
		rep.Total.AvgOrderValue.StringFixed(2), pctString(rep.TotalChanges.TotalRevenue))
	for _, loc := range entity.Locations() {
		s := rep.Current[loc]
		fmt.Fprintf(&b, "- %s: $%s revenue, %d orders (%s vs last year)\n",
			loc, s.TotalRevenue.StringFixed(2), s.OrderCount, pctString(rep.Changes[loc].TotalRevenue))
	}

	if len(rep.Goals) > 0 {
		fmt.Fprintf(&b, "\nGoals:\n")
		for _, loc := range entity.StoreLocations() {
			goal, ok := rep.Goals[loc]
			if !ok {
				continue
			}
			att := rep.Attainment[loc]
			fmt.Fprintf(&b, "- %s: $%s goal, at %s%% attainment\n",
				loc, goal.Revenue.StringFixed(0), att.RevenuePct.StringFixed(1))
		}
	}

	if len(rep.TopProducts) > 0 {
		fmt.Fprintf(&b, "\nTop products:\n")
		for i, p := range rep.TopProducts {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "- %s: %d sold, $%s\n", p.Product, p.QuantitySold, p.Revenue.StringFixed(2))
		}
	}

	if len(rep.TrendNotes) > 0 {
		fmt.Fprintf(&b, "\nTrends worth mentioning:\n")
		for _, n := range rep.TrendNotes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}

	if feedback != nil && len(feedback.Notes) > 0 {
		fmt.Fprintf(&b, "\nContext the recipient has shared before:\n")
		for _, n := range feedback.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}

	if len(memory) > 0 {
		fmt.Fprintf(&b, "\nRecent weeks you already reported (don't repeat, build on them):\n")
		for _, m := range memory {
			fmt.Fprintf(&b, "- week of %s: $%s total", m.WeekStart.Format("Jan 2"), m.RevenueTotal.StringFixed(0))
			if m.KeyTopics != "" {
				fmt.Fprintf(&b, ", discussed %s", m.KeyTopics)
			}
			fmt.Fprintf(&b, "\n")
		}
	}

	fmt.Fprintf(&b, "\nWhere a comparison says N/A, say the store wasn't open last year instead of quoting a percentage. End with one or two genuine questions about the business.\n")
	fmt.Fprintf(&b, "\nRespond with JSON only: {\"full_email\": \"...\", \"questions\": [\"...\"]}\n")
	return b.String()
}

func extractPrompt(replyBody, sender string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A store owner (%s) replied to their weekly sales email. Extract anything actionable.\n\n", sender)
	fmt.Fprintf(&b, "Reply:\n%s\n\n", replyBody)
	fmt.Fprintf(&b, "Respond with JSON only:\n")
	fmt.Fprintf(&b, "{\"context\": \"business context worth remembering\", \"track_items\": [\"products to track in future reports\"], \"preferences\": {\"key\": \"value\"}, \"questions\": [\"questions they asked\"]}\n")
	return b.String()
}

// fallbackEmail is the deterministic copy used when the model is down. It
// reads plain but carries every number the owner needs.
func fallbackEmail(rep *entity.WeeklyReport, recipientName string) string {
	var b strings.Builder

	name := recipientName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Here's how the week of %s went.\n\n", rep.WeekStart.Format("January 2"))
	fmt.Fprintf(&b, "Overall we did $%s across %d orders, averaging $%s per order (%s vs the same week last year).\n\n",
		rep.Total.TotalRevenue.StringFixed(2), rep.Total.OrderCount,
		rep.Total.AvgOrderValue.StringFixed(2), pctString(rep.TotalChanges.TotalRevenue))

	for _, loc := range entity.Locations() {
		s := rep.Current[loc]
		fmt.Fprintf(&b, "%s: $%s from %d orders, %s year over year.\n",
			capitalize(loc.String()), s.TotalRevenue.StringFixed(2), s.OrderCount,
			pctString(rep.Changes[loc].TotalRevenue))
	}

	if len(rep.TopProducts) > 0 {
		fmt.Fprintf(&b, "\nBest seller this week was %s with %d sold ($%s).\n",
			rep.TopProducts[0].Product, rep.TopProducts[0].QuantitySold, rep.TopProducts[0].Revenue.StringFixed(2))
	}

	if len(rep.TrendNotes) > 0 {
		fmt.Fprintf(&b, "\nA few things I noticed:\n")
		for _, n := range rep.TrendNotes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}

	fmt.Fprintf(&b, "\nReply to this email with anything you want me to dig into next week.\n")
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
