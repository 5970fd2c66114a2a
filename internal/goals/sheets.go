package goals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

const defaultForecastRange = "2025 Forecast!A30:N50"

type sheetsReader struct {
	svc           *sheets.Service
	forecastRange string
}

func newSheetsReader(ctx context.Context, c *Config) (*sheetsReader, error) {
	var opts []option.ClientOption
	switch {
	case c.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(c.CredentialsJSON)))
	case c.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsReadonlyScope))
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	r := &sheetsReader{svc: svc, forecastRange: c.ForecastRange}
	if r.forecastRange == "" {
		r.forecastRange = defaultForecastRange
	}
	return r, nil
}

// monthlyMerchandiseGoal reads the forecast tab and returns the merchandise
// revenue target for the period's month.
func (r *sheetsReader) monthlyMerchandiseGoal(ctx context.Context, spreadsheetId string, periodStart time.Time) (decimal.Decimal, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(spreadsheetId, r.forecastRange).Context(ctx).Do()
	if err != nil {
		return decimal.Zero, fmt.Errorf("can't read forecast range: %w", err)
	}
	return merchandiseGoalFromRows(resp.Values, periodStart)
}

// merchandiseGoalFromRows scans forecast rows for the yearly goal block.
// Expected layout: a row whose first cell reads "<year> Goal" opens the
// block, and a following "Merchandise" row carries the twelve monthly
// columns after the label.
func merchandiseGoalFromRows(rows [][]interface{}, periodStart time.Time) (decimal.Decimal, error) {
	marker := fmt.Sprintf("%d Goal", periodStart.Year())
	inBlock := false
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		first := strings.TrimSpace(fmt.Sprint(row[0]))
		if strings.EqualFold(first, marker) {
			inBlock = true
			continue
		}
		if inBlock && strings.EqualFold(first, "Merchandise") {
			col := int(periodStart.Month())
			if col >= len(row) {
				return decimal.Zero, fmt.Errorf("no %s column in merchandise row", periodStart.Month())
			}
			return parseMoney(fmt.Sprint(row[col]))
		}
	}
	return decimal.Zero, fmt.Errorf("no %q block in forecast sheet", marker)
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty money cell")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("can't parse money cell %q: %w", s, err)
	}
	return d, nil
}
