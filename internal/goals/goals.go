// Package goals resolves weekly sales targets per store. The primary source
// is the forecast spreadsheet; any failure there degrades to the static
// seasonal baseline so a report never ships without targets.
package goals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wickery/storepulse/internal/entity"
)

type Config struct {
	Enabled         bool              `mapstructure:"enabled"`
	CredentialsFile string            `mapstructure:"credentials_file"`
	CredentialsJSON string            `mapstructure:"credentials_json"`
	SpreadsheetIds  map[string]string `mapstructure:"spreadsheet_ids"`
	ForecastRange   string            `mapstructure:"forecast_range"`
}

// Service implements dependency.GoalSource.
type Service struct {
	c      *Config
	sheets *sheetsReader
}

func New(ctx context.Context, c *Config) (*Service, error) {
	s := &Service{c: c}
	if !c.Enabled {
		return s, nil
	}
	r, err := newSheetsReader(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("can't init sheets reader: %w", err)
	}
	s.sheets = r
	return s, nil
}

// GetGoal returns the weekly goal for one store. The spreadsheet supplies
// the monthly merchandise revenue target, scaled to a week; everything else
// comes from the baseline. Errors are returned only for unknown locations.
func (s *Service) GetGoal(ctx context.Context, loc entity.Location, periodStart time.Time) (entity.Goal, error) {
	goal, err := BaselineGoal(loc, periodStart)
	if err != nil {
		return entity.Goal{}, err
	}
	if s.sheets == nil {
		return goal, nil
	}
	id, ok := s.c.SpreadsheetIds[loc.String()]
	if !ok {
		return goal, nil
	}
	monthly, err := s.sheets.monthlyMerchandiseGoal(ctx, id, periodStart)
	if err != nil {
		slog.Default().Error("can't read forecast sheet, using baseline goal",
			slog.String("location", loc.String()),
			slog.String("err", err.Error()))
		return goal, nil
	}
	goal.Revenue = weeklyShare(monthly, periodStart)
	goal.Source = entity.GoalSourceSheets
	return goal, nil
}

// weeklyShare scales a monthly target to one week of that month.
func weeklyShare(monthly decimal.Decimal, periodStart time.Time) decimal.Decimal {
	days := daysInMonth(periodStart)
	weeks := decimal.NewFromInt(int64(days)).Div(decimal.NewFromInt(7))
	return monthly.DivRound(weeks, 2)
}

func daysInMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}

// Attain computes goal attainment with zero-goal guards: a zero target
// yields 0% rather than a division error, and gaps are still reported.
func Attain(s entity.Snapshot, g entity.Goal) entity.Attainment {
	hundred := decimal.NewFromInt(100)
	a := entity.Attainment{
		RevenueGap:   s.TotalRevenue.Sub(g.Revenue),
		AvgTicketGap: s.AvgOrderValue.Sub(g.AvgTicket),
	}
	if g.Revenue.GreaterThan(decimal.Zero) {
		a.RevenuePct = s.TotalRevenue.Div(g.Revenue).Mul(hundred).Round(1)
	}
	if g.AvgTicket.GreaterThan(decimal.Zero) {
		a.AvgTicketPct = s.AvgOrderValue.Div(g.AvgTicket).Mul(hundred).Round(1)
	}
	if g.ConversionRate.GreaterThan(decimal.Zero) {
		a.EstimatedTraffic = decimal.NewFromInt(int64(s.OrderCount)).DivRound(g.ConversionRate, 0)
	}
	return a
}
