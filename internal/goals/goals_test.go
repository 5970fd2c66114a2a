package goals

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wickery/storepulse/internal/entity"
)

func TestSeasonalFactor(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.November, "1.3"},
		{time.December, "1.3"},
		{time.January, "0.8"},
		{time.February, "0.8"},
		{time.June, "1.1"},
		{time.July, "1.1"},
		{time.August, "1.1"},
		{time.March, "1"},
		{time.September, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			assert.True(t, SeasonalFactor(tt.month).Equal(decimal.RequireFromString(tt.want)))
		})
	}
}

func TestBaselineGoal(t *testing.T) {
	april := time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC)

	goal, err := BaselineGoal(entity.LocationCharleston, april)
	require.NoError(t, err)
	assert.True(t, goal.Revenue.Equal(decimal.NewFromInt(25000)), goal.Revenue.String())
	assert.True(t, goal.Traffic.Equal(decimal.NewFromInt(800)))
	assert.True(t, goal.AvgTicket.Equal(decimal.NewFromInt(89)))
	assert.Equal(t, entity.GoalSourceBaseline, goal.Source)

	goal, err = BaselineGoal(entity.LocationBoston, april)
	require.NoError(t, err)
	assert.True(t, goal.Revenue.Equal(decimal.NewFromInt(15000)))
	assert.True(t, goal.AvgTicket.Equal(decimal.NewFromInt(100)))
}

func TestBaselineGoalSeasonal(t *testing.T) {
	december := time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)

	goal, err := BaselineGoal(entity.LocationCharleston, december)
	require.NoError(t, err)
	// 25000 * 1.3 holiday lift, traffic scales too
	assert.True(t, goal.Revenue.Equal(decimal.NewFromInt(32500)), goal.Revenue.String())
	assert.True(t, goal.Traffic.Equal(decimal.NewFromInt(1040)), goal.Traffic.String())
	// conversion and ticket targets stay flat across seasons
	assert.True(t, goal.ConversionRate.Equal(decimal.NewFromFloat(0.35)))
	assert.True(t, goal.AvgTicket.Equal(decimal.NewFromInt(89)))
}

func TestBaselineGoalUnknownLocation(t *testing.T) {
	_, err := BaselineGoal(entity.LocationOnline, time.Now())
	require.Error(t, err)

	_, err = BaselineGoal(entity.Location("warehouse"), time.Now())
	require.Error(t, err)
}

func TestGetGoalWithoutSheets(t *testing.T) {
	svc, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	goal, err := svc.GetGoal(context.Background(), entity.LocationBoston, time.Date(2025, time.July, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, entity.GoalSourceBaseline, goal.Source)
	// 15000 * 1.1 summer bump
	assert.True(t, goal.Revenue.Equal(decimal.NewFromInt(16500)), goal.Revenue.String())
}

func TestWeeklyShare(t *testing.T) {
	// June has 30 days, so a 42000 monthly goal is 42000/(30/7) = 9800/week
	june := time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC)
	got := weeklyShare(decimal.NewFromInt(42000), june)
	assert.True(t, got.Equal(decimal.NewFromInt(9800)), got.String())

	// February 2025 has 28 days, exactly four weeks
	feb := time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC)
	got = weeklyShare(decimal.NewFromInt(40000), feb)
	assert.True(t, got.Equal(decimal.NewFromInt(10000)), got.String())
}

func TestAttain(t *testing.T) {
	s := entity.Snapshot{
		OrderCount:    70,
		TotalRevenue:  decimal.RequireFromString("20000.00"),
		AvgOrderValue: decimal.RequireFromString("80.10"),
	}
	g := entity.Goal{
		Revenue:        decimal.NewFromInt(25000),
		AvgTicket:      decimal.NewFromInt(89),
		ConversionRate: decimal.NewFromFloat(0.35),
	}

	a := Attain(s, g)

	assert.True(t, a.RevenuePct.Equal(decimal.RequireFromString("80")), a.RevenuePct.String())
	assert.True(t, a.AvgTicketPct.Equal(decimal.RequireFromString("90")), a.AvgTicketPct.String())
	assert.True(t, a.RevenueGap.Equal(decimal.RequireFromString("-5000.00")), a.RevenueGap.String())
	assert.True(t, a.AvgTicketGap.Equal(decimal.RequireFromString("-8.90")), a.AvgTicketGap.String())
	assert.True(t, a.EstimatedTraffic.Equal(decimal.NewFromInt(200)), a.EstimatedTraffic.String())
}

func TestAttainZeroGoals(t *testing.T) {
	s := entity.Snapshot{
		OrderCount:    10,
		TotalRevenue:  decimal.RequireFromString("500.00"),
		AvgOrderValue: decimal.RequireFromString("50.00"),
	}

	a := Attain(s, entity.Goal{})

	// zero targets never divide, attainment reads 0%
	assert.True(t, a.RevenuePct.IsZero())
	assert.True(t, a.AvgTicketPct.IsZero())
	assert.True(t, a.EstimatedTraffic.IsZero())
	// gaps still carry the raw numbers
	assert.True(t, a.RevenueGap.Equal(decimal.RequireFromString("500.00")))
}

func TestMerchandiseGoalFromRows(t *testing.T) {
	rows := [][]interface{}{
		// prior-year block above the marker must never match
		{"Merchandise", "$1", "$1", "$1", "$1"},
		{},
		{"2025 GOAL"},
		{"Workshops", "$5,000", "$5,000", "$6,000", "$6,000"},
		{"merchandise", "$30,000", "$28,000", "$35,000", "$42,000.50"},
	}

	april := time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC)
	got, err := merchandiseGoalFromRows(rows, april)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("42000.50")), got.String())

	jan := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	got, err = merchandiseGoalFromRows(rows, jan)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(30000)), got.String())
}

func TestMerchandiseGoalFromRowsErrors(t *testing.T) {
	rows := [][]interface{}{
		{"2025 Goal"},
		{"Merchandise", "$30,000"},
	}

	// sheet only carries the 2025 block
	_, err := merchandiseGoalFromRows(rows, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorContains(t, err, "2024 Goal")

	// merchandise row ends before the requested month
	_, err = merchandiseGoalFromRows(rows, time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC))
	require.ErrorContains(t, err, "column")

	// marker present but no merchandise row follows
	_, err = merchandiseGoalFromRows([][]interface{}{{"2025 Goal"}}, time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
}

func TestParseMoney(t *testing.T) {
	got, err := parseMoney("$42,000.50")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("42000.50")))

	got, err = parseMoney(" 1500 ")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(1500)))

	_, err = parseMoney("")
	require.Error(t, err)

	_, err = parseMoney("n/a")
	require.Error(t, err)
}
