package goals

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wickery/storepulse/internal/entity"
)

// Store baselines, set with ownership when the forecast sheets are
// unreachable. Charleston numbers reflect the flagship, boston the newer
// and smaller floor.
var baselines = map[entity.Location]entity.Goal{
	entity.LocationCharleston: {
		Revenue:           decimal.NewFromInt(25000),
		Traffic:           decimal.NewFromInt(800),
		ConversionRate:    decimal.NewFromFloat(0.35),
		AvgTicket:         decimal.NewFromInt(89),
		WorkshopOccupancy: decimal.NewFromFloat(0.75),
	},
	entity.LocationBoston: {
		Revenue:           decimal.NewFromInt(15000),
		Traffic:           decimal.NewFromInt(500),
		ConversionRate:    decimal.NewFromFloat(0.30),
		AvgTicket:         decimal.NewFromInt(100),
		WorkshopOccupancy: decimal.NewFromFloat(0.60),
	},
}

// BaselineGoal returns the static goal for the store, scaled by the
// seasonal factor of the period's month. Unknown locations are an error;
// online carries no goal.
func BaselineGoal(loc entity.Location, periodStart time.Time) (entity.Goal, error) {
	base, ok := baselines[loc]
	if !ok {
		return entity.Goal{}, fmt.Errorf("no goal baseline for location %s", loc)
	}
	factor := SeasonalFactor(periodStart.Month())
	goal := base
	goal.Revenue = base.Revenue.Mul(factor).Round(2)
	goal.Traffic = base.Traffic.Mul(factor).Round(0)
	goal.Source = entity.GoalSourceBaseline
	return goal, nil
}

// SeasonalFactor adjusts baselines for the retail calendar: holiday lift in
// November and December, the post-holiday dip, the summer tourist bump.
func SeasonalFactor(m time.Month) decimal.Decimal {
	switch m {
	case time.November, time.December:
		return decimal.NewFromFloat(1.3)
	case time.January, time.February:
		return decimal.NewFromFloat(0.8)
	case time.June, time.July, time.August:
		return decimal.NewFromFloat(1.1)
	default:
		return decimal.NewFromInt(1)
	}
}
