package analytics

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wickery/storepulse/internal/entity"
)

var hundred = decimal.NewFromInt(100)

// Compare computes year-over-year percentage deltas between two snapshots.
// Metrics with a zero baseline report +100 when the current value is
// positive and 0 when both are zero.
func Compare(current, prior entity.Snapshot) entity.YoYChanges {
	return entity.YoYChanges{
		TotalRevenue:   changePct(current.TotalRevenue, prior.TotalRevenue),
		OrderCount:     changePctInt(current.OrderCount, prior.OrderCount),
		AvgOrderValue:  changePct(current.AvgOrderValue, prior.AvgOrderValue),
		TotalItemsSold: changePctInt(current.TotalItemsSold, prior.TotalItemsSold),
	}
}

// CompareForLocation is Compare plus the not-applicable rule: a location
// that was not open by the end of the prior period gets all-nil changes so
// consumers render N/A instead of a fabricated +100.
func CompareForLocation(current, prior entity.Snapshot, loc entity.Location, priorPeriodEnd time.Time) entity.YoYChanges {
	if !loc.OpenedBy(priorPeriodEnd) {
		return entity.YoYChanges{}
	}
	return Compare(current, prior)
}

// changePct returns the percentage change rounded to one decimal. The
// sentinel for a zero baseline is numeric, distinct from the nil
// not-applicable marker set one level up.
func changePct(current, prior decimal.Decimal) *decimal.Decimal {
	if prior.GreaterThan(decimal.Zero) {
		d := current.Sub(prior).Div(prior).Mul(hundred).Round(1)
		return &d
	}
	if current.GreaterThan(decimal.Zero) {
		d := hundred
		return &d
	}
	d := decimal.Zero
	return &d
}

func changePctInt(current, prior int) *decimal.Decimal {
	return changePct(decimal.NewFromInt(int64(current)), decimal.NewFromInt(int64(prior)))
}
