package entity

import "github.com/shopspring/decimal"

// Goal source markers.
const (
	GoalSourceSheets   = "sheets"
	GoalSourceBaseline = "baseline"
)

// Goal is the weekly target set for one store location.
type Goal struct {
	Revenue           decimal.Decimal `json:"revenue"`
	Traffic           decimal.Decimal `json:"traffic"`
	ConversionRate    decimal.Decimal `json:"conversion_rate"` // fraction, 0.35 = 35%
	AvgTicket         decimal.Decimal `json:"avg_ticket"`
	WorkshopOccupancy decimal.Decimal `json:"workshop_occupancy"`
	Source            string          `json:"source"` // "sheets" or "baseline"
}

// Attainment expresses period actuals against the goal. Percentages are 0
// when the corresponding target is unset or zero.
type Attainment struct {
	RevenuePct   decimal.Decimal `json:"revenue_pct"`
	AvgTicketPct decimal.Decimal `json:"avg_ticket_pct"`
	RevenueGap   decimal.Decimal `json:"revenue_gap"`
	AvgTicketGap decimal.Decimal `json:"avg_ticket_gap"`
	// EstimatedTraffic is derived as order count over the conversion goal.
	// It is an estimate from targets, not a foot traffic measurement.
	EstimatedTraffic decimal.Decimal `json:"estimated_traffic"`
}
