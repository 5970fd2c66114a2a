package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is an immutable aggregate of sales metrics for one set of orders.
type Snapshot struct {
	OrderCount      int             `json:"order_count"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	AvgOrderValue   decimal.Decimal `json:"avg_order_value"`
	TotalItemsSold  int             `json:"total_items_sold"`
	UniqueCustomers int             `json:"unique_customers"`
	RepeatCustomers int             `json:"repeat_customers"`
}

// YoYChanges holds per-metric percentage deltas between the current period
// and the same period one year earlier. A nil entry means the comparison is
// not applicable: the location had no prior period at all, and renderers must
// show "N/A" rather than a number. A zero-baseline metric with current
// activity reports +100; zero against zero reports 0.
type YoYChanges struct {
	TotalRevenue   *decimal.Decimal `json:"total_revenue,omitempty"`
	OrderCount     *decimal.Decimal `json:"order_count,omitempty"`
	AvgOrderValue  *decimal.Decimal `json:"avg_order_value,omitempty"`
	TotalItemsSold *decimal.Decimal `json:"total_items_sold,omitempty"`
}

// Applicable reports whether the location had prior-period data to compare
// against.
func (c YoYChanges) Applicable() bool {
	return c.TotalRevenue != nil
}

// ProductPerformance is one row of the product ranking. Product is the
// verbatim line item title; two spellings are two products.
type ProductPerformance struct {
	Product      string          `json:"product"`
	QuantitySold int             `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
	OrderCount   int             `json:"order_count"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
}

// Category is a merchandising bucket assigned per line item.
type Category string

const (
	CategoryCandleLibrary Category = "candle_library"
	CategoryWorkshop      Category = "workshop"
	CategoryMatchBar      Category = "match_bar"
	CategoryGift          Category = "gift"
	CategoryOther         Category = "other"
)

type CategoryStats struct {
	Revenue  decimal.Decimal `json:"revenue"`
	Units    int             `json:"units"`
	TopItems []string        `json:"top_items"` // top 5 titles by units sold
}

// WorkshopPerformance is one workshop offering aggregated across the period.
type WorkshopPerformance struct {
	Name      string          `json:"name"`
	Sessions  int             `json:"sessions"`
	Revenue   decimal.Decimal `json:"revenue"`
	Attendees int             `json:"attendees"`
}

type WorkshopSummary struct {
	TotalWorkshops int                   `json:"total_workshops"`
	Revenue        decimal.Decimal       `json:"revenue"`
	Attendees      int                   `json:"attendees"`
	Popular        []WorkshopPerformance `json:"popular"` // top 5 by revenue
}

// TrendPoint is one week of the rolling trend window.
type TrendPoint struct {
	WeekStart     time.Time       `json:"week_start"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	OrderCount    int             `json:"order_count"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
}

// WeeklyReport is the full output of one analysis run. Maps keyed by
// location cover every location bucket; the Total fields aggregate all
// orders regardless of location.
type WeeklyReport struct {
	WeekStart time.Time `json:"week_start"`
	WeekEnd   time.Time `json:"week_end"`

	Total        Snapshot              `json:"total"`
	PriorTotal   Snapshot              `json:"prior_total"`
	TotalChanges YoYChanges            `json:"total_changes"`
	Current      map[Location]Snapshot `json:"current"`
	Prior        map[Location]Snapshot `json:"prior"`

	Changes map[Location]YoYChanges `json:"changes"`

	TopProducts           []ProductPerformance              `json:"top_products"`
	TopProductsByLocation map[Location][]ProductPerformance `json:"top_products_by_location"`

	Goals      map[Location]Goal       `json:"goals,omitempty"`
	Attainment map[Location]Attainment `json:"attainment,omitempty"`

	// Populated only when trends are requested.
	Categories  map[Category]CategoryStats `json:"categories,omitempty"`
	Workshops   *WorkshopSummary           `json:"workshops,omitempty"`
	TrendNotes  []string                   `json:"trend_notes,omitempty"`
	WeeklyTrend []TrendPoint               `json:"weekly_trend,omitempty"`
}
