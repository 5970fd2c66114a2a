package analytics

import (
	"github.com/shopspring/decimal"
	"github.com/wickery/storepulse/internal/entity"
)

// guestCustomer is the synthetic identity shared by all anonymous orders.
// Collapsing guests into one bucket undercounts distinct walk-in customers
// and can inflate the repeat count; kept for continuity with historical
// reports.
const guestCustomer = "guest"

// Compute reduces a set of orders into a snapshot. An empty input yields a
// zero snapshot, never an error.
func Compute(orders []entity.Order) entity.Snapshot {
	s := entity.Snapshot{
		TotalRevenue:  decimal.Zero,
		AvgOrderValue: decimal.Zero,
	}
	ordersByCustomer := make(map[string]int)
	for i := range orders {
		o := &orders[i]
		s.OrderCount++
		s.TotalRevenue = s.TotalRevenue.Add(o.TotalPrice)
		for _, li := range o.LineItems {
			s.TotalItemsSold += li.Quantity
		}
		ordersByCustomer[customerKey(o)]++
	}
	if s.OrderCount > 0 {
		s.AvgOrderValue = s.TotalRevenue.DivRound(decimal.NewFromInt(int64(s.OrderCount)), 2)
	}
	s.UniqueCustomers = len(ordersByCustomer)
	for _, n := range ordersByCustomer {
		if n > 1 {
			s.RepeatCustomers++
		}
	}
	return s
}

func customerKey(o *entity.Order) string {
	if o.CustomerEmail == "" {
		return guestCustomer
	}
	return o.CustomerEmail
}
