package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source channel values reported by the order API.
const (
	SourcePOS         = "pos"
	SourceWeb         = "web"
	SourceOnlineStore = "online_store"
	SourceShopify     = "shopify"
)

// Order is a raw order record as fetched from the order source.
// Immutable once fetched; the analytics layer never mutates it.
type Order struct {
	Id              int64
	CreatedAt       time.Time
	TotalPrice      decimal.Decimal
	SubtotalPrice   decimal.Decimal
	TotalTax        decimal.Decimal
	CustomerEmail   string // empty for guest checkout
	CustomerName    string
	LineItems       []LineItem
	Tags            []string
	Note            string
	FinancialStatus string
	SourceName      string
	LocationId      string // empty when the channel does not report one
}

type LineItem struct {
	ProductId    int64
	Title        string
	VariantTitle string
	SKU          string
	Quantity     int
	Price        decimal.Decimal
}

// Revenue is the line total, unit price times quantity.
func (li LineItem) Revenue() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}
