package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wickery/storepulse/internal/entity"
)

const (
	topProductsLimit  = 10
	topWorkshopsLimit = 5
	topCategoryItems  = 5
)

// workshopKeywords mark a line item as a bookable session rather than
// merchandise.
var workshopKeywords = []string{"workshop", "class", "lesson", "tutorial", "session"}

// RankProducts aggregates line items by verbatim title and returns the top
// sellers by revenue. Titles are not normalized: two spellings are two
// products. The sort is stable, so equal-revenue products keep first-seen
// order and reruns over the same input produce the same ranking.
func RankProducts(orders []entity.Order) []entity.ProductPerformance {
	index := make(map[string]int)
	var products []entity.ProductPerformance
	for i := range orders {
		for _, li := range orders[i].LineItems {
			j, ok := index[li.Title]
			if !ok {
				j = len(products)
				index[li.Title] = j
				products = append(products, entity.ProductPerformance{
					Product: li.Title,
					Revenue: decimal.Zero,
				})
			}
			p := &products[j]
			p.QuantitySold += li.Quantity
			p.Revenue = p.Revenue.Add(li.Revenue())
			p.OrderCount++
		}
	}
	for i := range products {
		if products[i].QuantitySold > 0 {
			products[i].AvgPrice = products[i].Revenue.DivRound(decimal.NewFromInt(int64(products[i].QuantitySold)), 2)
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Revenue.GreaterThan(products[j].Revenue)
	})
	if len(products) > topProductsLimit {
		products = products[:topProductsLimit]
	}
	return products
}

// CategoryRule assigns a category to a line item. Rules are evaluated in
// slice order and the first match wins, so SKU rules placed ahead of title
// rules take precedence.
type CategoryRule struct {
	Category  entity.Category
	SKUPrefix string
	TitleAny  []string
}

func (r CategoryRule) matches(li *entity.LineItem) bool {
	if r.SKUPrefix != "" {
		return strings.HasPrefix(strings.ToLower(li.SKU), r.SKUPrefix)
	}
	title := strings.ToLower(li.Title)
	for _, kw := range r.TitleAny {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// DefaultCategoryRules mirrors the shop's catalog conventions: the candle
// library uses cf-prefixed SKUs, workshops and the match bar are only
// identifiable by title.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{Category: entity.CategoryCandleLibrary, SKUPrefix: "cf"},
		{Category: entity.CategoryCandleLibrary, TitleAny: []string{"candle"}},
		{Category: entity.CategoryWorkshop, TitleAny: workshopKeywords},
		{Category: entity.CategoryMatchBar, TitleAny: []string{"match"}},
		{Category: entity.CategoryGift, TitleAny: []string{"gift"}},
	}
}

// CategorizeItem returns the first matching rule's category, or other.
func CategorizeItem(li *entity.LineItem, rules []CategoryRule) entity.Category {
	for _, r := range rules {
		if r.matches(li) {
			return r.Category
		}
	}
	return entity.CategoryOther
}

// Categorize rolls up revenue and units per category across all line items.
// Every line item lands in exactly one category.
func Categorize(orders []entity.Order, rules []CategoryRule) map[entity.Category]entity.CategoryStats {
	type itemUnits struct {
		title string
		units int
	}
	stats := make(map[entity.Category]entity.CategoryStats)
	unitsByItem := make(map[entity.Category]map[string]int)
	for i := range orders {
		for _, li := range orders[i].LineItems {
			cat := CategorizeItem(&li, rules)
			cs := stats[cat]
			if cs.Revenue.IsZero() && cs.Units == 0 {
				cs.Revenue = decimal.Zero
			}
			cs.Revenue = cs.Revenue.Add(li.Revenue())
			cs.Units += li.Quantity
			stats[cat] = cs
			if unitsByItem[cat] == nil {
				unitsByItem[cat] = make(map[string]int)
			}
			unitsByItem[cat][li.Title] += li.Quantity
		}
	}
	for cat, byItem := range unitsByItem {
		items := make([]itemUnits, 0, len(byItem))
		for title, units := range byItem {
			items = append(items, itemUnits{title, units})
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].units != items[j].units {
				return items[i].units > items[j].units
			}
			return items[i].title < items[j].title
		})
		if len(items) > topCategoryItems {
			items = items[:topCategoryItems]
		}
		cs := stats[cat]
		for _, it := range items {
			cs.TopItems = append(cs.TopItems, it.title)
		}
		stats[cat] = cs
	}
	return stats
}

// AnalyzeWorkshops aggregates workshop line items into a summary with the
// top offerings by revenue.
func AnalyzeWorkshops(orders []entity.Order) entity.WorkshopSummary {
	sum := entity.WorkshopSummary{Revenue: decimal.Zero}
	index := make(map[string]int)
	var shops []entity.WorkshopPerformance
	for i := range orders {
		for _, li := range orders[i].LineItems {
			if !isWorkshopItem(li.Title) {
				continue
			}
			sum.TotalWorkshops++
			sum.Revenue = sum.Revenue.Add(li.Revenue())
			sum.Attendees += li.Quantity
			j, ok := index[li.Title]
			if !ok {
				j = len(shops)
				index[li.Title] = j
				shops = append(shops, entity.WorkshopPerformance{Name: li.Title, Revenue: decimal.Zero})
			}
			shops[j].Sessions++
			shops[j].Revenue = shops[j].Revenue.Add(li.Revenue())
			shops[j].Attendees += li.Quantity
		}
	}
	sort.SliceStable(shops, func(i, j int) bool {
		return shops[i].Revenue.GreaterThan(shops[j].Revenue)
	})
	if len(shops) > topWorkshopsLimit {
		shops = shops[:topWorkshopsLimit]
	}
	sum.Popular = shops
	return sum
}

func isWorkshopItem(title string) bool {
	t := strings.ToLower(title)
	for _, kw := range workshopKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}
