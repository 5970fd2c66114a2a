package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wickery/storepulse/internal/dependency"
	"github.com/wickery/storepulse/internal/entity"
	"github.com/wickery/storepulse/internal/goals"
)

const (
	// priorYearOffsetDays is a fixed 365-day shift, not a calendar-aware
	// "same week last year". Weekday alignment drifts after leap years.
	priorYearOffsetDays = 365

	trendWindowWeeks = 2
	trendingUnitsMin = 10
	weekDuration     = 7 * 24 * time.Hour
)

// Analyzer is the weekly report orchestrator. It owns the sequence of
// fetches and aggregations; only the current-period fetch is fatal, every
// enrichment degrades with a log line.
type Analyzer struct {
	orders     dependency.OrderSource
	goals      dependency.GoalSource
	classifier *Classifier
	rules      []CategoryRule
	now        func() time.Time
}

func New(orders dependency.OrderSource, goalSrc dependency.GoalSource, classifier *Classifier) *Analyzer {
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	return &Analyzer{
		orders:     orders,
		goals:      goalSrc,
		classifier: classifier,
		rules:      DefaultCategoryRules(),
		now:        time.Now,
	}
}

// DefaultWeekStart returns the Monday of the last completed week, UTC.
func DefaultWeekStart(now time.Time) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sinceMonday := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -sinceMonday-7)
}

// Analyze builds the report for the week starting at periodStart. A zero
// periodStart defaults to the last completed week. feedback carries
// tracked-item requests into the trend notes and may be nil.
func (a *Analyzer) Analyze(ctx context.Context, periodStart time.Time, includeTrends bool, feedback *entity.FeedbackContext) (*entity.WeeklyReport, error) {
	if periodStart.IsZero() {
		periodStart = DefaultWeekStart(a.now())
	}
	weekStart := periodStart.UTC()
	weekEnd := weekStart.Add(weekDuration - time.Second)

	current, err := a.orders.GetOrders(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("can't fetch current period orders: %w", err)
	}

	priorStart := weekStart.AddDate(0, 0, -priorYearOffsetDays)
	priorEnd := priorStart.Add(weekDuration - time.Second)
	priorAvailable := true
	prior, err := a.orders.GetOrders(ctx, priorStart, priorEnd)
	if err != nil {
		// Without prior data every comparison is not applicable. Zero
		// snapshots would fabricate +100 deltas instead.
		slog.Default().Error("can't fetch prior period orders, comparisons degraded",
			slog.String("err", err.Error()))
		priorAvailable = false
		prior = nil
	}

	currentByLoc := a.classifier.Partition(current)
	priorByLoc := a.classifier.Partition(prior)

	rep := &entity.WeeklyReport{
		WeekStart:             weekStart,
		WeekEnd:               weekEnd,
		Total:                 Compute(current),
		PriorTotal:            Compute(prior),
		Current:               make(map[entity.Location]entity.Snapshot),
		Prior:                 make(map[entity.Location]entity.Snapshot),
		Changes:               make(map[entity.Location]entity.YoYChanges),
		TopProducts:           RankProducts(current),
		TopProductsByLocation: make(map[entity.Location][]entity.ProductPerformance),
	}
	for _, loc := range entity.Locations() {
		rep.Current[loc] = Compute(currentByLoc[loc])
		rep.Prior[loc] = Compute(priorByLoc[loc])
		if priorAvailable {
			rep.Changes[loc] = CompareForLocation(rep.Current[loc], rep.Prior[loc], loc, priorEnd)
		} else {
			rep.Changes[loc] = entity.YoYChanges{}
		}
		rep.TopProductsByLocation[loc] = RankProducts(currentByLoc[loc])
	}
	if priorAvailable {
		rep.TotalChanges = Compare(rep.Total, rep.PriorTotal)
	}

	a.attachGoals(ctx, rep)

	if includeTrends {
		rep.Categories = Categorize(current, a.rules)
		ws := AnalyzeWorkshops(current)
		rep.Workshops = &ws
		rep.TrendNotes = a.trendNotes(current, rep.Categories, feedback)
		rep.WeeklyTrend = a.rollingTrend(ctx, weekStart, rep.Total)
	}

	return rep, nil
}

// attachGoals resolves goals and attainment per store. A goal source
// failure skips that store only.
func (a *Analyzer) attachGoals(ctx context.Context, rep *entity.WeeklyReport) {
	if a.goals == nil {
		return
	}
	rep.Goals = make(map[entity.Location]entity.Goal)
	rep.Attainment = make(map[entity.Location]entity.Attainment)
	for _, loc := range entity.StoreLocations() {
		goal, err := a.goals.GetGoal(ctx, loc, rep.WeekStart)
		if err != nil {
			slog.Default().Error("can't resolve goal, skipping attainment",
				slog.String("location", loc.String()),
				slog.String("err", err.Error()))
			continue
		}
		rep.Goals[loc] = goal
		rep.Attainment[loc] = goals.Attain(rep.Current[loc], goal)
	}
}

// rollingTrend computes the trailing revenue window: the two weeks before
// the reporting week plus the reporting week itself. Degrades to just the
// current week when the fetch fails.
func (a *Analyzer) rollingTrend(ctx context.Context, weekStart time.Time, total entity.Snapshot) []entity.TrendPoint {
	trailingStart := weekStart.AddDate(0, 0, -7*trendWindowWeeks)
	trailing, err := a.orders.GetOrders(ctx, trailingStart, weekStart.Add(-time.Second))
	if err != nil {
		slog.Default().Error("can't fetch trailing weeks, trend window degraded",
			slog.String("err", err.Error()))
		return []entity.TrendPoint{{
			WeekStart:     weekStart,
			TotalRevenue:  total.TotalRevenue,
			OrderCount:    total.OrderCount,
			AvgOrderValue: total.AvgOrderValue,
		}}
	}

	buckets := make(map[time.Time][]entity.Order)
	for i := range trailing {
		ws := weekOf(trailing[i].CreatedAt, trailingStart)
		buckets[ws] = append(buckets[ws], trailing[i])
	}
	points := make([]entity.TrendPoint, 0, trendWindowWeeks+1)
	for w := 0; w < trendWindowWeeks; w++ {
		ws := trailingStart.AddDate(0, 0, 7*w)
		s := Compute(buckets[ws])
		points = append(points, entity.TrendPoint{
			WeekStart:     ws,
			TotalRevenue:  s.TotalRevenue,
			OrderCount:    s.OrderCount,
			AvgOrderValue: s.AvgOrderValue,
		})
	}
	points = append(points, entity.TrendPoint{
		WeekStart:     weekStart,
		TotalRevenue:  total.TotalRevenue,
		OrderCount:    total.OrderCount,
		AvgOrderValue: total.AvgOrderValue,
	})
	return points
}

// weekOf buckets t into 7-day windows anchored at origin.
func weekOf(t time.Time, origin time.Time) time.Time {
	weeks := int(t.UTC().Sub(origin) / weekDuration)
	if weeks < 0 {
		weeks = 0
	}
	return origin.AddDate(0, 0, 7*weeks)
}

// trendNotes builds the qualitative bullet list: tracked item counts, the
// best sales day and categories moving real volume.
func (a *Analyzer) trendNotes(orders []entity.Order, categories map[entity.Category]entity.CategoryStats, feedback *entity.FeedbackContext) []string {
	var notes []string
	if feedback != nil {
		for _, item := range feedback.TrackItems {
			n := countOrdersWithItem(orders, item)
			notes = append(notes, fmt.Sprintf("As requested, I tracked %s and found %d orders this week", item, n))
		}
	}
	if day, revenue, ok := bestSalesDay(orders); ok {
		notes = append(notes, fmt.Sprintf("%s was the strongest sales day at $%s", day, revenue.StringFixed(2)))
	}
	trendingCats := make([]entity.Category, 0, len(categories))
	for cat := range categories {
		trendingCats = append(trendingCats, cat)
	}
	sort.Slice(trendingCats, func(i, j int) bool { return trendingCats[i] < trendingCats[j] })
	for _, cat := range trendingCats {
		if cat == entity.CategoryOther {
			continue
		}
		if cs := categories[cat]; cs.Units > trendingUnitsMin {
			notes = append(notes, fmt.Sprintf("%s items are moving with %d units sold", categoryLabel(cat), cs.Units))
		}
	}
	return notes
}

func countOrdersWithItem(orders []entity.Order, item string) int {
	item = strings.ToLower(item)
	n := 0
	for i := range orders {
		for _, li := range orders[i].LineItems {
			if strings.Contains(strings.ToLower(li.Title), item) {
				n++
				break
			}
		}
	}
	return n
}

func bestSalesDay(orders []entity.Order) (string, decimal.Decimal, bool) {
	byDay := make(map[time.Weekday]decimal.Decimal)
	for i := range orders {
		d := orders[i].CreatedAt.UTC().Weekday()
		byDay[d] = byDay[d].Add(orders[i].TotalPrice)
	}
	if len(byDay) == 0 {
		return "", decimal.Zero, false
	}
	best := time.Sunday
	bestRevenue := decimal.NewFromInt(-1)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if r, ok := byDay[d]; ok && r.GreaterThan(bestRevenue) {
			best, bestRevenue = d, r
		}
	}
	return best.String(), bestRevenue, true
}

func categoryLabel(cat entity.Category) string {
	switch cat {
	case entity.CategoryCandleLibrary:
		return "Candle library"
	case entity.CategoryWorkshop:
		return "Workshop"
	case entity.CategoryMatchBar:
		return "Match bar"
	case entity.CategoryGift:
		return "Gift"
	default:
		return string(cat)
	}
}
