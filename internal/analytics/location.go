package analytics

import (
	"strings"

	"github.com/wickery/storepulse/internal/entity"
)

// Strategy classifies a single order. ok is false when the strategy has no
// signal for this order and the next one should be tried.
type Strategy interface {
	Classify(o *entity.Order) (entity.Location, bool)
}

// ExactId matches the location id reported by the POS terminal. It is the
// highest-confidence signal and always wins when present.
type ExactId struct {
	Ids map[string]entity.Location
}

func (e ExactId) Classify(o *entity.Order) (entity.Location, bool) {
	if o.LocationId == "" {
		return "", false
	}
	loc, ok := e.Ids[o.LocationId]
	return loc, ok
}

// Heuristic classifies from tags, the order note and the source channel.
// Boston markers are checked before the charleston POS fallback so a tagged
// boston POS order never lands in charleston. Free-text input, so lossy.
type Heuristic struct{}

func (Heuristic) Classify(o *entity.Order) (entity.Location, bool) {
	if isBoston(o) {
		return entity.LocationBoston, true
	}
	if isCharleston(o) {
		return entity.LocationCharleston, true
	}
	return "", false
}

func isBoston(o *entity.Order) bool {
	for _, tag := range o.Tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "boston" || t == "bos" || strings.Contains(t, "boston") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(o.Note), "boston")
}

func isCharleston(o *entity.Order) bool {
	for _, tag := range o.Tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "charleston" || t == "chs" || strings.Contains(t, "charleston") {
			return true
		}
	}
	if strings.Contains(strings.ToLower(o.Note), "charleston") {
		return true
	}
	// POS orders without any boston marker default to the flagship store.
	// Exact match only: source names merely containing "pos" are not a
	// register sale.
	return strings.ToLower(o.SourceName) == entity.SourcePOS
}

// Classifier assigns every order to exactly one location. Strategies run in
// priority order; orders no strategy claims fall through to online.
type Classifier struct {
	strategies []Strategy
}

// NewClassifier builds the default strategy chain. knownIds maps POS
// location ids to stores and may be nil.
func NewClassifier(knownIds map[string]entity.Location) *Classifier {
	return &Classifier{
		strategies: []Strategy{
			ExactId{Ids: knownIds},
			Heuristic{},
		},
	}
}

// Classify is total and deterministic: the same order always maps to the
// same single location.
func (c *Classifier) Classify(o *entity.Order) entity.Location {
	for _, s := range c.strategies {
		if loc, ok := s.Classify(o); ok {
			return loc
		}
	}
	return entity.LocationOnline
}

// Partition splits orders into per-location buckets. The buckets are
// exhaustive and exclusive: every order appears in exactly one, and every
// location bucket is present even when empty.
func (c *Classifier) Partition(orders []entity.Order) map[entity.Location][]entity.Order {
	out := make(map[entity.Location][]entity.Order, len(entity.Locations()))
	for _, loc := range entity.Locations() {
		out[loc] = []entity.Order{}
	}
	for i := range orders {
		loc := c.Classify(&orders[i])
		out[loc] = append(out[loc], orders[i])
	}
	return out
}
