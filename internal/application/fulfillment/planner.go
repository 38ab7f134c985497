package fulfillment

import (
	"sort"

	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
)

// Demand is one variant's required quantity, in the caller's line order.
type Demand struct {
	VariantID  string
	LineItemID string
	Quantity   int
}

// Allocation is one planned draw against a stock item.
type Allocation struct {
	StockItem   *entity.StockItem
	VariantID   string
	LineItemID  string
	Quantity    int
	Backordered bool
}

// Plan is the proposed multi-location split for one order.
type Plan struct {
	Allocations []Allocation
}

// ByLocation groups planned quantities per stock location, the shape
// shipments are created from.
func (p Plan) ByLocation() map[string][]Allocation {
	out := make(map[string][]Allocation)
	for _, a := range p.Allocations {
		out[a.StockItem.StockLocationID] = append(out[a.StockItem.StockLocationID], a)
	}
	return out
}

// BuildPlan runs the greedy minimization strategy: empty the preferred
// location's shelf before moving on, so orders split across as few
// shipments as possible. Candidates are ordered by (default location
// first, location priority ascending, available quantity descending,
// stock item id ascending); the trailing id comparison keeps repeated runs
// against identical data byte-for-byte identical. Demand that survives
// every shelf is backordered against the default location when its policy
// allows it; otherwise planning fails with ErrInsufficientStock.
func BuildPlan(locations []*entity.StockLocation, stocks []*entity.StockItem, demands []Demand) (Plan, error) {
	if len(demands) == 0 {
		return Plan{}, domain.ErrInvalidInput
	}

	fulfillable := make([]*entity.StockLocation, 0, len(locations))
	for _, l := range locations {
		if l.Active && l.Fulfillable {
			fulfillable = append(fulfillable, l)
		}
	}
	if len(fulfillable) == 0 {
		return Plan{}, domain.ErrInsufficientStock
	}
	sort.SliceStable(fulfillable, func(i, j int) bool {
		a, b := fulfillable[i], fulfillable[j]
		if a.Default != b.Default {
			return a.Default
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})

	rank := make(map[string]int, len(fulfillable))
	for i, l := range fulfillable {
		rank[l.ID] = i
	}

	stockByVariant := make(map[string][]*entity.StockItem)
	for _, s := range stocks {
		if _, ok := rank[s.StockLocationID]; !ok {
			continue
		}
		stockByVariant[s.VariantID] = append(stockByVariant[s.VariantID], s)
	}
	for _, candidates := range stockByVariant {
		sort.SliceStable(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			if rank[a.StockLocationID] != rank[b.StockLocationID] {
				return rank[a.StockLocationID] < rank[b.StockLocationID]
			}
			if a.CountAvailable() != b.CountAvailable() {
				return a.CountAvailable() > b.CountAvailable()
			}
			return a.ID < b.ID
		})
	}

	// claimed tracks quantity already planned per stock item, so multiple
	// demand lines for the same variant do not double-claim a shelf.
	claimed := make(map[string]int)
	var plan Plan

	for _, d := range demands {
		needed := d.Quantity
		if needed <= 0 {
			continue
		}
		for _, stock := range stockByVariant[d.VariantID] {
			if needed == 0 {
				break
			}
			available := stock.CountAvailable() - claimed[stock.ID]
			if available <= 0 {
				continue
			}
			take := needed
			if take > available {
				take = available
			}
			claimed[stock.ID] += take
			needed -= take
			plan.Allocations = append(plan.Allocations, Allocation{
				StockItem:  stock,
				VariantID:  d.VariantID,
				LineItemID: d.LineItemID,
				Quantity:   take,
			})
		}
		if needed > 0 {
			backstop := backorderCandidate(stockByVariant[d.VariantID], fulfillable[0].ID)
			if backstop == nil {
				return Plan{}, domain.ErrInsufficientStock
			}
			claimed[backstop.ID] += needed
			plan.Allocations = append(plan.Allocations, Allocation{
				StockItem:   backstop,
				VariantID:   d.VariantID,
				LineItemID:  d.LineItemID,
				Quantity:    needed,
				Backordered: true,
			})
		}
	}
	return plan, nil
}

// backorderCandidate prefers a backorderable stock row at the default
// location, falling back to the first backorderable row of the variant.
func backorderCandidate(candidates []*entity.StockItem, defaultLocationID string) *entity.StockItem {
	var fallback *entity.StockItem
	for _, s := range candidates {
		if !s.Backorderable {
			continue
		}
		if s.StockLocationID == defaultLocationID {
			return s
		}
		if fallback == nil {
			fallback = s
		}
	}
	return fallback
}
