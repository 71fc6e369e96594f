package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Heuristic is the always-available planner (spec §4.4 "Heuristic").
type Heuristic struct{}

// NewHeuristic returns a Heuristic planner.
func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Name() string { return "heuristic" }

// GenerateDaily picks up to 4 lots with the highest quantityRemaining and
// synthesizes a meal title per lot.
func (h *Heuristic) GenerateDaily(_ context.Context, in Input) (DailyOutput, error) {
	lots := make([]InventorySnapshotLot, len(in.Inventory))
	copy(lots, in.Inventory)
	sort.SliceStable(lots, func(i, j int) bool {
		return lots[i].QuantityRemaining > lots[j].QuantityRemaining
	})

	if len(lots) > 4 {
		lots = lots[:4]
	}

	meals := make([]DailyMeal, 0, len(lots))
	for _, lot := range lots {
		cuisine := guessCuisine(lot.ItemName)
		title := fmt.Sprintf("%s %s dinner", cuisine, lot.ItemName)
		feedback := in.FeedbackByItem[lot.ItemKey]
		score := clamp01(0.45 + minFloat(0.4, lot.QuantityRemaining/10) + 0.2*feedback)
		meals = append(meals, DailyMeal{
			Title:    title,
			ItemKeys: []string{lot.ItemKey},
			Score:    round3(score),
		})
	}

	return DailyOutput{Model: "heuristic-v1", Meals: meals}, nil
}

// lowStockThreshold returns the spec §4.4 per-unit low-stock threshold.
func lowStockThreshold(unit string) float64 {
	switch unit {
	case "count":
		return 4
	case "kg", "l", "lb":
		return 1
	case "pack", "box", "bottle":
		return 2
	default:
		return 2
	}
}

// GenerateWeekly recommends a purchase for every lot below its unit's
// low-stock threshold.
func (h *Heuristic) GenerateWeekly(_ context.Context, in Input) (WeeklyOutput, error) {
	var items []WeeklyItem
	for _, lot := range in.Inventory {
		threshold := lowStockThreshold(lot.Unit)
		if lot.QuantityRemaining >= threshold {
			continue
		}
		deficit := threshold - lot.QuantityRemaining
		quantity := round2(deficit + 0.5*threshold)

		feedback := in.FeedbackByItem[lot.ItemKey]
		score := clamp01(0.45 + minFloat(0.4, deficit/threshold) + 0.2*feedback)
		priority := "low"
		switch {
		case score > 0.8:
			priority = "high"
		case score > 0.6:
			priority = "medium"
		}

		items = append(items, WeeklyItem{
			ItemKey:  lot.ItemKey,
			ItemName: lot.ItemName,
			Quantity: quantity,
			Unit:     lot.Unit,
			Priority: priority,
			Score:    round3(score),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})

	return WeeklyOutput{Model: "heuristic-v1", Items: items}, nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// guessCuisine keyword-matches an item name to a cuisine label.
func guessCuisine(itemName string) string {
	name := strings.ToLower(itemName)
	switch {
	case containsAny(name, "rice", "soy", "tofu"):
		return "Chinese"
	case containsAny(name, "pasta", "tomato", "olive"):
		return "Italian"
	default:
		return "Mixed"
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

var _ Planner = (*Heuristic)(nil)
