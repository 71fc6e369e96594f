package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/antigravity-dev/home-inventory/internal/coreerr"
	"github.com/antigravity-dev/home-inventory/internal/ids"
)

// shopping.go implements the spec §4.6 shopping drafts and price
// intelligence: a draft derived from a weekly recommendation run, priced
// from historical receipt purchases, mutable until finalized.

func priceHistoryKey(householdID, itemKey string) string {
	return householdID + "|" + itemKey
}

// recordPricePointLocked appends a (purchasedAt, unitPrice) observation for
// an item. Assumes the household lock is held.
func (c *Core) recordPricePointLocked(householdID, itemKey string, purchasedAt time.Time, unitPrice float64) {
	key := priceHistoryKey(householdID, itemKey)
	c.priceHistory[key] = append(c.priceHistory[key], PricePoint{PurchasedAt: purchasedAt, UnitPrice: unitPrice})
}

const (
	priceWindow30d = 30 * 24 * time.Hour
	priceWindow90d = 90 * 24 * time.Hour
)

// computePriceIntelligenceLocked derives the spec §4.6 windowed price
// statistics for an item as of asOf. Assumes the household lock is held.
func (c *Core) computePriceIntelligenceLocked(householdID, itemKey string, asOf time.Time) PriceIntelligence {
	points := c.priceHistory[priceHistoryKey(householdID, itemKey)]
	if len(points) == 0 {
		return PriceIntelligence{}
	}

	sorted := append([]PricePoint(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PurchasedAt.Before(sorted[j].PurchasedAt) })
	last := sorted[len(sorted)-1]

	var sum30 float64
	var n30 int
	var min90 float64
	var has90 bool
	for _, p := range sorted {
		age := asOf.Sub(p.PurchasedAt)
		if age < 0 {
			continue
		}
		if age <= priceWindow30d {
			sum30 += p.UnitPrice
			n30++
		}
		if age <= priceWindow90d && (!has90 || p.UnitPrice < min90) {
			min90 = p.UnitPrice
			has90 = true
		}
	}

	pi := PriceIntelligence{}
	lastPrice := round3(last.UnitPrice)
	pi.LastUnitPrice = &lastPrice

	var avgRaw float64
	if n30 > 0 {
		avgRaw = sum30 / float64(n30)
		avg := round3(avgRaw)
		pi.AvgUnitPrice30d = &avg
	}
	if has90 {
		m := round3(min90)
		pi.MinUnitPrice90d = &m
	}
	if n30 > 0 && avgRaw > 0 {
		trend := round3(100 * (last.UnitPrice - avgRaw) / avgRaw)
		pi.PriceTrendPct = &trend
	}

	if pi.PriceTrendPct != nil && *pi.PriceTrendPct >= 15 {
		pi.PriceAlert = true
	}
	if has90 && last.UnitPrice >= 1.25*min90 {
		pi.PriceAlert = true
	}
	return pi
}

func weekKey(householdID string, weekOf time.Time) string {
	return fmt.Sprintf("%s|%s", householdID, weekOf.Format("2006-01-02"))
}

func (c *Core) latestWeeklyRunLocked(householdID string, weekOf *time.Time) *RecommendationRun {
	var best *RecommendationRun
	for _, r := range c.runs {
		if r.HouseholdID != householdID || r.RunType != RunWeekly {
			continue
		}
		if weekOf != nil && !r.TargetDate.Equal(*weekOf) {
			continue
		}
		if best == nil || r.CreatedAt.After(best.CreatedAt) {
			best = r
		}
	}
	return best
}

// GenerateShoppingDraftInput is a request to (re)build a shopping draft from
// the latest weekly recommendation run for a week.
type GenerateShoppingDraftInput struct {
	HouseholdID string
	WeekOf      *time.Time
	Regenerate  bool
}

// GenerateShoppingDraft locates the latest weekly run for the requested
// week and builds (or replaces) a draft of planned items priced from
// purchase history.
func (c *Core) GenerateShoppingDraft(in GenerateShoppingDraftInput) (*ShoppingDraft, error) {
	if in.HouseholdID == "" {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "householdId", Message: "required"})
	}

	lock := c.householdLock(in.HouseholdID)
	lock.Lock()
	defer lock.Unlock()

	run := c.latestWeeklyRunLocked(in.HouseholdID, in.WeekOf)
	if run == nil {
		return nil, coreerr.NotFoundf("no weekly recommendation run for household %q", in.HouseholdID)
	}
	recs := c.weeklyRecs[run.RunID]

	key := weekKey(in.HouseholdID, run.TargetDate)
	now := c.clock.Now()

	var draft *ShoppingDraft
	existingID, hasExisting := c.latestDraftByWeek[key]
	if hasExisting {
		if existing := c.drafts[existingID]; existing != nil && existing.Status != DraftFinalized && !in.Regenerate {
			draft = existing
		}
	}
	if draft == nil {
		draft = &ShoppingDraft{
			DraftID:     c.idgen.New(ids.KindDraft),
			HouseholdID: in.HouseholdID,
			WeekOf:      run.TargetDate,
			Status:      DraftOpen,
			CreatedAt:   now,
		}
		c.drafts[draft.DraftID] = draft
		c.latestDraftByWeek[key] = draft.DraftID
	}

	draft.SourceRunID = run.RunID
	draft.UpdatedAt = now
	draft.Items = make([]ShoppingDraftItem, 0, len(recs))
	for _, rec := range recs {
		draft.Items = append(draft.Items, ShoppingDraftItem{
			DraftItemID:       c.idgen.New(ids.KindDraftItem),
			ItemKey:           rec.ItemKey,
			ItemName:          rec.ItemName,
			Quantity:          rec.Quantity,
			Unit:              rec.Unit,
			Priority:          rec.Priority,
			Status:            DraftItemPlanned,
			PriceIntelligence: c.computePriceIntelligenceLocked(in.HouseholdID, rec.ItemKey, now),
		})
	}

	return draft, nil
}

// LatestShoppingDraft returns the most recently created-or-updated draft
// for a household, across all weeks.
func (c *Core) LatestShoppingDraft(householdID string) (*ShoppingDraft, error) {
	lock := c.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	var latest *ShoppingDraft
	for _, d := range c.drafts {
		if d.HouseholdID != householdID {
			continue
		}
		if latest == nil || d.UpdatedAt.After(latest.UpdatedAt) {
			latest = d
		}
	}
	if latest == nil {
		return nil, coreerr.NotFoundf("no shopping draft for household %q", householdID)
	}
	return latest.Clone(), nil
}

// ShoppingDraftItemPatch is a per-item mutation within a
// PatchShoppingDraftItems call; nil fields are left unchanged.
type ShoppingDraftItemPatch struct {
	DraftItemID string
	Status      *ShoppingDraftItemStatus
	Quantity    *float64
}

// PatchShoppingDraftItemsInput is a request to mutate one or more items
// within a draft.
type PatchShoppingDraftItemsInput struct {
	DraftID        string
	HouseholdID    string
	Items          []ShoppingDraftItemPatch
	IdempotencyKey string
}

// PatchShoppingDraftItemsResult reports whether the patch actually applied.
type PatchShoppingDraftItemsResult struct {
	Draft   *ShoppingDraft
	Updated bool
}

// PatchShoppingDraftItems applies per-item status/quantity edits to a draft.
// Finalized drafts and idempotent replays are both accepted but report
// updated=false without mutating anything.
func (c *Core) PatchShoppingDraftItems(in PatchShoppingDraftItemsInput) (*PatchShoppingDraftItemsResult, error) {
	if in.HouseholdID == "" {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "householdId", Message: "required"})
	}
	if len(in.Items) == 0 {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "items", Message: "at least one item required"})
	}

	lock := c.householdLock(in.HouseholdID)
	lock.Lock()
	defer lock.Unlock()

	if cached, ok := c.idempotentLookup(ScopeShoppingPatch, in.IdempotencyKey); ok {
		prior := cached.(*PatchShoppingDraftItemsResult)
		return &PatchShoppingDraftItemsResult{Draft: prior.Draft, Updated: false}, nil
	}

	draft, ok := c.drafts[in.DraftID]
	if !ok || draft.HouseholdID != in.HouseholdID {
		return nil, coreerr.NotFoundf("shopping draft %q not found", in.DraftID)
	}

	if draft.Status == DraftFinalized {
		result := &PatchShoppingDraftItemsResult{Draft: draft, Updated: false}
		c.idempotentStore(ScopeShoppingPatch, in.IdempotencyKey, result)
		return result, nil
	}

	for _, patch := range in.Items {
		for i := range draft.Items {
			if draft.Items[i].DraftItemID != patch.DraftItemID {
				continue
			}
			if patch.Status != nil {
				draft.Items[i].Status = *patch.Status
			}
			if patch.Quantity != nil {
				draft.Items[i].Quantity = *patch.Quantity
			}
		}
	}
	draft.UpdatedAt = c.clock.Now()

	result := &PatchShoppingDraftItemsResult{Draft: draft, Updated: true}
	c.idempotentStore(ScopeShoppingPatch, in.IdempotencyKey, result)
	return result, nil
}

// FinalizeShoppingDraft transitions a draft to finalized, stamping
// finalizedAt. Finalizing an already-finalized draft is a no-op.
func (c *Core) FinalizeShoppingDraft(draftID, householdID string) (*ShoppingDraft, error) {
	lock := c.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	draft, ok := c.drafts[draftID]
	if !ok || draft.HouseholdID != householdID {
		return nil, coreerr.NotFoundf("shopping draft %q not found", draftID)
	}
	if draft.Status == DraftFinalized {
		return draft, nil
	}

	now := c.clock.Now()
	draft.Status = DraftFinalized
	draft.FinalizedAt = &now
	draft.UpdatedAt = now
	return draft, nil
}
