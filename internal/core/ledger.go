package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/antigravity-dev/home-inventory/internal/coreerr"
	"github.com/antigravity-dev/home-inventory/internal/ids"
)

// ledger.go implements the spec §4.2 ledger mutation engine: every mutation
// is append-only at the event layer and FEFO-aware at the depletion layer.
// All exported entry points acquire the household lock; unexported *Locked
// helpers assume it is already held.

var farFuture = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

func (c *Core) createLotLocked(householdID, itemKey, itemName string, quantity float64, unit Unit, category ItemCategory, purchasedAt, expiresAt, expiryEstimatedAt *time.Time, source ExpirySource, confidence *float64) *InventoryLot {
	lot := &InventoryLot{
		LotID:             c.idgen.New(ids.KindLot),
		HouseholdID:       householdID,
		ItemKey:           itemKey,
		ItemName:          itemName,
		QuantityRemaining: quantity,
		Unit:              unit,
		Category:          category,
		PurchasedAt:       purchasedAt,
		ExpiresAt:         expiresAt,
		ExpiryEstimatedAt: expiryEstimatedAt,
		ExpirySource:      source,
		ExpiryConfidence:  confidence,
		UpdatedAt:         c.clock.Now(),
	}
	c.lotsByHousehold[householdID] = append(c.lotsByHousehold[householdID], lot)
	return lot
}

func (c *Core) addEventLocked(householdID, lotID string, eventType InventoryEventType, quantity float64, unit Unit, source, reason string) *InventoryEvent {
	ev := &InventoryEvent{
		EventID:     c.idgen.New(ids.KindEvent),
		HouseholdID: householdID,
		LotID:       lotID,
		EventType:   eventType,
		Quantity:    quantity,
		Unit:        unit,
		Source:      source,
		Reason:      reason,
		CreatedAt:   c.clock.Now(),
	}
	c.eventsByHousehold[householdID] = append(c.eventsByHousehold[householdID], ev)
	return ev
}

// applyReceiptItemLocked finds or creates the unique lot for a receipt
// item's (itemKey, unit, category) cluster, adds its quantity, refreshes
// itemName to the latest normalizedName, and emits one add event. Called by
// SubmitJobResult for every parsed item and by ReviewReceipt in append mode.
func (c *Core) applyReceiptItemLocked(householdID string, item ReceiptItem, purchasedAt *time.Time) (*InventoryLot, *InventoryEvent) {
	var target *InventoryLot
	for _, l := range c.lotsByHousehold[householdID] {
		if l.ItemKey == item.ItemKey && l.Unit == item.Unit && l.Category == item.Category {
			target = l
			break
		}
	}

	now := c.clock.Now()
	anchor := now
	if purchasedAt != nil {
		anchor = *purchasedAt
	}

	if target == nil {
		expiresAt, confidence := estimateExpiry(item.Category, anchor)
		target = c.createLotLocked(householdID, item.ItemKey, item.NormalizedName, 0, item.Unit, item.Category, purchasedAt, &expiresAt, &now, ExpirySourceEstimated, &confidence)
	}

	target.QuantityRemaining += item.Quantity
	target.ItemName = item.NormalizedName
	if purchasedAt != nil {
		target.PurchasedAt = purchasedAt
	}
	target.UpdatedAt = now

	ev := c.addEventLocked(householdID, target.LotID, EventAdd, item.Quantity, item.Unit, "receipt", fmt.Sprintf("receipt item: %s", item.RawName))

	if item.UnitPrice != nil {
		c.recordPricePointLocked(householdID, item.ItemKey, anchor, *item.UnitPrice)
	}
	return target, ev
}

// ManualItemInput is one item added directly by a household member, bypassing
// the receipt pipeline.
type ManualItemInput struct {
	ItemKey     string
	ItemName    string
	Quantity    float64
	Unit        Unit
	Category    ItemCategory
	PurchasedAt *time.Time
	ExpiresAt   *time.Time // explicit override; estimated when nil
	UnitPrice   *float64
}

// AddManualItemsResult is the set of lots and events a manual entry produced.
type AddManualItemsResult struct {
	Lots   []*InventoryLot
	Events []*InventoryEvent
}

// AddManualItems creates one new lot per item, never merging into an
// existing lot for the same itemKey.
func (c *Core) AddManualItems(householdID string, items []ManualItemInput) (*AddManualItemsResult, error) {
	if householdID == "" {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "householdId", Message: "required"})
	}
	if len(items) == 0 {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "items", Message: "at least one item required"})
	}

	lock := c.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	result := &AddManualItemsResult{}
	for _, item := range items {
		anchor := c.clock.Now()
		if item.PurchasedAt != nil {
			anchor = *item.PurchasedAt
		}

		var expiresAt, estimatedAt *time.Time
		var source ExpirySource
		var confidence *float64
		if item.ExpiresAt != nil {
			expiresAt = item.ExpiresAt
			source = ExpirySourceExact
		} else {
			est, conf := estimateExpiry(item.Category, anchor)
			expiresAt = &est
			now := c.clock.Now()
			estimatedAt = &now
			source = ExpirySourceEstimated
			confidence = &conf
		}

		lot := c.createLotLocked(householdID, item.ItemKey, item.ItemName, item.Quantity, item.Unit, item.Category, item.PurchasedAt, expiresAt, estimatedAt, source, confidence)
		ev := c.addEventLocked(householdID, lot.LotID, EventAdd, item.Quantity, item.Unit, "manual_entry", "manual entry")
		result.Lots = append(result.Lots, lot)
		result.Events = append(result.Events, ev)

		if item.UnitPrice != nil {
			c.recordPricePointLocked(householdID, item.ItemKey, anchor, *item.UnitPrice)
		}
	}
	return result, nil
}

// OverrideLotExpiry sets an exact expiresAt on an existing lot, replacing
// any estimate.
func (c *Core) OverrideLotExpiry(householdID, lotID string, expiresAt time.Time) (*InventoryLot, error) {
	lock := c.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	for _, l := range c.lotsByHousehold[householdID] {
		if l.LotID == lotID {
			exact := 1.0
			l.ExpiresAt = &expiresAt
			l.ExpirySource = ExpirySourceExact
			l.ExpiryEstimatedAt = nil
			l.ExpiryConfidence = &exact
			l.UpdatedAt = c.clock.Now()
			return l, nil
		}
	}
	return nil, coreerr.NotFoundf("lot %q not found", lotID)
}

// ListLots returns a household's lots, sorted FEFO (soonest-expiring first).
func (c *Core) ListLots(householdID string) []*InventoryLot {
	lock := c.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	lots := cloneLots(c.lotsByHousehold[householdID])
	sortFEFO(lots)
	return lots
}

// ListEvents returns a household's ledger events in creation order.
func (c *Core) ListEvents(householdID string) []*InventoryEvent {
	lock := c.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()
	return cloneEvents(c.eventsByHousehold[householdID])
}

// sortFEFO orders lots soonest-expiring first (missing expiresAt sorts
// last), then by purchasedAt (missing sorts last), preserving insertion
// order as the final tiebreaker.
func sortFEFO(lots []*InventoryLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		ei, ej := farFuture, farFuture
		if lots[i].ExpiresAt != nil {
			ei = *lots[i].ExpiresAt
		}
		if lots[j].ExpiresAt != nil {
			ej = *lots[j].ExpiresAt
		}
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		pi, pj := farFuture, farFuture
		if lots[i].PurchasedAt != nil {
			pi = *lots[i].PurchasedAt
		}
		if lots[j].PurchasedAt != nil {
			pj = *lots[j].PurchasedAt
		}
		return pi.Before(pj)
	})
}

// fefoTake is one lot's contribution toward a depletion request.
type fefoTake struct {
	Lot      *InventoryLot
	Quantity float64
}

// depleteFEFORaw subtracts up to quantity of itemKey/unit from a
// household's lots in FEFO order, capping at available stock. category, if
// non-empty, further scopes the match to that category alone (used by
// cluster-aware callers); empty matches any category. It mutates
// QuantityRemaining directly but emits no events; callers decide event
// granularity.
func (c *Core) depleteFEFORaw(householdID, itemKey string, unit Unit, category ItemCategory, quantity float64) (takes []fefoTake, deducted float64) {
	var candidates []*InventoryLot
	for _, l := range c.lotsByHousehold[householdID] {
		if l.ItemKey == itemKey && l.Unit == unit && l.QuantityRemaining > 0 && (category == "" || l.Category == category) {
			candidates = append(candidates, l)
		}
	}
	sortFEFO(candidates)

	remaining := quantity
	for _, l := range candidates {
		if remaining <= 0 {
			break
		}
		take := remaining
		if take > l.QuantityRemaining {
			take = l.QuantityRemaining
		}
		l.QuantityRemaining -= take
		l.UpdatedAt = c.clock.Now()
		remaining -= take
		takes = append(takes, fefoTake{Lot: l, Quantity: take})
	}
	return takes, quantity - remaining
}

// consumeFEFOLocked depletes itemKey/unit FEFO-first, emitting one event
// per lot touched. If quantity exceeds available stock, a final event for
// the deficit is emitted against the last lot touched (clamped at zero —
// the lot's quantityRemaining is never driven negative) and deficit is
// returned nonzero so the caller can flag the check-in needs_adjustment.
func (c *Core) consumeFEFOLocked(householdID, itemKey string, unit Unit, quantity float64, eventType InventoryEventType, source, reason string) (deducted, deficit float64, events []*InventoryEvent) {
	takes, total := c.depleteFEFORaw(householdID, itemKey, unit, "", quantity)
	for _, t := range takes {
		ev := c.addEventLocked(householdID, t.Lot.LotID, eventType, t.Quantity, unit, source, reason)
		events = append(events, ev)
	}

	deficit = quantity - total
	if deficit > 0 && len(takes) > 0 {
		last := takes[len(takes)-1].Lot
		ev := c.addEventLocked(householdID, last.LotID, eventType, deficit, unit, source, reason+" (deficit)")
		events = append(events, ev)
	}
	return total, deficit, events
}

// clusterKey groups receipt items that should be treated as the same
// inventory position for review-delta purposes.
type clusterKey struct {
	itemKey  string
	unit     Unit
	category ItemCategory
}

func clusterTotals(items []ReceiptItem) map[clusterKey]float64 {
	totals := make(map[clusterKey]float64)
	for _, it := range items {
		totals[clusterKey{itemKey: it.ItemKey, unit: it.Unit, category: it.Category}] += it.Quantity
	}
	return totals
}

// ReviewReceiptInput is a request to revise a receipt's parsed items after
// the fact.
type ReviewReceiptInput struct {
	HouseholdID     string
	ReceiptUploadID string
	Mode            string // "overwrite" | "append"
	Items           []ReceiptItem
	IdempotencyKey  string
}

// ReviewReceiptResult is the set of lots and events a review produced.
type ReviewReceiptResult struct {
	Lots   []*InventoryLot
	Events []*InventoryEvent
}

// ReviewReceipt revises a previously-applied receipt's items. In "append"
// mode the new items are merged into their clusters exactly like a fresh
// submitJobResult. In "overwrite" mode only the net quantity delta per
// (itemKey, unit, category) cluster between the old and new item sets is
// applied, as one adjust event per affected cluster — the original add
// events are never rewritten.
func (c *Core) ReviewReceipt(in ReviewReceiptInput) (*ReviewReceiptResult, error) {
	if in.Mode != "overwrite" && in.Mode != "append" {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "mode", Message: "must be 'overwrite' or 'append'"})
	}

	lock := c.householdLock(in.HouseholdID)
	lock.Lock()
	defer lock.Unlock()

	if cached, ok := c.idempotentLookup(ScopeReceiptReview, in.IdempotencyKey); ok {
		return cached.(*ReviewReceiptResult), nil
	}

	c.queueMu.Lock()
	upload, ok := c.uploads[in.ReceiptUploadID]
	c.queueMu.Unlock()
	if !ok {
		return nil, coreerr.NotFoundf("receipt upload %q not found", in.ReceiptUploadID)
	}
	if upload.HouseholdID != in.HouseholdID {
		return nil, coreerr.HouseholdMismatchf("receipt upload %q belongs to another household", in.ReceiptUploadID)
	}

	var result *ReviewReceiptResult
	if in.Mode == "append" {
		result = &ReviewReceiptResult{}
		for _, item := range in.Items {
			lot, ev := c.applyReceiptItemLocked(in.HouseholdID, item, upload.PurchasedAt)
			result.Lots = append(result.Lots, lot)
			result.Events = append(result.Events, ev)
		}
	} else {
		result = c.overwriteReviewItemsLocked(in.HouseholdID, upload.Items, in.Items)
	}

	c.queueMu.Lock()
	if in.Mode == "append" {
		upload.Items = append(cloneReceiptItems(upload.Items), in.Items...)
	} else {
		upload.Items = in.Items
	}
	upload.UpdatedAt = c.clock.Now()
	c.queueMu.Unlock()

	c.idempotentStore(ScopeReceiptReview, in.IdempotencyKey, result)
	return result, nil
}

func (c *Core) overwriteReviewItemsLocked(householdID string, oldItems, newItems []ReceiptItem) *ReviewReceiptResult {
	oldTotals := clusterTotals(oldItems)
	newTotals := clusterTotals(newItems)

	keys := make(map[clusterKey]struct{}, len(oldTotals)+len(newTotals))
	for k := range oldTotals {
		keys[k] = struct{}{}
	}
	for k := range newTotals {
		keys[k] = struct{}{}
	}

	result := &ReviewReceiptResult{}
	for k := range keys {
		delta := newTotals[k] - oldTotals[k]
		if delta == 0 {
			continue
		}
		if delta > 0 {
			lot, ev := c.adjustIncreaseLocked(householdID, k, delta, newItems)
			result.Lots = append(result.Lots, lot)
			result.Events = append(result.Events, ev)
			continue
		}
		lots, evs := c.adjustDecreaseLocked(householdID, k, -delta)
		result.Lots = append(result.Lots, lots...)
		result.Events = append(result.Events, evs...)
	}
	return result
}

func (c *Core) adjustIncreaseLocked(householdID string, k clusterKey, quantity float64, items []ReceiptItem) (*InventoryLot, *InventoryEvent) {
	var target *InventoryLot
	for _, l := range c.lotsByHousehold[householdID] {
		if l.ItemKey == k.itemKey && l.Unit == k.unit && l.Category == k.category {
			if target == nil || l.UpdatedAt.After(target.UpdatedAt) {
				target = l
			}
		}
	}

	itemName := k.itemKey
	for _, it := range items {
		if it.ItemKey == k.itemKey {
			itemName = it.NormalizedName
			break
		}
	}

	if target == nil {
		now := c.clock.Now()
		expiresAt, confidence := estimateExpiry(k.category, now)
		target = c.createLotLocked(householdID, k.itemKey, itemName, 0, k.unit, k.category, &now, &expiresAt, &now, ExpirySourceEstimated, &confidence)
	}

	target.QuantityRemaining += quantity
	target.UpdatedAt = c.clock.Now()
	ev := c.addEventLocked(householdID, target.LotID, EventAdjust, quantity, k.unit, "receipt_review", "receipt review: increase")
	return target, ev
}

// adjustDecreaseLocked depletes a cluster FEFO-first and emits one adjust
// event per lot actually touched, mirroring consumeFEFOLocked's per-lot
// event granularity so every lot's quantityRemaining stays reconciled with
// its own events.
func (c *Core) adjustDecreaseLocked(householdID string, k clusterKey, quantity float64) ([]*InventoryLot, []*InventoryEvent) {
	takes, total := c.depleteFEFORaw(householdID, k.itemKey, k.unit, k.category, quantity)
	if total <= 0 || len(takes) == 0 {
		return nil, nil
	}
	lots := make([]*InventoryLot, 0, len(takes))
	events := make([]*InventoryEvent, 0, len(takes))
	for _, t := range takes {
		ev := c.addEventLocked(householdID, t.Lot.LotID, EventAdjust, t.Quantity, k.unit, "receipt_review", "receipt review: decrease")
		lots = append(lots, t.Lot)
		events = append(events, ev)
	}
	return lots, events
}
