package core

import (
	"testing"
	"time"

	"github.com/antigravity-dev/home-inventory/internal/ids"
)

func newCoreAt(t *testing.T, now time.Time) *Core {
	t.Helper()
	return New(Options{Clock: ids.NewFrozenClock(now), IDGenerator: ids.NewSequentialGenerator()})
}

func statusPtr(s ShoppingDraftItemStatus) *ShoppingDraftItemStatus { return &s }

func TestGenerateShoppingDraft_PriceIntelligenceAndFinalize(t *testing.T) {
	asOf := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	c := newCoreAt(t, asOf)

	lock := c.householdLock("hh1")
	lock.Lock()
	c.recordPricePointLocked("hh1", "milk", time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC), 3.20)
	c.recordPricePointLocked("hh1", "milk", time.Date(2026, 1, 25, 0, 0, 0, 0, time.UTC), 2.40)
	c.recordPricePointLocked("hh1", "milk", time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), 2.30)
	lock.Unlock()

	seedLot(t, c, "hh1", "milk", 0.2, UnitLiter, CategoryDairy)

	weekOf := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	_, recs, err := c.GenerateWeeklyRun("hh1", weekOf)
	if err != nil {
		t.Fatalf("weekly run: %v", err)
	}
	if len(recs) != 1 || recs[0].ItemKey != "milk" {
		t.Fatalf("expected a single milk recommendation, got %+v", recs)
	}

	draft, err := c.GenerateShoppingDraft(GenerateShoppingDraftInput{HouseholdID: "hh1", WeekOf: &weekOf})
	if err != nil {
		t.Fatalf("generate draft: %v", err)
	}
	if len(draft.Items) != 1 {
		t.Fatalf("expected 1 draft item, got %d", len(draft.Items))
	}
	item := draft.Items[0]
	if item.LastUnitPrice == nil || *item.LastUnitPrice != 3.20 {
		t.Fatalf("lastUnitPrice = %v", item.LastUnitPrice)
	}
	if item.AvgUnitPrice30d == nil || *item.AvgUnitPrice30d != 2.633 {
		t.Fatalf("avgUnitPrice30d = %v", item.AvgUnitPrice30d)
	}
	if item.MinUnitPrice90d == nil || *item.MinUnitPrice90d != 2.30 {
		t.Fatalf("minUnitPrice90d = %v", item.MinUnitPrice90d)
	}
	if !item.PriceAlert {
		t.Fatalf("expected priceAlert true")
	}

	patch, err := c.PatchShoppingDraftItems(PatchShoppingDraftItemsInput{
		DraftID:        draft.DraftID,
		HouseholdID:    "hh1",
		Items:          []ShoppingDraftItemPatch{{DraftItemID: item.DraftItemID, Status: statusPtr(DraftItemPurchased)}},
		IdempotencyKey: "shopping-patch-1",
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !patch.Updated {
		t.Fatalf("expected updated=true on first patch")
	}

	replay, err := c.PatchShoppingDraftItems(PatchShoppingDraftItemsInput{
		DraftID:        draft.DraftID,
		HouseholdID:    "hh1",
		Items:          []ShoppingDraftItemPatch{{DraftItemID: item.DraftItemID, Status: statusPtr(DraftItemSkipped)}},
		IdempotencyKey: "shopping-patch-1",
	})
	if err != nil {
		t.Fatalf("replay patch: %v", err)
	}
	if replay.Updated {
		t.Fatalf("expected updated=false on replay")
	}
	if replay.Draft.Items[0].Status != DraftItemPurchased {
		t.Fatalf("replay must not apply new payload, got %v", replay.Draft.Items[0].Status)
	}

	finalized, err := c.FinalizeShoppingDraft(draft.DraftID, "hh1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if finalized.Status != DraftFinalized || finalized.FinalizedAt == nil {
		t.Fatalf("unexpected finalize result: %+v", finalized)
	}

	postFinalize, err := c.PatchShoppingDraftItems(PatchShoppingDraftItemsInput{
		DraftID:        draft.DraftID,
		HouseholdID:    "hh1",
		Items:          []ShoppingDraftItemPatch{{DraftItemID: item.DraftItemID, Status: statusPtr(DraftItemPlanned)}},
		IdempotencyKey: "shopping-patch-2",
	})
	if err != nil {
		t.Fatalf("post-finalize patch: %v", err)
	}
	if postFinalize.Updated {
		t.Fatalf("expected updated=false after finalize")
	}
}

func TestGenerateShoppingDraft_NoWeeklyRun(t *testing.T) {
	c := newTestCore(t)
	if _, err := c.GenerateShoppingDraft(GenerateShoppingDraftInput{HouseholdID: "hh1"}); err == nil {
		t.Fatalf("expected not_found when no weekly run exists")
	}
}
