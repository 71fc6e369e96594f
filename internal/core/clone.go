package core

import "time"

// clone.go holds defensive deep-copy helpers for every read operation that
// hands a caller a structure backed by live core state (spec §3/§8: read
// operations must return snapshots a caller can freely mutate without
// corrupting THE CORE). Grounded on the teacher's Config.Clone idiom: a
// shallow struct copy followed by explicit deep copies of the pointer and
// slice fields that would otherwise alias the original.

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat64Ptr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneStringSlice(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func (j *ReceiptProcessJob) Clone() *ReceiptProcessJob {
	if j == nil {
		return nil
	}
	clone := *j
	return &clone
}

func (i ReceiptItem) Clone() ReceiptItem {
	clone := i
	clone.UnitPrice = cloneFloat64Ptr(i.UnitPrice)
	return clone
}

func cloneReceiptItems(in []ReceiptItem) []ReceiptItem {
	if in == nil {
		return nil
	}
	out := make([]ReceiptItem, len(in))
	for i, it := range in {
		out[i] = it.Clone()
	}
	return out
}

func (u *ReceiptUpload) Clone() *ReceiptUpload {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PurchasedAt = cloneTimePtr(u.PurchasedAt)
	clone.Items = cloneReceiptItems(u.Items)
	return &clone
}

func (l *InventoryLot) Clone() *InventoryLot {
	if l == nil {
		return nil
	}
	clone := *l
	clone.PurchasedAt = cloneTimePtr(l.PurchasedAt)
	clone.ExpiresAt = cloneTimePtr(l.ExpiresAt)
	clone.ExpiryEstimatedAt = cloneTimePtr(l.ExpiryEstimatedAt)
	clone.ExpiryConfidence = cloneFloat64Ptr(l.ExpiryConfidence)
	return &clone
}

func cloneLots(in []*InventoryLot) []*InventoryLot {
	out := make([]*InventoryLot, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}

func (e *InventoryEvent) Clone() *InventoryEvent {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

func cloneEvents(in []*InventoryEvent) []*InventoryEvent {
	out := make([]*InventoryEvent, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}

func (m *MealCheckin) Clone() *MealCheckin {
	if m == nil {
		return nil
	}
	clone := *m
	clone.SuggestedItemKeys = cloneStringSlice(m.SuggestedItemKeys)
	if m.Outcome != nil {
		o := *m.Outcome
		clone.Outcome = &o
	}
	if m.Lines != nil {
		clone.Lines = make([]MealCheckinLine, len(m.Lines))
		copy(clone.Lines, m.Lines)
	}
	return &clone
}

func (r *RecommendationRun) Clone() *RecommendationRun {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

func (d *DailyMealRecommendation) Clone() *DailyMealRecommendation {
	if d == nil {
		return nil
	}
	clone := *d
	clone.ItemKeys = cloneStringSlice(d.ItemKeys)
	return &clone
}

func cloneDailyRecs(in []*DailyMealRecommendation) []*DailyMealRecommendation {
	out := make([]*DailyMealRecommendation, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

func (w *WeeklyPurchaseRecommendation) Clone() *WeeklyPurchaseRecommendation {
	if w == nil {
		return nil
	}
	clone := *w
	return &clone
}

func cloneWeeklyRecs(in []*WeeklyPurchaseRecommendation) []*WeeklyPurchaseRecommendation {
	out := make([]*WeeklyPurchaseRecommendation, len(in))
	for i, w := range in {
		out[i] = w.Clone()
	}
	return out
}

func (p PriceIntelligence) Clone() PriceIntelligence {
	clone := p
	clone.LastUnitPrice = cloneFloat64Ptr(p.LastUnitPrice)
	clone.AvgUnitPrice30d = cloneFloat64Ptr(p.AvgUnitPrice30d)
	clone.MinUnitPrice90d = cloneFloat64Ptr(p.MinUnitPrice90d)
	clone.PriceTrendPct = cloneFloat64Ptr(p.PriceTrendPct)
	return clone
}

func (it ShoppingDraftItem) Clone() ShoppingDraftItem {
	clone := it
	clone.PriceIntelligence = it.PriceIntelligence.Clone()
	return clone
}

func (d *ShoppingDraft) Clone() *ShoppingDraft {
	if d == nil {
		return nil
	}
	clone := *d
	clone.FinalizedAt = cloneTimePtr(d.FinalizedAt)
	if d.Items != nil {
		clone.Items = make([]ShoppingDraftItem, len(d.Items))
		for i, it := range d.Items {
			clone.Items[i] = it.Clone()
		}
	}
	return &clone
}

func (s *PantryHealthScore) Clone() *PantryHealthScore {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}
