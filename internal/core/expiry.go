package core

import (
	"math"
	"sort"
	"time"
)

// expiry.go implements the spec §4.3 expiry intelligence: a per-category
// table of typical shelf life and confidence, used to estimate a lot's
// expiresAt when a receipt or manual entry supplies no exact date.

type expiryRule struct {
	days       int
	confidence float64
}

var expiryTable = map[ItemCategory]expiryRule{
	CategoryProtein:   {days: 3, confidence: 0.70},
	CategoryProduce:   {days: 7, confidence: 0.65},
	CategoryDairy:     {days: 10, confidence: 0.70},
	CategoryFrozen:    {days: 120, confidence: 0.60},
	CategoryGrain:     {days: 180, confidence: 0.55},
	CategorySnack:     {days: 90, confidence: 0.55},
	CategoryBeverage:  {days: 30, confidence: 0.60},
	CategoryCondiment: {days: 180, confidence: 0.50},
	CategoryHousehold: {days: 365, confidence: 0.45},
	CategoryOther:     {days: 30, confidence: 0.50},
}

// estimateExpiry returns an estimated expiresAt and confidence for a
// category, anchored at purchasedAt. Callers pass the current time when the
// lot has no purchase date.
func estimateExpiry(category ItemCategory, purchasedAt time.Time) (expiresAt time.Time, confidence float64) {
	rule, ok := expiryTable[category]
	if !ok {
		rule = expiryTable[CategoryOther]
	}
	return purchasedAt.AddDate(0, 0, rule.days), rule.confidence
}

// daysUntilExpiry returns ceil((expiresAt - asOf) / 1 day); negative for
// already-expired lots.
func daysUntilExpiry(expiresAt, asOf time.Time) int {
	return int(math.Ceil(expiresAt.Sub(asOf).Hours() / 24))
}

// riskLevel buckets a days-until-expiry count into the spec §4.3 tiers.
func riskLevel(daysLeft int) RiskLevel {
	switch {
	case daysLeft <= 2:
		return RiskCritical
	case daysLeft <= 5:
		return RiskHigh
	case daysLeft <= 10:
		return RiskMedium
	default:
		return RiskLow
	}
}

// lotRiskLevel computes the current risk level for a lot with a known
// expiresAt. Lots with no expiresAt carry no risk level (unknown source).
func lotRiskLevel(lot *InventoryLot, asOf time.Time) (RiskLevel, bool) {
	if lot.ExpiresAt == nil {
		return "", false
	}
	return riskLevel(daysUntilExpiry(*lot.ExpiresAt, asOf)), true
}

func riskRank(r RiskLevel) int {
	switch r {
	case RiskCritical:
		return 0
	case RiskHigh:
		return 1
	case RiskMedium:
		return 2
	default:
		return 3
	}
}

// ExpiryRiskSnapshot ranks a household's active lots by expiry risk,
// highest risk first; lots with no known expiresAt are excluded.
func (c *Core) ExpiryRiskSnapshot(householdID string) []LotExpiryRisk {
	lock := c.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	asOf := c.clock.Now()
	out := make([]LotExpiryRisk, 0, len(c.lotsByHousehold[householdID]))
	for _, l := range c.lotsByHousehold[householdID] {
		if l.QuantityRemaining <= 0 {
			continue
		}
		risk, ok := lotRiskLevel(l, asOf)
		if !ok {
			continue
		}
		out = append(out, LotExpiryRisk{
			Lot:       l.Clone(),
			RiskLevel: risk,
			DaysLeft:  daysUntilExpiry(*l.ExpiresAt, asOf),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return riskRank(out[i].RiskLevel) < riskRank(out[j].RiskLevel)
	})
	return out
}
