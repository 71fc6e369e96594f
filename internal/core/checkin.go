package core

import (
	"github.com/antigravity-dev/home-inventory/internal/coreerr"
)

// checkin.go implements the spec §4.5 check-in engine: a pending check-in
// seeded per daily recommendation, resolved by the household with an
// outcome that drives FEFO depletion and implicit feedback.

// ListPendingCheckins returns every check-in still awaiting resolution for
// a household.
func (c *Core) ListPendingCheckins(householdID string) []*MealCheckin {
	lock := c.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	ids := c.pendingCheckinsByHousehold[householdID]
	out := make([]*MealCheckin, 0, len(ids))
	for _, id := range ids {
		if ch, ok := c.checkins[id]; ok && ch.Status == CheckinPending {
			out = append(out, ch.Clone())
		}
	}
	return out
}

// SubmitMealCheckinInput is a request to resolve a pending check-in.
type SubmitMealCheckinInput struct {
	HouseholdID    string
	Outcome        MealCheckinOutcome
	Lines          []MealCheckinLine
	Notes          string
	IdempotencyKey string
}

// SubmitMealCheckinResult is the resolved check-in plus how many ledger
// events the resolution produced.
type SubmitMealCheckinResult struct {
	Checkin       *MealCheckin
	EventsCreated int
}

// SubmitMealCheckin resolves a pending check-in per spec §4.5: `made` with
// positive consumed lines FEFO-depletes stock and completes; `made` with no
// (or all-zero) lines needs_adjustment with zero events; `skipped` completes
// without depletion; `partial` follows the same depletion rules as `made`
// but degrades to needs_adjustment if any line under-fulfills. Wasted lines
// are processed independently of outcome.
func (c *Core) SubmitMealCheckin(checkinID string, in SubmitMealCheckinInput) (*SubmitMealCheckinResult, error) {
	if in.HouseholdID == "" {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "householdId", Message: "required"})
	}
	if in.Outcome != OutcomeMade && in.Outcome != OutcomeSkipped && in.Outcome != OutcomePartial {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "outcome", Message: "must be 'made', 'skipped' or 'partial'"})
	}

	lock := c.householdLock(in.HouseholdID)
	lock.Lock()
	defer lock.Unlock()

	if cached, ok := c.idempotentLookup(ScopeMealCheckin, in.IdempotencyKey); ok {
		return cached.(*SubmitMealCheckinResult), nil
	}

	checkin, ok := c.checkins[checkinID]
	if !ok || checkin.HouseholdID != in.HouseholdID {
		return nil, coreerr.NotFoundf("checkin %q not found", checkinID)
	}

	if checkin.Status != CheckinPending {
		result := &SubmitMealCheckinResult{Checkin: checkin, EventsCreated: 0}
		c.idempotentStore(ScopeMealCheckin, in.IdempotencyKey, result)
		return result, nil
	}

	events := 0
	deficitHit := false

	for _, line := range in.Lines {
		if line.QuantityWasted <= 0 {
			continue
		}
		_, deficit, evs := c.consumeFEFOLocked(in.HouseholdID, line.ItemKey, line.Unit, line.QuantityWasted, EventWaste, "checkin", "meal check-in waste")
		events += len(evs)
		if deficit > 0 {
			deficitHit = true
		}
	}
	if anyWasted(in.Lines) {
		c.recordImplicitFeedbackLocked(checkin.RecommendationID, in.HouseholdID, SignalWasted)
	}

	var status MealCheckinStatus
	switch in.Outcome {
	case OutcomeSkipped:
		status = CheckinCompleted
		c.recordImplicitFeedbackLocked(checkin.RecommendationID, in.HouseholdID, SignalIgnored)

	default: // made, partial
		consumedAny := false
		for _, line := range in.Lines {
			if line.QuantityConsumed <= 0 {
				continue
			}
			consumedAny = true
			_, deficit, evs := c.consumeFEFOLocked(in.HouseholdID, line.ItemKey, line.Unit, line.QuantityConsumed, EventConsume, "checkin", "meal check-in")
			events += len(evs)
			if deficit > 0 {
				deficitHit = true
			}
		}

		switch {
		case in.Outcome == OutcomeMade && !consumedAny:
			status = CheckinNeedsAdjustment
		case deficitHit:
			status = CheckinNeedsAdjustment
		default:
			status = CheckinCompleted
		}

		if consumedAny {
			c.recordImplicitFeedbackLocked(checkin.RecommendationID, in.HouseholdID, SignalConsumed)
		}
	}

	outcome := in.Outcome
	checkin.Status = status
	checkin.Outcome = &outcome
	checkin.Lines = in.Lines
	checkin.Notes = in.Notes
	checkin.UpdatedAt = c.clock.Now()
	c.removePendingLocked(in.HouseholdID, checkinID)

	result := &SubmitMealCheckinResult{Checkin: checkin, EventsCreated: events}
	c.idempotentStore(ScopeMealCheckin, in.IdempotencyKey, result)
	return result, nil
}

func (c *Core) removePendingLocked(householdID, checkinID string) {
	ids := c.pendingCheckinsByHousehold[householdID]
	out := ids[:0]
	for _, id := range ids {
		if id != checkinID {
			out = append(out, id)
		}
	}
	c.pendingCheckinsByHousehold[householdID] = out
}

func anyWasted(lines []MealCheckinLine) bool {
	for _, l := range lines {
		if l.QuantityWasted > 0 {
			return true
		}
	}
	return false
}
