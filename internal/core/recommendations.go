package core

import (
	"context"
	"time"

	"github.com/antigravity-dev/home-inventory/internal/coreerr"
	"github.com/antigravity-dev/home-inventory/internal/ids"
	"github.com/antigravity-dev/home-inventory/internal/planner"
)

// recommendations.go implements the spec §4.4 planner adapter orchestration:
// snapshot under lock, invoke the planner without holding locks, reacquire
// to materialize the run. Every daily run also seeds the §4.5 check-ins.

// plannerTimeout is the default deadline bound to every planner invocation
// (spec §5 "Cancellation & timeouts").
const plannerTimeout = 25 * time.Second

// snapshotInventoryLocked builds the planner's view of a household's active
// lots. Assumes the household lock is held.
func (c *Core) snapshotInventoryLocked(householdID string) []planner.InventorySnapshotLot {
	lots := c.lotsByHousehold[householdID]
	out := make([]planner.InventorySnapshotLot, 0, len(lots))
	for _, l := range lots {
		if l.QuantityRemaining <= 0 {
			continue
		}
		out = append(out, planner.InventorySnapshotLot{
			ItemKey:           l.ItemKey,
			ItemName:          l.ItemName,
			QuantityRemaining: l.QuantityRemaining,
			Unit:              string(l.Unit),
			Category:          string(l.Category),
		})
	}
	return out
}

// feedbackByItemLocked averages signalValue per itemKey across every
// feedback record attributed to a recommendation that covered that itemKey,
// rounded to three decimals. Assumes the household lock is held.
func (c *Core) feedbackByItemLocked(householdID string) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for recID, itemKeys := range c.recItemKeys {
		if c.recHousehold[recID] != householdID {
			continue
		}
		for _, fb := range c.feedback[recID] {
			for _, itemKey := range itemKeys {
				sums[itemKey] += fb.SignalValue
				counts[itemKey]++
			}
		}
	}
	out := make(map[string]float64, len(sums))
	for itemKey, sum := range sums {
		out[itemKey] = round3(sum / float64(counts[itemKey]))
	}
	return out
}

// snapshotPlannerInput acquires the household lock and captures the
// planner's Input under it, per spec §5's suspension-point sequence.
func (c *Core) snapshotPlannerInput(householdID string, targetDate time.Time) planner.Input {
	lock := c.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	return planner.Input{
		HouseholdID:    householdID,
		TargetDate:     targetDate,
		Inventory:      c.snapshotInventoryLocked(householdID),
		FeedbackByItem: c.feedbackByItemLocked(householdID),
	}
}

// GenerateDailyRun runs the daily planner for a household and materializes a
// RecommendationRun, its DailyMealRecommendations, and one pending
// MealCheckin per recommendation.
func (c *Core) GenerateDailyRun(householdID string, targetDate time.Time) (*RecommendationRun, []*DailyMealRecommendation, error) {
	if householdID == "" {
		return nil, nil, coreerr.Invalid(coreerr.Issue{Path: "householdId", Message: "required"})
	}

	in := c.snapshotPlannerInput(householdID, targetDate)

	ctx, cancel := context.WithTimeout(context.Background(), plannerTimeout)
	defer cancel()
	out, err := c.planner.GenerateDaily(ctx, in)
	if err != nil {
		c.logger.Warn("daily planner failed, falling back to heuristic", "householdId", householdID, "error", err)
		out, err = planner.NewHeuristic().GenerateDaily(ctx, in)
		if err != nil {
			return nil, nil, coreerr.Wrap(coreerr.ProviderFailure, "daily planning failed", err)
		}
	}

	lock := c.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	now := c.clock.Now()
	run := &RecommendationRun{
		RunID:       c.idgen.New(ids.KindRun),
		HouseholdID: householdID,
		RunType:     RunDaily,
		Model:       out.Model,
		CreatedAt:   now,
		TargetDate:  targetDate,
	}
	c.runs[run.RunID] = run

	recs := make([]*DailyMealRecommendation, 0, len(out.Meals))
	for _, m := range out.Meals {
		rec := &DailyMealRecommendation{
			RecommendationID: c.idgen.New(ids.KindRecommendation),
			RunID:            run.RunID,
			HouseholdID:      householdID,
			Title:            m.Title,
			ItemKeys:         m.ItemKeys,
			Score:            m.Score,
		}
		c.recHousehold[rec.RecommendationID] = householdID
		c.recItemKeys[rec.RecommendationID] = rec.ItemKeys
		recs = append(recs, rec)

		checkin := &MealCheckin{
			CheckinID:         c.idgen.New(ids.KindCheckin),
			RecommendationID:  rec.RecommendationID,
			HouseholdID:       householdID,
			MealDate:          targetDate,
			Title:             rec.Title,
			SuggestedItemKeys: rec.ItemKeys,
			Status:            CheckinPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		c.checkins[checkin.CheckinID] = checkin
		c.pendingCheckinsByHousehold[householdID] = append(c.pendingCheckinsByHousehold[householdID], checkin.CheckinID)
	}
	c.dailyRecs[run.RunID] = recs

	return run, recs, nil
}

// GenerateWeeklyRun runs the weekly planner for a household and materializes
// a RecommendationRun with its WeeklyPurchaseRecommendations.
func (c *Core) GenerateWeeklyRun(householdID string, weekOf time.Time) (*RecommendationRun, []*WeeklyPurchaseRecommendation, error) {
	if householdID == "" {
		return nil, nil, coreerr.Invalid(coreerr.Issue{Path: "householdId", Message: "required"})
	}

	in := c.snapshotPlannerInput(householdID, weekOf)

	ctx, cancel := context.WithTimeout(context.Background(), plannerTimeout)
	defer cancel()
	out, err := c.planner.GenerateWeekly(ctx, in)
	if err != nil {
		c.logger.Warn("weekly planner failed, falling back to heuristic", "householdId", householdID, "error", err)
		out, err = planner.NewHeuristic().GenerateWeekly(ctx, in)
		if err != nil {
			return nil, nil, coreerr.Wrap(coreerr.ProviderFailure, "weekly planning failed", err)
		}
	}

	lock := c.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	now := c.clock.Now()
	run := &RecommendationRun{
		RunID:       c.idgen.New(ids.KindRun),
		HouseholdID: householdID,
		RunType:     RunWeekly,
		Model:       out.Model,
		CreatedAt:   now,
		TargetDate:  weekOf,
	}
	c.runs[run.RunID] = run

	recs := make([]*WeeklyPurchaseRecommendation, 0, len(out.Items))
	for _, item := range out.Items {
		rec := &WeeklyPurchaseRecommendation{
			RecommendationID: c.idgen.New(ids.KindRecommendation),
			RunID:            run.RunID,
			HouseholdID:      householdID,
			ItemKey:          item.ItemKey,
			ItemName:         item.ItemName,
			Quantity:         item.Quantity,
			Unit:             Unit(item.Unit),
			Priority:         RecommendationPriority(item.Priority),
			Score:            item.Score,
		}
		c.recHousehold[rec.RecommendationID] = householdID
		c.recItemKeys[rec.RecommendationID] = []string{rec.ItemKey}
		recs = append(recs, rec)
	}
	c.weeklyRecs[run.RunID] = recs

	return run, recs, nil
}

// LatestDailyRecommendations returns the most recent daily run and its
// recommendations for a household.
func (c *Core) LatestDailyRecommendations(householdID string) (*RecommendationRun, []*DailyMealRecommendation, error) {
	lock := c.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	latest := c.latestRunLocked(householdID, RunDaily)
	if latest == nil {
		return nil, nil, coreerr.NotFoundf("no daily recommendations for household %q", householdID)
	}
	return latest.Clone(), cloneDailyRecs(c.dailyRecs[latest.RunID]), nil
}

// LatestWeeklyRecommendations returns the most recent weekly run and its
// recommendations for a household.
func (c *Core) LatestWeeklyRecommendations(householdID string) (*RecommendationRun, []*WeeklyPurchaseRecommendation, error) {
	lock := c.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	latest := c.latestRunLocked(householdID, RunWeekly)
	if latest == nil {
		return nil, nil, coreerr.NotFoundf("no weekly recommendations for household %q", householdID)
	}
	return latest.Clone(), cloneWeeklyRecs(c.weeklyRecs[latest.RunID]), nil
}

func (c *Core) latestRunLocked(householdID string, runType RunType) *RecommendationRun {
	var latest *RecommendationRun
	for _, r := range c.runs {
		if r.HouseholdID != householdID || r.RunType != runType {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest
}

// SubmitFeedbackInput is a client-submitted feedback signal tied to a
// recommendation.
type SubmitFeedbackInput struct {
	RecommendationID string
	HouseholdID      string
	SignalType       FeedbackSignalType
	SignalValue      *float64
	Context          string
}

// SubmitFeedback records a feedback signal against a recommendation.
// Cross-household submissions (the recommendation belongs to a different
// household) are reported as not_found, never revealing the recommendation
// exists.
func (c *Core) SubmitFeedback(in SubmitFeedbackInput) (*RecommendationFeedback, error) {
	if in.HouseholdID == "" {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "householdId", Message: "required"})
	}
	if in.RecommendationID == "" {
		return nil, coreerr.Invalid(coreerr.Issue{Path: "recommendationId", Message: "required"})
	}

	lock := c.householdLock(in.HouseholdID)
	lock.Lock()
	defer lock.Unlock()

	owner, ok := c.recHousehold[in.RecommendationID]
	if !ok || owner != in.HouseholdID {
		return nil, coreerr.NotFoundf("recommendation %q not found", in.RecommendationID)
	}

	value := DefaultSignalValue(in.SignalType)
	if in.SignalValue != nil {
		value = *in.SignalValue
	}

	fb := &RecommendationFeedback{
		FeedbackID:       c.idgen.New(ids.KindFeedback),
		RecommendationID: in.RecommendationID,
		HouseholdID:      in.HouseholdID,
		SignalType:       in.SignalType,
		SignalValue:      value,
		Context:          in.Context,
		CreatedAt:        c.clock.Now(),
	}
	c.feedback[in.RecommendationID] = append(c.feedback[in.RecommendationID], fb)
	return fb, nil
}

// recordImplicitFeedbackLocked attaches a system-generated feedback signal
// (e.g. a check-in outcome) to its originating recommendation. Assumes the
// household lock is held. A blank recommendationId (manual check-ins have
// none) is a no-op.
func (c *Core) recordImplicitFeedbackLocked(recommendationID, householdID string, signalType FeedbackSignalType) *RecommendationFeedback {
	if recommendationID == "" {
		return nil
	}
	fb := &RecommendationFeedback{
		FeedbackID:       c.idgen.New(ids.KindFeedback),
		RecommendationID: recommendationID,
		HouseholdID:      householdID,
		SignalType:       signalType,
		SignalValue:      DefaultSignalValue(signalType),
		Context:          "implicit",
		CreatedAt:        c.clock.Now(),
	}
	c.feedback[recommendationID] = append(c.feedback[recommendationID], fb)
	return fb
}
