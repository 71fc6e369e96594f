package core

import (
	"log/slog"
	"sync"
	"time"

	"github.com/antigravity-dev/home-inventory/internal/ids"
	"github.com/antigravity-dev/home-inventory/internal/planner"
)

// Core is THE CORE: one stateful object holding every map the engine
// touches, guarded by a coarse per-household lock plus a separate lock for
// the process-global job queue (spec §5). Construct fresh per test; there
// is no package-level mutable state.
type Core struct {
	clock  ids.Clock
	idgen  ids.Generator
	logger *slog.Logger
	planner planner.Planner

	maxJobAttempts int
	uploadOrigin   string

	// householdLocks serializes every mutating operation scoped to one
	// household; queueMu guards the global FIFO and job index, which can
	// be touched by any household's upload. Lock order: acquire
	// householdLocks[h] before queueMu when both are needed (claim/result
	// paths only ever need queueMu; enqueue needs both, household first).
	locksMu        sync.Mutex
	householdLocks map[string]*sync.Mutex

	queueMu sync.Mutex

	// idemMu guards idempotency, independent of household/queue locks since
	// it is touched from call sites that hold either (or neither).
	idemMu sync.Mutex

	// --- receipts & jobs (§4.1) ---
	uploads map[string]*ReceiptUpload
	jobs    map[string]*ReceiptProcessJob
	queue   []string // FIFO of jobIds currently queued
	deadLetters []*ReceiptProcessJob

	// --- ledger (§4.2, §4.3) ---
	lotsByHousehold map[string][]*InventoryLot
	eventsByHousehold map[string][]*InventoryEvent

	// --- recommendations & feedback (§4.4) ---
	runs map[string]*RecommendationRun
	dailyRecs   map[string][]*DailyMealRecommendation   // runID -> recs
	weeklyRecs  map[string][]*WeeklyPurchaseRecommendation
	recHousehold map[string]string // recommendationId -> householdId (any rec kind)
	recItemKeys  map[string][]string // recommendationId -> itemKeys it covers
	feedback    map[string][]*RecommendationFeedback // recommendationId -> feedback

	// --- check-ins (§4.5) ---
	checkins map[string]*MealCheckin
	pendingCheckinsByHousehold map[string][]string // householdId -> checkinIds

	// --- shopping drafts & price intelligence (§4.6) ---
	drafts map[string]*ShoppingDraft
	latestDraftByWeek map[string]string // householdId|weekOf -> draftId
	priceHistory map[string][]PricePoint // householdId|itemKey -> points

	// --- pantry health (§4.7) ---
	healthHistory map[string][]*PantryHealthScore

	// --- idempotency (§3) ---
	idempotency map[string]any // scope|key -> stored result
}

// Options configures a new Core. Clock, IDGenerator and Planner default to
// production implementations when left nil, letting tests override one at
// a time.
type Options struct {
	Clock          ids.Clock
	IDGenerator    ids.Generator
	Logger         *slog.Logger
	Planner        planner.Planner
	MaxJobAttempts int
	UploadOrigin   string
}

// New constructs a fresh Core. There is no shared package state; every test
// gets its own instance.
func New(opts Options) *Core {
	if opts.Clock == nil {
		opts.Clock = ids.SystemClock{}
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = ids.UUIDGenerator{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Planner == nil {
		opts.Planner = planner.NewHeuristic()
	}
	if opts.MaxJobAttempts <= 0 {
		opts.MaxJobAttempts = 3
	}
	if opts.UploadOrigin == "" {
		opts.UploadOrigin = "http://localhost:8789"
	}

	return &Core{
		clock:          opts.Clock,
		idgen:          opts.IDGenerator,
		logger:         opts.Logger,
		planner:        opts.Planner,
		maxJobAttempts: opts.MaxJobAttempts,
		uploadOrigin:   opts.UploadOrigin,

		householdLocks: make(map[string]*sync.Mutex),

		uploads:     make(map[string]*ReceiptUpload),
		jobs:        make(map[string]*ReceiptProcessJob),
		deadLetters: nil,

		lotsByHousehold:   make(map[string][]*InventoryLot),
		eventsByHousehold: make(map[string][]*InventoryEvent),

		runs:         make(map[string]*RecommendationRun),
		dailyRecs:    make(map[string][]*DailyMealRecommendation),
		weeklyRecs:   make(map[string][]*WeeklyPurchaseRecommendation),
		recHousehold: make(map[string]string),
		recItemKeys:  make(map[string][]string),
		feedback:     make(map[string][]*RecommendationFeedback),

		checkins:                   make(map[string]*MealCheckin),
		pendingCheckinsByHousehold: make(map[string][]string),

		drafts:            make(map[string]*ShoppingDraft),
		latestDraftByWeek: make(map[string]string),
		priceHistory:      make(map[string][]PricePoint),

		healthHistory: make(map[string][]*PantryHealthScore),

		idempotency: make(map[string]any),
	}
}

// Now returns the current time as seen by the core's clock, letting callers
// (e.g. the API layer) default an omitted targetDate consistently with every
// other time-aware operation.
func (c *Core) Now() time.Time { return c.clock.Now() }

// Destroy releases any resources the Core holds. The in-memory Core holds
// none today, but the method exists so a persistent backend (e.g. one
// swapping in internal/sqlitestore) has a symmetric lifecycle hook, per the
// "construct(options), destroy()" design note in spec §9.
func (c *Core) Destroy() {}

// householdLock returns (creating if necessary) the mutex serializing
// operations for householdID.
func (c *Core) householdLock(householdID string) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	mu, ok := c.householdLocks[householdID]
	if !ok {
		mu = &sync.Mutex{}
		c.householdLocks[householdID] = mu
	}
	return mu
}
