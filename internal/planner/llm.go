package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// llmRateLimit bounds outbound planner calls to a single external provider,
// independent of how many households are generating runs concurrently.
const llmRateLimit = 2 // requests per second

// DefaultTimeout is the spec §4.4/§5 default deadline for an external
// planner call.
const DefaultTimeout = 25 * time.Second

// LLMConfig configures the external LLM-backed planner.
type LLMConfig struct {
	Provider          string
	BaseURL           string
	Model             string
	RequestMode       string // "responses" | "chat_completions"
	APIKey            string
	OpenRouterSiteURL string
	OpenRouterAppName string
	Timeout           time.Duration
}

// LLM is the optional external planner adapter (spec §4.4 "External LLM").
// On any failure — network error, timeout, malformed JSON, schema mismatch
// — it silently falls back to Fallback, never propagating the failure to
// the caller (spec §7: "Planner failures never surface to API callers").
type LLM struct {
	cfg      LLMConfig
	client   *http.Client
	limiter  *rate.Limiter
	fallback Planner
	logger   *slog.Logger
}

// NewLLM constructs an LLM planner wrapping fallback.
func NewLLM(cfg LLMConfig, fallback Planner, logger *slog.Logger) *LLM {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(llmRateLimit), llmRateLimit),
		fallback: fallback,
		logger:   logger,
	}
}

func (l *LLM) Name() string { return "llm:" + l.cfg.Provider }

// rawPlanResponse is the JSON schema enforced on the provider's reply.
type rawPlanResponse struct {
	Meals []struct {
		Title    string   `json:"title"`
		ItemKeys []string `json:"itemKeys"`
		Score    float64  `json:"score"`
	} `json:"meals,omitempty"`
	Items []struct {
		ItemKey  string  `json:"itemKey"`
		ItemName string  `json:"itemName"`
		Quantity float64 `json:"quantity"`
		Unit     string  `json:"unit"`
		Priority string  `json:"priority"`
		Score    float64 `json:"score"`
	} `json:"items,omitempty"`
}

func (l *LLM) GenerateDaily(ctx context.Context, in Input) (DailyOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	resp, err := l.call(ctx, "daily", in)
	if err != nil {
		l.logger.Warn("llm planner failed, falling back to heuristic", "provider", l.cfg.Provider, "error", err, "run_type", "daily")
		return l.fallback.GenerateDaily(ctx, in)
	}

	meals := make([]DailyMeal, 0, len(resp.Meals))
	for _, m := range resp.Meals {
		itemKeys := filterEmpty(m.ItemKeys)
		if len(itemKeys) == 0 {
			continue
		}
		meals = append(meals, DailyMeal{
			Title:    m.Title,
			ItemKeys: itemKeys,
			Score:    clamp01(m.Score),
		})
	}
	return DailyOutput{Model: l.cfg.Model, Meals: meals}, nil
}

func (l *LLM) GenerateWeekly(ctx context.Context, in Input) (WeeklyOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	resp, err := l.call(ctx, "weekly", in)
	if err != nil {
		l.logger.Warn("llm planner failed, falling back to heuristic", "provider", l.cfg.Provider, "error", err, "run_type", "weekly")
		return l.fallback.GenerateWeekly(ctx, in)
	}

	items := make([]WeeklyItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		if strings.TrimSpace(it.ItemKey) == "" {
			continue
		}
		unit := it.Unit
		if !isKnownUnit(unit) {
			unit = "count"
		}
		priority := strings.ToLower(it.Priority)
		if priority != "high" && priority != "medium" && priority != "low" {
			priority = "medium"
		}
		items = append(items, WeeklyItem{
			ItemKey:  it.ItemKey,
			ItemName: it.ItemName,
			Quantity: it.Quantity,
			Unit:     unit,
			Priority: priority,
			Score:    clamp01(it.Score),
		})
	}
	return WeeklyOutput{Model: l.cfg.Model, Items: items}, nil
}

// call builds the outbound request, enforces a JSON-schema response, and
// returns the parsed payload. Any failure here triggers the caller's
// heuristic fallback.
func (l *LLM) call(ctx context.Context, runType string, in Input) (*rawPlanResponse, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("planner rate limit wait: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"run_type":         runType,
		"household_id":     in.HouseholdID,
		"target_date":      in.TargetDate,
		"inventory":        in.Inventory,
		"feedback_by_item": in.FeedbackByItem,
		"model":            l.cfg.Model,
		"request_mode":     l.cfg.RequestMode,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal planner request: %w", err)
	}

	endpoint := strings.TrimRight(l.cfg.BaseURL, "/") + "/plan"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build planner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)
	}
	if l.cfg.Provider == "openrouter" {
		if l.cfg.OpenRouterSiteURL != "" {
			req.Header.Set("HTTP-Referer", l.cfg.OpenRouterSiteURL)
		}
		if l.cfg.OpenRouterAppName != "" {
			req.Header.Set("X-Title", l.cfg.OpenRouterAppName)
		}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("planner request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		out, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("planner request status %d: %s", resp.StatusCode, string(out))
	}

	var parsed rawPlanResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode planner response: %w", err)
	}
	return &parsed, nil
}

func filterEmpty(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k) != "" {
			out = append(out, k)
		}
	}
	return out
}

func isKnownUnit(unit string) bool {
	switch unit {
	case "count", "g", "kg", "ml", "l", "oz", "lb", "pack", "box", "bottle":
		return true
	default:
		return false
	}
}

var _ Planner = (*LLM)(nil)
