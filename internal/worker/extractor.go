package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/antigravity-dev/home-inventory/internal/core"
)

// ExtractResult is the parsed output of a receipt extraction.
type ExtractResult struct {
	Items        []core.ReceiptItem
	MerchantName string
	PurchasedAt  *time.Time
}

// Extractor turns a receipt upload's raw OCR text into structured line
// items. Unlike the planner, an Extractor failure is not hidden: the
// poller reports it via FailJob so the job retries or dead-letters (spec
// §7 "extractor_failure").
type Extractor interface {
	Extract(ctx context.Context, upload *core.ReceiptUpload) (ExtractResult, error)
}

// lineItemPattern matches "<name> <qty><unit> $<price>" style OCR lines,
// the common shape once a receipt line has been de-hyphenated by OCR.
var lineItemPattern = regexp.MustCompile(`(?i)^(.+?)\s+([\d.]+)\s*(kg|g|l|ml|oz|lb|count|pack|box|bottle)?\s*\$?([\d.]+)?$`)

var categoryKeywords = map[core.ItemCategory][]string{
	core.CategoryProtein:   {"chicken", "beef", "pork", "fish", "egg", "tofu"},
	core.CategoryProduce:   {"apple", "banana", "tomato", "lettuce", "onion", "carrot", "potato"},
	core.CategoryDairy:     {"milk", "cheese", "yogurt", "butter", "cream"},
	core.CategoryFrozen:    {"frozen"},
	core.CategoryGrain:     {"rice", "pasta", "bread", "cereal", "flour", "oat"},
	core.CategorySnack:     {"chips", "cookie", "cracker", "candy"},
	core.CategoryBeverage:  {"juice", "soda", "water", "coffee", "tea"},
	core.CategoryCondiment: {"sauce", "ketchup", "mustard", "mayo", "dressing"},
	core.CategoryHousehold: {"soap", "detergent", "paper towel", "tissue"},
}

func categorize(name string) core.ItemCategory {
	lower := strings.ToLower(name)
	for category, keywords := range categoryKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return category
			}
		}
	}
	return core.CategoryOther
}

func normalizeUnit(raw string) core.Unit {
	switch strings.ToLower(raw) {
	case "kg":
		return core.UnitKg
	case "g":
		return core.UnitGram
	case "l":
		return core.UnitLiter
	case "ml":
		return core.UnitMl
	case "oz":
		return core.UnitOz
	case "lb":
		return core.UnitLb
	case "pack":
		return core.UnitPack
	case "box":
		return core.UnitBox
	case "bottle":
		return core.UnitBottle
	default:
		return core.UnitCount
	}
}

func itemKeyFor(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = regexp.MustCompile(`[^a-z0-9]+`).ReplaceAllString(key, "_")
	return strings.Trim(key, "_")
}

// HeuristicExtractor line-parses OCR text without any external dependency.
// It is the always-available fallback, mirroring planner.Heuristic's role
// for recommendations.
type HeuristicExtractor struct{}

func NewHeuristicExtractor() *HeuristicExtractor { return &HeuristicExtractor{} }

func (h *HeuristicExtractor) Extract(_ context.Context, upload *core.ReceiptUpload) (ExtractResult, error) {
	var items []core.ReceiptItem
	for _, line := range strings.Split(upload.OCRText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := lineItemPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		qty, err := strconv.ParseFloat(m[2], 64)
		if err != nil || qty <= 0 {
			continue
		}
		var unitPrice *float64
		if m[4] != "" {
			if p, err := strconv.ParseFloat(m[4], 64); err == nil {
				unitPrice = &p
			}
		}
		items = append(items, core.ReceiptItem{
			ItemKey:        itemKeyFor(name),
			RawName:        line,
			NormalizedName: strings.Title(strings.ToLower(name)),
			Quantity:       qty,
			Unit:           normalizeUnit(m[3]),
			Category:       categorize(name),
			UnitPrice:      unitPrice,
		})
	}
	return ExtractResult{Items: items, MerchantName: upload.MerchantName, PurchasedAt: upload.PurchasedAt}, nil
}

// LLMExtractorConfig configures the external extraction provider.
type LLMExtractorConfig struct {
	Provider          string
	BaseURL           string
	Model             string
	APIKey            string
	OpenRouterSiteURL string
	OpenRouterAppName string
	Timeout           time.Duration
}

// LLMExtractor delegates extraction to an external provider, falling back
// to fallback only when the provider is unconfigured; a configured provider
// that errors returns the error so the caller can retry/dead-letter the job
// rather than silently degrading extraction quality.
type LLMExtractor struct {
	cfg      LLMExtractorConfig
	client   *http.Client
	fallback Extractor
}

func NewLLMExtractor(cfg LLMExtractorConfig, fallback Extractor) *LLMExtractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	return &LLMExtractor{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, fallback: fallback}
}

type rawExtractResponse struct {
	Items []struct {
		Name      string  `json:"name"`
		Quantity  float64 `json:"quantity"`
		Unit      string  `json:"unit"`
		UnitPrice float64 `json:"unitPrice"`
	} `json:"items"`
	MerchantName string `json:"merchantName"`
}

func (l *LLMExtractor) Extract(ctx context.Context, upload *core.ReceiptUpload) (ExtractResult, error) {
	if l.cfg.BaseURL == "" {
		return l.fallback.Extract(ctx, upload)
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]any{
		"ocr_text":                upload.OCRText,
		"receipt_image_data_url": upload.ReceiptImageDataURL,
		"model":                  l.cfg.Model,
	})
	if err != nil {
		return ExtractResult{}, fmt.Errorf("marshal extraction request: %w", err)
	}

	endpoint := strings.TrimRight(l.cfg.BaseURL, "/") + "/extract"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return ExtractResult{}, fmt.Errorf("build extraction request: %w", err)
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
		return ExtractResult{}, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return ExtractResult{}, fmt.Errorf("extraction request status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed rawExtractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ExtractResult{}, fmt.Errorf("decode extraction response: %w", err)
	}

	items := make([]core.ReceiptItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if strings.TrimSpace(it.Name) == "" || it.Quantity <= 0 {
			continue
		}
		price := it.UnitPrice
		items = append(items, core.ReceiptItem{
			ItemKey:        itemKeyFor(it.Name),
			RawName:        it.Name,
			NormalizedName: it.Name,
			Quantity:       it.Quantity,
			Unit:           normalizeUnit(it.Unit),
			Category:       categorize(it.Name),
			UnitPrice:      &price,
		})
	}
	return ExtractResult{Items: items, MerchantName: parsed.MerchantName, PurchasedAt: upload.PurchasedAt}, nil
}
