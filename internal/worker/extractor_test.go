package worker

import (
	"context"
	"testing"

	"github.com/antigravity-dev/home-inventory/internal/core"
)

func TestHeuristicExtractorParsesLineItems(t *testing.T) {
	upload := &core.ReceiptUpload{
		ReceiptUploadID: "ru-1",
		HouseholdID:     "hh-1",
		MerchantName:    "Corner Store",
		OCRText: "Whole Milk 2 l $4.50\n" +
			"Chicken Breast 1.5 kg $9.00\n" +
			"not a line item at all\n",
	}

	extractor := NewHeuristicExtractor()
	result, err := extractor.Extract(context.Background(), upload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 parsed items, got %d: %+v", len(result.Items), result.Items)
	}

	milk := result.Items[0]
	if milk.Unit != core.UnitLiter {
		t.Errorf("expected liter unit, got %s", milk.Unit)
	}
	if milk.Category != core.CategoryDairy {
		t.Errorf("expected dairy category, got %s", milk.Category)
	}
	if milk.UnitPrice == nil || *milk.UnitPrice != 4.50 {
		t.Errorf("expected unit price 4.50, got %v", milk.UnitPrice)
	}

	chicken := result.Items[1]
	if chicken.Unit != core.UnitKg {
		t.Errorf("expected kg unit, got %s", chicken.Unit)
	}
	if chicken.Category != core.CategoryProtein {
		t.Errorf("expected protein category, got %s", chicken.Category)
	}
	if result.MerchantName != "Corner Store" {
		t.Errorf("expected merchant name passthrough, got %s", result.MerchantName)
	}
}

func TestHeuristicExtractorSkipsEmptyAndUnmatchedLines(t *testing.T) {
	upload := &core.ReceiptUpload{OCRText: "\n   \nrandom text without a quantity\n"}
	extractor := NewHeuristicExtractor()
	result, err := extractor.Extract(context.Background(), upload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 0 {
		t.Errorf("expected 0 items from unmatched lines, got %d", len(result.Items))
	}
}

func TestCategorizeFallsBackToOther(t *testing.T) {
	if got := categorize("mystery widget"); got != core.CategoryOther {
		t.Errorf("expected category other for an unrecognized name, got %s", got)
	}
}

func TestNormalizeUnitDefaultsToCount(t *testing.T) {
	if got := normalizeUnit(""); got != core.UnitCount {
		t.Errorf("expected count for an empty unit string, got %s", got)
	}
	if got := normalizeUnit("KG"); got != core.UnitKg {
		t.Errorf("expected case-insensitive kg match, got %s", got)
	}
}

func TestLLMExtractorFallsBackWhenUnconfigured(t *testing.T) {
	fallback := NewHeuristicExtractor()
	extractor := NewLLMExtractor(LLMExtractorConfig{}, fallback)

	upload := &core.ReceiptUpload{OCRText: "Bananas 3 count $1.20"}
	result, err := extractor.Extract(context.Background(), upload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected the fallback heuristic to parse 1 item, got %d", len(result.Items))
	}
}
