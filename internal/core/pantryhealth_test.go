package core

import "testing"

func TestComputePantryHealth_EmptyHouseholdDefaults(t *testing.T) {
	c := newTestCore(t)
	score, err := c.ComputePantryHealth("hh1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	want := PantryHealthSubscores{
		StockBalance:  30,
		ExpiryRisk:    100,
		WastePressure: 70,
		PlanAdherence: 60,
		DataQuality:   35,
	}
	if score.Subscores != want {
		t.Fatalf("subscores = %+v, want %+v", score.Subscores, want)
	}
	if score.Score != 62 {
		t.Fatalf("composite score = %v, want 62", score.Score)
	}
}

func TestComputePantryHealth_StockBalanceWeighsLowStockAndCoverage(t *testing.T) {
	c := newTestCore(t)
	seedLot(t, c, "hh1", "rice", 0.5, UnitKg, CategoryGrain)
	seedLot(t, c, "hh1", "tomato", 6, UnitCount, CategoryProduce)

	score, err := c.ComputePantryHealth("hh1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// coverage: 2/6 categories -> 33.333; minus 35*(1 low-stock lot / 2 lots) = 17.5
	want := 15.833
	if score.Subscores.StockBalance != want {
		t.Fatalf("stockBalance = %v, want %v", score.Subscores.StockBalance, want)
	}
}

func TestPantryHealthHistory_CapsAtMax(t *testing.T) {
	c := newTestCore(t)
	for i := 0; i < maxHealthHistoryPerHousehold+10; i++ {
		if _, err := c.ComputePantryHealth("hh1"); err != nil {
			t.Fatalf("compute iteration %d: %v", i, err)
		}
	}

	hist := c.PantryHealthHistory("hh1")
	if len(hist) != maxHealthHistoryPerHousehold {
		t.Fatalf("history length = %d, want %d", len(hist), maxHealthHistoryPerHousehold)
	}
}

func TestPantryHealthHistory_ReturnsDefensiveCopies(t *testing.T) {
	c := newTestCore(t)
	if _, err := c.ComputePantryHealth("hh1"); err != nil {
		t.Fatalf("compute: %v", err)
	}

	hist := c.PantryHealthHistory("hh1")
	hist[0].Score = -1

	again := c.PantryHealthHistory("hh1")
	if again[0].Score == -1 {
		t.Fatalf("mutating a returned score corrupted the core's live state")
	}
}
