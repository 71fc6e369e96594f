package ids

import (
	"strings"
	"testing"
	"time"
)

func TestSequentialGenerator_PerKindCounters(t *testing.T) {
	g := NewSequentialGenerator()

	first := g.New(KindLot)
	second := g.New(KindLot)
	other := g.New(KindEvent)

	if first == second {
		t.Fatalf("expected distinct ids, got %q twice", first)
	}
	if !strings.HasPrefix(first, "lot_") || !strings.HasPrefix(second, "lot_") {
		t.Fatalf("expected lot_ prefix, got %q and %q", first, second)
	}
	if !strings.HasPrefix(other, "event_") {
		t.Fatalf("expected event_ prefix, got %q", other)
	}
}

func TestUUIDGenerator_PrefixAndLength(t *testing.T) {
	g := UUIDGenerator{}
	id := g.New(KindReceiptUpload)
	if !strings.HasPrefix(id, "receipt_") {
		t.Fatalf("expected receipt_ prefix, got %q", id)
	}
	if len(id) > maxIDLength {
		t.Fatalf("id exceeds max length: %d", len(id))
	}
}

func TestFrozenClock_AdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	c := NewFrozenClock(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	advanced := c.Advance(15 * time.Minute)
	want := start.Add(15 * time.Minute)
	if !advanced.Equal(want) || !c.Now().Equal(want) {
		t.Fatalf("Advance() = %v, want %v", advanced, want)
	}

	reset := start.Add(24 * time.Hour)
	c.Set(reset)
	if !c.Now().Equal(reset) {
		t.Fatalf("Set() did not pin clock: got %v, want %v", c.Now(), reset)
	}
}
