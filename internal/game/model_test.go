package game

import "testing"

func TestValidateUsername(t *testing.T) {
	valid := []string{"al", "priya_23", "  spaced out  "}
	for _, name := range valid {
		if err := ValidateUsername(name); err != nil {
			t.Fatalf("expected username %q to be valid: %v", name, err)
		}
	}

	invalid := []string{"", " ", "x", string(make([]byte, 60))}
	for _, name := range invalid {
		if err := ValidateUsername(name); err == nil {
			t.Fatalf("expected username %q to fail", name)
		}
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 10.006, want: 10.01},
		{in: 10.004, want: 10.0},
		{in: 99.999, want: 100.0},
		{in: 0, want: 0},
	}
	for _, tc := range tests {
		if got := round2(tc.in); got != tc.want {
			t.Fatalf("round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNextPurchasePriceHike(t *testing.T) {
	// Plenty of stock left: a 2% hike, rounded to cents.
	got := nextPurchasePrice(100.00, 80.00, 7)
	if got != 102.00 {
		t.Fatalf("got %v want 102.00", got)
	}

	got = nextPurchasePrice(33.33, 20.00, 5)
	if got != 34.00 {
		t.Fatalf("got %v want 34.00", got)
	}
}

func TestNextPurchasePriceFireSale(t *testing.T) {
	// At or below the low-stock threshold the price snaps to base.
	for _, remaining := range []int{3, 2, 1} {
		got := nextPurchasePrice(250.00, 180.00, remaining)
		if got != 180.00 {
			t.Fatalf("remaining=%d got=%v want 180.00", remaining, got)
		}
	}

	// Selling out entirely is not a fire sale.
	got := nextPurchasePrice(250.00, 180.00, 0)
	if got != 255.00 {
		t.Fatalf("remaining=0 got=%v want 255.00", got)
	}
}

func TestDecayedPrice(t *testing.T) {
	got, changed := decayedPrice(100.00, 80.00)
	if !changed || got != 98.00 {
		t.Fatalf("got=%v changed=%v, want 98.00 true", got, changed)
	}

	// Decay clamps at half the base price.
	got, changed = decayedPrice(40.50, 80.00)
	if !changed || got != 40.00 {
		t.Fatalf("got=%v changed=%v, want 40.00 true", got, changed)
	}

	// Already at the floor: nothing to do.
	got, changed = decayedPrice(40.00, 80.00)
	if changed {
		t.Fatalf("expected no change at floor, got %v", got)
	}
}

func TestRestockPrice(t *testing.T) {
	if got := restockPrice(100.00, DefaultRestockPenalty); got != 120.00 {
		t.Fatalf("got %v want 120.00", got)
	}
	if got := restockPrice(50.00, 1.5); got != 75.00 {
		t.Fatalf("got %v want 75.00", got)
	}
}

func TestResetPrice(t *testing.T) {
	if got := resetPrice(180.00); got != 360.00 {
		t.Fatalf("got %v want 360.00", got)
	}
	if got := resetPrice(42.555); got != 85.11 {
		t.Fatalf("got %v want 85.11", got)
	}
}
