package board

import (
	"encoding/json"
	"testing"
)

func TestRingDistance(t *testing.T) {
	tests := []struct {
		from, to, want int
	}{
		{0, 0, 0},
		{0, 5, 5},
		{5, 0, 46},
		{50, 0, 1},
		{49, 11, 13},
		{26, 24, 49},
	}
	for _, tt := range tests {
		if got := RingDistance(tt.from, tt.to); got != tt.want {
			t.Errorf("RingDistance(%d, %d) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSafeCells(t *testing.T) {
	safe := SafeCells()
	if len(safe) != 8 {
		t.Fatalf("expected 8 safe cells, got %d", len(safe))
	}
	for _, c := range Colors {
		if !IsSafeCell(EntryCell(c)) {
			t.Errorf("entry cell of %s should be safe", c)
		}
	}
	if IsSafeCell(10) {
		t.Error("ring index 10 should not be safe")
	}
}

func TestRingCellsAreUnique(t *testing.T) {
	seen := make(map[Cell]int)
	for i := 0; i < RingLength; i++ {
		c := RingCell(i)
		if prev, ok := seen[c]; ok {
			t.Fatalf("ring cells %d and %d share coordinate %+v", prev, i, c)
		}
		if c.Row < 0 || c.Row >= GridSize || c.Col < 0 || c.Col >= GridSize {
			t.Fatalf("ring cell %d out of grid: %+v", i, c)
		}
		seen[c] = i
	}
}

func TestHomeEntryPrecedesEntry(t *testing.T) {
	// each color's home-entry cell is the ring cell just before its own lap completes
	for _, c := range Colors {
		if d := RingDistance(EntryCell(c), HomeEntryCell(c)); d != RingLength-1 && d != RingLength-2 {
			t.Errorf("%s: unexpected entry to home-entry distance %d", c, d)
		}
	}
}

func TestHomeColumnCell(t *testing.T) {
	if got := HomeColumnCell(Red, FinishedIndex); got != Center {
		t.Errorf("finished index should map to center, got %+v", got)
	}
	if got := HomeColumnCell(Blue, 0); got != (Cell{13, 7}) {
		t.Errorf("unexpected blue home cell %+v", got)
	}
}

func TestColorText(t *testing.T) {
	data, err := json.Marshal(map[string]Color{"c": Yellow})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"c":"yellow"}` {
		t.Errorf("unexpected encoding %s", data)
	}

	var decoded map[string]Color
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["c"] != Yellow {
		t.Errorf("expected yellow, got %s", decoded["c"])
	}
	if _, ok := ParseColor("purple"); ok {
		t.Error("purple should not parse")
	}
	if err := json.Unmarshal([]byte(`{"c":"purple"}`), &decoded); err == nil {
		t.Error("unknown color names should fail to decode")
	}
	var none Color
	if err := none.UnmarshalText([]byte("none")); err != nil || none != NoColor {
		t.Errorf("none should decode to NoColor, got %v, %v", none, err)
	}
	if NoColor.Valid() || NoColor.String() != "none" {
		t.Error("NoColor should be invalid and named none")
	}
}
