package engine

import (
	"math"
	"testing"
)

func TestBinomial_Identities(t *testing.T) {
	if got := binomial(7, 0); got != 1 {
		t.Fatalf("C(7,0)=%v want=1", got)
	}
	if got := binomial(7, 7); got != 1 {
		t.Fatalf("C(7,7)=%v want=1", got)
	}
	if got := binomial(5, 2); got != 10 {
		t.Fatalf("C(5,2)=%v want=10", got)
	}
	for k := 0; k <= 25; k++ {
		if a, b := binomial(25, k), binomial(25, 25-k); math.Abs(a-b) > 1e-9*a {
			t.Fatalf("C(25,%d)=%v C(25,%d)=%v want symmetric", k, a, 25-k, b)
		}
	}
}

func TestMinesConfig_Validate(t *testing.T) {
	ok := MinesConfig{GridSize: 5, MinesCount: 5, HouseEdge: 0.03}
	if err := ok.Validate(); err != nil {
		t.Fatalf("err=%v", err)
	}
	bad := []MinesConfig{
		{GridSize: 5, MinesCount: 0, HouseEdge: 0.03},
		{GridSize: 5, MinesCount: 25, HouseEdge: 0.03},
		{GridSize: 0, MinesCount: 1, HouseEdge: 0.03},
		{GridSize: 5, MinesCount: 5, HouseEdge: 1.0},
	}
	for _, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("cfg=%+v want error", cfg)
		}
	}
}

func TestMinesMultiplier_Baseline(t *testing.T) {
	cfg := MinesConfig{GridSize: 5, MinesCount: 5, HouseEdge: 0.03}
	if got := MinesMultiplier(0, cfg); got != 1.0 {
		t.Fatalf("revealed=0 multiplier=%v want=1.0", got)
	}
}

func TestMinesMultiplier_FirstReveal(t *testing.T) {
	// grid 5x5, 5 mines: P(first safe) = 20/25, multiplier = 0.97/(20/25).
	cfg := MinesConfig{GridSize: 5, MinesCount: 5, HouseEdge: 0.03}
	got := MinesMultiplier(1, cfg)
	want := 0.97 / (20.0 / 25.0)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("multiplier=%v want=%v", got, want)
	}
	if math.Abs(got-1.2125) > 1e-4 {
		t.Fatalf("multiplier=%v want around 1.2125", got)
	}
}

func TestMinesMultiplier_MonotonicAndFair(t *testing.T) {
	for _, mines := range []int{1, 3, 5, 10, 24} {
		cfg := MinesConfig{GridSize: 5, MinesCount: mines, HouseEdge: 0.03}
		safe := 25 - mines
		prev := 1.0
		for revealed := 1; revealed <= safe; revealed++ {
			m := MinesMultiplier(revealed, cfg)
			if m <= 1.0 {
				t.Fatalf("mines=%d revealed=%d multiplier=%v want > 1", mines, revealed, m)
			}
			if m < prev {
				t.Fatalf("mines=%d revealed=%d multiplier=%v < previous %v", mines, revealed, m, prev)
			}
			prev = m

			// multiplier * P(survive) must equal 1 - houseEdge regardless
			// of the mines count.
			p := binomial(safe, revealed) / binomial(25, revealed)
			if got := m * p; math.Abs(got-0.97) > 1e-9 {
				t.Fatalf("mines=%d revealed=%d m*p=%v want=0.97", mines, revealed, got)
			}
		}
	}
}

func TestMinesMultiplier_SaturatesPastSafeTiles(t *testing.T) {
	cfg := MinesConfig{GridSize: 3, MinesCount: 4, HouseEdge: 0.02}
	safe := 9 - 4
	capped := MinesMultiplier(safe, cfg)
	if got := MinesMultiplier(safe+3, cfg); got != capped {
		t.Fatalf("got=%v want cap %v", got, capped)
	}
}

func TestMinesMultiplierTable(t *testing.T) {
	cfg := MinesConfig{GridSize: 5, MinesCount: 5, HouseEdge: 0.03}
	table := MinesMultiplierTable(cfg)
	if len(table) != 20 {
		t.Fatalf("len=%d want=20", len(table))
	}
	for i, m := range table {
		if got := MinesMultiplier(i+1, cfg); got != m {
			t.Fatalf("table[%d]=%v want=%v", i, m, got)
		}
	}
}
