// Package engine holds the pure outcome math: the mines multiplier engine
// and the roulette resolution engine. Nothing in this package performs I/O
// or suspends; invalid configurations are rejected by the callers before
// the engines run.
package engine

import "fmt"

// MinesConfig is the immutable configuration of a mines game.
type MinesConfig struct {
	GridSize   int     `json:"grid_size"`
	MinesCount int     `json:"mines_count"`
	HouseEdge  float64 `json:"house_edge"`
}

func (c MinesConfig) Validate() error {
	if c.GridSize <= 0 {
		return fmt.Errorf("mines: grid size %d must be positive", c.GridSize)
	}
	total := c.GridSize * c.GridSize
	if c.MinesCount <= 0 || c.MinesCount >= total {
		return fmt.Errorf("mines: mines count %d must be in (0,%d)", c.MinesCount, total)
	}
	if c.HouseEdge < 0 || c.HouseEdge >= 1 {
		return fmt.Errorf("mines: house edge %v must be in [0,1)", c.HouseEdge)
	}
	return nil
}

// binomial computes C(n,k) iteratively to avoid factorial overflow,
// multiplying by (n-i+1)/i for i in 1..k with k = min(k, n-k).
func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-i+1) / float64(i)
	}
	return r
}

// MinesMultiplier returns the payout multiplier after revealing revealed
// safe tiles. The multiplier is (1-houseEdge)/P where P is the probability
// of revealing that many tiles without hitting a mine, which keeps the
// expected payout below fair odds by exactly the house edge.
//
// revealed == 0 is the no-op baseline 1.0. revealed beyond the number of
// safe tiles saturates at the all-safe-tiles multiplier; that state only
// arises once a game has already concluded.
func MinesMultiplier(revealed int, cfg MinesConfig) float64 {
	if revealed <= 0 {
		return 1.0
	}
	total := cfg.GridSize * cfg.GridSize
	safe := total - cfg.MinesCount
	if revealed > safe {
		revealed = safe
	}
	p := binomial(safe, revealed) / binomial(total, revealed)
	return (1 - cfg.HouseEdge) / p
}

// MinesMultiplierTable enumerates the multiplier for every reveal count from
// 1 to safeTiles. The table is recomputed when the mines count changes and
// is otherwise immutable for a configuration.
func MinesMultiplierTable(cfg MinesConfig) []float64 {
	safe := cfg.GridSize*cfg.GridSize - cfg.MinesCount
	out := make([]float64, safe)
	for i := 1; i <= safe; i++ {
		out[i-1] = MinesMultiplier(i, cfg)
	}
	return out
}
