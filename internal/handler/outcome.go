package handler

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"casinocore/internal/amount"
	"casinocore/internal/config"
	"casinocore/internal/engine"
)

// OutcomeHandler exposes the pure outcome engines: the mines multiplier
// table for display and dry-run roulette resolution. Nothing here touches
// the ledger.
type OutcomeHandler struct {
	Mines config.MinesConfig
	Chain config.ChainConfig
}

func (h *OutcomeHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.GET("/mines/multipliers", h.minesMultipliers)
	group.POST("/roulette/resolve", h.rouletteResolve)
}

func (h *OutcomeHandler) minesMultipliers(c *gin.Context) {
	mines, err := strconv.Atoi(c.DefaultQuery("mines", "0"))
	if err != nil {
		Error(c, http.StatusBadRequest, "mines must be an integer")
		return
	}
	grid, err := strconv.Atoi(c.DefaultQuery("grid", strconv.Itoa(h.Mines.DefaultGridSize)))
	if err != nil {
		Error(c, http.StatusBadRequest, "grid must be an integer")
		return
	}
	cfg := engine.MinesConfig{GridSize: grid, MinesCount: mines, HouseEdge: h.Mines.HouseEdge}
	if err := cfg.Validate(); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	Ok(c, gin.H{
		"config":      cfg,
		"multipliers": engine.MinesMultiplierTable(cfg),
	})
}

type rouletteBetRequest struct {
	Kind    string `json:"kind"`
	Value   int    `json:"value"`
	Numbers []int  `json:"numbers"`
	Stake   string `json:"stake"`
}

type rouletteResolveRequest struct {
	WinningNumber int                  `json:"winning_number"`
	Bets          []rouletteBetRequest `json:"bets"`
}

type betResultView struct {
	Kind string `json:"kind"`
	// Value stays in the payload even at zero: black, even, low and a
	// number bet on 0 are all legal zero selections.
	Value   int    `json:"value"`
	Numbers []int  `json:"numbers,omitempty"`
	Stake   string `json:"stake"`
	Payout  string `json:"payout"`
}

func (h *OutcomeHandler) rouletteResolve(c *gin.Context) {
	var req rouletteResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	if len(req.Bets) == 0 {
		Error(c, http.StatusBadRequest, "at least one bet required")
		return
	}
	decimals := h.Chain.CoinDecimals
	bets := make([]engine.PlacedBet, 0, len(req.Bets))
	for _, b := range req.Bets {
		stake, err := amount.ToBase(b.Stake, decimals)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid stake "+b.Stake)
			return
		}
		bets = append(bets, engine.PlacedBet{
			Kind:      engine.BetKind(b.Kind),
			Value:     b.Value,
			Numbers:   b.Numbers,
			StakeBase: stake,
		})
	}
	res, err := engine.ResolveRoulette(req.WinningNumber, bets)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	Ok(c, h.resolutionView(res))
}

func (h *OutcomeHandler) resolutionView(res *engine.Resolution) gin.H {
	decimals := h.Chain.CoinDecimals
	precision := h.Chain.DisplayPrecision
	view := func(results []engine.BetResult) []betResultView {
		out := make([]betResultView, 0, len(results))
		for _, r := range results {
			out = append(out, betResultView{
				Kind:    string(r.Bet.Kind),
				Value:   r.Bet.Value,
				Numbers: r.Bet.Numbers,
				Stake:   amount.ToDisplayTrunc(r.Bet.StakeBase, decimals, precision),
				Payout:  amount.ToDisplayTrunc(r.PayoutBase, decimals, precision),
			})
		}
		return out
	}
	net := new(big.Int).Sub(res.TotalPayoutBase, res.TotalStakedBase)
	return gin.H{
		"winning_number": res.WinningNumber,
		"total_staked":   amount.ToDisplayTrunc(res.TotalStakedBase, decimals, precision),
		"total_payout":   amount.ToDisplayTrunc(res.TotalPayoutBase, decimals, precision),
		"net":            net.String(),
		"winning":        view(res.Winning),
		"losing":         view(res.Losing),
	}
}
