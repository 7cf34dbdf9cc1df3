package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"casinocore/internal/amount"
	"casinocore/internal/config"
	"casinocore/internal/engine"
	"casinocore/internal/entropy"
	"casinocore/internal/history"
	"casinocore/internal/ledger"
	"casinocore/internal/models"
	"casinocore/internal/service"
	"casinocore/internal/settlement"
)

// SettlementHandler is the settlement-facing API: wallet session, play
// settlement, reconciled history, and balances.
type SettlementHandler struct {
	Play   *service.PlayService
	Store  *history.Store
	Ledger *ledger.Client
	Chain  config.ChainConfig
	Mines  config.MinesConfig

	ExplorerBaseURL string
	Logger          *zap.Logger
}

func (h *SettlementHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.POST("/wallet/connect", h.connectWallet)
	group.POST("/wallet/disconnect", h.disconnectWallet)
	group.POST("/settlements/mines", h.settleMines)
	group.POST("/settlements/roulette", h.settleRoulette)
	group.GET("/settlements", h.listSettlements)
	group.GET("/balance", h.balance)
}

type connectRequest struct {
	Address string `json:"address"`
}

func (h *SettlementHandler) connectWallet(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.Ledger.Connect(req.Address); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	Ok(c, gin.H{"address": req.Address})
}

func (h *SettlementHandler) disconnectWallet(c *gin.Context) {
	h.Ledger.Disconnect()
	Ok(c, nil)
}

type minesSettleRequest struct {
	Bet           string `json:"bet"`
	GridSize      int    `json:"grid_size"`
	MinesCount    int    `json:"mines_count"`
	RevealedCount int    `json:"revealed_count"`
	RevealedTiles []int  `json:"revealed_tiles"`
	HitMine       bool   `json:"hit_mine"`
	EntropyValue  string `json:"entropy_value"`
	EntropyRef    string `json:"entropy_ref"`
}

func (h *SettlementHandler) settleMines(c *gin.Context) {
	var req minesSettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	if !h.Ledger.Connected() {
		Error(c, http.StatusPreconditionFailed, "wallet not connected")
		return
	}
	bet, err := amount.ToBase(req.Bet, h.Chain.CoinDecimals)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid bet amount")
		return
	}
	grid := req.GridSize
	if grid == 0 {
		grid = h.Mines.DefaultGridSize
	}
	play := service.MinesPlay{
		Player:        h.Ledger.Address(),
		BetBase:       bet,
		Config:        engine.MinesConfig{GridSize: grid, MinesCount: req.MinesCount, HouseEdge: h.Mines.HouseEdge},
		RevealedCount: req.RevealedCount,
		RevealedTiles: req.RevealedTiles,
		HitMine:       req.HitMine,
		Draw:          entropy.Draw{RandomValue: req.EntropyValue, ProofReference: req.EntropyRef},
	}
	rec, err := h.Play.SettleMines(c.Request.Context(), play)
	if err != nil {
		h.settleError(c, err)
		return
	}
	Ok(c, h.recordView(rec))
}

type rouletteSettleRequest struct {
	WinningNumber int                  `json:"winning_number"`
	Bets          []rouletteBetRequest `json:"bets"`
	EntropyValue  string               `json:"entropy_value"`
	EntropyRef    string               `json:"entropy_ref"`
}

func (h *SettlementHandler) settleRoulette(c *gin.Context) {
	var req rouletteSettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body")
		return
	}
	if !h.Ledger.Connected() {
		Error(c, http.StatusPreconditionFailed, "wallet not connected")
		return
	}
	bets := make([]engine.PlacedBet, 0, len(req.Bets))
	for _, b := range req.Bets {
		stake, err := amount.ToBase(b.Stake, h.Chain.CoinDecimals)
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
	play := service.RoulettePlay{
		Player:        h.Ledger.Address(),
		WinningNumber: req.WinningNumber,
		Bets:          bets,
		Draw:          entropy.Draw{RandomValue: req.EntropyValue, ProofReference: req.EntropyRef},
	}
	rec, res, err := h.Play.SettleRoulette(c.Request.Context(), play)
	if err != nil {
		h.settleError(c, err)
		return
	}
	Ok(c, gin.H{
		"record":     h.recordView(rec),
		"resolution": gin.H{"winning": len(res.Winning), "losing": len(res.Losing)},
	})
}

func (h *SettlementHandler) listSettlements(c *gin.Context) {
	records := h.Store.Snapshot()
	out := make([]gin.H, 0, len(records))
	for _, rec := range records {
		out = append(out, h.recordView(rec))
	}
	Ok(c, out)
}

func (h *SettlementHandler) balance(c *gin.Context) {
	addr := h.Ledger.Address()
	if addr == "" {
		Error(c, http.StatusPreconditionFailed, "wallet not connected")
		return
	}
	bal, err := h.Ledger.GetCoinBalance(c.Request.Context(), addr)
	if err != nil {
		h.settleError(c, err)
		return
	}
	Ok(c, gin.H{
		"address":      addr,
		"balance_base": bal.String(),
		"balance":      amount.ToDisplayTrunc(bal, h.Chain.CoinDecimals, h.Chain.DisplayPrecision),
	})
}

// settleError maps the error taxonomy onto HTTP statuses. Submission
// rejections and timeouts reach the caller intact so the provisional
// balance adjustment can be compensated.
func (h *SettlementHandler) settleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrWalletNotConnected):
		Error(c, http.StatusPreconditionFailed, "wallet not connected")
	case errors.Is(err, settlement.ErrConfirmationTimeout):
		Error(c, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, settlement.ErrSubmitInFlight):
		Error(c, http.StatusConflict, err.Error())
	default:
		var se *settlement.SubmissionError
		if errors.As(err, &se) {
			Error(c, http.StatusUnprocessableEntity, se.Error())
			return
		}
		if ledger.IsTransient(err) {
			Error(c, http.StatusBadGateway, err.Error())
			return
		}
		Error(c, http.StatusBadRequest, err.Error())
	}
	if h.Logger != nil {
		h.Logger.Warn("settlement request failed", zap.Error(err))
	}
}

func (h *SettlementHandler) recordView(rec *models.SettlementRecord) gin.H {
	decimals := h.Chain.CoinDecimals
	precision := h.Chain.DisplayPrecision
	view := gin.H{
		"id":        rec.ID,
		"game_type": rec.GameType,
		"player":    rec.PlayerAddress,
		"bet":       amount.ToDisplayTrunc(rec.BetAmountBase, decimals, precision),
		"payout":    amount.ToDisplayTrunc(rec.PayoutAmountBase, decimals, precision),
		"net_base":  rec.NetProfitBase().String(),
		"timestamp": rec.TimestampMillis,
		"status":    rec.Status,
	}
	if rec.LedgerTxID != "" {
		view["tx_id"] = rec.LedgerTxID
		view["explorer_url"] = ledger.ExplorerURL(h.ExplorerBaseURL, rec.LedgerTxID)
	}
	return view
}
