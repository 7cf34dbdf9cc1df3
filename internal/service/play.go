// Package service orchestrates plays end to end: outcome computation,
// record creation, ledger submission, background confirmation, and the
// periodic history refresh feeding the reconciliation store.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"casinocore/internal/engine"
	"casinocore/internal/entropy"
	"casinocore/internal/history"
	"casinocore/internal/models"
	"casinocore/internal/settlement"
)

// PlayService turns computed outcomes into submitted settlement records.
// Confirmation runs in the background so the caller is never blocked on
// ledger finality; the record's status is visible through the store.
type PlayService struct {
	Settlement *settlement.Client
	Store      *history.Store
	Logger     *zap.Logger

	// BaseCtx bounds background confirmation polls; they must survive the
	// request context but die with the process.
	BaseCtx context.Context
}

// MinesPlay describes a concluded mines game to settle. RevealedCount is
// the number of tiles safely revealed before cashing out or hitting a
// mine.
type MinesPlay struct {
	Player        string
	BetBase       *big.Int
	Config        engine.MinesConfig
	RevealedCount int
	RevealedTiles []int
	HitMine       bool
	Draw          entropy.Draw
}

type minesResult struct {
	Multiplier    float64 `json:"multiplier"`
	RevealedCount int     `json:"revealed_count"`
	RevealedTiles []int   `json:"revealed_tiles,omitempty"`
	HitMine       bool    `json:"hit_mine"`
	Win           bool    `json:"win"`
}

// SettleMines computes the payout for a concluded mines game and submits
// the settlement. A failed submission leaves the returned record PENDING
// or FAILED; the caller owns reversing any optimistic balance change.
func (s *PlayService) SettleMines(ctx context.Context, play MinesPlay) (*models.SettlementRecord, error) {
	if err := play.Config.Validate(); err != nil {
		return nil, err
	}
	if play.BetBase == nil || play.BetBase.Sign() <= 0 {
		return nil, fmt.Errorf("service: bet must be positive")
	}
	if play.RevealedCount < 0 {
		return nil, fmt.Errorf("service: revealed count must be non-negative")
	}

	multiplier := engine.MinesMultiplier(play.RevealedCount, play.Config)
	payout := new(big.Int)
	win := !play.HitMine && play.RevealedCount > 0
	if win {
		payout = engine.PayoutBase(play.BetBase, multiplier)
	}

	rec := models.NewSettlementRecord(models.GameMines, play.Player, play.BetBase, payout, time.Now().UnixMilli())
	rec.GameConfig, _ = json.Marshal(play.Config)
	rec.ResultData, _ = json.Marshal(minesResult{
		Multiplier:    multiplier,
		RevealedCount: play.RevealedCount,
		RevealedTiles: play.RevealedTiles,
		HitMine:       play.HitMine,
		Win:           win,
	})
	rec.EntropyValue = play.Draw.RandomValue
	rec.EntropyReference = play.Draw.ProofReference

	return rec, s.submitAndTrack(ctx, rec)
}

// RoulettePlay describes one spin with all simultaneously placed bets.
type RoulettePlay struct {
	Player        string
	WinningNumber int
	Bets          []engine.PlacedBet
	Draw          entropy.Draw
}

// rouletteConfig freezes the placed bets for the settled spin; it is the
// game-specific configuration carried to the ledger.
type rouletteConfig struct {
	Bets []engine.PlacedBet `json:"bets"`
}

type rouletteResult struct {
	WinningNumber int  `json:"winning_number"`
	WinningBets   int  `json:"winning_bets"`
	LosingBets    int  `json:"losing_bets"`
	Win           bool `json:"win"`
}

// SettleRoulette resolves every placed bet in one pass and submits the
// aggregate settlement. The per-bet breakdown is returned alongside the
// record for audit display.
func (s *PlayService) SettleRoulette(ctx context.Context, play RoulettePlay) (*models.SettlementRecord, *engine.Resolution, error) {
	if len(play.Bets) == 0 {
		return nil, nil, fmt.Errorf("service: no bets placed")
	}
	res, err := engine.ResolveRoulette(play.WinningNumber, play.Bets)
	if err != nil {
		return nil, nil, err
	}

	rec := models.NewSettlementRecord(models.GameRoulette, play.Player, res.TotalStakedBase, res.TotalPayoutBase, time.Now().UnixMilli())
	rec.GameConfig, _ = json.Marshal(rouletteConfig{Bets: play.Bets})
	rec.ResultData, _ = json.Marshal(rouletteResult{
		WinningNumber: play.WinningNumber,
		WinningBets:   len(res.Winning),
		LosingBets:    len(res.Losing),
		Win:           res.TotalPayoutBase.Sign() > 0,
	})
	rec.EntropyValue = play.Draw.RandomValue
	rec.EntropyReference = play.Draw.ProofReference

	if err := s.submitAndTrack(ctx, rec); err != nil {
		return rec, res, err
	}
	return rec, res, nil
}

// submitAndTrack registers the provisional record, submits it, and spawns
// the confirmation poll. The record enters the store before submission so
// a failed submit is still visible for compensation, never silently
// dropped.
func (s *PlayService) submitAndTrack(ctx context.Context, rec *models.SettlementRecord) error {
	if s.Store != nil {
		s.Store.AddLocal(rec)
	}
	if _, err := s.Settlement.Submit(ctx, rec); err != nil {
		return err
	}
	go s.confirm(rec)
	return nil
}

func (s *PlayService) confirm(rec *models.SettlementRecord) {
	ctx := s.BaseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := s.Settlement.Confirm(ctx, rec, 0); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("settlement confirmation failed",
				zap.String("record", rec.ID),
				zap.String("tx_id", rec.LedgerTxID),
				zap.Error(err))
		}
		return
	}
	if s.Logger != nil {
		s.Logger.Info("settlement confirmed",
			zap.String("record", rec.ID),
			zap.String("tx_id", rec.LedgerTxID))
	}
}
