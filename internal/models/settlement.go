package models

import (
	"encoding/json"
	"math/big"

	"github.com/google/uuid"
)

type GameType string

const (
	GameMines    GameType = "MINES"
	GameRoulette GameType = "ROULETTE"
	GamePlinko   GameType = "PLINKO"
	GameWheel    GameType = "WHEEL"
)

func (g GameType) Valid() bool {
	switch g {
	case GameMines, GameRoulette, GamePlinko, GameWheel:
		return true
	}
	return false
}

type SettlementStatus string

const (
	StatusPending   SettlementStatus = "PENDING"
	StatusSubmitted SettlementStatus = "SUBMITTED"
	StatusConfirmed SettlementStatus = "CONFIRMED"
	StatusTimedOut  SettlementStatus = "TIMED_OUT"
	StatusFailed    SettlementStatus = "FAILED"
)

// Terminal reports whether no further transitions are allowed.
func (s SettlementStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusTimedOut || s == StatusFailed
}

// CanTransition reports whether s -> to is a legal move in the
// PENDING -> SUBMITTED -> {CONFIRMED | TIMED_OUT | FAILED} machine.
func (s SettlementStatus) CanTransition(to SettlementStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusSubmitted || to == StatusFailed
	case StatusSubmitted:
		return to == StatusConfirmed || to == StatusTimedOut || to == StatusFailed
	}
	return false
}

// SettlementRecord is the unit of truth for one play. It is created PENDING,
// driven through the settlement state machine, and becomes immutable once a
// terminal status is reached. Records are never deleted; reconciliation only
// merges and re-sorts.
type SettlementRecord struct {
	// ID is a synthetic identity assigned at creation. It identifies the
	// record until the ledger accepts the submission and LedgerTxID is set.
	ID string `json:"id"`

	GameType      GameType `json:"game_type"`
	PlayerAddress string   `json:"player_address"`

	// Amounts are base units, integers only. PayoutAmountBase is the total
	// amount returned including the original stake; net profit is derived
	// at the presentation boundary.
	BetAmountBase    *big.Int `json:"bet_amount_base"`
	PayoutAmountBase *big.Int `json:"payout_amount_base"`

	// GameConfig holds game-specific parameters frozen at settlement time.
	// ResultData holds outcome facts, write-once after computation.
	GameConfig json.RawMessage `json:"game_config,omitempty"`
	ResultData json.RawMessage `json:"result_data,omitempty"`

	EntropyValue     string `json:"entropy_value,omitempty"`
	EntropyReference string `json:"entropy_reference,omitempty"`

	TimestampMillis int64 `json:"timestamp_millis"`

	// LedgerTxID is empty until the ledger accepts the submission, then
	// immutable.
	LedgerTxID string `json:"ledger_tx_id,omitempty"`

	Status SettlementStatus `json:"status"`
}

// NewSettlementRecord builds a PENDING record with a fresh synthetic identity.
func NewSettlementRecord(game GameType, player string, bet, payout *big.Int, nowMillis int64) *SettlementRecord {
	if bet == nil {
		bet = big.NewInt(0)
	}
	if payout == nil {
		payout = big.NewInt(0)
	}
	return &SettlementRecord{
		ID:               uuid.NewString(),
		GameType:         game,
		PlayerAddress:    player,
		BetAmountBase:    new(big.Int).Set(bet),
		PayoutAmountBase: new(big.Int).Set(payout),
		TimestampMillis:  nowMillis,
		Status:           StatusPending,
	}
}

// IdentityKey is the stable key used for reconciliation dedup: the ledger
// transaction id when present, otherwise the synthetic id.
func (r *SettlementRecord) IdentityKey() string {
	if r.LedgerTxID != "" {
		return r.LedgerTxID
	}
	return "local:" + r.ID
}

// NetProfitBase is payout minus stake. Negative for a losing play.
func (r *SettlementRecord) NetProfitBase() *big.Int {
	out := new(big.Int)
	if r.PayoutAmountBase != nil {
		out.Set(r.PayoutAmountBase)
	}
	if r.BetAmountBase != nil {
		out.Sub(out, r.BetAmountBase)
	}
	return out
}
