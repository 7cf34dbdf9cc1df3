package ledger

import (
	"encoding/json"
	"fmt"
	"math/big"

	"casinocore/internal/models"
)

// EventTypeSettlement is the event emitted by the casino contract when a
// play settles. Transactions carrying any other event types are ignored by
// history queries.
const EventTypeSettlement = "casino_settlement"

type settlementEventPayload struct {
	GameType         string          `json:"game_type"`
	PlayerAddress    string          `json:"player_address"`
	BetAmountBase    string          `json:"bet_amount_base"`
	PayoutAmountBase string          `json:"payout_amount_base"`
	GameConfig       json.RawMessage `json:"game_config,omitempty"`
	ResultData       json.RawMessage `json:"result_data,omitempty"`
	EntropyValue     string          `json:"entropy_value,omitempty"`
	EntropyReference string          `json:"entropy_reference,omitempty"`
}

func parseBaseAmount(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("ledger: malformed %s %q", field, s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("ledger: negative %s %q", field, s)
	}
	return v, nil
}

// ParseSettlement extracts the settlement record carried by a historical
// transaction. It returns (nil, nil) when the transaction carries no
// settlement event, and an error when a settlement event is present but
// malformed; callers log and skip such records rather than failing the
// whole query.
func ParseSettlement(env TransactionEnvelope) (*models.SettlementRecord, error) {
	var payload *settlementEventPayload
	for _, ev := range env.Events {
		if ev.Type != EventTypeSettlement {
			continue
		}
		var p settlementEventPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return nil, fmt.Errorf("ledger: malformed settlement event in %s: %w", env.TxID, err)
		}
		payload = &p
		break
	}
	if payload == nil {
		return nil, nil
	}
	game := models.GameType(payload.GameType)
	if !game.Valid() {
		return nil, fmt.Errorf("ledger: unknown game type %q in %s", payload.GameType, env.TxID)
	}
	if payload.PlayerAddress == "" {
		return nil, fmt.Errorf("ledger: settlement event in %s missing player", env.TxID)
	}
	bet, err := parseBaseAmount("bet amount", payload.BetAmountBase)
	if err != nil {
		return nil, err
	}
	payout, err := parseBaseAmount("payout amount", payload.PayoutAmountBase)
	if err != nil {
		return nil, err
	}

	rec := models.NewSettlementRecord(game, payload.PlayerAddress, bet, payout, env.TimestampMillis)
	rec.GameConfig = payload.GameConfig
	rec.ResultData = payload.ResultData
	rec.EntropyValue = payload.EntropyValue
	rec.EntropyReference = payload.EntropyReference
	rec.LedgerTxID = env.TxID
	// A record read back from the ledger is confirmed by definition.
	rec.Status = models.StatusConfirmed
	return rec, nil
}
