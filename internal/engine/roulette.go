package engine

import (
	"fmt"
	"math/big"
)

type BetKind string

const (
	BetNumber  BetKind = "NUMBER"
	BetColor   BetKind = "COLOR"
	BetOddEven BetKind = "ODD_EVEN"
	BetHighLow BetKind = "HIGH_LOW"
	BetDozen   BetKind = "DOZEN"
	BetColumn  BetKind = "COLUMN"
	BetSplit   BetKind = "SPLIT"
	BetStreet  BetKind = "STREET"
	BetCorner  BetKind = "CORNER"
	BetLine    BetKind = "LINE"
)

// Value constants for the two-sided bet kinds.
const (
	ValueBlack = 0
	ValueRed   = 1
	ValueEven  = 0
	ValueOdd   = 1
	ValueLow   = 0 // 1-18
	ValueHigh  = 1 // 19-36
)

// payoutMultipliers map a winning stake to its total return, stake included.
var payoutMultipliers = map[BetKind]int64{
	BetNumber:  36,
	BetColor:   2,
	BetOddEven: 2,
	BetHighLow: 2,
	BetDozen:   3,
	BetColumn:  3,
	BetSplit:   18,
	BetStreet:  12,
	BetCorner:  9,
	BetLine:    6,
}

// PayoutMultiplier returns the stake-to-return multiplier for a bet kind,
// or 0 for an unknown kind.
func PayoutMultiplier(kind BetKind) int64 { return payoutMultipliers[kind] }

// PlacedBet is one wager on the table. Value carries the selection for
// single-value kinds (number, color, parity, range, dozen, column); Numbers
// carries the covered set for split/street/corner/line bets.
type PlacedBet struct {
	Kind      BetKind  `json:"kind"`
	Value     int      `json:"value,omitempty"`
	Numbers   []int    `json:"numbers,omitempty"`
	StakeBase *big.Int `json:"stake_base"`
}

// Validate checks the bet shape against the static table layout.
func (b PlacedBet) Validate() error {
	if b.StakeBase == nil || b.StakeBase.Sign() <= 0 {
		return fmt.Errorf("roulette: stake must be positive")
	}
	switch b.Kind {
	case BetNumber:
		if b.Value < 0 || b.Value > 36 {
			return fmt.Errorf("roulette: number %d out of range", b.Value)
		}
	case BetColor, BetOddEven, BetHighLow:
		if b.Value != 0 && b.Value != 1 {
			return fmt.Errorf("roulette: %s value %d must be 0 or 1", b.Kind, b.Value)
		}
	case BetDozen, BetColumn:
		if b.Value < 1 || b.Value > 3 {
			return fmt.Errorf("roulette: %s value %d must be 1-3", b.Kind, b.Value)
		}
	case BetSplit:
		if !knownSet(splitSets, b.Numbers) {
			return fmt.Errorf("roulette: %v is not a split", b.Numbers)
		}
	case BetStreet:
		if !knownSet(streetSets, b.Numbers) {
			return fmt.Errorf("roulette: %v is not a street", b.Numbers)
		}
	case BetCorner:
		if !knownSet(cornerSets, b.Numbers) {
			return fmt.Errorf("roulette: %v is not a corner", b.Numbers)
		}
	case BetLine:
		if !knownSet(lineSets, b.Numbers) {
			return fmt.Errorf("roulette: %v is not a line", b.Numbers)
		}
	default:
		return fmt.Errorf("roulette: unknown bet kind %q", b.Kind)
	}
	return nil
}

// wins evaluates the win predicate. Zero loses every bet except a number
// bet on zero itself.
func (b PlacedBet) wins(winning int) bool {
	if winning == 0 {
		return b.Kind == BetNumber && b.Value == 0
	}
	switch b.Kind {
	case BetNumber:
		return b.Value == winning
	case BetColor:
		if b.Value == ValueRed {
			return IsRed(winning)
		}
		return !IsRed(winning)
	case BetOddEven:
		return winning%2 == b.Value
	case BetHighLow:
		if b.Value == ValueHigh {
			return winning >= 19
		}
		return winning <= 18
	case BetDozen:
		return (winning-1)/12+1 == b.Value
	case BetColumn:
		// Column c holds the numbers congruent to c mod 3 (column 3 is 0).
		return winning%3 == b.Value%3
	case BetSplit, BetStreet, BetCorner, BetLine:
		for _, n := range b.Numbers {
			if n == winning {
				return true
			}
		}
	}
	return false
}

// BetResult pairs a placed bet with its total return (stake included; zero
// for a losing bet).
type BetResult struct {
	Bet        PlacedBet `json:"bet"`
	PayoutBase *big.Int  `json:"payout_base"`
}

// Resolution is the one-pass outcome of every simultaneously placed bet.
// TotalPayoutBase is the aggregate amount returned; net result against the
// already-deducted stakes is TotalPayoutBase - TotalStakedBase.
type Resolution struct {
	WinningNumber   int         `json:"winning_number"`
	TotalStakedBase *big.Int    `json:"total_staked_base"`
	TotalPayoutBase *big.Int    `json:"total_payout_base"`
	Winning         []BetResult `json:"winning"`
	Losing          []BetResult `json:"losing"`
}

// ResolveRoulette resolves all placed bets against the winning number in a
// single pass, returning the aggregate payout and a per-bet breakdown for
// audit and history display.
func ResolveRoulette(winning int, bets []PlacedBet) (*Resolution, error) {
	if winning < 0 || winning > 36 {
		return nil, fmt.Errorf("roulette: winning number %d out of range", winning)
	}
	res := &Resolution{
		WinningNumber:   winning,
		TotalStakedBase: new(big.Int),
		TotalPayoutBase: new(big.Int),
	}
	for _, b := range bets {
		if err := b.Validate(); err != nil {
			return nil, err
		}
		res.TotalStakedBase.Add(res.TotalStakedBase, b.StakeBase)
		if b.wins(winning) {
			payout := new(big.Int).Mul(b.StakeBase, big.NewInt(payoutMultipliers[b.Kind]))
			res.TotalPayoutBase.Add(res.TotalPayoutBase, payout)
			res.Winning = append(res.Winning, BetResult{Bet: b, PayoutBase: payout})
		} else {
			res.Losing = append(res.Losing, BetResult{Bet: b, PayoutBase: new(big.Int)})
		}
	}
	return res, nil
}
