// Package settlement drives SettlementRecords through their state machine
// against the ledger: PENDING -> SUBMITTED -> {CONFIRMED | TIMED_OUT |
// FAILED}. Terminal states are never left.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"casinocore/internal/ledger"
	"casinocore/internal/models"
)

// ErrConfirmationTimeout is returned when no terminal receipt was observed
// within the confirmation budget. The record is marked TIMED_OUT.
var ErrConfirmationTimeout = errors.New("settlement: confirmation timed out")

// ErrSubmitInFlight is returned when a submission for the same record is
// already on the wire; the caller retried faster than the ledger answered.
var ErrSubmitInFlight = errors.New("settlement: submission already in flight")

// SubmissionError wraps an outright ledger rejection (bad arguments,
// insufficient gas). It is not retried automatically; the caller decides.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return "settlement: ledger rejected submission: " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Invoker is the ledger RPC surface the client depends on. *ledger.Client
// satisfies it; tests substitute a fake.
type Invoker interface {
	SubmitTransaction(ctx context.Context, call ledger.TransactionCall) (string, error)
	GetTransactionByID(ctx context.Context, txID string) (*ledger.Receipt, error)
	QueryTransactionsByAddress(ctx context.Context, address string, limit int) ([]ledger.TransactionEnvelope, error)
}

// Config carries the retry and confirmation budgets.
type Config struct {
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	ConfirmPoll    time.Duration `mapstructure:"confirm_poll"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
}

func (c Config) retryAttempts() int {
	if c.RetryAttempts <= 0 {
		return 3
	}
	return c.RetryAttempts
}

func (c Config) retryBaseDelay() time.Duration {
	if c.RetryBaseDelay <= 0 {
		return time.Second
	}
	return c.RetryBaseDelay
}

func (c Config) confirmPoll() time.Duration {
	if c.ConfirmPoll <= 0 {
		return time.Second
	}
	return c.ConfirmPoll
}

func (c Config) confirmTimeout() time.Duration {
	if c.ConfirmTimeout <= 0 {
		return 30 * time.Second
	}
	return c.ConfirmTimeout
}

// Client submits settlement records, confirms them by polling, and queries
// settlement history. Each record's state machine is independent; the
// client mutex only guards the check-and-set around transitions, never an
// RPC round-trip.
type Client struct {
	Ledger Invoker
	Logger *zap.Logger
	Config Config

	mu       sync.Mutex
	inFlight map[string]bool
}

const contractModule = "casino"

var settleFunctions = map[models.GameType]string{
	models.GameMines:    "settle_mines",
	models.GameRoulette: "settle_roulette",
	models.GamePlinko:   "settle_plinko",
	models.GameWheel:    "settle_wheel",
}

// buildCall derives the opaque ledger call from the record's game type.
func buildCall(rec *models.SettlementRecord) (ledger.TransactionCall, error) {
	fn, ok := settleFunctions[rec.GameType]
	if !ok {
		return ledger.TransactionCall{}, fmt.Errorf("settlement: unknown game type %q", rec.GameType)
	}
	cfg, result := "{}", "{}"
	if len(rec.GameConfig) > 0 && json.Valid(rec.GameConfig) {
		cfg = string(rec.GameConfig)
	}
	if len(rec.ResultData) > 0 && json.Valid(rec.ResultData) {
		result = string(rec.ResultData)
	}
	return ledger.TransactionCall{
		Module:   contractModule,
		Function: fn,
		Sender:   rec.PlayerAddress,
		Arguments: []string{
			rec.BetAmountBase.String(),
			rec.PayoutAmountBase.String(),
			cfg,
			result,
			rec.EntropyValue,
			rec.EntropyReference,
		},
	}, nil
}

// Submit sends the record to the ledger and transitions it to SUBMITTED.
// A record already SUBMITTED or CONFIRMED is a no-op returning the existing
// transaction id without touching the network. Transient RPC failures are
// retried with exponential backoff; after the retry budget the record is
// FAILED. An outright ledger rejection returns *SubmissionError and leaves
// the record PENDING for the caller to decide.
func (c *Client) Submit(ctx context.Context, rec *models.SettlementRecord) (string, error) {
	if rec == nil {
		return "", errors.New("settlement: nil record")
	}

	c.mu.Lock()
	switch rec.Status {
	case models.StatusSubmitted, models.StatusConfirmed:
		txID := rec.LedgerTxID
		c.mu.Unlock()
		return txID, nil
	case models.StatusPending:
	default:
		status := rec.Status
		c.mu.Unlock()
		return "", fmt.Errorf("settlement: record %s is %s, cannot submit", rec.ID, status)
	}
	if c.inFlight == nil {
		c.inFlight = make(map[string]bool)
	}
	if c.inFlight[rec.ID] {
		c.mu.Unlock()
		return "", ErrSubmitInFlight
	}
	c.inFlight[rec.ID] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, rec.ID)
		c.mu.Unlock()
	}()

	call, err := buildCall(rec)
	if err != nil {
		return "", err
	}
	txID, err := c.submitWithRetry(ctx, call)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if errors.Is(err, ledger.ErrWalletNotConnected) {
			return "", err
		}
		if ledger.IsTransient(err) {
			// Retry budget exhausted.
			c.transition(rec, models.StatusFailed)
			return "", err
		}
		return "", &SubmissionError{Err: err}
	}

	c.mu.Lock()
	rec.LedgerTxID = txID
	c.mu.Unlock()
	c.transition(rec, models.StatusSubmitted)
	return txID, nil
}

func (c *Client) submitWithRetry(ctx context.Context, call ledger.TransactionCall) (string, error) {
	attempts := c.Config.retryAttempts()
	delay := c.Config.retryBaseDelay()
	var lastErr error
	for i := 0; i < attempts; i++ {
		txID, err := c.Ledger.SubmitTransaction(ctx, call)
		if err == nil {
			return txID, nil
		}
		if !ledger.IsTransient(err) {
			return "", err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		c.logWarn("transient submit failure, backing off", err,
			zap.Int("attempt", i+1), zap.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", lastErr
}

// Confirm polls the ledger for a terminal receipt, once per poll interval,
// until the timeout budget elapses. "Not found yet" keeps polling, as do
// transient failures. On timeout the record is marked TIMED_OUT and
// ErrConfirmationTimeout is returned. A FAILURE receipt marks the record
// FAILED; the receipt is still returned for the caller to inspect.
func (c *Client) Confirm(ctx context.Context, rec *models.SettlementRecord, timeout time.Duration) (*ledger.Receipt, error) {
	if rec == nil {
		return nil, errors.New("settlement: nil record")
	}
	c.mu.Lock()
	status, txID := rec.Status, rec.LedgerTxID
	c.mu.Unlock()
	if status != models.StatusSubmitted {
		return nil, fmt.Errorf("settlement: record %s is %s, cannot confirm", rec.ID, status)
	}
	if timeout <= 0 {
		timeout = c.Config.confirmTimeout()
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(c.Config.confirmPoll())
	defer ticker.Stop()

	for {
		receipt, err := c.Ledger.GetTransactionByID(pollCtx, txID)
		switch {
		case err == nil && receipt != nil && receipt.Status != "":
			if receipt.Succeeded() {
				c.transition(rec, models.StatusConfirmed)
			} else {
				c.transition(rec, models.StatusFailed)
			}
			return receipt, nil
		case err == nil:
			// Accepted but not finalized; keep polling.
		case ledger.IsNotFound(err):
			// Not visible on the node yet; keep polling.
		case ledger.IsTransient(err):
			c.logWarn("transient failure while polling receipt", err, zap.String("tx_id", txID))
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			// Handled below through the ctx branches.
		default:
			// Hard RPC failure: surface it, record stays SUBMITTED.
			return nil, err
		}

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				// Caller cancellation, not a timeout.
				return nil, ctx.Err()
			}
			c.transition(rec, models.StatusTimedOut)
			return nil, ErrConfirmationTimeout
		case <-ticker.C:
		}
	}
}

// QueryHistory fetches the player's ledger transactions and parses the ones
// carrying a settlement event. A malformed record is logged and skipped;
// it never aborts the page.
func (c *Client) QueryHistory(ctx context.Context, player string, limit int) ([]*models.SettlementRecord, error) {
	envs, err := c.Ledger.QueryTransactionsByAddress(ctx, player, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*models.SettlementRecord, 0, len(envs))
	for _, env := range envs {
		rec, err := ledger.ParseSettlement(env)
		if err != nil {
			c.logWarn("skipping malformed settlement record", err, zap.String("tx_id", env.TxID))
			continue
		}
		if rec == nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// transition applies a state change under the client mutex, refusing moves
// the machine does not allow.
func (c *Client) transition(rec *models.SettlementRecord, to models.SettlementStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !rec.Status.CanTransition(to) {
		c.logWarn("illegal status transition dropped", nil,
			zap.String("record", rec.ID),
			zap.String("from", string(rec.Status)),
			zap.String("to", string(to)))
		return
	}
	rec.Status = to
}

func (c *Client) logWarn(msg string, err error, fields ...zap.Field) {
	if c == nil || c.Logger == nil {
		return
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	c.Logger.Warn(msg, fields...)
}
