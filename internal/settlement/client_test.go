package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"casinocore/internal/ledger"
	"casinocore/internal/models"
)

type fakeLedger struct {
	submitCalls int
	submitErrs  []error
	txID        string

	receiptCalls int
	receipts     []receiptStep

	envelopes []ledger.TransactionEnvelope
	queryErr  error
}

type receiptStep struct {
	receipt *ledger.Receipt
	err     error
}

func (f *fakeLedger) SubmitTransaction(ctx context.Context, call ledger.TransactionCall) (string, error) {
	f.submitCalls++
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return f.txID, nil
}

func (f *fakeLedger) GetTransactionByID(ctx context.Context, txID string) (*ledger.Receipt, error) {
	step := receiptStep{receipt: &ledger.Receipt{TxID: txID}}
	if f.receiptCalls < len(f.receipts) {
		step = f.receipts[f.receiptCalls]
	} else if len(f.receipts) > 0 {
		step = f.receipts[len(f.receipts)-1]
	}
	f.receiptCalls++
	return step.receipt, step.err
}

func (f *fakeLedger) QueryTransactionsByAddress(ctx context.Context, address string, limit int) ([]ledger.TransactionEnvelope, error) {
	return f.envelopes, f.queryErr
}

func newRecord(t *testing.T) *models.SettlementRecord {
	t.Helper()
	return models.NewSettlementRecord(models.GameMines, "0xplayer", big.NewInt(100), big.NewInt(121), time.Now().UnixMilli())
}

func fastConfig() Config {
	return Config{
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
		ConfirmPoll:    time.Millisecond,
		ConfirmTimeout: 50 * time.Millisecond,
	}
}

func TestSubmit_TransitionsToSubmitted(t *testing.T) {
	fake := &fakeLedger{txID: "0xabc"}
	c := &Client{Ledger: fake, Config: fastConfig()}
	rec := newRecord(t)

	txID, err := c.Submit(context.Background(), rec)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if txID != "0xabc" {
		t.Fatalf("txID=%q want=0xabc", txID)
	}
	if rec.Status != models.StatusSubmitted {
		t.Fatalf("status=%s want=SUBMITTED", rec.Status)
	}
	if rec.LedgerTxID != "0xabc" {
		t.Fatalf("ledgerTxID=%q want=0xabc", rec.LedgerTxID)
	}
}

func TestSubmit_Idempotent(t *testing.T) {
	fake := &fakeLedger{txID: "0xabc"}
	c := &Client{Ledger: fake, Config: fastConfig()}
	rec := newRecord(t)

	if _, err := c.Submit(context.Background(), rec); err != nil {
		t.Fatalf("first submit err=%v", err)
	}
	txID, err := c.Submit(context.Background(), rec)
	if err != nil {
		t.Fatalf("second submit err=%v", err)
	}
	if txID != "0xabc" {
		t.Fatalf("txID=%q want=0xabc", txID)
	}
	if fake.submitCalls != 1 {
		t.Fatalf("submitCalls=%d want=1 (no second network call)", fake.submitCalls)
	}
}

func TestSubmit_RetriesTransientThenSucceeds(t *testing.T) {
	fake := &fakeLedger{
		txID: "0xabc",
		submitErrs: []error{
			&ledger.TransientError{Err: errors.New("connection reset")},
			&ledger.TransientError{Err: errors.New("timeout")},
		},
	}
	c := &Client{Ledger: fake, Config: fastConfig()}
	rec := newRecord(t)

	txID, err := c.Submit(context.Background(), rec)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if txID != "0xabc" {
		t.Fatalf("txID=%q want=0xabc", txID)
	}
	if fake.submitCalls != 3 {
		t.Fatalf("submitCalls=%d want=3", fake.submitCalls)
	}
}

func TestSubmit_TransientBudgetExhaustedMarksFailed(t *testing.T) {
	transient := &ledger.TransientError{Err: errors.New("unreachable")}
	fake := &fakeLedger{submitErrs: []error{transient, transient, transient}}
	c := &Client{Ledger: fake, Config: fastConfig()}
	rec := newRecord(t)

	_, err := c.Submit(context.Background(), rec)
	if !ledger.IsTransient(err) {
		t.Fatalf("err=%v want transient", err)
	}
	if fake.submitCalls != 3 {
		t.Fatalf("submitCalls=%d want=3", fake.submitCalls)
	}
	if rec.Status != models.StatusFailed {
		t.Fatalf("status=%s want=FAILED", rec.Status)
	}
}

func TestSubmit_RejectionIsNotRetried(t *testing.T) {
	fake := &fakeLedger{submitErrs: []error{&ledger.RPCError{Code: -32602, Message: "insufficient gas"}}}
	c := &Client{Ledger: fake, Config: fastConfig()}
	rec := newRecord(t)

	_, err := c.Submit(context.Background(), rec)
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("err=%v want *SubmissionError", err)
	}
	if fake.submitCalls != 1 {
		t.Fatalf("submitCalls=%d want=1", fake.submitCalls)
	}
	if rec.Status != models.StatusPending {
		t.Fatalf("status=%s want=PENDING (caller decides)", rec.Status)
	}
}

func TestSubmit_TerminalRecordRejected(t *testing.T) {
	fake := &fakeLedger{txID: "0xabc"}
	c := &Client{Ledger: fake, Config: fastConfig()}
	rec := newRecord(t)
	rec.Status = models.StatusFailed

	if _, err := c.Submit(context.Background(), rec); err == nil {
		t.Fatal("want error submitting terminal record")
	}
	if fake.submitCalls != 0 {
		t.Fatalf("submitCalls=%d want=0", fake.submitCalls)
	}
}

func TestConfirm_Success(t *testing.T) {
	fake := &fakeLedger{
		txID: "0xabc",
		receipts: []receiptStep{
			{err: &ledger.RPCError{Code: -32001, Message: "transaction not found"}},
			{receipt: &ledger.Receipt{TxID: "0xabc", Status: "SUCCESS"}},
		},
	}
	c := &Client{Ledger: fake, Config: fastConfig()}
	rec := newRecord(t)
	if _, err := c.Submit(context.Background(), rec); err != nil {
		t.Fatalf("submit err=%v", err)
	}

	receipt, err := c.Confirm(context.Background(), rec, 0)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !receipt.Succeeded() {
		t.Fatalf("receipt=%+v want success", receipt)
	}
	if rec.Status != models.StatusConfirmed {
		t.Fatalf("status=%s want=CONFIRMED", rec.Status)
	}
}

func TestConfirm_FailureReceiptMarksFailed(t *testing.T) {
	fake := &fakeLedger{
		txID: "0xabc",
		receipts: []receiptStep{
			{receipt: &ledger.Receipt{TxID: "0xabc", Status: "FAILURE", Message: "aborted"}},
		},
	}
	c := &Client{Ledger: fake, Config: fastConfig()}
	rec := newRecord(t)
	if _, err := c.Submit(context.Background(), rec); err != nil {
		t.Fatalf("submit err=%v", err)
	}

	receipt, err := c.Confirm(context.Background(), rec, 0)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if receipt.Succeeded() {
		t.Fatalf("receipt=%+v want failure", receipt)
	}
	if rec.Status != models.StatusFailed {
		t.Fatalf("status=%s want=FAILED", rec.Status)
	}
}

func TestConfirm_TimesOut(t *testing.T) {
	notFound := &ledger.RPCError{Code: -32001, Message: "transaction not found"}
	fake := &fakeLedger{
		txID:     "0xabc",
		receipts: []receiptStep{{err: notFound}},
	}
	c := &Client{Ledger: fake, Config: fastConfig()}
	rec := newRecord(t)
	if _, err := c.Submit(context.Background(), rec); err != nil {
		t.Fatalf("submit err=%v", err)
	}

	_, err := c.Confirm(context.Background(), rec, 20*time.Millisecond)
	if !errors.Is(err, ErrConfirmationTimeout) {
		t.Fatalf("err=%v want ErrConfirmationTimeout", err)
	}
	if rec.Status != models.StatusTimedOut {
		t.Fatalf("status=%s want=TIMED_OUT", rec.Status)
	}
}

func TestConfirm_CallerCancellation(t *testing.T) {
	notFound := &ledger.RPCError{Code: -32001, Message: "transaction not found"}
	fake := &fakeLedger{
		txID:     "0xabc",
		receipts: []receiptStep{{err: notFound}},
	}
	c := &Client{Ledger: fake, Config: fastConfig()}
	rec := newRecord(t)
	if _, err := c.Submit(context.Background(), rec); err != nil {
		t.Fatalf("submit err=%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Confirm(ctx, rec, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if rec.Status != models.StatusSubmitted {
		t.Fatalf("status=%s want=SUBMITTED (cancellation is not a timeout)", rec.Status)
	}
}

func TestConfirm_RequiresSubmitted(t *testing.T) {
	c := &Client{Ledger: &fakeLedger{}, Config: fastConfig()}
	rec := newRecord(t)
	if _, err := c.Confirm(context.Background(), rec, 0); err == nil {
		t.Fatal("want error confirming a PENDING record")
	}
}

func settlementEnvelope(t *testing.T, txID string, ts int64, payload map[string]any) ledger.TransactionEnvelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ledger.TransactionEnvelope{
		TxID:            txID,
		TimestampMillis: ts,
		Events:          []ledger.Event{{Type: ledger.EventTypeSettlement, Data: data}},
	}
}

func TestQueryHistory_SkipsMalformedRecords(t *testing.T) {
	good := settlementEnvelope(t, "0x1", 1000, map[string]any{
		"game_type":          "MINES",
		"player_address":     "0xplayer",
		"bet_amount_base":    "100",
		"payout_amount_base": "121",
	})
	malformed := settlementEnvelope(t, "0x2", 2000, map[string]any{
		"game_type":          "MINES",
		"player_address":     "0xplayer",
		"bet_amount_base":    "not-a-number",
		"payout_amount_base": "0",
	})
	unrelated := ledger.TransactionEnvelope{
		TxID:   "0x3",
		Events: []ledger.Event{{Type: "coin_transfer", Data: json.RawMessage(`{}`)}},
	}

	fake := &fakeLedger{envelopes: []ledger.TransactionEnvelope{good, malformed, unrelated}}
	c := &Client{Ledger: fake, Config: fastConfig()}

	records, err := c.QueryHistory(context.Background(), "0xplayer", 10)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records=%d want=1", len(records))
	}
	rec := records[0]
	if rec.LedgerTxID != "0x1" || rec.Status != models.StatusConfirmed {
		t.Fatalf("rec=%+v want confirmed 0x1", rec)
	}
	if rec.BetAmountBase.Int64() != 100 || rec.PayoutAmountBase.Int64() != 121 {
		t.Fatalf("amounts=%s/%s want 100/121", rec.BetAmountBase, rec.PayoutAmountBase)
	}
}

func TestQueryHistory_PropagatesQueryError(t *testing.T) {
	fake := &fakeLedger{queryErr: &ledger.TransientError{Err: errors.New("down")}}
	c := &Client{Ledger: fake, Config: fastConfig()}
	if _, err := c.QueryHistory(context.Background(), "0xplayer", 10); err == nil {
		t.Fatal("want error")
	}
}
