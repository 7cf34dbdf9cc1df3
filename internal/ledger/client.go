// Package ledger is the JSON-RPC boundary to the external distributed
// ledger. The node is an opaque remote surface exposing transaction
// submission, receipt lookup, per-address transaction queries and coin
// balances; everything else (consensus, contract execution) stays on the
// other side of the wire.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	methodSubmitTransaction  = "ledger_submitTransaction"
	methodGetTransactionByID = "ledger_getTransactionById"
	methodQueryTransactions  = "ledger_queryTransactionsByAddress"
	methodGetCoinBalance     = "ledger_getCoinBalance"
)

// TransactionCall is the opaque call envelope submitted to the ledger:
// a target module/function plus positional arguments.
type TransactionCall struct {
	Module    string   `json:"module"`
	Function  string   `json:"function"`
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

// Receipt is the terminal result of a submitted transaction. Status is
// "SUCCESS" or "FAILURE" once the ledger has finalized the transaction.
type Receipt struct {
	TxID    string `json:"tx_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (r *Receipt) Succeeded() bool { return r != nil && r.Status == "SUCCESS" }

// TransactionEnvelope is one historical transaction returned by an
// address query, carrying the events emitted during execution.
type TransactionEnvelope struct {
	TxID            string  `json:"tx_id"`
	TimestampMillis int64   `json:"timestamp_millis"`
	Events          []Event `json:"events"`
}

// Event is an opaque typed payload emitted by a ledger transaction.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client talks JSON-RPC 2.0 over HTTP to a single ledger node. It carries
// an explicit wallet session: Connect binds the active player address and
// every RPC fails fast with ErrWalletNotConnected until then. The client is
// injected by reference so tests can substitute a fake.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	mu      sync.RWMutex
	address string
	nextID  int64
}

func NewClient(httpClient *http.Client, baseURL string, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// Connect binds the wallet address for this session.
func (c *Client) Connect(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("ledger: empty wallet address")
	}
	c.mu.Lock()
	c.address = address
	c.mu.Unlock()
	if c.logger != nil {
		c.logger.Info("wallet connected", zap.String("address", address))
	}
	return nil
}

// Disconnect clears the wallet session.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.address = ""
	c.mu.Unlock()
}

// Address returns the connected wallet address, or "".
func (c *Client) Address() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.address
}

func (c *Client) Connected() bool { return c.Address() != "" }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if !c.Connected() {
		return ErrWalletNotConnected
	}
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &TransientError{Err: err}
	}
	if resp.StatusCode >= 500 {
		return &TransientError{Err: fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger: http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return fmt.Errorf("ledger: malformed rpc response: %w", err)
	}
	if rr.Error != nil {
		return rr.Error
	}
	if out != nil {
		if err := json.Unmarshal(rr.Result, out); err != nil {
			return fmt.Errorf("ledger: malformed rpc result: %w", err)
		}
	}
	return nil
}

// SubmitTransaction sends a call envelope and returns the accepted
// transaction id.
func (c *Client) SubmitTransaction(ctx context.Context, call TransactionCall) (string, error) {
	var out struct {
		TxID string `json:"tx_id"`
	}
	if err := c.call(ctx, methodSubmitTransaction, []any{call}, &out); err != nil {
		return "", err
	}
	if out.TxID == "" {
		return "", fmt.Errorf("ledger: submission accepted without tx id")
	}
	return out.TxID, nil
}

// GetTransactionByID fetches the receipt for a transaction. While the
// ledger has not seen the transaction yet the error satisfies IsNotFound.
func (c *Client) GetTransactionByID(ctx context.Context, txID string) (*Receipt, error) {
	var out Receipt
	if err := c.call(ctx, methodGetTransactionByID, []any{txID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryTransactionsByAddress returns up to limit historical transactions
// for an address, newest first.
func (c *Client) QueryTransactionsByAddress(ctx context.Context, address string, limit int) ([]TransactionEnvelope, error) {
	var out []TransactionEnvelope
	if err := c.call(ctx, methodQueryTransactions, []any{address, limit}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCoinBalance returns the base-unit coin balance of an address.
func (c *Client) GetCoinBalance(ctx context.Context, address string) (*big.Int, error) {
	var out struct {
		Balance string `json:"balance"`
	}
	if err := c.call(ctx, methodGetCoinBalance, []any{address}, &out); err != nil {
		return nil, err
	}
	bal, ok := new(big.Int).SetString(out.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("ledger: malformed balance %q", out.Balance)
	}
	return bal, nil
}

// ExplorerURL formats the block-explorer link for a transaction.
func ExplorerURL(base, txID string) string {
	return strings.TrimRight(base, "/") + "/tx/" + txID
}
