package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrWalletNotConnected is returned before any RPC when no wallet session
// is active on the client.
var ErrWalletNotConnected = errors.New("ledger: wallet not connected")

// RPCError is an error object returned by the ledger node. These are
// business-logic rejections (bad arguments, insufficient gas) and are never
// retried automatically.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("ledger rpc error %d: %s", e.Code, e.Message)
}

// TransientError wraps a network or transport failure that is worth
// retrying with backoff.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "ledger transient rpc failure: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable transport failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

const codeNotFound = -32001

// IsNotFound distinguishes a "not seen yet" response during confirmation
// polling from a terminal failure, by code or message substring.
func IsNotFound(err error) bool {
	var re *RPCError
	if !errors.As(err, &re) {
		return false
	}
	if re.Code == codeNotFound {
		return true
	}
	return strings.Contains(strings.ToLower(re.Message), "not found")
}
