package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"casinocore/internal/config"
	"casinocore/internal/ledger"
)

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	return e
}

func TestRouletteResolve_KeepsZeroValueSelections(t *testing.T) {
	e := newTestEngine()
	h := &OutcomeHandler{
		Mines: config.MinesConfig{HouseEdge: 0.03, DefaultGridSize: 5},
		Chain: config.ChainConfig{CoinDecimals: 2, DisplayPrecision: 2},
	}
	h.Register(e)

	// 10 is black: a black (value 0) bet wins and its selection must stay
	// visible in the breakdown.
	body := `{"winning_number":10,"bets":[{"kind":"COLOR","value":0,"stake":"1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/roulette/resolve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"value":0`) {
		t.Fatalf("body=%s want explicit \"value\":0", w.Body.String())
	}
}

func TestSettleMines_RejectsDisconnectedWalletUpFront(t *testing.T) {
	e := newTestEngine()
	h := &SettlementHandler{
		Ledger: ledger.NewClient(nil, "http://localhost:0", nil),
		Chain:  config.ChainConfig{CoinDecimals: 2},
		Mines:  config.MinesConfig{HouseEdge: 0.03, DefaultGridSize: 5},
	}
	h.Register(e)

	// Play is nil: the precondition must fire before any orchestration.
	body := `{"bet":"1.00","mines_count":3,"revealed_count":2}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/settlements/mines", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("status=%d want=412 body=%s", w.Code, w.Body.String())
	}
}

func TestSettleRoulette_RejectsDisconnectedWalletUpFront(t *testing.T) {
	e := newTestEngine()
	h := &SettlementHandler{
		Ledger: ledger.NewClient(nil, "http://localhost:0", nil),
		Chain:  config.ChainConfig{CoinDecimals: 2},
	}
	h.Register(e)

	body := `{"winning_number":10,"bets":[{"kind":"NUMBER","value":10,"stake":"1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/settlements/roulette", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("status=%d want=412 body=%s", w.Code, w.Body.String())
	}
}
