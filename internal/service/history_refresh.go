package service

import (
	"context"

	"go.uber.org/zap"

	"casinocore/internal/config"
	"casinocore/internal/history"
	"casinocore/internal/settlement"
)

// Wallet exposes the active session address. *ledger.Client satisfies it.
type Wallet interface {
	Address() string
	Connected() bool
}

// HistoryRefreshService periodically re-queries the ledger for the
// connected player's settlements and reconciles them over the local view.
// It is scheduled through the cron runner; each run is independent and
// best-effort.
type HistoryRefreshService struct {
	Settlement *settlement.Client
	Wallet     Wallet
	Store      *history.Store
	Logger     *zap.Logger
	Config     config.HistoryConfig
}

func (s *HistoryRefreshService) RunOnce(ctx context.Context) error {
	if s == nil || s.Settlement == nil || s.Store == nil {
		return nil
	}
	if s.Wallet == nil || !s.Wallet.Connected() {
		return nil
	}
	limit := s.Config.PageLimit
	if limit <= 0 {
		limit = 100
	}
	records, err := s.Settlement.QueryHistory(ctx, s.Wallet.Address(), limit)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("history refresh failed", zap.Error(err))
		}
		return err
	}
	s.Store.ApplyRemote(records)
	if s.Logger != nil {
		s.Logger.Debug("history refreshed",
			zap.Int("remote", len(records)),
			zap.Int("retained", s.Store.Len()))
	}
	return nil
}
