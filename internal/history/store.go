// Package history reconciles settlement records arriving from two sources:
// the ledger (authoritative) and the local session (provisional). The
// merged view is deduplicated by identity key, time-ordered, and capped.
package history

import (
	"sort"
	"sync"

	"casinocore/internal/models"
)

// DefaultMaxRecords caps the merged view.
const DefaultMaxRecords = 50

// Merge concatenates remote then local, deduplicates by identity key with
// remote taking precedence, sorts descending by timestamp, and truncates to
// max entries. It is pure and idempotent: merging the same inputs twice
// yields the same output, and a stale local copy of a ledger record never
// survives.
func Merge(remote, local []*models.SettlementRecord, max int) []*models.SettlementRecord {
	if max <= 0 {
		max = DefaultMaxRecords
	}
	seen := make(map[string]struct{}, len(remote)+len(local))
	merged := make([]*models.SettlementRecord, 0, len(remote)+len(local))
	for _, rec := range append(append([]*models.SettlementRecord{}, remote...), local...) {
		if rec == nil {
			continue
		}
		key := rec.IdentityKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, rec)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].TimestampMillis != merged[j].TimestampMillis {
			return merged[i].TimestampMillis > merged[j].TimestampMillis
		}
		return merged[i].IdentityKey() < merged[j].IdentityKey()
	})
	if len(merged) > max {
		merged = merged[:max]
	}
	return merged
}

// Store holds the session's merged history. It is the only mutable shared
// state in the system; every mutation goes through the mutex so concurrent
// refreshes cannot break the dedup invariant.
type Store struct {
	mu      sync.Mutex
	max     int
	records []*models.SettlementRecord
}

func NewStore(max int) *Store {
	if max <= 0 {
		max = DefaultMaxRecords
	}
	return &Store{max: max}
}

// AddLocal inserts a provisional record created during this session.
func (s *Store) AddLocal(rec *models.SettlementRecord) {
	if rec == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = Merge(s.records, []*models.SettlementRecord{rec}, s.max)
}

// ApplyRemote merges a freshly queried ledger page over the current view.
// Remote records win conflicts; the ledger is authoritative.
func (s *Store) ApplyRemote(remote []*models.SettlementRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = Merge(remote, s.records, s.max)
}

// Snapshot returns a copy of the merged, time-ordered view.
func (s *Store) Snapshot() []*models.SettlementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.SettlementRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the current number of retained records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
