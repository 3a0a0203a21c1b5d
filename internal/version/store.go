// Package version keeps the append-only revision history of strategy
// documents. Edits never mutate a stored revision; each save appends a new
// one and bumps the version number.
package version

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"legwork/internal/types"

	"github.com/google/uuid"
)

// Revision is one immutable saved copy of a strategy document.
type Revision struct {
	StrategyID string          `json:"strategy_id"`
	Version    int             `json:"version"`
	Document   *types.Strategy `json:"document"`
	SavedAt    time.Time       `json:"saved_at"`
}

// Store is the revision history contract. Implementations must treat
// appended documents as frozen.
type Store interface {
	// Append saves a new revision and returns it. A blank strategy ID
	// allocates a fresh one.
	Append(strategyID string, doc *types.Strategy, now time.Time) (Revision, error)
	// Current returns the latest revision of a strategy.
	Current(strategyID string) (Revision, bool)
	// History returns all revisions of a strategy, oldest first.
	History(strategyID string) []Revision
}

// MemoryStore is the in-process Store used by the API server.
type MemoryStore struct {
	mu        sync.RWMutex
	revisions map[string][]Revision
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revisions: make(map[string][]Revision)}
}

// Append implements Store.
func (s *MemoryStore) Append(strategyID string, doc *types.Strategy, now time.Time) (Revision, error) {
	if doc == nil {
		return Revision{}, fmt.Errorf("version store: nil document")
	}
	id := strings.TrimSpace(strategyID)
	if id == "" {
		id = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Freeze a copy stamped with the allocated identity so later caller
	// mutations cannot reach the stored revision.
	cp := doc.Clone()
	cp.StrategyID = id
	cp.Version = len(s.revisions[id]) + 1
	rev := Revision{
		StrategyID: id,
		Version:    cp.Version,
		Document:   cp,
		SavedAt:    now,
	}
	s.revisions[id] = append(s.revisions[id], rev)
	return rev, nil
}

// Current implements Store.
func (s *MemoryStore) Current(strategyID string) (Revision, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	revs := s.revisions[strings.TrimSpace(strategyID)]
	if len(revs) == 0 {
		return Revision{}, false
	}
	return revs[len(revs)-1], true
}

// History implements Store.
func (s *MemoryStore) History(strategyID string) []Revision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	revs := s.revisions[strings.TrimSpace(strategyID)]
	out := append([]Revision(nil), revs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}
