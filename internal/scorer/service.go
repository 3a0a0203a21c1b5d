package scorer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"legwork/internal/catalog"
	"legwork/internal/logger"
	"legwork/internal/market"

	"golang.org/x/sync/errgroup"
)

// maxSuggestions caps how many ranked templates get expanded into concrete
// proposals per request.
const maxSuggestions = 3

// Service ranks the template catalog against a market snapshot and expands
// the best fits into concrete suggestions.
type Service struct {
	registry *catalog.Registry
}

// NewService wires the ranker to a template registry.
func NewService(registry *catalog.Registry) *Service {
	return &Service{registry: registry}
}

// Rank scores every catalog template against the snapshot concurrently,
// orders by confidence, and expands the top candidates into suggestions.
// User overrides are applied per template when they pass that template's
// schema; templates whose archetype cannot be instantiated are logged and
// skipped rather than failing the whole request.
func (s *Service) Rank(ctx context.Context, snap market.Snapshot, overrides map[string]any, now time.Time) ([]Suggestion, error) {
	if s == nil || s.registry == nil {
		return nil, fmt.Errorf("rank: template registry not configured")
	}
	if !snap.Usable() {
		return nil, fmt.Errorf("rank: snapshot needs symbol and positive price")
	}

	templates := s.registry.Snapshot().Sorted()
	if len(templates) == 0 {
		return nil, fmt.Errorf("rank: template catalog is empty")
	}

	scores := make([]Score, len(templates))
	eg, _ := errgroup.WithContext(ctx)
	for i, tpl := range templates {
		i, tpl := i, tpl
		eg.Go(func() error {
			scores[i] = ScoreTemplate(tpl, snap, now)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]].Confidence > scores[order[b]].Confidence
	})

	out := make([]Suggestion, 0, maxSuggestions)
	for _, idx := range order {
		if len(out) == maxSuggestions {
			break
		}
		if scores[idx].Confidence <= 0 {
			continue
		}
		tpl := templates[idx]
		if len(overrides) > 0 {
			if err := tpl.ValidateOverrides(overrides); err != nil {
				logger.Warnf("Overrides rejected by template %s schema: %v", tpl.ID, err)
			} else {
				tpl = tpl.WithOverrides(overrides)
			}
		}
		sug, err := Propose(tpl, snap.Symbol, snap.CurrentPrice, scores[idx])
		if err != nil {
			logger.Warnf("Skipping template %s: %v", templates[idx].ID, err)
			continue
		}
		out = append(out, sug)
	}
	logger.Infof("Ranked %d templates for %s, %d suggestions", len(templates), snap.Symbol, len(out))
	return out, nil
}
