// Package store keeps the authoritative in-memory collections of the
// dashboard. All mutations go through Dispatch so that every batch of a given
// kind is applied atomically and in arrival order.
package store

import (
	"sort"
	"sync"

	"pipeline-dashboard-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Change is published to subscribers after a collection was mutated.
type Change struct {
	Kind    Kind   `json:"kind"`
	Version uint64 `json:"version"`
}

// Store holds every collection keyed by id.
type Store struct {
	logger *zap.Logger

	mu            sync.RWMutex
	trades        map[int64]models.Trade
	pipelines     map[int64]models.Pipeline
	pipelineOrder []int64
	positions     map[int64]models.Position
	positionOrder []int64
	prices        map[string]decimal.Decimal
	balances      models.Balances
	metrics       models.PipelinesMetrics
	resources     models.Resources
	versions      map[Kind]uint64

	subMu       sync.Mutex
	subscribers map[int]chan Change
	nextSubID   int
}

// New creates an empty store.
func New(logger *zap.Logger) *Store {
	return &Store{
		logger:      logger.Named("store"),
		trades:      make(map[int64]models.Trade),
		pipelines:   make(map[int64]models.Pipeline),
		positions:   make(map[int64]models.Position),
		prices:      make(map[string]decimal.Decimal),
		balances:    models.Balances{Live: map[string]models.Balance{}, Test: map[string]models.Balance{}},
		metrics:     models.PipelinesMetrics{},
		resources:   models.Resources{},
		versions:    make(map[Kind]uint64),
		subscribers: make(map[int]chan Change),
	}
}

// Dispatch applies a to the store and notifies subscribers of every kind it
// changed.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	kinds := s.reduce(a)
	changes := make([]Change, 0, len(kinds))
	for _, k := range kinds {
		s.versions[k]++
		changes = append(changes, Change{Kind: k, Version: s.versions[k]})
	}
	s.mu.Unlock()

	for _, c := range changes {
		s.publish(c)
	}
}

// reduce mutates the collections and reports the kinds it touched.
// Callers must hold s.mu.
func (s *Store) reduce(a Action) []Kind {
	switch a := a.(type) {
	case TradesReceived:
		for _, t := range a.Trades {
			if known, ok := s.trades[t.ID]; ok && known.Closed() {
				continue
			}
			s.trades[t.ID] = t
		}
		return []Kind{KindTrades}

	case PipelinesReceived:
		for _, p := range a.Pipelines {
			s.putPipeline(p)
		}
		return []Kind{KindPipelines}

	case PipelineUpserted:
		s.putPipeline(a.Pipeline)
		return []Kind{KindPipelines}

	case PipelineReplaced:
		if _, ok := s.pipelines[a.Pipeline.ID]; !ok {
			s.logger.Warn("Ignoring replacement of unknown pipeline", zap.Int64("pipeline_id", a.Pipeline.ID))
			return nil
		}
		s.pipelines[a.Pipeline.ID] = a.Pipeline
		return []Kind{KindPipelines}

	case PipelineRemoved:
		// The owned position goes even when the pipeline itself was never seen.
		var kinds []Kind
		if _, ok := s.pipelines[a.ID]; ok {
			delete(s.pipelines, a.ID)
			s.pipelineOrder = without(s.pipelineOrder, a.ID)
			kinds = append(kinds, KindPipelines)
		}
		if _, ok := s.positions[a.ID]; ok {
			delete(s.positions, a.ID)
			s.positionOrder = without(s.positionOrder, a.ID)
			kinds = append(kinds, KindPositions)
		}
		return kinds

	case PositionsReceived:
		s.positions = make(map[int64]models.Position, len(a.Positions))
		s.positionOrder = s.positionOrder[:0]
		for _, p := range a.Positions {
			if _, dup := s.positions[p.PipelineID]; !dup {
				s.positionOrder = append(s.positionOrder, p.PipelineID)
			}
			s.positions[p.PipelineID] = p
		}
		return []Kind{KindPositions}

	case PricesReceived:
		for symbol, price := range a.Prices {
			s.prices[symbol] = price
		}
		return []Kind{KindPrices}

	case BalancesReceived:
		s.balances = a.Balances
		return []Kind{KindBalances}

	case MetricsReceived:
		s.metrics = a.Metrics
		return []Kind{KindMetrics}

	case ResourcesReceived:
		s.resources = a.Resources
		return []Kind{KindResources}
	}

	s.logger.Error("Unknown action", zap.Any("action", a))
	return nil
}

func (s *Store) putPipeline(p models.Pipeline) {
	if _, ok := s.pipelines[p.ID]; !ok {
		s.pipelineOrder = append(s.pipelineOrder, p.ID)
	}
	s.pipelines[p.ID] = p
}

func without(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Version returns the number of mutations applied to kind so far.
func (s *Store) Version(kind Kind) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[kind]
}

// Trades returns every known trade, most recently opened first.
func (s *Store) Trades() []models.Trade {
	s.mu.RLock()
	trades := make([]models.Trade, 0, len(s.trades))
	for _, t := range s.trades {
		trades = append(trades, t)
	}
	s.mu.RUnlock()

	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].OpenTime.Equal(trades[j].OpenTime) {
			return trades[i].OpenTime.After(trades[j].OpenTime)
		}
		return trades[i].ID > trades[j].ID
	})
	return trades
}

// Trade returns the trade with the given id.
func (s *Store) Trade(id int64) (models.Trade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trades[id]
	return t, ok
}

// Pipelines returns the pipelines in the order they were first seen.
func (s *Store) Pipelines() []models.Pipeline {
	pipelines, _ := s.PipelinesSnapshot()
	return pipelines
}

// PipelinesSnapshot returns the ordered pipelines together with the version
// they were read at.
func (s *Store) PipelinesSnapshot() ([]models.Pipeline, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Pipeline, 0, len(s.pipelineOrder))
	for _, id := range s.pipelineOrder {
		out = append(out, s.pipelines[id])
	}
	return out, s.versions[KindPipelines]
}

// PipelinesByID returns a copy of the pipeline mapping.
func (s *Store) PipelinesByID() map[int64]models.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]models.Pipeline, len(s.pipelines))
	for id, p := range s.pipelines {
		out[id] = p
	}
	return out
}

// Pipeline returns the pipeline with the given id.
func (s *Store) Pipeline(id int64) (models.Pipeline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pipelines[id]
	return p, ok
}

// Symbols returns the distinct symbols traded by known pipelines.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(s.pipelines))
	var symbols []string
	for _, id := range s.pipelineOrder {
		sym := s.pipelines[id].Symbol
		if _, ok := seen[sym]; ok || sym == "" {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}
	return symbols
}

// Positions returns the latest position snapshot in backend order.
func (s *Store) Positions() []models.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Position, 0, len(s.positionOrder))
	for _, id := range s.positionOrder {
		out = append(out, s.positions[id])
	}
	return out
}

// Position returns the position held by a pipeline.
func (s *Store) Position(pipelineID int64) (models.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[pipelineID]
	return p, ok
}

// Prices returns a copy of the current prices.
func (s *Store) Prices() map[string]decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(s.prices))
	for k, v := range s.prices {
		out[k] = v
	}
	return out
}

// Balances returns the account balances.
func (s *Store) Balances() models.Balances {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances
}

// Metrics returns the backend pipeline metrics.
func (s *Store) Metrics() models.PipelinesMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// Resources returns the resource options.
func (s *Store) Resources() models.Resources {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resources
}
