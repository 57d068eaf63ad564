// Package poller keeps the store in sync with the backend by polling each
// collection on its own interval.
package poller

import (
	"context"
	"fmt"
	"sync"

	"pipeline-dashboard-go/internal/backend"
	"pipeline-dashboard-go/internal/models"
	"pipeline-dashboard-go/internal/normalize"
	"pipeline-dashboard-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxPriceFetches bounds the number of concurrent price requests.
const maxPriceFetches = 4

// Syncer fetches collections from the backend and dispatches them into the
// store.
type Syncer struct {
	client backend.ClientInterface
	store  *store.Store
	logger *zap.Logger
}

// NewSyncer creates a new syncer.
func NewSyncer(client backend.ClientInterface, st *store.Store, logger *zap.Logger) *Syncer {
	return &Syncer{client: client, store: st, logger: logger.Named("syncer")}
}

// RefreshTrades fetches one page of trades and merges it into the store.
// Records that fail to normalize are skipped and logged.
func (s *Syncer) RefreshTrades(ctx context.Context, page int) error {
	raws, err := s.client.GetTrades(ctx, page)
	if err != nil {
		return fmt.Errorf("could not refresh trades: %w", err)
	}
	trades, err := normalize.ParseTrades(raws)
	if err != nil {
		s.logger.Warn("Skipped malformed trades", zap.Int("page", page), zap.Error(err))
	}
	s.store.Dispatch(store.TradesReceived{Trades: trades})
	return nil
}

// RefreshPipelines fetches the pipelines and merges them into the store.
func (s *Syncer) RefreshPipelines(ctx context.Context) error {
	pipelines, err := s.client.GetPipelines(ctx)
	if err != nil {
		return fmt.Errorf("could not refresh pipelines: %w", err)
	}
	valid := pipelines[:0]
	for _, p := range pipelines {
		if err := p.Params.Validate(); err != nil {
			s.logger.Warn("Skipped pipeline with invalid params", zap.Int64("pipeline_id", p.ID), zap.Error(err))
			continue
		}
		valid = append(valid, p)
	}
	s.store.Dispatch(store.PipelinesReceived{Pipelines: valid})
	return nil
}

// RefreshPositions replaces the position snapshot.
func (s *Syncer) RefreshPositions(ctx context.Context) error {
	positions, err := s.client.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("could not refresh positions: %w", err)
	}
	s.store.Dispatch(store.PositionsReceived{Positions: positions})
	return nil
}

// RefreshPrices fetches the current price of every symbol traded by a known
// pipeline. A symbol whose price cannot be fetched keeps its previous price;
// the failure is logged and does not abort the other fetches.
func (s *Syncer) RefreshPrices(ctx context.Context) error {
	symbols := s.store.Symbols()
	if len(symbols) == 0 {
		return nil
	}

	var (
		mu     sync.Mutex
		prices = make(map[string]decimal.Decimal, len(symbols))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPriceFetches)
	for _, symbol := range symbols {
		g.Go(func() error {
			resp, err := s.client.GetPrice(gctx, symbol)
			if err != nil {
				s.logger.Warn("Could not fetch price", zap.String("symbol", symbol), zap.Error(err))
				return nil
			}
			mu.Lock()
			prices[symbol] = resp.Price
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(prices) == 0 {
		return ctx.Err()
	}
	s.store.Dispatch(store.PricesReceived{Prices: prices})
	return nil
}

// RefreshBalances fetches the account balances.
func (s *Syncer) RefreshBalances(ctx context.Context) error {
	resp, err := s.client.GetAccountBalance(ctx)
	if err != nil {
		return fmt.Errorf("could not refresh balances: %w", err)
	}
	s.store.Dispatch(store.BalancesReceived{Balances: normalize.Balances(*resp)})
	return nil
}

// RefreshMetrics fetches the aggregate pipeline metrics.
func (s *Syncer) RefreshMetrics(ctx context.Context) error {
	metrics, err := s.client.GetPipelinesMetrics(ctx)
	if err != nil {
		return fmt.Errorf("could not refresh pipeline metrics: %w", err)
	}
	if metrics == nil {
		metrics = models.PipelinesMetrics{}
	}
	s.store.Dispatch(store.MetricsReceived{Metrics: metrics})
	return nil
}

// LoadResources fetches the resource options used by the pipeline form.
func (s *Syncer) LoadResources(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	resources, err := s.client.GetResources(ctx, names)
	if err != nil {
		return fmt.Errorf("could not load resources: %w", err)
	}
	s.store.Dispatch(store.ResourcesReceived{Resources: resources})
	return nil
}
