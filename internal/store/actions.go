package store

import (
	"pipeline-dashboard-go/internal/models"

	"github.com/shopspring/decimal"
)

// Kind names a collection held by the store.
type Kind string

const (
	KindTrades    Kind = "trades"
	KindPipelines Kind = "pipelines"
	KindPositions Kind = "positions"
	KindPrices    Kind = "prices"
	KindBalances  Kind = "balances"
	KindMetrics   Kind = "metrics"
	KindResources Kind = "resources"
)

// Action is a state transition applied by Store.Dispatch.
type Action interface {
	isAction()
}

// TradesReceived upserts a page of trades. Known trades absent from the batch
// are kept.
type TradesReceived struct{ Trades []models.Trade }

// PipelinesReceived upserts a batch of pipelines. Known pipelines absent from
// the batch are kept.
type PipelinesReceived struct{ Pipelines []models.Pipeline }

// PositionsReceived replaces the position snapshot wholesale.
type PositionsReceived struct{ Positions []models.Position }

// PipelineUpserted inserts a pipeline or replaces the known one with its id.
type PipelineUpserted struct{ Pipeline models.Pipeline }

// PipelineReplaced replaces a known pipeline. Unknown ids are ignored.
type PipelineReplaced struct{ Pipeline models.Pipeline }

// PipelineRemoved deletes a pipeline and every position it owns.
type PipelineRemoved struct{ ID int64 }

// PricesReceived merges current prices by symbol.
type PricesReceived struct{ Prices map[string]decimal.Decimal }

// BalancesReceived replaces the account balances.
type BalancesReceived struct{ Balances models.Balances }

// MetricsReceived replaces the backend pipeline metrics.
type MetricsReceived struct{ Metrics models.PipelinesMetrics }

// ResourcesReceived replaces the resource options.
type ResourcesReceived struct{ Resources models.Resources }

func (TradesReceived) isAction()    {}
func (PipelinesReceived) isAction() {}
func (PositionsReceived) isAction() {}
func (PipelineUpserted) isAction()  {}
func (PipelineReplaced) isAction()  {}
func (PipelineRemoved) isAction()   {}
func (PricesReceived) isAction()    {}
func (BalancesReceived) isAction()  {}
func (MetricsReceived) isAction()   {}
func (ResourcesReceived) isAction() {}
