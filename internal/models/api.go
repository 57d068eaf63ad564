package models

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// TradesResponse is the body of GET trades.
type TradesResponse struct {
	Trades []RawTrade `json:"trades"`
}

// PipelinesResponse is the body of GET pipelines.
type PipelinesResponse struct {
	Pipelines []Pipeline `json:"pipelines"`
}

// PositionsResponse is the body of GET positions.
type PositionsResponse struct {
	Positions []Position `json:"positions"`
}

// PriceResponse is the body of GET price/<symbol>.
type PriceResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// CommandResponse is the envelope returned by every mutating endpoint.
// Pipeline is absent for deletes and for rejected commands.
type CommandResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Pipeline *Pipeline `json:"pipeline,omitempty"`
}

// BalanceResponse is the body of GET futures_account_balance.
type BalanceResponse struct {
	Live    []AccountCoin `json:"live"`
	Testnet []AccountCoin `json:"testnet"`
}

// PipelinesMetrics is the aggregate computed by the backend. It is passed
// through untouched.
type PipelinesMetrics map[string]json.RawMessage

// Int returns the integer stored under key, or 0.
func (m PipelinesMetrics) Int(key string) int {
	var n int
	if raw, ok := m[key]; ok {
		_ = json.Unmarshal(raw, &n)
	}
	return n
}

// Resources maps a resource kind (symbols, strategies, ...) to its entries
// keyed by name.
type Resources map[string]map[string]json.RawMessage

// Options returns the sorted entry names of a resource kind.
func (r Resources) Options(kind string) []string {
	names := make([]string, 0, len(r[kind]))
	for name := range r[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
