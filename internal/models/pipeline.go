package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrInvalidParam is returned when a strategy parameter is not a string, number or bool.
var ErrInvalidParam = errors.New("invalid strategy parameter")

// Params holds strategy parameters. Values are limited to strings, numbers
// (float64 after JSON decoding) and booleans.
type Params map[string]any

// Validate checks the value-type contract of every parameter.
func (p Params) Validate() error {
	for _, key := range p.Keys() {
		switch v := p[key].(type) {
		case string, float64, bool:
		case int, int64:
			p[key] = toFloat(v)
		default:
			return fmt.Errorf("%w: %s has type %T", ErrInvalidParam, key, v)
		}
	}
	return nil
}

// Keys returns the parameter names in lexical order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// Pipeline is a configured trading bot.
type Pipeline struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Color        string          `json:"color,omitempty"`
	Symbol       string          `json:"symbol"`
	Strategy     string          `json:"strategy"`
	CandleSize   string          `json:"candleSize"`
	Exchange     string          `json:"exchange"`
	Params       Params          `json:"params"`
	Allocation   decimal.Decimal `json:"allocation"`
	Leverage     int             `json:"leverage"`
	Active       bool            `json:"active"`
	PaperTrading bool            `json:"paperTrading"`
	OpenTime     Timestamp       `json:"openTime"`
	NumberTrades int             `json:"numberTrades"`
}

// PipelineParams is the payload used to start a new pipeline or to edit an
// existing one. PipelineID is only set for edits.
type PipelineParams struct {
	PipelineID   int64           `json:"pipelineId,omitempty"`
	Name         string          `json:"name"`
	Color        string          `json:"color,omitempty"`
	Symbol       string          `json:"symbol"`
	Strategy     string          `json:"strategy"`
	CandleSize   string          `json:"candleSize"`
	Exchange     string          `json:"exchange"`
	Params       Params          `json:"params"`
	Allocation   decimal.Decimal `json:"equity"`
	Leverage     int             `json:"leverage"`
	PaperTrading bool            `json:"paperTrading"`
}

// Validate checks the required fields and the parameter contract.
func (p PipelineParams) Validate() error {
	switch {
	case p.Name == "":
		return errors.New("name is required")
	case p.Symbol == "":
		return errors.New("symbol is required")
	case p.Strategy == "":
		return errors.New("strategy is required")
	case p.Allocation.IsNegative():
		return errors.New("equity must not be negative")
	case p.Leverage < 0:
		return errors.New("leverage must not be negative")
	}
	return p.Params.Validate()
}
