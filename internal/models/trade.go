package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the signed direction of a trade.
type Side int

const (
	SideShort Side = -1
	SideLong  Side = 1
)

// String returns LONG or SHORT.
func (s Side) String() string {
	if s == SideShort {
		return "SHORT"
	}
	return "LONG"
}

// RawTrade is a trade exactly as returned by the backend. Side is left raw
// because the backend has sent it both as a signed integer and as a string.
type RawTrade struct {
	ID         int64               `json:"id"`
	PipelineID int64               `json:"pipelineId"`
	Symbol     string              `json:"symbol"`
	Side       json.RawMessage     `json:"side"`
	Amount     decimal.Decimal     `json:"amount"`
	OpenPrice  decimal.Decimal     `json:"openPrice"`
	ClosePrice decimal.NullDecimal `json:"closePrice"`
	OpenTime   Timestamp           `json:"openTime"`
	CloseTime  Timestamp           `json:"closeTime"`
	ProfitLoss decimal.NullDecimal `json:"profitLoss"`
	Mock       bool                `json:"mock"`
}

// Trade is the canonical trade record kept by the store.
// Once CloseTime is set the trade is immutable.
type Trade struct {
	ID         int64               `json:"id"`
	PipelineID int64               `json:"pipelineId,omitempty"`
	Symbol     string              `json:"symbol"`
	Side       Side                `json:"side"`
	Amount     decimal.Decimal     `json:"amount"`
	OpenPrice  decimal.Decimal     `json:"openPrice"`
	ClosePrice decimal.NullDecimal `json:"closePrice"`
	OpenTime   time.Time           `json:"openTime"`
	CloseTime  *time.Time          `json:"closeTime,omitempty"`
	ProfitLoss decimal.NullDecimal `json:"profitLoss"`
	Mock       bool                `json:"mock"`
}

// Closed reports whether the trade has been closed.
func (t Trade) Closed() bool {
	return t.CloseTime != nil
}
