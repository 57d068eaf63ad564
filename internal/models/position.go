package models

import "github.com/shopspring/decimal"

// Position is the directional exposure currently held by a pipeline:
// -1 short, 0 neutral, 1 long.
type Position struct {
	PipelineID   int64           `json:"pipelineId"`
	Position     int             `json:"position"`
	Symbol       string          `json:"symbol,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Price        decimal.Decimal `json:"price"`
	PaperTrading bool            `json:"paperTrading"`
}
