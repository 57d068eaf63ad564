// Package normalize turns raw backend records into the canonical records kept
// by the store and into the view models handed to the presentation layer.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pipeline-dashboard-go/internal/models"

	"github.com/shopspring/decimal"
)

// ErrInvalidSide is returned when a trade side cannot be mapped to long or short.
var ErrInvalidSide = errors.New("invalid trade side")

// ColorClass classifies a signed value for display.
type ColorClass string

const (
	Gain    ColorClass = "gain"
	Loss    ColorClass = "loss"
	Neutral ColorClass = "neutral"
)

var hundred = decimal.NewFromInt(100)

// ParseSide maps the backend's side encoding to a signed side. Accepted forms
// are 1/-1 and LONG/SHORT/BUY/SELL in any case.
func ParseSide(raw json.RawMessage) (models.Side, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrInvalidSide)
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidSide, err)
		}
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "LONG", "BUY", "1":
			return models.SideLong, nil
		case "SHORT", "SELL", "-1":
			return models.SideShort, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}

	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidSide, raw)
	}
	switch n {
	case 1:
		return models.SideLong, nil
	case -1:
		return models.SideShort, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidSide, n)
}

// ParseTrade converts a raw backend trade into its canonical form.
func ParseTrade(raw models.RawTrade) (models.Trade, error) {
	side, err := ParseSide(raw.Side)
	if err != nil {
		return models.Trade{}, fmt.Errorf("trade %d: %w", raw.ID, err)
	}

	trade := models.Trade{
		ID:         raw.ID,
		PipelineID: raw.PipelineID,
		Symbol:     raw.Symbol,
		Side:       side,
		Amount:     raw.Amount,
		OpenPrice:  raw.OpenPrice,
		ClosePrice: raw.ClosePrice,
		OpenTime:   raw.OpenTime.Time,
		ProfitLoss: raw.ProfitLoss,
		Mock:       raw.Mock,
	}
	if !raw.CloseTime.IsZero() {
		closeTime := raw.CloseTime.Time
		trade.CloseTime = &closeTime
	}
	return trade, nil
}

// ParseTrades converts a batch, skipping records that cannot be parsed. The
// returned error joins every per-record failure.
func ParseTrades(raws []models.RawTrade) ([]models.Trade, error) {
	trades := make([]models.Trade, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		trade, err := ParseTrade(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		trades = append(trades, trade)
	}
	return trades, errors.Join(errs...)
}

// LivePnL is the percentage return of a position opened at open and valued at
// current, rounded to two decimals.
func LivePnL(open, current decimal.Decimal, side models.Side) decimal.Decimal {
	if open.IsZero() {
		return decimal.Zero
	}
	var diff decimal.Decimal
	if side == models.SideShort {
		diff = open.Sub(current)
	} else {
		diff = current.Sub(open)
	}
	return diff.Div(open).Mul(hundred).Round(2)
}

// TradePnL returns the PnL percentage of a trade and whether one could be
// computed. A realized profitLoss always wins over the live price; an open
// trade without a price for its symbol yields zero.
func TradePnL(t models.Trade, prices map[string]decimal.Decimal) (decimal.Decimal, bool) {
	if t.ProfitLoss.Valid {
		return t.ProfitLoss.Decimal.Mul(hundred).Round(2), true
	}
	if t.Closed() {
		return decimal.Zero, false
	}
	current, ok := prices[t.Symbol]
	if !ok || t.OpenPrice.IsZero() {
		return decimal.Zero, false
	}
	return LivePnL(t.OpenPrice, current, t.Side), true
}

// Classify maps the sign of v to a color class.
func Classify(v decimal.Decimal) ColorClass {
	switch v.Sign() {
	case 1:
		return Gain
	case -1:
		return Loss
	}
	return Neutral
}

// TradeView is a trade prepared for display.
type TradeView struct {
	models.Trade
	Mode       string          `json:"mode"`
	SideLabel  string          `json:"sideLabel"`
	Duration   string          `json:"duration"`
	PnL        decimal.Decimal `json:"pnl"`
	PnLDisplay string          `json:"pnlDisplay"`
	Color      ColorClass      `json:"color"`
}

// ViewTrade derives the display fields of t at instant now.
func ViewTrade(t models.Trade, prices map[string]decimal.Decimal, now time.Time) TradeView {
	end := now
	if t.CloseTime != nil {
		end = *t.CloseTime
	}

	pnl, ok := TradePnL(t, prices)
	display := ""
	if ok {
		display = pnl.StringFixed(2) + "%"
	}

	mode := "Live"
	if t.Mock {
		mode = "Demo"
	}

	return TradeView{
		Trade:      t,
		Mode:       mode,
		SideLabel:  t.Side.String(),
		Duration:   FormatDuration(end.Sub(t.OpenTime)),
		PnL:        pnl,
		PnLDisplay: display,
		Color:      Classify(pnl),
	}
}
