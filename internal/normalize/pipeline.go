package normalize

import (
	"time"

	"pipeline-dashboard-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	StatusRunning = "Running"
	StatusStopped = "Stopped"
)

// PipelineView is a pipeline prepared for display. Age and Status depend on
// the moment of rendering and are never cached.
type PipelineView struct {
	models.Pipeline
	Status   string      `json:"status"`
	Mode     string      `json:"mode"`
	Age      string      `json:"age"`
	PnL      PipelinePnL `json:"pnl"`
	Position *int        `json:"position,omitempty"`
}

// ViewPipeline derives the display fields of p at instant now.
func ViewPipeline(p models.Pipeline, now time.Time) PipelineView {
	status := StatusStopped
	if p.Active {
		status = StatusRunning
	}
	mode := "Live"
	if p.PaperTrading {
		mode = "Test"
	}
	age := "-"
	if !p.OpenTime.IsZero() {
		age = FormatDuration(now.Sub(p.OpenTime.Time))
	}
	return PipelineView{Pipeline: p, Status: status, Mode: mode, Age: age}
}

// PipelinePnL is the realized result of a pipeline: absolute profit in quote
// currency and ROI against its allocation.
type PipelinePnL struct {
	Profit decimal.Decimal `json:"profit"`
	ROI    decimal.Decimal `json:"roi"`
	Color  ColorClass      `json:"color"`
}

// PipelinesPnL aggregates closed trades per pipeline. Trades without a close
// price or without a pipeline are ignored.
func PipelinesPnL(pipelines map[int64]models.Pipeline, trades []models.Trade) map[int64]PipelinePnL {
	profits := make(map[int64]decimal.Decimal)
	for _, t := range trades {
		if !t.Closed() || !t.ClosePrice.Valid || t.PipelineID == 0 {
			continue
		}
		diff := t.ClosePrice.Decimal.Sub(t.OpenPrice)
		if t.Side == models.SideShort {
			diff = diff.Neg()
		}
		profits[t.PipelineID] = profits[t.PipelineID].Add(diff.Mul(t.Amount))
	}

	out := make(map[int64]PipelinePnL, len(profits))
	for id, profit := range profits {
		roi := decimal.Zero
		if p, ok := pipelines[id]; ok && p.Allocation.IsPositive() {
			roi = profit.Div(p.Allocation).Mul(hundred).Round(2)
		}
		out[id] = PipelinePnL{Profit: profit.Round(2), ROI: roi, Color: Classify(profit)}
	}
	return out
}
