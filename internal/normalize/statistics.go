package normalize

import (
	"time"

	"pipeline-dashboard-go/internal/models"

	"github.com/shopspring/decimal"
)

// StatsDetail holds closed-trade statistics for a given period.
type StatsDetail struct {
	TotalTrades      int64           `json:"total_trades"`
	ProfitableTrades int64           `json:"profitable_trades"`
	WinRate          float64         `json:"win_rate"`
	TotalPnL         decimal.Decimal `json:"total_pnl"`
}

// Statistics is the trade summary shown on the dashboard.
type Statistics struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// TradeStatistics summarizes closed trades carrying a realized profitLoss.
// TotalPnL is the sum of realized returns in percent.
func TradeStatistics(trades []models.Trade, now time.Time) Statistics {
	since24h := now.Add(-24 * time.Hour)

	var stats Statistics
	for _, t := range trades {
		if !t.Closed() || !t.ProfitLoss.Valid {
			continue
		}
		pnl := t.ProfitLoss.Decimal.Mul(hundred)

		stats.AllTime.add(pnl)
		if t.CloseTime.After(since24h) {
			stats.Since24h.add(pnl)
		}
	}

	stats.AllTime.finish()
	stats.Since24h.finish()
	return stats
}

func (s *StatsDetail) add(pnl decimal.Decimal) {
	s.TotalTrades++
	if pnl.IsPositive() {
		s.ProfitableTrades++
	}
	s.TotalPnL = s.TotalPnL.Add(pnl)
}

func (s *StatsDetail) finish() {
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.ProfitableTrades) / float64(s.TotalTrades)
	}
	s.TotalPnL = s.TotalPnL.Round(2)
}
