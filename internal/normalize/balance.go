package normalize

import "pipeline-dashboard-go/internal/models"

// Balances reduces the live and testnet coin lists to per-asset balances.
// Later rows for the same asset win.
func Balances(resp models.BalanceResponse) models.Balances {
	return models.Balances{
		Live: reduceCoins(resp.Live),
		Test: reduceCoins(resp.Testnet),
	}
}

func reduceCoins(coins []models.AccountCoin) map[string]models.Balance {
	out := make(map[string]models.Balance, len(coins))
	for _, c := range coins {
		out[c.Asset] = models.Balance{
			TotalBalance:     c.Balance,
			AvailableBalance: c.WithdrawAvailable,
		}
	}
	return out
}
