package models

import "github.com/shopspring/decimal"

// AccountCoin is one asset row of the futures account balance endpoint.
type AccountCoin struct {
	Asset             string          `json:"asset"`
	Balance           decimal.Decimal `json:"balance"`
	WithdrawAvailable decimal.Decimal `json:"withdrawAvailable"`
}

// Balance is the normalized balance of a single asset.
type Balance struct {
	TotalBalance     decimal.Decimal `json:"totalBalance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

// Balances groups asset balances by trading mode.
type Balances struct {
	Live map[string]Balance `json:"live"`
	Test map[string]Balance `json:"test"`
}
