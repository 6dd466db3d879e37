package ports

import "github.com/shopspring/decimal"

// PriceSource provides current market prices for unrealized gain computation.
// Implementations (market-data API clients, local price caches) live outside
// the core and are expected to return prices in the reporting currency.
type PriceSource interface {
	// Price returns the current price for the asset symbol, or false if the
	// source has no quote for it.
	Price(asset string) (decimal.Decimal, bool)
	// Prices returns quotes for all the requested symbols. Missing symbols
	// are simply absent from the returned map.
	Prices(assets []string) map[string]decimal.Decimal
}
