// Package broker holds the value types shared by broker integrations, plus
// credential sealing for configuration files.
package broker

import (
	"github.com/shopspring/decimal"
)

// Side is the order operation.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Market is a quote venue code.
type Market string

const (
	MarketUSA Market = "USA"
	MarketCAN Market = "CAN"
)

// Quote is a real-time bid/ask pair.
type Quote struct {
	Symbol string          `json:"symbol"`
	Market Market          `json:"market"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
}

// Account is one entry of the broker's portfolio account list.
type Account struct {
	Number      string `json:"account_id"`
	Description string `json:"description"`
}

// Order is the projection of a broker order record.
type Order struct {
	ID             string          `json:"order_id"`
	Operation      string          `json:"operation"`
	OrderQuantity  decimal.Decimal `json:"order_quantity"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	FillPrice      decimal.Decimal `json:"fill_price"`
	Open           bool            `json:"order_open"`
}

// Position is a held position flattened to one row per symbol.
type Position struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	Cost          decimal.Decimal `json:"cost"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_per"`
	MarketValue   decimal.Decimal `json:"market_val"`
}
