package deribit

import (
	"encoding/json"
	"time"

	"deribit_go/internal/domain"

	"github.com/shopspring/decimal"
)

// orderInfo mirrors the exchange's order object. Price is raw because the
// exchange reports the string "market_price" for market orders.
type orderInfo struct {
	OrderID           string          `json:"order_id"`
	Direction         string          `json:"direction"`
	InstrumentName    string          `json:"instrument_name"`
	Amount            decimal.Decimal `json:"amount"`
	Price             json.RawMessage `json:"price"`
	AveragePrice      decimal.Decimal `json:"average_price"`
	OrderType         string          `json:"order_type"`
	OrderState        string          `json:"order_state"`
	Label             string          `json:"label"`
	CreationTimestamp int64           `json:"creation_timestamp"` // ms
}

type orderResult struct {
	Order orderInfo `json:"order"`
}

func (o *orderInfo) toTradeRecord() *domain.TradeRecord {
	price := flexDecimal(o.Price)
	if price.IsZero() {
		// Market orders report no limit price; fall back to the fill average.
		price = o.AveragePrice
	}

	executedAt := time.Now().UTC()
	if o.CreationTimestamp > 0 {
		executedAt = time.UnixMilli(o.CreationTimestamp).UTC()
	}

	return &domain.TradeRecord{
		OrderID:    o.OrderID,
		Side:       o.Direction,
		Instrument: o.InstrumentName,
		Amount:     o.Amount,
		Price:      price,
		OrderType:  o.OrderType,
		Status:     o.OrderState,
		ExecutedAt: executedAt.Truncate(time.Second),
	}
}

// openOrderInfo is one entry of private/get_open_orders_by_currency.
type openOrderInfo struct {
	OrderID        string          `json:"order_id"`
	Direction      string          `json:"direction"`
	InstrumentName string          `json:"instrument_name"`
	Amount         decimal.Decimal `json:"amount"`
	Price          json.RawMessage `json:"price"`
	OrderType      string          `json:"order_type"`
}

// orderBookResult is the public/get_order_book payload; levels arrive as
// [price, amount] pairs.
type orderBookResult struct {
	InstrumentName string          `json:"instrument_name"`
	Timestamp      int64           `json:"timestamp"` // ms
	LastPrice      json.RawMessage `json:"last_price"`
	Bids           [][]float64     `json:"bids"`
	Asks           [][]float64     `json:"asks"`
}

func toBookLevels(raw [][]float64) []domain.BookLevel {
	levels := make([]domain.BookLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) < 2 {
			continue
		}
		levels = append(levels, domain.BookLevel{
			Price:  decimal.NewFromFloat(pair[0]),
			Amount: decimal.NewFromFloat(pair[1]),
		})
	}
	return levels
}

// flexDecimal parses a decimal that may arrive quoted, unquoted, absent or
// as a non-numeric placeholder; anything unparsable maps to zero.
func flexDecimal(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero
	}
	return d
}
