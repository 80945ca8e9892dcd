package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookLevel is a single price level of an order book side.
type BookLevel struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

// OrderBookSnapshot is a point-in-time view of the public order book.
type OrderBookSnapshot struct {
	Instrument string          `json:"instrument_name"`
	Timestamp  time.Time       `json:"timestamp"`
	LastPrice  decimal.Decimal `json:"last_price"`
	Bids       []BookLevel     `json:"bids"` // best bid first
	Asks       []BookLevel     `json:"asks"` // best ask first
}

// BestBid returns the highest bid, or zero when the book side is empty.
func (s *OrderBookSnapshot) BestBid() decimal.Decimal {
	if len(s.Bids) == 0 {
		return decimal.Zero
	}
	return s.Bids[0].Price
}

// BestAsk returns the lowest ask, or zero when the book side is empty.
func (s *OrderBookSnapshot) BestAsk() decimal.Decimal {
	if len(s.Asks) == 0 {
		return decimal.Zero
	}
	return s.Asks[0].Price
}
