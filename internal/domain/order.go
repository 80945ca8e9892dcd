package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	SideBuy  = "buy"
	SideSell = "sell"

	OrderTypeLimit  = "limit"
	OrderTypeMarket = "market"
)

// OrderRequest is a validated order, ready to be dispatched to the exchange.
// Immutable once built; the label is assigned by the session at send time.
type OrderRequest struct {
	Instrument string
	Amount     decimal.Decimal
	Side       string
	OrderType  string
	Price      decimal.Decimal // zero unless OrderType is limit
	Label      string
}

// NewOrderRequest parses and validates raw order input. Amount must be a
// positive decimal; price is required (and positive) for limit orders and
// must be absent for market orders. A failed validation never reaches the
// exchange.
func NewOrderRequest(side, instrument, amount, orderType, price string) (*OrderRequest, error) {
	if side != SideBuy && side != SideSell {
		return nil, &ValidationError{Field: "side", Reason: "must be buy or sell"}
	}

	instrument = strings.ToUpper(strings.TrimSpace(instrument))
	if instrument == "" {
		return nil, &ValidationError{Field: "instrument", Reason: "must not be empty"}
	}

	amt, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, &ValidationError{Field: "amount", Reason: "not a decimal number"}
	}
	if !amt.IsPositive() {
		return nil, &ValidationError{Field: "amount", Reason: "must be positive"}
	}

	req := &OrderRequest{
		Instrument: instrument,
		Amount:     amt,
		Side:       side,
		OrderType:  strings.ToLower(strings.TrimSpace(orderType)),
	}

	switch req.OrderType {
	case OrderTypeLimit:
		prc, err := decimal.NewFromString(strings.TrimSpace(price))
		if err != nil {
			return nil, &ValidationError{Field: "price", Reason: "not a decimal number"}
		}
		if !prc.IsPositive() {
			return nil, &ValidationError{Field: "price", Reason: "must be positive"}
		}
		req.Price = prc
	case OrderTypeMarket:
		if strings.TrimSpace(price) != "" {
			return nil, &ValidationError{Field: "price", Reason: "not allowed for market orders"}
		}
	default:
		return nil, &ValidationError{Field: "order type", Reason: "must be limit or market"}
	}

	return req, nil
}

// OpenOrder is the read model for an order resting on the exchange.
// Recomputed on every query, never cached.
type OpenOrder struct {
	OrderID    string          `json:"order_id"`
	Instrument string          `json:"instrument_name"`
	Direction  string          `json:"direction"`
	Amount     decimal.Decimal `json:"amount"`
	Price      decimal.Decimal `json:"price"`
	OrderType  string          `json:"order_type"`
}

// CancelResult reports the exchange-side state of a cancelled order.
type CancelResult struct {
	OrderID    string `json:"order_id"`
	Instrument string `json:"instrument_name"`
	Status     string `json:"order_state"`
}
