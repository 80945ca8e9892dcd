package deribit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"deribit_go/internal/domain"
	"deribit_go/internal/infra"
)

// Buy validates the input and places a buy order. On success the resulting
// trade is persisted; a store failure is logged and does not undo or retry
// the already-executed trade.
func (s *Session) Buy(instrument, amount, orderType, price string) (*domain.TradeRecord, error) {
	req, err := domain.NewOrderRequest(domain.SideBuy, instrument, amount, orderType, price)
	if err != nil {
		return nil, err
	}
	return s.placeOrder(req)
}

// Sell validates the input and places a sell order.
func (s *Session) Sell(instrument, amount, orderType, price string) (*domain.TradeRecord, error) {
	req, err := domain.NewOrderRequest(domain.SideSell, instrument, amount, orderType, price)
	if err != nil {
		return nil, err
	}
	return s.placeOrder(req)
}

func (s *Session) placeOrder(req *domain.OrderRequest) (*domain.TradeRecord, error) {
	req.Label = s.nextLabel(req.Side)

	// Boundary conversion: decimals travel as JSON numbers on the wire.
	params := map[string]any{
		"instrument_name": req.Instrument,
		"amount":          req.Amount.InexactFloat64(),
		"type":            req.OrderType,
		"label":           req.Label,
	}
	if req.OrderType == domain.OrderTypeLimit {
		params["price"] = req.Price.InexactFloat64()
	}

	raw, err := s.Call("private/"+req.Side, params)
	if err != nil {
		return nil, err
	}

	var result orderResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &domain.ProtocolError{Reason: "malformed order result", Err: err}
	}

	rec := result.Order.toTradeRecord()
	s.persistTrade(rec)

	s.logger.Info("order executed",
		slog.String("order_id", rec.OrderID),
		slog.String("side", rec.Side),
		slog.String("instrument", rec.Instrument),
		slog.String("amount", rec.Amount.String()),
		slog.String("type", rec.OrderType),
	)
	return rec, nil
}

// persistTrade records an executed trade. The exchange-side effect is
// irreversible from here, so a failing store is a warning, never an error.
func (s *Session) persistTrade(rec *domain.TradeRecord) {
	if s.store == nil {
		s.logger.Warn("no trade store configured, skipping record", slog.String("order_id", rec.OrderID))
		return
	}
	if err := s.store.SaveTrade(rec); err != nil {
		infra.GlobalMetrics.RecordStoreFailure()
		s.logger.Warn("failed to record trade", slog.String("order_id", rec.OrderID), slog.Any("error", err))
		return
	}
	infra.GlobalMetrics.RecordTrade()
}

// CancelOrder cancels a resting order by id. An exchange rejection (already
// filled, unknown id) surfaces as an ExchangeError and is not retried here.
func (s *Session) CancelOrder(orderID string) (*domain.CancelResult, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, &domain.ValidationError{Field: "order id", Reason: "must not be empty"}
	}

	raw, err := s.Call("private/cancel", map[string]any{"order_id": orderID})
	if err != nil {
		return nil, err
	}

	var result domain.CancelResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &domain.ProtocolError{Reason: "malformed cancel result", Err: err}
	}
	s.logger.Info("order cancelled", slog.String("order_id", result.OrderID), slog.String("status", result.Status))
	return &result, nil
}

// OpenLimitOrders returns a snapshot of the currency's open futures orders,
// filtered client-side to limit orders.
func (s *Session) OpenLimitOrders(currency string) ([]domain.OpenOrder, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return nil, &domain.ValidationError{Field: "currency", Reason: "must not be empty"}
	}

	raw, err := s.Call("private/get_open_orders_by_currency", map[string]any{
		"currency": currency,
		"kind":     "future",
	})
	if err != nil {
		return nil, err
	}

	var all []openOrderInfo
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, &domain.ProtocolError{Reason: "malformed open orders result", Err: err}
	}

	orders := make([]domain.OpenOrder, 0, len(all))
	for _, o := range all {
		if o.OrderType != domain.OrderTypeLimit {
			continue
		}
		orders = append(orders, domain.OpenOrder{
			OrderID:    o.OrderID,
			Instrument: o.InstrumentName,
			Direction:  o.Direction,
			Amount:     o.Amount,
			Price:      flexDecimal(o.Price),
			OrderType:  o.OrderType,
		})
	}
	return orders, nil
}

// OrderBook fetches the public order book; usable before authentication.
func (s *Session) OrderBook(instrument string) (*domain.OrderBookSnapshot, error) {
	instrument = strings.ToUpper(strings.TrimSpace(instrument))
	if instrument == "" {
		return nil, &domain.ValidationError{Field: "instrument", Reason: "must not be empty"}
	}

	raw, err := s.Call("public/get_order_book", map[string]any{"instrument_name": instrument})
	if err != nil {
		return nil, err
	}

	var result orderBookResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &domain.ProtocolError{Reason: "malformed order book result", Err: err}
	}

	return &domain.OrderBookSnapshot{
		Instrument: result.InstrumentName,
		Timestamp:  time.UnixMilli(result.Timestamp).UTC(),
		LastPrice:  flexDecimal(result.LastPrice),
		Bids:       toBookLevels(result.Bids),
		Asks:       toBookLevels(result.Asks),
	}, nil
}

// nextLabel derives a client order label from the side and a per-session
// counter; wall-clock labels collide within the same second.
func (s *Session) nextLabel(side string) string {
	return fmt.Sprintf("%s_%d", side, s.labelSeq.Add(1))
}
