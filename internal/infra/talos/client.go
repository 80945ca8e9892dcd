package talos

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deribit_go/internal/domain"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const summaryEndpoint = "/v2/customerOrderSummary"

// Store is what the client needs from persistence: individual trades plus
// the daily aggregate.
type Store interface {
	domain.TradeStore
	domain.SummaryStore
}

// Client fetches daily order summaries from the REST API and records them.
type Client struct {
	client *resty.Client
	store  Store
	logger *slog.Logger
}

// NewClient creates a summary client against the given API base URL.
func NewClient(baseURL, apiKey string, store Store) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		client: client,
		store:  store,
		logger: slog.Default().With("module", "talos_client"),
	}
}

// summaryResponse mirrors the customerOrderSummary payload
type summaryResponse struct {
	Trades []wireTrade `json:"trades"`
}

type wireTrade struct {
	OrderID        string          `json:"order_id"`
	Side           string          `json:"side"`
	InstrumentName string          `json:"instrument_name"`
	Amount         decimal.Decimal `json:"amount"`
	Price          decimal.Decimal `json:"price"`
	OrderType      string          `json:"order_type"`
	Status         string          `json:"status"`
	Timestamp      string          `json:"timestamp"`
}

// SyncDailySummary fetches one day of trades for a customer, stores each
// trade (idempotent by order id) and upserts the aggregated summary.
func (c *Client) SyncDailySummary(ctx context.Context, customerID, currency, exchangeID, date string) (*domain.DailySummary, error) {
	var result summaryResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"customerId": customerID,
			"currency":   currency,
			"exchangeId": exchangeID,
			"date":       date,
		}).
		SetResult(&result).
		Get(summaryEndpoint)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("summary request failed: status=%d body=%s", resp.StatusCode(), resp.String())
	}

	totalVolume := decimal.Zero
	weightedPrice := decimal.Zero
	saved := 0

	for _, t := range result.Trades {
		rec := &domain.TradeRecord{
			OrderID:    t.OrderID,
			Side:       t.Side,
			Instrument: t.InstrumentName,
			Amount:     t.Amount,
			Price:      t.Price,
			OrderType:  t.OrderType,
			Status:     t.Status,
			ExecutedAt: parseTimestamp(t.Timestamp),
		}
		if err := c.store.SaveTrade(rec); err != nil {
			c.logger.Warn("failed to record reported trade", slog.String("order_id", t.OrderID), slog.Any("error", err))
			continue
		}
		saved++
		totalVolume = totalVolume.Add(t.Amount)
		weightedPrice = weightedPrice.Add(t.Price.Mul(t.Amount))
	}

	avgPrice := decimal.Zero
	if totalVolume.IsPositive() {
		avgPrice = weightedPrice.Div(totalVolume).Round(8)
	}

	summary := &domain.DailySummary{
		CustomerID:  customerID,
		Currency:    currency,
		ExchangeID:  exchangeID,
		Date:        date,
		TradeCount:  saved,
		TotalVolume: totalVolume,
		AvgPrice:    avgPrice,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := c.store.SaveSummary(summary); err != nil {
		return nil, err
	}

	c.logger.Info("daily summary synced",
		slog.String("customer", customerID),
		slog.String("date", date),
		slog.Int("trades", saved),
	)
	return summary, nil
}

// parseTimestamp accepts the API's second-precision format with an RFC3339
// fallback; unparsable values map to the zero time.
func parseTimestamp(s string) time.Time {
	if ts, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return ts.UTC()
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC()
	}
	return time.Time{}
}
