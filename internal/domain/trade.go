package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is the persisted outcome of a successfully executed order.
// Append-only, keyed by order id; re-saving the same record is harmless.
type TradeRecord struct {
	OrderID    string          `gorm:"primaryKey" json:"order_id"`
	Side       string          `json:"side"`
	Instrument string          `json:"instrument_name"`
	Amount     decimal.Decimal `gorm:"type:numeric" json:"amount"`
	Price      decimal.Decimal `gorm:"type:numeric" json:"price"`
	OrderType  string          `json:"order_type"`
	Status     string          `json:"status"`
	ExecutedAt time.Time       `json:"timestamp"` // UTC, second precision
}

// TableName keeps the table compatible with the historical schema
func (TradeRecord) TableName() string {
	return "trades"
}

// DailySummary aggregates one day of reported trades for a customer.
type DailySummary struct {
	CustomerID  string          `gorm:"primaryKey" json:"customer_id"`
	Currency    string          `gorm:"primaryKey" json:"currency"`
	ExchangeID  string          `gorm:"primaryKey" json:"exchange_id"`
	Date        string          `gorm:"primaryKey" json:"date"` // YYYY-MM-DD
	TradeCount  int             `json:"trade_count"`
	TotalVolume decimal.Decimal `gorm:"type:numeric" json:"total_volume"`
	AvgPrice    decimal.Decimal `gorm:"type:numeric" json:"avg_price"` // volume-weighted
	UpdatedAt   time.Time       `json:"updated_at"`
}
