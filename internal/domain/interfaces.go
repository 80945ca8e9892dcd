package domain

// TradeStore persists executed trades. A failing store never affects the
// exchange-side state: the session logs and carries on.
type TradeStore interface {
	SaveTrade(rec *TradeRecord) error
}

// SummaryStore persists daily trade aggregates.
type SummaryStore interface {
	SaveSummary(sum *DailySummary) error
}
