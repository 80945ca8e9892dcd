package infra

import (
	"sync/atomic"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	requestsSent    atomic.Uint64
	exchangeErrors  atomic.Uint64
	framesDiscarded atomic.Uint64
	tradesRecorded  atomic.Uint64
	storeFailures   atomic.Uint64
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordRequest counts a request issued over the session.
func (m *Metrics) RecordRequest() {
	m.requestsSent.Add(1)
}

// RecordExchangeError counts an error envelope returned by the exchange.
func (m *Metrics) RecordExchangeError() {
	m.exchangeErrors.Add(1)
}

// RecordDiscardedFrame counts an unsolicited frame dropped while waiting
// for a correlated reply.
func (m *Metrics) RecordDiscardedFrame() {
	m.framesDiscarded.Add(1)
}

// RecordTrade counts a trade record persisted to the store.
func (m *Metrics) RecordTrade() {
	m.tradesRecorded.Add(1)
}

// RecordStoreFailure counts a non-fatal persistence failure.
func (m *Metrics) RecordStoreFailure() {
	m.storeFailures.Add(1)
}

// Snapshot returns current counter values for logging or inspection.
func (m *Metrics) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"requests_sent":    m.requestsSent.Load(),
		"exchange_errors":  m.exchangeErrors.Load(),
		"frames_discarded": m.framesDiscarded.Load(),
		"trades_recorded":  m.tradesRecorded.Load(),
		"store_failures":   m.storeFailures.Load(),
	}
}
