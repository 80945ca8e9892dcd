package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"deribit_go/internal/infra"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Pair is one market pair reported by the search endpoint.
type Pair struct {
	BaseSymbol   string
	QuoteSymbol  string
	PriceUSD     decimal.Decimal
	LiquidityUSD decimal.Decimal
	Change24h    decimal.Decimal // percent
}

// searchResponse mirrors the pairs-search payload
type searchResponse struct {
	Pairs []wirePair `json:"pairs"`
}

type wirePair struct {
	BaseToken struct {
		Symbol string `json:"symbol"`
	} `json:"baseToken"`
	QuoteToken struct {
		Symbol string `json:"symbol"`
	} `json:"quoteToken"`
	PriceUSD    decimal.Decimal `json:"priceUsd"`
	PriceChange struct {
		H24 decimal.Decimal `json:"h24"`
	} `json:"priceChange"`
	Liquidity struct {
		USD decimal.Decimal `json:"usd"`
	} `json:"liquidity"`
}

// Scanner polls a public pairs-search API by keyword and reports the top-N
// 24h gainers above a liquidity floor. It holds no order or session state.
type Scanner struct {
	client       *resty.Client
	keywords     []string
	topN         int
	minLiquidity decimal.Decimal
	pollInterval time.Duration
	onUpdate     func([]Pair)
	logger       *slog.Logger
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// New creates a scanner from configuration. onUpdate receives each
// leaderboard; it must not block for long.
func New(cfg *infra.Config, onUpdate func([]Pair)) *Scanner {
	client := resty.New().
		SetBaseURL(cfg.Scanner.URL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		SetHeader("User-Agent", "deribit_go/scanner")

	return &Scanner{
		client:       client,
		keywords:     cfg.Scanner.Keywords,
		topN:         cfg.Scanner.TopN,
		minLiquidity: cfg.Scanner.MinLiquidityUSD,
		pollInterval: time.Duration(cfg.Scanner.PollIntervalSec) * time.Second,
		onUpdate:     onUpdate,
		logger:       slog.Default().With("module", "scanner"),
	}
}

// Start begins polling. The first scan runs immediately.
func (s *Scanner) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if err := s.scan(ctx); err != nil {
		s.logger.Warn("initial scan failed", slog.Any("error", err))
		// Continue anyway - will retry on next tick
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("scanner stopped")
				return
			case <-ticker.C:
				if err := s.scan(ctx); err != nil {
					s.logger.Warn("scan failed", slog.Any("error", err))
				}
			}
		}
	}()

	return nil
}

// Stop stops the polling
func (s *Scanner) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}
}

func (s *Scanner) scan(ctx context.Context) error {
	var all []Pair
	for _, kw := range s.keywords {
		pairs, err := s.fetchPairs(ctx, kw)
		if err != nil {
			s.logger.Warn("keyword fetch failed", slog.String("keyword", kw), slog.Any("error", err))
			continue
		}
		all = append(all, pairs...)

		// Be nice to the API between keywords
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	if len(all) == 0 {
		return fmt.Errorf("no pairs received for any keyword")
	}

	top := TopGainers(all, s.topN, s.minLiquidity)
	s.logger.Info("scan complete", slog.Int("pairs", len(all)), slog.Int("gainers", len(top)))
	if s.onUpdate != nil {
		s.onUpdate(top)
	}
	return nil
}

func (s *Scanner) fetchPairs(ctx context.Context, keyword string) ([]Pair, error) {
	var result searchResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("q", keyword).
		SetResult(&result).
		Get("")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	pairs := make([]Pair, 0, len(result.Pairs))
	for _, p := range result.Pairs {
		pairs = append(pairs, Pair{
			BaseSymbol:   p.BaseToken.Symbol,
			QuoteSymbol:  p.QuoteToken.Symbol,
			PriceUSD:     p.PriceUSD,
			LiquidityUSD: p.Liquidity.USD,
			Change24h:    p.PriceChange.H24,
		})
	}
	return pairs, nil
}

// TopGainers filters pairs below the liquidity floor and returns the n
// largest 24h movers, best first.
func TopGainers(pairs []Pair, n int, minLiquidity decimal.Decimal) []Pair {
	filtered := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if p.LiquidityUSD.GreaterThanOrEqual(minLiquidity) {
			filtered = append(filtered, p)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Change24h.GreaterThan(filtered[j].Change24h)
	})

	if n > 0 && len(filtered) > n {
		filtered = filtered[:n]
	}
	return filtered
}
