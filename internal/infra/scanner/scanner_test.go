package scanner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"deribit_go/internal/infra"

	"github.com/shopspring/decimal"
)

func pair(base string, change, liquidity float64) Pair {
	return Pair{
		BaseSymbol:   base,
		QuoteSymbol:  "USDT",
		Change24h:    decimal.NewFromFloat(change),
		LiquidityUSD: decimal.NewFromFloat(liquidity),
	}
}

func TestTopGainersFiltersAndRanks(t *testing.T) {
	pairs := []Pair{
		pair("AAA", 12.5, 5000),
		pair("BBB", 80.0, 100), // below liquidity floor
		pair("CCC", 45.0, 2000),
		pair("DDD", -3.0, 9000),
		pair("EEE", 45.0, 1500),
	}

	top := TopGainers(pairs, 3, decimal.NewFromInt(1000))

	if len(top) != 3 {
		t.Fatalf("got %d pairs, want 3", len(top))
	}
	if top[0].BaseSymbol != "CCC" && top[0].BaseSymbol != "EEE" {
		t.Errorf("top gainer = %s, want CCC or EEE (45%%)", top[0].BaseSymbol)
	}
	for _, p := range top {
		if p.BaseSymbol == "BBB" {
			t.Error("illiquid pair must be filtered out")
		}
	}
	if top[2].BaseSymbol != "AAA" {
		t.Errorf("third gainer = %s, want AAA", top[2].BaseSymbol)
	}
}

func TestTopGainersNoLimit(t *testing.T) {
	pairs := []Pair{pair("AAA", 1, 5000), pair("BBB", 2, 5000)}
	top := TopGainers(pairs, 10, decimal.Zero)
	if len(top) != 2 {
		t.Errorf("got %d pairs, want all 2", len(top))
	}
}

func TestScanFetchesEveryKeyword(t *testing.T) {
	queried := make(map[string]int)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queried[q]++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"pairs":[
			{"baseToken":{"symbol":"%s"},"quoteToken":{"symbol":"USDT"},
			 "priceUsd":"1.25","priceChange":{"h24":10.5},"liquidity":{"usd":50000}}
		]}`, q)
	}))
	defer server.Close()

	cfg := &infra.Config{}
	cfg.Scanner.URL = server.URL
	cfg.Scanner.Keywords = []string{"eth", "btc"}
	cfg.Scanner.TopN = 5
	cfg.Scanner.MinLiquidityUSD = decimal.NewFromInt(1000)
	cfg.Scanner.PollIntervalSec = 30

	var got []Pair
	sc := New(cfg, func(pairs []Pair) { got = pairs })

	if err := sc.scan(context.Background()); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if queried["eth"] != 1 || queried["btc"] != 1 {
		t.Errorf("keyword queries = %v, want one per keyword", queried)
	}
	if len(got) != 2 {
		t.Fatalf("leaderboard has %d pairs, want 2", len(got))
	}
	if !got[0].Change24h.Equal(decimal.NewFromFloat(10.5)) {
		t.Errorf("change = %s, want 10.5", got[0].Change24h)
	}
	if !got[0].PriceUSD.Equal(decimal.NewFromFloat(1.25)) {
		t.Errorf("price = %s, want 1.25", got[0].PriceUSD)
	}
}

func TestScanServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := &infra.Config{}
	cfg.Scanner.URL = server.URL
	cfg.Scanner.Keywords = []string{"eth"}
	cfg.Scanner.TopN = 5
	cfg.Scanner.PollIntervalSec = 30

	sc := New(cfg, nil)
	if err := sc.scan(context.Background()); err == nil {
		t.Error("expected error when no pairs are received")
	}
}
