package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"deribit_go/internal/app"
	"deribit_go/internal/infra/talos"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	customerID := flag.String("customer", "", "customer id (required)")
	currency := flag.String("currency", "BTC", "currency code")
	exchangeID := flag.String("exchange", "deribit", "exchange id")
	date := flag.String("date", time.Now().UTC().Format("2006-01-02"), "summary date (YYYY-MM-DD)")
	flag.Parse()

	if *customerID == "" {
		fmt.Fprintln(os.Stderr, "usage: summary -customer <id> [-currency BTC] [-exchange deribit] [-date YYYY-MM-DD]")
		os.Exit(2)
	}

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	cfg := bootstrap.Config
	client := talos.NewClient(cfg.API.Talos.RestURL, cfg.API.Talos.APIKey, bootstrap.Storage)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	summary, err := client.SyncDailySummary(ctx, *customerID, *currency, *exchangeID, *date)
	if err != nil {
		slog.Error("summary sync failed", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("Summary %s %s/%s on %s: %d trades, volume %s, avg price %s\n",
		summary.CustomerID, summary.Currency, summary.ExchangeID, summary.Date,
		summary.TradeCount, summary.TotalVolume, summary.AvgPrice)
}
