package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deribit_go/internal/infra"
	"deribit_go/internal/infra/scanner"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(infra.NewLogger(cfg))

	if cfg.Scanner.URL == "" {
		slog.Error("scanner url not configured")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc := scanner.New(cfg, printLeaderboard)
	if err := sc.Start(ctx); err != nil {
		slog.Error("failed to start scanner", slog.Any("error", err))
		os.Exit(1)
	}
	defer sc.Stop()

	slog.Info("scanner running, press Ctrl+C to exit")
	<-ctx.Done()
}

func printLeaderboard(pairs []scanner.Pair) {
	fmt.Printf("\n=== Top %d gainers (24h) @ %s ===\n", len(pairs), time.Now().Format("15:04:05"))
	for i, p := range pairs {
		fmt.Printf("%2d. %s/%-10s %8s%%  $%s  liq=$%s\n",
			i+1, p.BaseSymbol, p.QuoteSymbol,
			p.Change24h.StringFixed(2), p.PriceUSD, p.LiquidityUSD.StringFixed(0))
	}
}
