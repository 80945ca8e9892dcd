package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"deribit_go/internal/app"
	"deribit_go/internal/domain"
	"deribit_go/internal/infra/deribit"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdin := bufio.NewScanner(os.Stdin)
	cfg := bootstrap.Config

	// Credentials come from config/env; fall back to prompting.
	clientID := cfg.API.Deribit.ClientID
	clientSecret := cfg.API.Deribit.ClientSecret
	if clientID == "" {
		clientID = prompt(stdin, "Enter your Deribit client ID: ")
	}
	if clientSecret == "" {
		clientSecret = prompt(stdin, "Enter your Deribit client secret: ")
	}

	session := deribit.NewSession(clientID, clientSecret, cfg.API.Deribit.Scope, bootstrap.Storage)
	if err := session.Connect(ctx, cfg.API.Deribit.WSURL); err != nil {
		slog.Error("connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer session.Close()

	if err := session.Authenticate(); err != nil {
		slog.Error("authentication failed", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println("Authenticated successfully.")

	runMenu(ctx, stdin, session)
}

func runMenu(ctx context.Context, stdin *bufio.Scanner, session *deribit.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fmt.Println("\n1: GET ORDER BOOK")
		fmt.Println("2: PLACE BUY ORDER")
		fmt.Println("3: PLACE SELL ORDER")
		fmt.Println("4: CANCEL AN OPEN LIMIT ORDER")
		fmt.Println("Q: EXIT/QUIT")

		switch strings.ToLower(prompt(stdin, "Enter Your Choice: ")) {
		case "1":
			showOrderBook(stdin, session)
		case "2":
			placeOrder(stdin, session, domain.SideBuy)
		case "3":
			placeOrder(stdin, session, domain.SideSell)
		case "4":
			cancelOpenOrder(stdin, session)
		case "q":
			fmt.Println("Goodbye.")
			return
		default:
			fmt.Println("Invalid choice, try again.")
		}
	}
}

func showOrderBook(stdin *bufio.Scanner, session *deribit.Session) {
	instrument := prompt(stdin, "Symbol (e.g., BTC-PERPETUAL): ")
	book, err := session.OrderBook(instrument)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Printf("\n=== %s @ %s ===\n", book.Instrument, book.Timestamp.Format("15:04:05"))
	fmt.Printf("Last: %s  Best Bid: %s  Best Ask: %s\n", book.LastPrice, book.BestBid(), book.BestAsk())
	depth := min(len(book.Bids), len(book.Asks), 10)
	for i := 0; i < depth; i++ {
		fmt.Printf("%12s x %-10s | %12s x %-10s\n",
			book.Bids[i].Price, book.Bids[i].Amount,
			book.Asks[i].Price, book.Asks[i].Amount)
	}
}

func placeOrder(stdin *bufio.Scanner, session *deribit.Session, side string) {
	instrument := prompt(stdin, "Symbol (e.g., BTC-PERPETUAL): ")
	amount := prompt(stdin, "Amount: ")
	orderType := prompt(stdin, "Type (market/limit): ")

	price := ""
	if strings.EqualFold(strings.TrimSpace(orderType), domain.OrderTypeLimit) {
		price = prompt(stdin, "Limit Price: ")
	}

	var rec *domain.TradeRecord
	var err error
	if side == domain.SideBuy {
		rec, err = session.Buy(instrument, amount, orderType, price)
	} else {
		rec, err = session.Sell(instrument, amount, orderType, price)
	}
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Printf("%s order executed: id=%s %s %s @ %s (%s)\n",
		strings.ToUpper(rec.Side), rec.OrderID, rec.Instrument, rec.Amount, rec.Price, rec.Status)
}

func cancelOpenOrder(stdin *bufio.Scanner, session *deribit.Session) {
	currency := prompt(stdin, "Currency (e.g., BTC): ")
	orders, err := session.OpenLimitOrders(currency)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(orders) == 0 {
		fmt.Println("No open limit orders found.")
		return
	}

	fmt.Println("\n=== Open Limit Orders ===")
	for i, o := range orders {
		fmt.Printf("%d. ID: %s, Symbol: %s, Price: %s, Amount: %s\n",
			i+1, o.OrderID, o.Instrument, o.Price, o.Amount)
	}

	idx, err := strconv.Atoi(prompt(stdin, "\nEnter order number to cancel: "))
	if err != nil || idx < 1 || idx > len(orders) {
		fmt.Println("Invalid selection.")
		return
	}

	result, err := session.CancelOrder(orders[idx-1].OrderID)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("Cancelled order %s (%s)\n", result.OrderID, result.Status)
}

func prompt(stdin *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !stdin.Scan() {
		return ""
	}
	return strings.TrimSpace(stdin.Text())
}
