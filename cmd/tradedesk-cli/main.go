package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
	"tradedesk/internal/journal"
	"tradedesk/pkg/tradedesk"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tradedesk-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version      Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  mode         Show the session trading mode\n")
		fmt.Fprintf(os.Stderr, "  switch-mode  Switch between paper and live\n")
		fmt.Fprintf(os.Stderr, "  portfolio    Show the portfolio snapshot\n")
		fmt.Fprintf(os.Stderr, "  positions    List open positions\n")
		fmt.Fprintf(os.Stderr, "  orders       List order history\n")
		fmt.Fprintf(os.Stderr, "  submit       Submit an order\n")
		fmt.Fprintf(os.Stderr, "  cancel       Cancel an open order\n")
		fmt.Fprintf(os.Stderr, "  risk         Assess a proposed trade\n")
		fmt.Fprintf(os.Stderr, "  export       Export the local journal to parquet\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	serverURL := os.Getenv("TRADEDESK_SERVER")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	client := tradedesk.NewClient(serverURL)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("tradedesk-cli %s\n", version)
	case "mode":
		err = showMode(ctx, client)
	case "switch-mode":
		err = switchMode(ctx, client, os.Args[2:])
	case "portfolio":
		err = showPortfolio(ctx, client, os.Args[2:])
	case "positions":
		err = showPositions(ctx, client, os.Args[2:])
	case "orders":
		err = showOrders(ctx, client, os.Args[2:])
	case "submit":
		err = submitOrder(ctx, client, os.Args[2:])
	case "cancel":
		err = cancelOrder(ctx, client, os.Args[2:])
	case "risk":
		err = assessRisk(ctx, client, os.Args[2:])
	case "export":
		err = exportJournal(ctx, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseMode(raw string) (tradedesk.Mode, error) {
	mode := tradedesk.Mode(raw)
	if !mode.Valid() {
		return "", fmt.Errorf("mode must be paper or live, got %q", raw)
	}
	return mode, nil
}

func showMode(ctx context.Context, client *tradedesk.Client) error {
	mr, err := client.Mode(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("mode: %s\n", mr.Mode)
	if mr.Blocked {
		fmt.Printf("trading blocked: %s\n", mr.BlockReason)
	}
	return nil
}

func switchMode(ctx context.Context, client *tradedesk.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: switch-mode <paper|live>")
	}
	mode, err := parseMode(args[0])
	if err != nil {
		return err
	}
	mr, err := client.SwitchMode(ctx, mode)
	if err != nil {
		return err
	}
	fmt.Printf("mode: %s\n", mr.Mode)
	return nil
}

func showPortfolio(ctx context.Context, client *tradedesk.Client, args []string) error {
	fs := flag.NewFlagSet("portfolio", flag.ExitOnError)
	modeFlag := fs.String("mode", "paper", "trading mode")
	fs.Parse(args)

	mode, err := parseMode(*modeFlag)
	if err != nil {
		return err
	}
	p, err := client.GetPortfolio(ctx, mode)
	if err != nil {
		return err
	}
	fmt.Printf("%s portfolio\n", p.Mode)
	fmt.Printf("  total value:  %s\n", p.TotalValue.StringFixed(2))
	fmt.Printf("  cash:         %s\n", p.CashBalance.StringFixed(2))
	fmt.Printf("  positions:    %s\n", p.PositionsValue.StringFixed(2))
	fmt.Printf("  day P&L:      %s\n", p.DayPnL.StringFixed(2))
	return nil
}

func showPositions(ctx context.Context, client *tradedesk.Client, args []string) error {
	fs := flag.NewFlagSet("positions", flag.ExitOnError)
	modeFlag := fs.String("mode", "paper", "trading mode")
	fs.Parse(args)

	mode, err := parseMode(*modeFlag)
	if err != nil {
		return err
	}
	positions, err := client.GetPositions(ctx, mode)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		fmt.Println("no open positions")
		return nil
	}
	fmt.Printf("%-8s %12s %12s %14s %12s\n", "SYMBOL", "QTY", "AVG COST", "MARKET VALUE", "UNREAL P&L")
	for _, p := range positions {
		fmt.Printf("%-8s %12s %12s %14s %12s\n",
			p.Symbol, p.Qty.String(), p.AvgEntryPrice.StringFixed(2),
			p.MarketValue.StringFixed(2), p.UnrealizedPnL.StringFixed(2))
	}
	return nil
}

func showOrders(ctx context.Context, client *tradedesk.Client, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ExitOnError)
	modeFlag := fs.String("mode", "paper", "trading mode")
	symbolFlag := fs.String("symbol", "", "filter by symbol")
	statusFlag := fs.String("status", "", "filter by status")
	limitFlag := fs.Int("limit", 50, "max orders to list")
	fs.Parse(args)

	mode, err := parseMode(*modeFlag)
	if err != nil {
		return err
	}
	page, err := client.GetOrders(ctx, mode, tradedesk.OrderQuery{
		Symbol: *symbolFlag,
		Status: tradedesk.OrderStatus(*statusFlag),
		Limit:  *limitFlag,
	})
	if err != nil {
		return err
	}
	if len(page.Orders) == 0 {
		fmt.Println("no orders")
		return nil
	}
	fmt.Printf("%-38s %-8s %-5s %10s %-10s %s\n", "ID", "SYMBOL", "SIDE", "QTY", "STATUS", "CREATED")
	for _, o := range page.Orders {
		fmt.Printf("%-38s %-8s %-5s %10s %-10s %s\n",
			o.ID, o.Symbol, o.Side, o.Qty.String(), o.Status,
			o.CreatedAt.Format(time.RFC3339))
	}
	fmt.Printf("showing %d of %d\n", len(page.Orders), page.Total)
	return nil
}

func submitOrder(ctx context.Context, client *tradedesk.Client, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	symbolFlag := fs.String("symbol", "", "symbol (required)")
	sideFlag := fs.String("side", "buy", "buy or sell")
	typeFlag := fs.String("type", "market", "market, limit, stop, or stop_limit")
	qtyFlag := fs.String("qty", "", "quantity (required)")
	limitFlag := fs.String("limit-price", "", "limit price")
	stopFlag := fs.String("stop-price", "", "stop price")
	tifFlag := fs.String("tif", "day", "time in force")
	modeFlag := fs.String("mode", "", "trading mode (defaults to session mode)")
	fs.Parse(args)

	if *symbolFlag == "" || *qtyFlag == "" {
		return fmt.Errorf("usage: submit -symbol SYM -qty N [options]")
	}
	qty, err := decimal.NewFromString(*qtyFlag)
	if err != nil {
		return fmt.Errorf("invalid quantity %q", *qtyFlag)
	}

	req := tradedesk.SubmitOrderRequest{
		Symbol:      *symbolFlag,
		Side:        tradedesk.Side(*sideFlag),
		Type:        tradedesk.OrderType(*typeFlag),
		Qty:         qty,
		TimeInForce: tradedesk.TimeInForce(*tifFlag),
		Mode:        tradedesk.Mode(*modeFlag),
	}
	if *limitFlag != "" {
		p, err := decimal.NewFromString(*limitFlag)
		if err != nil {
			return fmt.Errorf("invalid limit price %q", *limitFlag)
		}
		req.LimitPrice = &p
	}
	if *stopFlag != "" {
		p, err := decimal.NewFromString(*stopFlag)
		if err != nil {
			return fmt.Errorf("invalid stop price %q", *stopFlag)
		}
		req.StopPrice = &p
	}

	order, err := client.SubmitOrder(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("submitted %s %s %s x%s: id=%s status=%s mode=%s\n",
		order.Type, order.Side, order.Symbol, order.Qty.String(),
		order.ID, order.Status, order.Mode)
	return nil
}

func cancelOrder(ctx context.Context, client *tradedesk.Client, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	modeFlag := fs.String("mode", "paper", "trading mode")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: cancel [-mode paper|live] <order-id>")
	}
	mode, err := parseMode(*modeFlag)
	if err != nil {
		return err
	}
	if err := client.CancelOrder(ctx, fs.Arg(0), mode); err != nil {
		return err
	}
	fmt.Printf("cancelled %s\n", fs.Arg(0))
	return nil
}

func assessRisk(ctx context.Context, client *tradedesk.Client, args []string) error {
	fs := flag.NewFlagSet("risk", flag.ExitOnError)
	sideFlag := fs.String("side", "buy", "buy or sell")
	qtyFlag := fs.String("qty", "1", "quantity")
	priceFlag := fs.String("price", "0", "estimated price")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: risk [options] <symbol>")
	}
	a, err := client.AssessRisk(ctx, fs.Arg(0), tradedesk.Side(*sideFlag), *qtyFlag, *priceFlag)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s (score %.2f)\n", a.Symbol, a.Level, a.Score)
	for _, v := range a.Violations {
		fmt.Printf("  violation: %s\n", v)
	}
	for _, w := range a.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	if a.RecommendedAction != "" {
		fmt.Printf("  recommended: %s\n", a.RecommendedAction)
	}
	return nil
}

func exportJournal(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dbFlag := fs.String("db", "tradedesk.db", "journal sqlite path")
	outFlag := fs.String("out", "submissions.parquet", "output parquet path")
	modeFlag := fs.String("mode", "", "restrict to one mode")
	fs.Parse(args)

	var mode domain.Mode
	if *modeFlag != "" {
		m, err := parseMode(*modeFlag)
		if err != nil {
			return err
		}
		mode = domain.Mode(m)
	}

	jnl, err := journal.Open(*dbFlag)
	if err != nil {
		return err
	}
	defer jnl.Close()

	n, err := jnl.ExportParquet(ctx, *outFlag, mode)
	if err != nil {
		return err
	}
	fmt.Printf("exported %d submissions to %s\n", n, *outFlag)
	return nil
}
