package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
	"github.com/fbarrueco/crimson-city-life/internal/infra"
	"github.com/fbarrueco/crimson-city-life/internal/market"
	"github.com/fbarrueco/crimson-city-life/internal/storage"
)

// End-to-end scenario against a throwaway database: orders run through
// guard and matching, results persist, and a second store reload must see
// the same state.

func main() {
	defer infra.Recover()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("🚀 Starting marketplace integration run...")

	dir, err := os.MkdirTemp("", "crimson-integration-*")
	if err != nil {
		fatal("tempdir", err)
	}
	defer os.RemoveAll(dir)
	dbPath := filepath.Join(dir, "market.db")

	ctx := context.Background()

	store, err := storage.NewMarketStore(dbPath)
	if err != nil {
		fatal("store", err)
	}

	engine, err := market.NewEngine(market.DefaultConfig(), domain.DefaultCatalog())
	if err != nil {
		fatal("engine", err)
	}

	trader := domain.NewTrader("vinnie", 1000)

	// STEP 1: a dealer's sell rests on the book.
	slog.Info("STEP 1: Seeding dealer sell order...")
	dealerSell, err := engine.SeedOrder(domain.Order{
		ID: "dealer-1", CommodityID: "weed", Side: domain.SideSell, Kind: domain.KindLimit,
		Quantity: 20, LimitPrice: 9, TraderID: "marco",
	})
	if err != nil {
		fatal("seed", err)
	}
	if err := store.SaveOrder(ctx, dealerSell); err != nil {
		fatal("save order", err)
	}

	// STEP 2: market buy sweeps the dealer, house covers the rest.
	slog.Info("STEP 2: Market buy 30g weed...")
	res := engine.Submit(trader, market.OrderRequest{
		CommodityID: "weed", Side: domain.SideBuy, Kind: domain.KindMarket, Quantity: 30,
	})
	if res.Executed() == 0 {
		fatal("market buy", fmt.Errorf("unexpected outcome: %+v", res))
	}
	if err := store.ApplyResult(ctx, res, 1); err != nil {
		fatal("apply", err)
	}
	trader = res.Trader
	slog.Info("✅ Executed", "outcome", res.Outcome, "message", res.Message,
		"fills", len(res.Transactions), "stash", trader.Holding("weed"))
	if trader.Holding("weed") != 30 {
		fatal("stash", fmt.Errorf("expected 30g, got %d", trader.Holding("weed")))
	}

	// STEP 3: limit buy below market rests.
	slog.Info("STEP 3: Limit buy 10g at $8.00 queues...")
	res = engine.Submit(trader, market.OrderRequest{
		CommodityID: "weed", Side: domain.SideBuy, Kind: domain.KindLimit, Quantity: 10, LimitPrice: 8,
	})
	if res.Outcome != market.OutcomeQueued || res.Resting == nil {
		fatal("limit buy", fmt.Errorf("expected queue, got %+v", res))
	}
	if err := store.ApplyResult(ctx, res, 2); err != nil {
		fatal("apply", err)
	}
	trader = res.Trader

	// STEP 4: the guard throttles a burst.
	slog.Info("STEP 4: Hammering the guard...")
	var limited bool
	for i := 0; i < 12; i++ {
		r := engine.Submit(trader, market.OrderRequest{
			CommodityID: "weed", Side: domain.SideBuy, Kind: domain.KindMarket, Quantity: 1,
		})
		if r.Rejected() && r.Reason == market.ReasonRateLimited {
			limited = true
			break
		}
		if r.Executed() > 0 {
			trader = r.Trader
			if err := store.ApplyResult(ctx, r, int64(3+i)); err != nil {
				fatal("apply", err)
			}
		}
	}
	if !limited {
		fatal("guard", fmt.Errorf("rate limit never tripped"))
	}
	slog.Info("✅ Guard tripped as expected")

	// STEP 5: reload from disk and compare.
	slog.Info("STEP 5: Reloading state from disk...")
	if err := store.Close(); err != nil {
		fatal("close", err)
	}
	store2, err := storage.NewMarketStore(dbPath)
	if err != nil {
		fatal("reopen", err)
	}
	defer store2.Close()

	back, err := store2.LoadTrader(ctx, "vinnie")
	if err != nil || back == nil {
		fatal("reload trader", fmt.Errorf("%v / %+v", err, back))
	}
	if back.Cash != trader.Cash || back.Holding("weed") != trader.Holding("weed") {
		fatal("reload trader", fmt.Errorf("state diverged: disk %+v vs live %+v", back, trader))
	}
	orders, err := store2.LoadOrders(ctx)
	if err != nil {
		fatal("reload orders", err)
	}
	txs, err := store2.LoadTransactions(ctx)
	if err != nil {
		fatal("reload transactions", err)
	}
	slog.Info("✅ Reload matches live state", "orders", len(orders), "transactions", len(txs),
		"cash", back.Cash, "stash", back.Holding("weed"))

	slog.Info("🎉 Integration run passed!")
}

func fatal(stage string, err error) {
	slog.Error("❌ Integration run failed", "stage", stage, "error", err)
	os.Exit(1)
}
