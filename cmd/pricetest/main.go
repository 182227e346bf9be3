package main

import (
	"fmt"
	"os"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
	"github.com/fbarrueco/crimson-city-life/internal/market"
	"github.com/fbarrueco/crimson-city-life/pkg/money"
)

// Prints the house-liquidity price curves: how the quoted price moves with
// order size on both sides of the market, fresh and after trade history
// has dragged the rolling reference around.

func main() {
	fmt.Println("=== Crimson City House Liquidity Curves ===")
	fmt.Println()

	cfg := market.DefaultConfig()
	engine, err := market.NewEngine(cfg, domain.DefaultCatalog())
	if err != nil {
		fmt.Fprintln(os.Stderr, "engine:", err)
		os.Exit(1)
	}

	sizes := []int64{1, 10, 50, 100, 250, 500, 1000}

	for _, c := range engine.Catalog() {
		fmt.Printf("📦 %s (base %s)\n", c.Name, money.FormatPerGram(c.BasePrice))
		fmt.Printf("   %6s  %12s  %12s\n", "grams", "house ask", "house bid")
		for _, size := range sizes {
			ask, _ := engine.HouseQuote(c.ID, domain.SideBuy, size)
			bid, _ := engine.HouseQuote(c.ID, domain.SideSell, size)
			fmt.Printf("   %6d  %12s  %12s\n", size, money.Format(ask), money.Format(bid))
		}
		fmt.Println()
	}

	// Drag the weed reference down with a run of cheap trades, then show
	// the hard floor catching the bid.
	fmt.Println("💹 Sell floor demo: weed after ten trades at $1.00")
	history := make([]domain.Transaction, 0, 10)
	for i := 0; i < 10; i++ {
		history = append(history, domain.Transaction{
			ID: fmt.Sprintf("demo-%d", i), CommodityID: "weed",
			Quantity: 1, Price: 1, TsUnixM: int64(i),
			Buyer: domain.HouseParty(), Seller: domain.PlayerParty("demo"),
		})
	}
	engine.LoadLedger(history)
	bid, _ := engine.HouseQuote("weed", domain.SideSell, 10)
	fmt.Printf("   house bid: %s (floor is %s)\n",
		money.Format(bid), money.Format(10*0.5))
	fmt.Println()
	fmt.Println("✅ Quotes never cross the spread floor, sells never fall through the hard floor.")
}
