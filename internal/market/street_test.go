package market

import (
	"math"
	"testing"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
)

func TestStreetBuy(t *testing.T) {
	e := newTestEngine(t)
	e.rand = func() float64 { return 0.5 } // price = base * (0.8 + 0.5*0.4) = base
	tr := domain.NewTrader("vinnie", 1000)

	res := e.StreetBuy(tr, "weed", 10)

	if res.Rejected() {
		t.Fatalf("unexpected rejection: %s", res.Message)
	}
	wantCost := math.Floor(10 * 1.0 * 10) // 10g at exactly base price
	if res.Trader.Cash != 1000-wantCost {
		t.Errorf("expected cash %f, got %f", 1000-wantCost, res.Trader.Cash)
	}
	if res.Trader.Holding("weed") != 10 {
		t.Errorf("expected 10g, got %d", res.Trader.Holding("weed"))
	}
	// Street deals feed the reference price.
	if _, ok := e.ledger.RecentAverage("weed", 3); !ok {
		t.Error("street buy should be on the ledger")
	}
}

func TestStreetBuy_PriceBand(t *testing.T) {
	e := newTestEngine(t)
	tr := domain.NewTrader("vinnie", 1000000)

	for i := 0; i < 50; i++ {
		res := e.StreetBuy(tr, "cocaine", 1)
		price := res.Transactions[0].Price
		if price < 50*0.8 || price > 50*1.2 {
			t.Fatalf("street buy price %f outside 0.8x-1.2x base", price)
		}
		tr = res.Trader
	}
}

func TestStreetBuy_InsufficientCash(t *testing.T) {
	e := newTestEngine(t)
	tr := domain.NewTrader("vinnie", 5)

	res := e.StreetBuy(tr, "heroin", 10)
	if !res.Rejected() {
		t.Fatal("expected rejection")
	}
	if res.Trader.Cash != 5 {
		t.Errorf("state must be unchanged, got %f", res.Trader.Cash)
	}
}

func TestStreetSell(t *testing.T) {
	e := newTestEngine(t)
	e.rand = func() float64 { return 0 } // sells at exactly base price
	tr := domain.NewTrader("vinnie", 0)
	tr.AddStash("meth", 4)

	res := e.StreetSell(tr, "meth", 4)

	if res.Rejected() {
		t.Fatalf("unexpected rejection: %s", res.Message)
	}
	if res.Trader.Cash != 600 { // 4g * 150
		t.Errorf("expected 600, got %f", res.Trader.Cash)
	}
	if res.Trader.Holding("meth") != 0 {
		t.Errorf("expected empty stash, got %d", res.Trader.Holding("meth"))
	}
}

func TestStreetSell_InsufficientStock(t *testing.T) {
	e := newTestEngine(t)
	tr := domain.NewTrader("vinnie", 0)

	res := e.StreetSell(tr, "weed", 1)
	if !res.Rejected() || res.Reason != ReasonInsufficientStock {
		t.Errorf("expected insufficient stock, got %+v", res.Reason)
	}
}
