package market

import (
	"math"
	"testing"
)

func TestHouseAskPrice_SpreadFloor(t *testing.T) {
	cfg := DefaultConfig()

	// Small residual: slippage (2% at full size) is below the 3% spread
	// floor, so the floor wins.
	got := houseAskPrice(10, 1, cfg)
	want := 10 * 1.03
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected spread floor %f, got %f", want, got)
	}

	// Full-size residual: slippage 2% still under the 3% floor; the house
	// never sells closer than the minimum spread.
	got = houseAskPrice(10, cfg.MaxOrderSize, cfg)
	if got < want {
		t.Errorf("ask %f below spread floor %f", got, want)
	}
}

func TestHouseAskPrice_SlippageDominates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SlippageRatio = 0.10 // exaggerate so slippage beats the floor

	got := houseAskPrice(10, cfg.MaxOrderSize, cfg)
	want := 10 * 1.10
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected slippage price %f, got %f", want, got)
	}

	// Residual above the cap does not slip further.
	if capped := houseAskPrice(10, cfg.MaxOrderSize*2, cfg); capped != got {
		t.Errorf("slippage must cap at full order size: %f vs %f", capped, got)
	}
}

func TestHouseBidPrice_SpreadBelowReference(t *testing.T) {
	cfg := DefaultConfig()

	got := houseBidPrice(10, 1, 10, cfg)
	want := 10 * 0.97
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestHouseBidPrice_HardFloor(t *testing.T) {
	cfg := DefaultConfig()

	// Rolling average has crashed to 2 but base price is 10: the house
	// still pays at least half the base price.
	got := houseBidPrice(2, 1000, 10, cfg)
	if got != 5 {
		t.Errorf("expected hard floor 5, got %f", got)
	}
}

func TestHouseBidPrice_LargerSellsEarnLess(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SlippageRatio = 0.10

	small := houseBidPrice(100, 10, 10, cfg)
	large := houseBidPrice(100, 900, 10, cfg)
	if large >= small {
		t.Errorf("expected size to push the bid down: small=%f large=%f", small, large)
	}
}

// FuzzHousePrices checks the pricing guards hold across arbitrary inputs:
// asks never fall below the spread floor, bids never below the hard floor.
func FuzzHousePrices(f *testing.F) {
	f.Add(10.0, int64(50), 10.0)
	f.Add(0.01, int64(1), 150.0)
	f.Add(1e6, int64(1000), 50.0)

	cfg := DefaultConfig()
	f.Fuzz(func(t *testing.T, ref float64, remaining int64, base float64) {
		if ref <= 0 || base <= 0 || remaining <= 0 ||
			math.IsNaN(ref) || math.IsInf(ref, 0) || math.IsNaN(base) || math.IsInf(base, 0) {
			t.Skip()
		}
		if ask := houseAskPrice(ref, remaining, cfg); ask < ref*(1+cfg.MinSpreadPercent/100)-1e-9 {
			t.Errorf("ask %f under spread floor for ref %f", ask, ref)
		}
		if bid := houseBidPrice(ref, remaining, base, cfg); bid < base*cfg.SellFloorRatio-1e-9 {
			t.Errorf("bid %f under hard floor for base %f", bid, base)
		}
	})
}
