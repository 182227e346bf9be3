package market

import (
	"fmt"
	"testing"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
)

func tx(commodity string, price float64, ts int64) domain.Transaction {
	return domain.Transaction{
		ID:          fmt.Sprintf("%s-%d", commodity, ts),
		CommodityID: commodity,
		Quantity:    1,
		Price:       price,
		TsUnixM:     ts,
		Buyer:       domain.PlayerParty("vinnie"),
		Seller:      domain.HouseParty(),
	}
}

func TestLedger_RecentAverage(t *testing.T) {
	l := NewLedger(100)
	l.Append(tx("weed", 10, 1))
	l.Append(tx("weed", 12, 2))
	l.Append(tx("weed", 14, 3))
	l.Append(tx("weed", 20, 4))

	// Mean of the 3 most recent: (12+14+20)/3.
	avg, ok := l.RecentAverage("weed", 3)
	if !ok {
		t.Fatal("expected history")
	}
	want := (12.0 + 14.0 + 20.0) / 3
	if avg != want {
		t.Errorf("expected %f, got %f", want, avg)
	}

	// Window larger than history averages what exists.
	avg, _ = l.RecentAverage("weed", 10)
	if avg != (10.0+12.0+14.0+20.0)/4 {
		t.Errorf("unexpected wide-window average: %f", avg)
	}
}

func TestLedger_NoHistory(t *testing.T) {
	l := NewLedger(100)
	if _, ok := l.RecentAverage("weed", 3); ok {
		t.Error("expected no history")
	}
}

func TestLedger_PruneKeepsNewest(t *testing.T) {
	l := NewLedger(100)
	for i := 0; i < 150; i++ {
		l.Append(tx("weed", float64(i), int64(i)))
	}
	l.Append(tx("meth", 150, 1))

	dropped := l.Prune()
	if dropped != 50 {
		t.Errorf("expected 50 dropped, got %d", dropped)
	}

	recent := l.Recent("weed", 200)
	if len(recent) != 100 {
		t.Fatalf("expected 100 retained, got %d", len(recent))
	}
	// Newest first; the oldest 50 are gone.
	if recent[0].Price != 149 || recent[99].Price != 50 {
		t.Errorf("wrong retention bounds: newest=%f oldest=%f", recent[0].Price, recent[99].Price)
	}

	// Other commodities under the bound are untouched.
	if len(l.Recent("meth", 10)) != 1 {
		t.Error("meth history should be untouched")
	}
}

func TestLedger_LoadRoundTrip(t *testing.T) {
	l := NewLedger(100)
	l.Append(tx("weed", 10, 1))
	l.Append(tx("meth", 150, 2))
	l.Append(tx("weed", 11, 3))

	all := l.All()
	if len(all) != 3 {
		t.Fatalf("expected 3, got %d", len(all))
	}

	restored := NewLedger(100)
	restored.Load(all)
	avg, ok := restored.RecentAverage("weed", 2)
	if !ok || avg != 10.5 {
		t.Errorf("round trip lost history: ok=%v avg=%f", ok, avg)
	}
}
