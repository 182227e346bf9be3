package storage

import (
	"testing"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
)

func TestSnapshot_SaveLoadLatest(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())

	if snap, err := sm.LoadLatest(); err != nil || snap != nil {
		t.Fatalf("expected no snapshot in empty dir, got %+v err=%v", snap, err)
	}

	trader := domain.NewTrader("vinnie", 750)
	trader.AddStash("heroin", 3)
	orders := []domain.Order{
		{ID: "o1", CommodityID: "weed", Side: domain.SideBuy, Kind: domain.KindLimit, Quantity: 10, LimitPrice: 9, TraderID: "vinnie", Seq: 1},
	}
	txs := []domain.Transaction{
		{ID: "t1", CommodityID: "weed", Quantity: 5, Price: 10, TsUnixM: 100, Buyer: domain.PlayerParty("vinnie"), Seller: domain.HouseParty()},
	}

	for _, ts := range []int64{100, 200, 300} {
		snap := CreateSnapshot(trader, orders, txs)
		snap.TsUnix = ts
		if err := sm.Save(snap); err != nil {
			t.Fatalf("save ts=%d failed: %v", ts, err)
		}
	}

	latest, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if latest.TsUnix != 300 {
		t.Errorf("expected newest snapshot ts=300, got %d", latest.TsUnix)
	}
	if latest.Trader.Cash != 750 || latest.Trader.Holding("heroin") != 3 {
		t.Errorf("trader state lost: %+v", latest.Trader)
	}
	if len(latest.Orders) != 1 || latest.Orders[0].ID != "o1" {
		t.Errorf("orders lost: %+v", latest.Orders)
	}
	if len(latest.Transactions) != 1 || !latest.Transactions[0].Seller.House {
		t.Errorf("transactions lost: %+v", latest.Transactions)
	}
}

func TestCreateSnapshot_Copies(t *testing.T) {
	trader := domain.NewTrader("vinnie", 100)
	orders := []domain.Order{{ID: "o1", CommodityID: "weed", Quantity: 10}}

	snap := CreateSnapshot(trader, orders, nil)

	trader.Credit(50)
	orders[0].Quantity = 99

	if snap.Trader.Cash != 100 {
		t.Errorf("snapshot trader aliased live state: %v", snap.Trader.Cash)
	}
	if snap.Orders[0].Quantity != 10 {
		t.Errorf("snapshot orders aliased live slice: %d", snap.Orders[0].Quantity)
	}
}

func TestSnapshot_Cleanup(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())

	for ts := int64(1); ts <= 5; ts++ {
		snap := &Snapshot{TsUnix: ts, Trader: domain.NewTrader("vinnie", 0)}
		if err := sm.Save(snap); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	if err := sm.Cleanup(2); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	latest, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if latest.TsUnix != 5 {
		t.Errorf("cleanup removed the newest snapshot, latest=%d", latest.TsUnix)
	}
}
