package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
	"github.com/fbarrueco/crimson-city-life/internal/market"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	engine, err := market.NewEngine(market.DefaultConfig(), domain.DefaultCatalog())
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(engine, "127.0.0.1:0")
}

func TestHandleCatalog(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/catalog", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var catalog []domain.Commodity
	if err := json.Unmarshal(rec.Body.Bytes(), &catalog); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if len(catalog) != 4 {
		t.Errorf("expected 4 commodities, got %d", len(catalog))
	}
}

func TestHandleBook_RequiresCommodity(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/book", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Errorf("expected 400 without commodity param, got %d", rec.Code)
	}
}

func TestHandleBook_ReflectsRestingOrders(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.engine.SeedOrder(domain.Order{
		ID: "o1", CommodityID: "weed", Side: domain.SideSell, Kind: domain.KindLimit,
		Quantity: 20, LimitPrice: 8, TraderID: "bruno",
	}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/book?commodity=weed", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	var msg bookMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if len(msg.SellSide) != 1 || msg.SellSide[0].Price != 8 {
		t.Errorf("unexpected sell side: %+v", msg.SellSide)
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := newHub[int]()
	sub := h.Subscribe(1)
	defer h.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Broadcast(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on full subscriber buffer")
	}

	// The single buffered value is the first broadcast.
	if got := <-sub.ch; got != 0 {
		t.Errorf("expected first value 0, got %d", got)
	}
}

func TestPublish_BroadcastsTradeAndBook(t *testing.T) {
	s := newTestServer(t)
	tradeSub := s.tradeHub.Subscribe(4)
	defer s.tradeHub.Unsubscribe(tradeSub)
	bookSub := s.bookHub.Subscribe(4)
	defer s.bookHub.Unsubscribe(bookSub)

	tx := domain.Transaction{ID: "t1", CommodityID: "weed", Quantity: 5, Price: 10, Buyer: domain.PlayerParty("vinnie"), Seller: domain.HouseParty()}
	s.Publish("weed", []domain.Transaction{tx})

	select {
	case got := <-tradeSub.ch:
		if got.ID != "t1" {
			t.Errorf("wrong trade: %+v", got)
		}
	default:
		t.Error("no trade broadcast")
	}

	select {
	case view := <-bookSub.ch:
		if view.CommodityID != "weed" {
			t.Errorf("wrong book view: %+v", view)
		}
	default:
		t.Error("no book broadcast")
	}
}
