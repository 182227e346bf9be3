package app

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
	"github.com/fbarrueco/crimson-city-life/internal/market"
	"github.com/fbarrueco/crimson-city-life/internal/server"
	"github.com/fbarrueco/crimson-city-life/internal/strategy"
)

// Session ties the engine, the store, and the feed server together: every
// accepted trade is persisted atomically and broadcast before the result
// is returned.
type Session struct {
	boot    *Bootstrap
	feed    *server.Server
	dealers []strategy.Dealer
}

// NewSession wires a session over a bootstrapped application. feed may be
// nil when the server is disabled.
func NewSession(boot *Bootstrap, feed *server.Server) *Session {
	return &Session{boot: boot, feed: feed}
}

// AttachDealers registers automated city dealers. Each recorded trade is
// fed to every dealer; orders they emit rest on the book.
func (s *Session) AttachDealers(dealers ...strategy.Dealer) {
	s.dealers = append(s.dealers, dealers...)
}

// Trader returns the current trader state.
func (s *Session) Trader() *domain.Trader {
	return s.boot.Trader
}

// PlaceOrder submits an order to the marketplace, persists the outcome,
// and publishes executed transactions to the feed.
func (s *Session) PlaceOrder(ctx context.Context, req market.OrderRequest) (market.Result, error) {
	res := s.boot.Engine.Submit(s.boot.Trader, req)
	return s.commit(ctx, req.CommodityID, res)
}

// StreetBuy performs an off-book street purchase.
func (s *Session) StreetBuy(ctx context.Context, commodityID string, quantity int64) (market.Result, error) {
	res := s.boot.Engine.StreetBuy(s.boot.Trader, commodityID, quantity)
	return s.commit(ctx, commodityID, res)
}

// StreetSell performs an off-book street sale.
func (s *Session) StreetSell(ctx context.Context, commodityID string, quantity int64) (market.Result, error) {
	res := s.boot.Engine.StreetSell(s.boot.Trader, commodityID, quantity)
	return s.commit(ctx, commodityID, res)
}

func (s *Session) commit(ctx context.Context, commodityID string, res market.Result) (market.Result, error) {
	if err := s.boot.Store.ApplyResult(ctx, res, time.Now().UnixMicro()); err != nil {
		return res, err
	}
	if res.Executed() > 0 {
		s.boot.Trader = res.Trader
		if s.feed != nil {
			s.feed.Publish(commodityID, res.Transactions)
		}
		s.runDealers(ctx, res.Transactions)
	}
	if dropped := s.boot.Engine.PruneLedger(); dropped > 0 {
		if _, err := s.boot.Store.PruneTransactions(ctx, s.boot.Config.Market.LedgerRetention); err != nil {
			slog.Warn("failed to prune stored transactions", "error", err)
		}
	}
	return res, nil
}

// runDealers feeds executed trades to the attached dealers and rests any
// orders they emit.
func (s *Session) runDealers(ctx context.Context, txs []domain.Transaction) {
	for _, tx := range txs {
		for _, dealer := range s.dealers {
			for _, o := range dealer.OnTrade(tx) {
				o.CreatedUnixM = time.Now().UnixMicro()
				stored, err := s.boot.Engine.SeedOrder(o)
				if err != nil {
					slog.Warn("dealer order rejected", "trader", o.TraderID, "error", err)
					continue
				}
				if err := s.boot.Store.SaveOrder(ctx, stored); err != nil {
					slog.Warn("failed to persist dealer order", "id", stored.ID, "error", err)
				}
				slog.Info("🕴️ Dealer order resting", "trader", stored.TraderID,
					"commodity", stored.CommodityID, "side", stored.Side, "qty", stored.Quantity)
			}
		}
	}
}

// SeedCityOrders plants a handful of resting limit orders from city
// dealers so the books are not empty on a fresh start. Runs only when
// no resting orders survived recovery.
func (s *Session) SeedCityOrders(rng *rand.Rand) {
	if len(s.boot.Engine.RestingOrders()) > 0 {
		return
	}
	dealers := []string{"marco", "tasha", "ezekiel"}
	for _, c := range s.boot.Engine.Catalog() {
		for i, dealer := range dealers {
			spread := 0.05 + rng.Float64()*0.10
			sell, err := s.boot.Engine.SeedOrder(domain.Order{
				CommodityID: c.ID,
				Side:        domain.SideSell,
				Kind:        domain.KindLimit,
				Quantity:    int64(10 + rng.Intn(40)),
				LimitPrice:  c.BasePrice * (1 + spread),
				TraderID:    dealer,
			})
			if err != nil {
				slog.Warn("failed to seed city order", "commodity", c.ID, "error", err)
				continue
			}
			if err := s.boot.Store.SaveOrder(context.Background(), sell); err != nil {
				slog.Warn("failed to persist city order", "id", sell.ID, "error", err)
			}
			// Every other dealer also bids below base.
			if i%2 == 0 {
				buy, err := s.boot.Engine.SeedOrder(domain.Order{
					CommodityID: c.ID,
					Side:        domain.SideBuy,
					Kind:        domain.KindLimit,
					Quantity:    int64(5 + rng.Intn(20)),
					LimitPrice:  c.BasePrice * (1 - spread),
					TraderID:    dealer,
				})
				if err == nil {
					if err := s.boot.Store.SaveOrder(context.Background(), buy); err != nil {
						slog.Warn("failed to persist city order", "id", buy.ID, "error", err)
					}
				}
			}
		}
	}
	slog.Info("🏙️ City dealer orders seeded", "orders", len(s.boot.Engine.RestingOrders()))
}

// RunSnapshots writes periodic JSON snapshots until the context ends.
func (s *Session) RunSnapshots(ctx context.Context) {
	interval := time.Duration(s.boot.Config.Snapshot.IntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.boot.SaveSnapshot(); err != nil {
				slog.Error("snapshot failed", "error", err)
			}
		}
	}
}
