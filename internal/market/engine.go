package market

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
	"github.com/fbarrueco/crimson-city-life/pkg/money"
)

// Config holds the marketplace tunables. Defaults match the live game
// balance; the yaml config can override them.
type Config struct {
	MaxOrderSize       int64         `yaml:"max_order_size"`        // grams per order
	MaxOrdersPerMinute int           `yaml:"max_orders_per_minute"` // guard window count
	RateWindow         time.Duration `yaml:"rate_window"`
	SlippageRatio      float64       `yaml:"slippage_ratio"`     // price movement at full order size
	MinSpreadPercent   float64       `yaml:"min_spread_percent"` // house edge vs reference, percent
	SellFloorRatio     float64       `yaml:"sell_floor_ratio"`   // hard floor as fraction of base price
	BuyPriceWindow     int           `yaml:"buy_price_window"`   // transactions averaged for buy-side reference
	SellPriceWindow    int           `yaml:"sell_price_window"`  // wider window for unlimited sell absorption
	LedgerRetention    int           `yaml:"ledger_retention"`   // transactions kept per commodity
}

// DefaultConfig returns the live game balance values.
func DefaultConfig() Config {
	return Config{
		MaxOrderSize:       1000,
		MaxOrdersPerMinute: 10,
		RateWindow:         time.Minute,
		SlippageRatio:      0.02,
		MinSpreadPercent:   3,
		SellFloorRatio:     0.5,
		BuyPriceWindow:     3,
		SellPriceWindow:    10,
		LedgerRetention:    100,
	}
}

// Validate checks the config for values that would break matching math.
func (c Config) Validate() error {
	if c.MaxOrderSize <= 0 {
		return fmt.Errorf("max_order_size must be positive, got %d", c.MaxOrderSize)
	}
	if c.MaxOrdersPerMinute <= 0 {
		return fmt.Errorf("max_orders_per_minute must be positive, got %d", c.MaxOrdersPerMinute)
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("rate_window must be positive, got %s", c.RateWindow)
	}
	if c.SlippageRatio < 0 || c.SlippageRatio >= 1 {
		return fmt.Errorf("slippage_ratio must be in [0,1), got %f", c.SlippageRatio)
	}
	if c.MinSpreadPercent < 0 || c.MinSpreadPercent >= 100 {
		return fmt.Errorf("min_spread_percent must be in [0,100), got %f", c.MinSpreadPercent)
	}
	if c.SellFloorRatio <= 0 || c.SellFloorRatio > 1 {
		return fmt.Errorf("sell_floor_ratio must be in (0,1], got %f", c.SellFloorRatio)
	}
	if c.BuyPriceWindow <= 0 || c.SellPriceWindow <= 0 {
		return fmt.Errorf("price windows must be positive")
	}
	if c.LedgerRetention <= 0 {
		return fmt.Errorf("ledger_retention must be positive, got %d", c.LedgerRetention)
	}
	return nil
}

// Engine is the drug marketplace matching engine. It owns the arena of
// resting orders (keyed by id, book views computed on demand), the
// transaction ledger and the anti-exploit guard.
//
// Each Submit runs synchronously to completion; the full effect of one match
// is applied atomically or not at all. The mutex covers external reads
// (book views for the UI feed); the design is single-trader, single logical
// writer. Exposing multiple concurrent traders would need a single-writer
// actor per commodity on top of this.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	catalog map[string]domain.Commodity
	orders  map[string]*domain.Order // resting arena
	ledger  *Ledger
	guard   *Guard
	seq     int64
	now     func() time.Time
	rand    func() float64 // street price jitter, swappable in tests
}

// NewEngine creates a marketplace over the given catalog. Guard and ledger
// state start fresh: the rate-limit history lives exactly as long as the
// engine.
func NewEngine(cfg Config, catalog []domain.Commodity) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid market config: %w", err)
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("catalog must not be empty")
	}
	return &Engine{
		cfg:     cfg,
		catalog: domain.CatalogIndex(catalog),
		orders:  make(map[string]*domain.Order),
		ledger:  NewLedger(cfg.LedgerRetention),
		guard:   NewGuard(cfg.MaxOrderSize, cfg.MaxOrdersPerMinute, cfg.RateWindow),
		now:     time.Now,
		rand:    defaultRand,
	}, nil
}

// Catalog returns the commodities this marketplace trades.
func (e *Engine) Catalog() []domain.Commodity {
	out := make([]domain.Commodity, 0, len(e.catalog))
	for _, c := range e.catalog {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BookView returns the current two-sided book for a commodity, for display.
func (e *Engine) BookView(commodityID string) domain.OrderBook {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.BuildOrderBook(commodityID, e.arenaSlice())
}

// RestingOrders returns copies of every live resting order, for persistence.
func (e *Engine) RestingOrders() []domain.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Order, 0, len(e.orders))
	for _, o := range e.arenaSlice() {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// SeedOrder injects a resting limit order into the arena, bypassing the
// guard. Used to restore persisted state and to plant synthetic city orders.
// Returns the stored copy with id and sequence assigned.
func (e *Engine) SeedOrder(o domain.Order) (domain.Order, error) {
	if _, ok := e.catalog[o.CommodityID]; !ok {
		return domain.Order{}, fmt.Errorf("unknown commodity %q", o.CommodityID)
	}
	if o.Kind != domain.KindLimit || o.LimitPrice <= 0 || o.Quantity <= 0 {
		return domain.Order{}, fmt.Errorf("only priced limit orders can rest: %+v", o)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Seq == 0 {
		e.seq++
		o.Seq = e.seq
	} else if o.Seq > e.seq {
		e.seq = o.Seq
	}
	cp := o
	e.orders[o.ID] = &cp
	return o, nil
}

// LedgerTransactions returns every retained transaction, oldest first,
// for persistence and snapshots. The ledger itself stays behind the engine
// mutex: snapshot and feed goroutines read while Submit appends.
func (e *Engine) LedgerTransactions() []domain.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.All()
}

// RecentTransactions returns up to n most recent trades for a commodity,
// newest first, for display.
func (e *Engine) RecentTransactions(commodityID string, n int) []domain.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Recent(commodityID, n)
}

// LoadLedger replaces the ledger contents with persisted history, ordered
// oldest first.
func (e *Engine) LoadLedger(txs []domain.Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.Load(txs)
}

// PruneLedger discards transactions beyond the retention bound, oldest
// first. Safe to run on any schedule.
func (e *Engine) PruneLedger() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	dropped := e.ledger.Prune()
	if dropped > 0 {
		slog.Info("ledger pruned", slog.Int("dropped", dropped))
	}
	return dropped
}

// Submit runs one trade request through guard and matching. The input trader
// is never mutated; the result carries an updated copy.
func (e *Engine) Submit(trader *domain.Trader, req OrderRequest) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	commodity, ok := e.catalog[req.CommodityID]
	if !ok {
		return rejected(trader, ReasonUnknownCommodity, fmt.Sprintf("unknown commodity %q", req.CommodityID))
	}
	if req.Kind == domain.KindLimit && req.LimitPrice <= 0 {
		return rejected(trader, ReasonInvalidPrice, "limit orders need a positive limit price")
	}

	if reason, ok := e.guard.Validate(trader, req.Quantity, req.Side, req.CommodityID, now); !ok {
		slog.Warn("order rejected by guard",
			slog.String("trader", trader.ID),
			slog.String("commodity", req.CommodityID),
			slog.String("reason", string(reason)))
		return rejected(trader, reason, guardMessage(reason))
	}

	e.seq++
	order := domain.Order{
		ID:           uuid.NewString(),
		CommodityID:  req.CommodityID,
		Side:         req.Side,
		Kind:         req.Kind,
		Quantity:     req.Quantity,
		TraderID:     trader.ID,
		CreatedUnixM: now.UnixMicro(),
		Seq:          e.seq,
	}
	if req.Kind == domain.KindLimit {
		order.LimitPrice = req.LimitPrice
	}

	if order.IsBuy() {
		return e.matchBuy(trader, order, commodity, now)
	}
	return e.matchSell(trader, order, commodity, now)
}

// matchBuy walks resting sells cheapest-first, then fills any market
// remainder from house liquidity while cash lasts.
func (e *Engine) matchBuy(trader *domain.Trader, order domain.Order, commodity domain.Commodity, now time.Time) Result {
	res := Result{Trader: trader.Clone()}
	remaining := order.Quantity

	for _, cand := range e.candidates(order) {
		if remaining <= 0 {
			break
		}
		matchQty := min(remaining, cand.Quantity)
		price := cand.LimitPrice
		cost := price * float64(matchQty)
		if res.Trader.Cash < cost {
			// Never split a resting order below the taker's means: stop the
			// walk rather than partially matching the candidate.
			break
		}

		res.Trader.Debit(cost)
		res.Trader.AddStash(order.CommodityID, matchQty)
		e.consume(cand, matchQty, &res)
		e.record(order.CommodityID, matchQty, price,
			domain.PlayerParty(trader.ID), domain.PlayerParty(cand.TraderID), now, &res)
		remaining -= matchQty
	}

	if remaining > 0 && order.IsMarket() {
		ref := e.referencePrice(order.CommodityID, commodity, e.cfg.BuyPriceWindow)
		price := houseAskPrice(ref, remaining, e.cfg)
		affordable := int64(math.Floor(res.Trader.Cash / price))
		fillQty := min(remaining, affordable)
		if fillQty > 0 {
			res.Trader.Debit(price * float64(fillQty))
			res.Trader.AddStash(order.CommodityID, fillQty)
			e.record(order.CommodityID, fillQty, price,
				domain.PlayerParty(trader.ID), domain.HouseParty(), now, &res)
			remaining -= fillQty
		}
	}

	return e.finish(trader, order, remaining, &res)
}

// matchSell walks resting buys highest-first; a market remainder is absorbed
// entirely by the house at floor-protected pricing. Sells are limited only by
// held stock, which the guard already validated.
func (e *Engine) matchSell(trader *domain.Trader, order domain.Order, commodity domain.Commodity, now time.Time) Result {
	res := Result{Trader: trader.Clone()}
	remaining := order.Quantity

	for _, cand := range e.candidates(order) {
		if remaining <= 0 {
			break
		}
		matchQty := min(remaining, cand.Quantity)
		price := cand.LimitPrice

		res.Trader.Credit(price * float64(matchQty))
		res.Trader.RemoveStash(order.CommodityID, matchQty)
		e.consume(cand, matchQty, &res)
		e.record(order.CommodityID, matchQty, price,
			domain.PlayerParty(cand.TraderID), domain.PlayerParty(trader.ID), now, &res)
		remaining -= matchQty
	}

	if remaining > 0 && order.IsMarket() {
		ref := e.referencePrice(order.CommodityID, commodity, e.cfg.SellPriceWindow)
		price := houseBidPrice(ref, remaining, commodity.BasePrice, e.cfg)
		res.Trader.Credit(price * float64(remaining))
		res.Trader.RemoveStash(order.CommodityID, remaining)
		e.record(order.CommodityID, remaining, price,
			domain.HouseParty(), domain.PlayerParty(trader.ID), now, &res)
		remaining = 0
	}

	return e.finish(trader, order, remaining, &res)
}

// candidates returns the price-time ordered resting orders the incoming
// order may match: the opposing side, filtered by limit-price compatibility
// for limit orders.
func (e *Engine) candidates(order domain.Order) []*domain.Order {
	var out []*domain.Order
	for _, resting := range e.orders {
		if resting.CommodityID != order.CommodityID || resting.Side == order.Side {
			continue
		}
		if order.Kind == domain.KindLimit {
			if order.IsBuy() && resting.LimitPrice > order.LimitPrice {
				continue
			}
			if !order.IsBuy() && resting.LimitPrice < order.LimitPrice {
				continue
			}
		}
		out = append(out, resting)
	}

	buyIncoming := order.IsBuy()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LimitPrice != b.LimitPrice {
			if buyIncoming {
				return a.LimitPrice < b.LimitPrice // cheapest ask first
			}
			return a.LimitPrice > b.LimitPrice // highest bid first
		}
		return a.Seq < b.Seq // first-in-first-matched at equal price
	})
	return out
}

// consume takes matchQty from a resting order, removing it from the arena
// when emptied, and records the book mutation in the result.
func (e *Engine) consume(resting *domain.Order, matchQty int64, res *Result) {
	taken := *resting
	taken.Quantity = matchQty
	res.Consumed = append(res.Consumed, taken)

	resting.Quantity -= matchQty
	if resting.Quantity == 0 {
		delete(e.orders, resting.ID)
		res.Removed = append(res.Removed, resting.ID)
	} else {
		res.Reduced = append(res.Reduced, *resting)
	}
}

// record appends an executed layer to the result and the ledger.
func (e *Engine) record(commodityID string, qty int64, price float64, buyer, seller domain.Party, now time.Time, res *Result) {
	tx := domain.Transaction{
		ID:          uuid.NewString(),
		CommodityID: commodityID,
		Quantity:    qty,
		Price:       price,
		TsUnixM:     now.UnixMicro(),
		Buyer:       buyer,
		Seller:      seller,
	}
	res.Transactions = append(res.Transactions, tx)
	e.ledger.Append(tx)
}

// HouseQuote previews the house-liquidity price for a given residual
// quantity without trading. Buy quotes use the ask curve, sell quotes the
// bid curve with its hard floor.
func (e *Engine) HouseQuote(commodityID, side string, quantity int64) (float64, error) {
	commodity, ok := e.catalog[commodityID]
	if !ok {
		return 0, fmt.Errorf("unknown commodity %q", commodityID)
	}
	if quantity <= 0 {
		return 0, fmt.Errorf("quantity must be positive: %d", quantity)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if side == domain.SideBuy {
		ref := e.referencePrice(commodityID, commodity, e.cfg.BuyPriceWindow)
		return houseAskPrice(ref, quantity, e.cfg), nil
	}
	ref := e.referencePrice(commodityID, commodity, e.cfg.SellPriceWindow)
	return houseBidPrice(ref, quantity, commodity.BasePrice, e.cfg), nil
}

// referencePrice is the mean of the most recent transactions, falling back
// to the commodity base price when no history exists.
func (e *Engine) referencePrice(commodityID string, commodity domain.Commodity, window int) float64 {
	if avg, ok := e.ledger.RecentAverage(commodityID, window); ok {
		return avg
	}
	return commodity.BasePrice
}

// finish resolves the outcome: rest a limit remainder, discard a market one.
func (e *Engine) finish(trader *domain.Trader, order domain.Order, remaining int64, res *Result) Result {
	executed := order.Quantity - remaining

	if remaining > 0 && order.Kind == domain.KindLimit {
		rest := order
		rest.Quantity = remaining
		cp := rest
		e.orders[rest.ID] = &cp
		res.Resting = &rest
	}

	switch {
	case executed == 0 && res.Resting != nil:
		res.Outcome = OutcomeQueued
		res.Message = fmt.Sprintf("order queued: %s at %s",
			money.FormatGrams(remaining), money.FormatPerGram(order.LimitPrice))
	case executed == 0:
		// Market order that found nothing matchable and, for buys, nothing
		// affordable from the house.
		return rejected(trader, ReasonNoLiquidity, "no liquidity: nothing matched")
	case res.Resting != nil:
		res.Outcome = OutcomePartiallyFilled
		res.Message = fmt.Sprintf("executed %s at %s avg; %s queued",
			money.FormatGrams(executed), money.FormatPerGram(avgPrice(res.Transactions)),
			money.FormatGrams(remaining))
	case remaining > 0:
		res.Outcome = OutcomeFilled
		res.Message = fmt.Sprintf("executed %s at %s avg; %s unfilled and dropped",
			money.FormatGrams(executed), money.FormatPerGram(avgPrice(res.Transactions)),
			money.FormatGrams(remaining))
	default:
		res.Outcome = OutcomeFilled
		res.Message = fmt.Sprintf("executed %s at %s avg",
			money.FormatGrams(executed), money.FormatPerGram(avgPrice(res.Transactions)))
	}

	res.Trader.VerifyInvariant()
	slog.Info("order executed",
		slog.String("trader", trader.ID),
		slog.String("commodity", order.CommodityID),
		slog.String("side", order.Side),
		slog.String("outcome", string(res.Outcome)),
		slog.Int64("executed", executed))
	return *res
}

func rejected(trader *domain.Trader, reason RejectReason, message string) Result {
	return Result{
		Outcome: OutcomeRejected,
		Reason:  reason,
		Message: message,
		Trader:  trader.Clone(),
	}
}

func guardMessage(reason RejectReason) string {
	switch reason {
	case ReasonInvalidQuantity:
		return "invalid quantity"
	case ReasonOrderTooLarge:
		return "order too large"
	case ReasonRateLimited:
		return "rate limited: too many orders, slow down"
	case ReasonInsufficientStock:
		return "insufficient stock"
	default:
		return string(reason)
	}
}

// avgPrice is the quantity-weighted execution price across layers.
func avgPrice(txs []domain.Transaction) float64 {
	var qty int64
	var value float64
	for _, tx := range txs {
		qty += tx.Quantity
		value += tx.Price * float64(tx.Quantity)
	}
	if qty == 0 {
		return 0
	}
	return value / float64(qty)
}

func (e *Engine) arenaSlice() []*domain.Order {
	out := make([]*domain.Order, 0, len(e.orders))
	for _, o := range e.orders {
		out = append(out, o)
	}
	return out
}
