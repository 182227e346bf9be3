package market

import (
	"sync"
	"time"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
)

// RejectReason classifies why a trade request was refused.
type RejectReason string

const (
	ReasonInvalidQuantity   RejectReason = "INVALID_QUANTITY"
	ReasonOrderTooLarge     RejectReason = "ORDER_TOO_LARGE"
	ReasonRateLimited       RejectReason = "RATE_LIMITED"
	ReasonInsufficientStock RejectReason = "INSUFFICIENT_STOCK"
	ReasonUnknownCommodity  RejectReason = "UNKNOWN_COMMODITY"
	ReasonInvalidPrice      RejectReason = "INVALID_PRICE"
	ReasonNoLiquidity       RejectReason = "NO_LIQUIDITY"
)

// Guard validates incoming trade requests before they reach the matching
// engine: quantity sanity, order-size cap, per-trader rate limit and
// sell-side stock sufficiency.
//
// The submission history is process-wide state owned by the marketplace and
// reset at construction. Thread-safe, but the engine itself is scoped to a
// single trader process.
type Guard struct {
	mu           sync.Mutex
	maxOrderSize int64
	maxPerWindow int
	window       time.Duration
	history      map[string][]time.Time // traderID -> submissions inside the window
}

// NewGuard creates a guard with the given limits and a fresh history.
func NewGuard(maxOrderSize int64, maxPerWindow int, window time.Duration) *Guard {
	return &Guard{
		maxOrderSize: maxOrderSize,
		maxPerWindow: maxPerWindow,
		window:       window,
		history:      make(map[string][]time.Time),
	}
}

// Validate runs the checks in order, short-circuiting on first failure.
// On acceptance the submission timestamp is appended to the trader's window;
// this is the guard's only side effect and happens even if the order later
// finds no match.
func (g *Guard) Validate(trader *domain.Trader, quantity int64, side, commodityID string, now time.Time) (RejectReason, bool) {
	if quantity <= 0 {
		return ReasonInvalidQuantity, false
	}
	if quantity > g.maxOrderSize {
		return ReasonOrderTooLarge, false
	}

	g.mu.Lock()
	recent := g.trim(trader.ID, now)
	if len(recent) >= g.maxPerWindow {
		g.mu.Unlock()
		return ReasonRateLimited, false
	}
	g.history[trader.ID] = append(recent, now)
	g.mu.Unlock()

	if side == domain.SideSell && trader.Holding(commodityID) < quantity {
		return ReasonInsufficientStock, false
	}

	return "", true
}

// trim drops history entries older than the window. Caller holds the mutex.
func (g *Guard) trim(traderID string, now time.Time) []time.Time {
	cutoff := now.Add(-g.window)
	recent := g.history[traderID][:0]
	for _, ts := range g.history[traderID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	g.history[traderID] = recent
	return recent
}

// Reset clears all submission history.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = make(map[string][]time.Time)
}
