package market

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
	"github.com/fbarrueco/crimson-city-life/pkg/money"
)

// Street trades: instant off-book deals with city dealers at a randomized
// multiple of base price. They bypass the order book but still feed the
// ledger, so street activity moves the house reference price.
//
// Buy quote ranges 0.8x-1.2x base; sell quote 1.0x-1.6x (dealers pay a
// premium for not asking questions). Total amounts are floored to whole
// dollars like the rest of the city's cash economy.

const (
	streetBuyBase  = 0.8
	streetBuySway  = 0.4
	streetSellSway = 0.6
)

func defaultRand() float64 {
	return rand.Float64()
}

// StreetBuy purchases grams directly from a street dealer.
func (e *Engine) StreetBuy(trader *domain.Trader, commodityID string, quantity int64) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	commodity, ok := e.catalog[commodityID]
	if !ok {
		return rejected(trader, ReasonUnknownCommodity, fmt.Sprintf("unknown commodity %q", commodityID))
	}
	if quantity <= 0 {
		return rejected(trader, ReasonInvalidQuantity, "invalid quantity")
	}

	price := commodity.BasePrice * (streetBuyBase + e.rand()*streetBuySway)
	totalCost := math.Floor(price * float64(quantity))
	if trader.Cash < totalCost {
		return rejected(trader, ReasonNoLiquidity, "not enough cash for the street price")
	}

	res := Result{Trader: trader.Clone(), Outcome: OutcomeFilled}
	res.Trader.Debit(totalCost)
	res.Trader.AddStash(commodityID, quantity)
	e.record(commodityID, quantity, price,
		domain.PlayerParty(trader.ID), domain.HouseParty(), e.now(), &res)
	res.Message = fmt.Sprintf("bought %s of %s for %s",
		money.FormatGrams(quantity), commodity.Name, money.Format(totalCost))
	res.Trader.VerifyInvariant()
	return res
}

// StreetSell moves grams to a street dealer for cash.
func (e *Engine) StreetSell(trader *domain.Trader, commodityID string, quantity int64) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	commodity, ok := e.catalog[commodityID]
	if !ok {
		return rejected(trader, ReasonUnknownCommodity, fmt.Sprintf("unknown commodity %q", commodityID))
	}
	if quantity <= 0 {
		return rejected(trader, ReasonInvalidQuantity, "invalid quantity")
	}
	if trader.Holding(commodityID) < quantity {
		return rejected(trader, ReasonInsufficientStock, "insufficient stock")
	}

	price := commodity.BasePrice * (1 + e.rand()*streetSellSway)
	totalEarned := math.Floor(price * float64(quantity))

	res := Result{Trader: trader.Clone(), Outcome: OutcomeFilled}
	res.Trader.Credit(totalEarned)
	res.Trader.RemoveStash(commodityID, quantity)
	e.record(commodityID, quantity, price,
		domain.HouseParty(), domain.PlayerParty(trader.ID), e.now(), &res)
	res.Message = fmt.Sprintf("sold %s of %s for %s",
		money.FormatGrams(quantity), commodity.Name, money.Format(totalEarned))
	res.Trader.VerifyInvariant()
	return res
}
