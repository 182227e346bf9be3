package strategy

import (
	"github.com/fbarrueco/crimson-city-life/internal/domain"
)

// TrendDealer is a market-making city dealer driven by a moving-average
// crossover over observed trade prices. When the short average crosses
// above the long one (demand picking up) it posts a sell above the last
// price; on the downward cross it posts a buy below. It is stateful and
// deterministic.
//
// Uses a ring buffer so the hotpath allocates only when a cross fires.
type TrendDealer struct {
	dealerID    string
	commodityID string
	shortPeriod int
	longPeriod  int
	lotSize     int64

	// Price history ring buffer.
	prices []float64
	head   int // next write position
	count  int
	sum    float64 // running sum over the long period

	prevShort float64
	prevLong  float64
}

// NewTrendDealer creates a dealer for one commodity.
func NewTrendDealer(dealerID, commodityID string, shortPeriod, longPeriod int, lotSize int64) *TrendDealer {
	if shortPeriod >= longPeriod {
		panic("TrendDealer: shortPeriod must be less than longPeriod")
	}
	return &TrendDealer{
		dealerID:    dealerID,
		commodityID: commodityID,
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		lotSize:     lotSize,
		prices:      make([]float64, longPeriod),
	}
}

// OnTrade folds one trade into the price history and emits orders when
// the averages cross.
func (d *TrendDealer) OnTrade(tx domain.Transaction) []domain.Order {
	if tx.CommodityID != d.commodityID {
		return nil
	}

	// The dealer's own fills must not feed its signal.
	if tx.Buyer.TraderID == d.dealerID || tx.Seller.TraderID == d.dealerID {
		return nil
	}

	price := tx.Price

	// When full, drop the oldest value from the running sum before
	// overwriting it.
	if d.count == d.longPeriod {
		d.sum -= d.prices[d.head]
	}
	d.prices[d.head] = price
	d.sum += price
	d.head = (d.head + 1) % d.longPeriod
	if d.count < d.longPeriod {
		d.count++
	}

	if d.count < d.longPeriod {
		return nil
	}

	currLong := d.sum / float64(d.longPeriod)
	currShort := d.shortSMA()

	var orders []domain.Order
	if d.prevShort != 0 && d.prevLong != 0 {
		// Demand surging: offer stock above the last price.
		if d.prevShort <= d.prevLong && currShort > currLong {
			orders = append(orders, domain.Order{
				CommodityID: d.commodityID,
				Side:        domain.SideSell,
				Kind:        domain.KindLimit,
				Quantity:    d.lotSize,
				LimitPrice:  price * 1.05,
				TraderID:    d.dealerID,
			})
		}
		// Market cooling: bid for cheap stock below the last price.
		if d.prevShort >= d.prevLong && currShort < currLong {
			orders = append(orders, domain.Order{
				CommodityID: d.commodityID,
				Side:        domain.SideBuy,
				Kind:        domain.KindLimit,
				Quantity:    d.lotSize,
				LimitPrice:  price * 0.95,
				TraderID:    d.dealerID,
			})
		}
	}

	d.prevShort = currShort
	d.prevLong = currLong
	return orders
}

// shortSMA averages the most recent shortPeriod prices, walking the ring
// buffer backwards from the latest write.
func (d *TrendDealer) shortSMA() float64 {
	var sum float64
	idx := d.head
	for i := 0; i < d.shortPeriod; i++ {
		idx--
		if idx < 0 {
			idx = d.longPeriod - 1
		}
		sum += d.prices[idx]
	}
	return sum / float64(d.shortPeriod)
}
