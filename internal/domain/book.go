package domain

import "sort"

// OrderBook is the two-sided view of resting orders for one commodity.
// It is a computed projection, never stored: the engine owns the order arena
// and derives views on demand.
type OrderBook struct {
	CommodityID string  `json:"commodity_id"`
	BuySide     []Order `json:"buy_side"`  // best bid first (descending price)
	SellSide    []Order `json:"sell_side"` // best ask first (ascending price)
}

// BuildOrderBook partitions the live orders for a commodity into the two
// sides, each sorted by matching priority. Ties at the same price preserve
// arrival order. Input orders are copied; the view owns its slices.
func BuildOrderBook(commodityID string, orders []*Order) OrderBook {
	book := OrderBook{CommodityID: commodityID}
	for _, o := range orders {
		if o.CommodityID != commodityID {
			continue
		}
		if o.IsBuy() {
			book.BuySide = append(book.BuySide, *o)
		} else {
			book.SellSide = append(book.SellSide, *o)
		}
	}

	sort.SliceStable(book.BuySide, func(i, j int) bool {
		a, b := book.BuySide[i], book.BuySide[j]
		if a.LimitPrice != b.LimitPrice {
			return a.LimitPrice > b.LimitPrice
		}
		return a.Seq < b.Seq
	})
	sort.SliceStable(book.SellSide, func(i, j int) bool {
		a, b := book.SellSide[i], book.SellSide[j]
		if a.LimitPrice != b.LimitPrice {
			return a.LimitPrice < b.LimitPrice
		}
		return a.Seq < b.Seq
	})

	return book
}

// BestBid returns the highest resting buy order, or nil if the side is empty.
func (b *OrderBook) BestBid() *Order {
	if len(b.BuySide) == 0 {
		return nil
	}
	return &b.BuySide[0]
}

// BestAsk returns the lowest resting sell order, or nil if the side is empty.
func (b *OrderBook) BestAsk() *Order {
	if len(b.SellSide) == 0 {
		return nil
	}
	return &b.SellSide[0]
}
