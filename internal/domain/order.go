package domain

// Order represents a one-sided request to trade a commodity.
// Quantities are integer grams; prices are $/g.
type Order struct {
	ID           string  `json:"id"`
	CommodityID  string  `json:"commodity_id"`
	Side         string  `json:"side"` // "BUY", "SELL"
	Kind         string  `json:"kind"` // "LIMIT", "MARKET"
	Quantity     int64   `json:"quantity"`
	LimitPrice   float64 `json:"limit_price,omitempty"` // set only for LIMIT orders
	TraderID     string  `json:"trader_id"`
	CreatedUnixM int64   `json:"created_at_unix"` // Unix Microseconds
	Seq          int64   `json:"seq"`             // arrival order, tie-break at equal price
}

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	KindMarket = "MARKET"
	KindLimit  = "LIMIT"
)

// IsBuy checks if the order is on the buy side.
func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}

// IsMarket checks if the order executes immediately and never rests.
func (o *Order) IsMarket() bool {
	return o.Kind == KindMarket
}
