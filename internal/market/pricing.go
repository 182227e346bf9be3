package market

// sizeFraction scales slippage by residual order size, capped at the full
// order-size limit.
func sizeFraction(remaining, maxOrderSize int64) float64 {
	frac := float64(remaining) / float64(maxOrderSize)
	return min(frac, 1)
}

// houseAskPrice is what the house charges a market buy's residual quantity:
// reference price pushed up by size-proportional slippage, never closer to
// reference than the minimum spread.
func houseAskPrice(ref float64, remaining int64, cfg Config) float64 {
	slipped := ref * (1 + sizeFraction(remaining, cfg.MaxOrderSize)*cfg.SlippageRatio)
	floor := ref * (1 + cfg.MinSpreadPercent/100)
	return max(slipped, floor)
}

// houseBidPrice is what the house pays for a market sell's residual quantity:
// the mirror of houseAskPrice, pushed down by slippage and spread, but never
// below the hard floor of half the commodity base price. The hard floor stops
// a drifted rolling average from driving sell proceeds to near zero.
func houseBidPrice(ref float64, remaining int64, basePrice float64, cfg Config) float64 {
	slipped := ref * (1 - sizeFraction(remaining, cfg.MaxOrderSize)*cfg.SlippageRatio)
	ceiling := ref * (1 - cfg.MinSpreadPercent/100)
	price := min(slipped, ceiling)
	return max(price, basePrice*cfg.SellFloorRatio)
}
