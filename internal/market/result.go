package market

import "github.com/fbarrueco/crimson-city-life/internal/domain"

// Outcome is the terminal state of one submitted trade request.
type Outcome string

const (
	// OutcomeFilled: the full requested quantity executed (market orders may
	// additionally have discarded an unaffordable remainder, noted in the
	// message).
	OutcomeFilled Outcome = "FILLED"
	// OutcomePartiallyFilled: some quantity executed, remainder resting.
	// Limit orders only.
	OutcomePartiallyFilled Outcome = "PARTIALLY_FILLED"
	// OutcomeQueued: limit order, zero executed, fully resting.
	OutcomeQueued Outcome = "QUEUED"
	// OutcomeRejected: guard failure or domain error; no effects.
	OutcomeRejected Outcome = "REJECTED"
)

// OrderRequest is one trade submission from the host application.
type OrderRequest struct {
	CommodityID string
	Side        string // domain.SideBuy / domain.SideSell
	Kind        string // domain.KindMarket / domain.KindLimit
	Quantity    int64
	LimitPrice  float64 // required for limit orders, ignored for market
}

// Result is the full effect of one matching pass. Failures are structured
// results, never panics across this boundary.
type Result struct {
	Outcome Outcome
	Reason  RejectReason // set iff Outcome == OutcomeRejected
	Message string       // human-readable, intended for direct display

	// Trader is the updated copy of the submitting trader's state. The
	// caller replaces its stored trader with this; on rejection it equals
	// the input state.
	Trader *domain.Trader

	// Consumed lists resting orders matched against, each with Quantity set
	// to the quantity taken from it in this pass.
	Consumed []domain.Order
	// Removed lists ids of resting orders fully consumed and deleted.
	Removed []string
	// Reduced lists resting orders partially consumed, with their new
	// remaining quantity.
	Reduced []domain.Order
	// Resting is the new resting order created from a limit remainder.
	Resting *domain.Order

	Transactions []domain.Transaction
}

// Executed returns the total quantity filled in this pass.
func (r *Result) Executed() int64 {
	var total int64
	for _, tx := range r.Transactions {
		total += tx.Quantity
	}
	return total
}

// Rejected checks whether the request had no effect.
func (r *Result) Rejected() bool {
	return r.Outcome == OutcomeRejected
}
