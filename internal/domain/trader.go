package domain

import "fmt"

// Trader holds one player's cash balance and per-commodity stash.
// Owned by the progression subsystem; mutated by the matching engine as an
// output of a trade. All mutation helpers enforce non-negativity.
type Trader struct {
	ID    string           `json:"id"`
	Cash  float64          `json:"cash"`
	Stash map[string]int64 `json:"stash"` // commodityID -> grams held
}

// NewTrader creates a trader with starting cash and an empty stash.
func NewTrader(id string, cash float64) *Trader {
	return &Trader{
		ID:    id,
		Cash:  cash,
		Stash: make(map[string]int64),
	}
}

// Clone returns a deep copy. The engine works on a copy so a failed request
// leaves the caller's state untouched.
func (t *Trader) Clone() *Trader {
	stash := make(map[string]int64, len(t.Stash))
	for k, v := range t.Stash {
		stash[k] = v
	}
	return &Trader{ID: t.ID, Cash: t.Cash, Stash: stash}
}

// Holding returns the grams held for a commodity.
func (t *Trader) Holding(commodityID string) int64 {
	return t.Stash[commodityID]
}

// Credit adds cash.
func (t *Trader) Credit(amount float64) {
	if amount < 0 {
		panic(fmt.Sprintf("TRADER_CREDIT_NEGATIVE: %f", amount))
	}
	t.Cash += amount
}

// Debit removes cash. Panics if the balance would go negative; callers must
// check affordability before matching.
func (t *Trader) Debit(amount float64) {
	if amount < 0 {
		panic(fmt.Sprintf("TRADER_DEBIT_NEGATIVE: %f", amount))
	}
	if t.Cash < amount {
		panic(fmt.Sprintf("TRADER_DEBIT_INSUFFICIENT: need %f, have %f", amount, t.Cash))
	}
	t.Cash -= amount
}

// AddStash increases held grams for a commodity.
func (t *Trader) AddStash(commodityID string, grams int64) {
	if grams < 0 {
		panic(fmt.Sprintf("TRADER_STASH_ADD_NEGATIVE: %d", grams))
	}
	if t.Stash == nil {
		t.Stash = make(map[string]int64)
	}
	t.Stash[commodityID] += grams
}

// RemoveStash decreases held grams. Panics on underflow; the guard validates
// sell-side sufficiency before matching. Empty entries are dropped so a
// cleared stash does not linger as a zero row.
func (t *Trader) RemoveStash(commodityID string, grams int64) {
	if grams < 0 {
		panic(fmt.Sprintf("TRADER_STASH_REMOVE_NEGATIVE: %d", grams))
	}
	held := t.Stash[commodityID]
	if held < grams {
		panic(fmt.Sprintf("TRADER_STASH_UNDERFLOW: %s need %d, have %d", commodityID, grams, held))
	}
	if held == grams {
		delete(t.Stash, commodityID)
		return
	}
	t.Stash[commodityID] = held - grams
}

// VerifyInvariant panics if the trader state is corrupted.
func (t *Trader) VerifyInvariant() {
	if t.Cash < 0 {
		panic(fmt.Sprintf("TRADER_INVARIANT_CASH_NEGATIVE: %s %f", t.ID, t.Cash))
	}
	for id, grams := range t.Stash {
		if grams < 0 {
			panic(fmt.Sprintf("TRADER_INVARIANT_STASH_NEGATIVE: %s %s %d", t.ID, id, grams))
		}
	}
}
