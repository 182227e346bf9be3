package market

import (
	"sort"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
)

// Ledger is the append-only, bounded-per-commodity history of executed
// trades. It feeds the rolling reference price for house liquidity.
type Ledger struct {
	retention int
	byID      map[string][]domain.Transaction // commodityID -> oldest first
}

// NewLedger creates an empty ledger keeping at most retention transactions
// per commodity.
func NewLedger(retention int) *Ledger {
	return &Ledger{
		retention: retention,
		byID:      make(map[string][]domain.Transaction),
	}
}

// Append records an executed trade.
func (l *Ledger) Append(tx domain.Transaction) {
	l.byID[tx.CommodityID] = append(l.byID[tx.CommodityID], tx)
}

// Recent returns up to n most recent transactions for a commodity,
// newest first.
func (l *Ledger) Recent(commodityID string, n int) []domain.Transaction {
	all := l.byID[commodityID]
	if n > len(all) {
		n = len(all)
	}
	out := make([]domain.Transaction, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		out = append(out, all[i])
	}
	return out
}

// RecentAverage computes the arithmetic mean price of the n most recent
// transactions. ok is false when no history exists; callers fall back to the
// commodity base price.
func (l *Ledger) RecentAverage(commodityID string, n int) (avg float64, ok bool) {
	recent := l.Recent(commodityID, n)
	if len(recent) == 0 {
		return 0, false
	}
	var sum float64
	for _, tx := range recent {
		sum += tx.Price
	}
	return sum / float64(len(recent)), true
}

// Prune discards everything beyond the newest retention entries per
// commodity, oldest first. Returns the number of dropped transactions.
func (l *Ledger) Prune() int {
	dropped := 0
	for id, txs := range l.byID {
		if len(txs) <= l.retention {
			continue
		}
		dropped += len(txs) - l.retention
		kept := make([]domain.Transaction, l.retention)
		copy(kept, txs[len(txs)-l.retention:])
		l.byID[id] = kept
	}
	return dropped
}

// All returns every retained transaction across commodities, oldest first,
// for persistence round-trips.
func (l *Ledger) All() []domain.Transaction {
	var out []domain.Transaction
	for _, txs := range l.byID {
		out = append(out, txs...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TsUnixM < out[j].TsUnixM })
	return out
}

// Load replaces the ledger contents, assuming input ordered oldest first.
func (l *Ledger) Load(txs []domain.Transaction) {
	l.byID = make(map[string][]domain.Transaction)
	for _, tx := range txs {
		l.Append(tx)
	}
}
