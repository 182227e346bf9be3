package strategy

import (
	"github.com/fbarrueco/crimson-city-life/internal/domain"
)

// Dealer defines the interface for automated city dealer logic.
type Dealer interface {
	// OnTrade is called for every transaction recorded in the ledger.
	// It returns limit orders the dealer wants resting on the book.
	// Returned orders carry no ID or sequence; the caller assigns them.
	OnTrade(tx domain.Transaction) []domain.Order
}
