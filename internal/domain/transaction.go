package domain

import "encoding/json"

// HouseLabel is how the synthetic counterparty is rendered at boundaries
// (persistence, UI feed). It is not a real trader id.
const HouseLabel = "GAME_LIQUIDITY"

// Party identifies one side of a transaction: either a real trader or the
// synthetic house counterparty. A tagged struct avoids accidental collision
// between a magic string and a real trader id.
type Party struct {
	TraderID string
	House    bool
}

// PlayerParty wraps a trader id as a counterparty identity.
func PlayerParty(traderID string) Party {
	return Party{TraderID: traderID}
}

// HouseParty is the synthetic liquidity counterparty.
func HouseParty() Party {
	return Party{House: true}
}

func (p Party) String() string {
	if p.House {
		return HouseLabel
	}
	return p.TraderID
}

// MarshalJSON renders the house as its sentinel label so persisted records
// stay plain strings.
func (p Party) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON restores the tagged identity from the persisted string form.
func (p *Party) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = PartyFromLabel(s)
	return nil
}

// PartyFromLabel converts a persisted counterparty string back into a Party.
func PartyFromLabel(s string) Party {
	if s == HouseLabel {
		return Party{House: true}
	}
	return Party{TraderID: s}
}

// Transaction is one executed trade. Append-only; the ledger keeps a bounded
// per-commodity history used to derive the rolling reference price.
type Transaction struct {
	ID          string  `json:"id"`
	CommodityID string  `json:"commodity_id"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"` // actual execution price for this layer
	TsUnixM     int64   `json:"ts_unix"`
	Buyer       Party   `json:"buyer"`
	Seller      Party   `json:"seller"`
}
