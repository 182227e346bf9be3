package domain

// Commodity is static reference data for a tradable drug.
// Never mutated at runtime.
type Commodity struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	BasePrice float64 `json:"base_price"` // reference $/g used when no market history exists
}

// DefaultCatalog returns the commodities the city trades in.
func DefaultCatalog() []Commodity {
	return []Commodity{
		{ID: "weed", Name: "Weed", BasePrice: 10},
		{ID: "cocaine", Name: "Cocaine", BasePrice: 50},
		{ID: "heroin", Name: "Heroin", BasePrice: 100},
		{ID: "meth", Name: "Meth", BasePrice: 150},
	}
}

// CatalogIndex builds an ID lookup over a commodity list.
func CatalogIndex(commodities []Commodity) map[string]Commodity {
	idx := make(map[string]Commodity, len(commodities))
	for _, c := range commodities {
		idx[c.ID] = c
	}
	return idx
}
