package models

// Item is a single line entry on one participant's ledger. Unit and add-on
// prices come from catalog lookups, never from the caller.
type Item struct {
	// ID is the unique identifier for the item (UUID format).
	ID string `json:"id"`

	// ProductID references the catalog product.
	ProductID string `json:"productId"`

	// ProductName is the catalog display name, captured at add time.
	ProductName string `json:"productName"`

	// Size is the chosen product size (e.g. "small", "large").
	Size string `json:"size"`

	// Quantity is the ordered count, always >= 1 on a stored item.
	Quantity int `json:"quantity"`

	// Customizations are the chosen add-ons, each with its own price.
	Customizations []Customization `json:"customizations,omitempty"`

	// UnitPrice is the catalog base price for product + size.
	UnitPrice float64 `json:"unitPrice"`

	// Notes is free-form text passed through to the final order.
	Notes string `json:"notes,omitempty"`

	// LineTotal is (UnitPrice + sum of customization prices) * Quantity.
	LineTotal float64 `json:"lineTotal"`
}

// Customization is one priced add-on applied to an item.
type Customization struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ComputeLineTotal derives the line total from unit price, add-ons and
// quantity.
func (it Item) ComputeLineTotal() float64 {
	unit := it.UnitPrice
	for _, c := range it.Customizations {
		unit += c.Price
	}
	return roundCents(unit * float64(it.Quantity))
}
