package models

// Category is a catalog category from the backend.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Medicine is a catalog item. PrescriptionType "RX" marks it
// prescription-gated.
type Medicine struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description,omitempty"`
	Price            float64 `json:"price"`
	MRP              float64 `json:"mrp,omitempty"`
	StockQuantity    int     `json:"stock_quantity"`
	PrescriptionType string  `json:"prescription_type,omitempty"`
}

// RequiresPrescription reports whether the medicine is prescription-gated.
func (m Medicine) RequiresPrescription() bool {
	return m.PrescriptionType == "RX"
}

// UnitPrice returns the selling price, falling back to MRP when the backend
// omits a discounted price.
func (m Medicine) UnitPrice() float64 {
	if m.Price > 0 {
		return m.Price
	}
	return m.MRP
}

// Pharmacy is a fulfilment location from the nearby-pharmacy lookup.
type Pharmacy struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Is24x7   bool   `json:"is_24x7"`
	IsActive bool   `json:"is_active"`
}
