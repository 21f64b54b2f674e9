package models

import "time"

// OrderItem is one medicine line of an order.
type OrderItem struct {
	MedicineID       string `json:"medicine_id"`
	Quantity         int    `json:"quantity"`
	PrescriptionFile string `json:"prescription_file,omitempty"`
}

// OrderAddress is the flattened delivery address sent with an order.
type OrderAddress struct {
	Name     string `json:"name,omitempty"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Pincode  string `json:"pincode"`
	Landmark string `json:"landmark,omitempty"`
}

// OrderRequest is the quick-create payload sent to the backend.
type OrderRequest struct {
	CustomerPhone   string        `json:"customer_phone"`
	PharmacyID      string        `json:"pharmacy_id"`
	Medicines       []OrderItem   `json:"medicines"`
	DeliveryAddress *OrderAddress `json:"delivery_address,omitempty"`
}

// Order is an order as returned by the backend. Only status mutates after
// creation, and the backend owns it.
type Order struct {
	OrderID       string      `json:"order_id"`
	PharmacyID    string      `json:"pharmacy_id,omitempty"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	Medicines     []OrderItem `json:"medicines,omitempty"`
	TotalAmount   float64     `json:"total_amount"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	Pharmacy      *Pharmacy   `json:"pharmacy,omitempty"`
}
