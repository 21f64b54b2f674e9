package models

// Customer is the backend customer profile keyed by phone number. The
// delivery address captured during checkout is merged into it.
type Customer struct {
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	Pincode     string `json:"pincode,omitempty"`
	Landmark    string `json:"landmark,omitempty"`
}

// HasAddress reports whether the profile carries enough of an address to
// resolve a fulfilling pharmacy.
func (c Customer) HasAddress() bool {
	return c.City != "" || c.Pincode != ""
}
