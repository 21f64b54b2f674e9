package models

// Step is a named stage of the conversation flow.
type Step string

const (
	StepStart                        Step = "start"
	StepMainMenu                     Step = "main_menu"
	StepBrowseCategories             Step = "browse_categories"
	StepBrowseMedicines              Step = "browse_medicines"
	StepSearchResults                Step = "search_results"
	StepAwaitingSearchQuery          Step = "awaiting_search_query"
	StepAwaitingLocation             Step = "awaiting_location"
	StepAwaitingPrescriptionUpload   Step = "awaiting_prescription_upload"
	StepAwaitingPrescriptionCheckout Step = "awaiting_prescription_checkout"
	StepCheckoutStarted              Step = "checkout_started"
	StepAwaitingDeliveryDetails      Step = "awaiting_delivery_details"
	StepConfirmDeliveryAddress       Step = "confirm_delivery_address"
	StepProcessingPayment            Step = "processing_payment"
)

// Session stores per-user conversation state for WhatsApp conversations.
// It is the only continuity mechanism between webhook deliveries.
type Session struct {
	PhoneNumber string      `json:"phone_number"`
	CurrentStep Step        `json:"current_step"`
	ContextData ContextData `json:"context_data"`

	// Fallback marks a session synthesized locally because the backend was
	// unreachable. Fallback sessions live in the in-memory store only.
	Fallback bool `json:"-"`
}

// NewSession returns the initial session for an unseen phone number.
func NewSession(phone string) *Session {
	return &Session{
		PhoneNumber: phone,
		CurrentStep: StepStart,
	}
}

// ContextData carries the state-dependent fields of a session. Each step
// reads only the fields it needs; everything is optional on the wire.
type ContextData struct {
	Cart               []CartItem `json:"cart,omitempty"`
	CurrentCategory    string     `json:"current_category,omitempty"`
	SearchQuery        string     `json:"search_query,omitempty"`
	DeliveryAddress    *Address   `json:"delivery_address,omitempty"`
	CheckoutInProgress bool       `json:"checkout_in_progress,omitempty"`
	CustomerInfo       *Customer  `json:"customer_info,omitempty"`

	// AwaitingPrescription references a single medicine being ordered
	// directly with a prescription photo, outside the cart flow.
	AwaitingPrescription *Medicine `json:"awaiting_prescription,omitempty"`

	// PrescriptionPath is the stored file reference of a prescription
	// uploaded mid-checkout, kept until the order is placed.
	PrescriptionPath string `json:"prescription_path,omitempty"`
}

// CartItem is one line of the in-session cart, unique by medicine id.
type CartItem struct {
	MedicineID           string  `json:"medicine_id"`
	Name                 string  `json:"name"`
	UnitPrice            float64 `json:"unit_price"`
	Quantity             int     `json:"quantity"`
	RequiresPrescription bool    `json:"requires_prescription"`
}

// Address is a structured delivery address produced by the address parser.
type Address struct {
	Name         string   `json:"name"`
	AddressLines []string `json:"address_lines"`
	City         string   `json:"city"`
	Pincode      string   `json:"pincode"`
	Landmark     string   `json:"landmark,omitempty"`
}
