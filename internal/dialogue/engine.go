package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pharmacare/whatsapp-bot/internal/models"
	"github.com/pharmacare/whatsapp-bot/internal/services"
)

const (
	apologyText  = "Sorry, something went wrong. Please try again or contact support."
	fallbackText = "I didn't understand that. Please select an option from the menu or type 'hi' to start over."

	deliveryExample = "*Example:*\n" +
		"John Doe\n" +
		"123 Main Street, Apartment 4B\n" +
		"New Delhi\n" +
		"110001\n" +
		"Near Central Park (optional)"

	addressRequirements = "❌ Please provide a complete address including:\n" +
		"- Full name\n" +
		"- Complete address\n" +
		"- City\n" +
		"- 5 or 6 digit pincode\n" +
		"- Landmark (optional)\n\n" + deliveryExample
)

// Engine owns the conversation state machine. Given an inbound event and
// the stored session it decides the next step, performs the side effects
// (catalog reads, cart mutations, order creation, outbound messages) and
// persists the updated session as the last step of each transition.
type Engine struct {
	sessions   Sessions
	catalog    Catalog
	orders     Orders
	pharmacies Pharmacies
	customers  Customers
	messenger  Messenger
	locks      *keyedMutex
}

// New wires the engine with its collaborators.
func New(sessions Sessions, catalog Catalog, orders Orders, pharmacies Pharmacies, customers Customers, messenger Messenger) *Engine {
	return &Engine{
		sessions:   sessions,
		catalog:    catalog,
		orders:     orders,
		pharmacies: pharmacies,
		customers:  customers,
		messenger:  messenger,
		locks:      newKeyedMutex(),
	}
}

// HandleMessage processes one inbound event for one user. Events for the
// same phone number are serialized; any failure inside a transition is
// logged and answered with a generic apology, leaving the session as it was.
func (e *Engine) HandleMessage(ctx context.Context, from string, ev Event) error {
	unlock := e.locks.lock(from)
	defer unlock()

	if err := e.dispatch(ctx, from, ev); err != nil {
		log.Error().Str("phone", from).Err(err).Msg("failed to handle message")
		if sendErr := e.messenger.SendText(ctx, from, apologyText); sendErr != nil {
			log.Error().Str("phone", from).Err(sendErr).Msg("failed to send apology")
		}
		return err
	}
	return nil
}

// dispatch applies the documented trigger precedence: prescription images
// first, the global greeting reset second, explicit command ids third,
// state-scoped free-text handlers fourth, then the fallback.
func (e *Engine) dispatch(ctx context.Context, from string, ev Event) error {
	session, err := e.sessions.Get(ctx, from)
	if err != nil {
		return err
	}

	if ev.IsImage() && prescriptionPending(session) {
		return e.handlePrescriptionImage(ctx, session, ev)
	}

	kw := ev.Keyword()
	id := ev.ReplyID

	if isGreeting(kw) || id == "main_menu" {
		return e.handleGreeting(ctx, session)
	}

	switch {
	case kw == "browse categories" || id == "browse_categories":
		return e.handleBrowseCategories(ctx, session)
	case strings.HasPrefix(id, "cat_"):
		return e.handleCategorySelection(ctx, session, strings.TrimPrefix(id, "cat_"))
	case strings.HasPrefix(kw, "med_") || strings.HasPrefix(id, "med_"):
		medicineID := strings.TrimPrefix(id, "med_")
		if medicineID == id || medicineID == "" {
			medicineID = strings.TrimPrefix(kw, "med_")
		}
		return e.handleMedicineSelection(ctx, session, medicineID)
	case strings.HasPrefix(id, "add_"):
		return e.handleAddToCart(ctx, session, strings.TrimPrefix(id, "add_"))
	case strings.HasPrefix(id, "order_rx_"):
		return e.handleOrderWithPrescription(ctx, session, strings.TrimPrefix(id, "order_rx_"))
	case kw == "view cart" || id == "view_cart":
		return e.handleViewCart(ctx, session)
	case kw == "checkout" || id == "checkout":
		return e.handleCheckout(ctx, session)
	case kw == "clear cart" || kw == "clear_cart" || id == "clear_cart":
		return e.handleClearCart(ctx, session)
	case kw == "cancel checkout" || kw == "cancel_checkout" || id == "cancel_checkout":
		return e.handleCancelCheckout(ctx, session)
	case kw == "search medicines" || id == "search_medicines":
		return e.handleSearchMedicines(ctx, session)
	case kw == "track order" || kw == "track orders" || kw == "track_order" || id == "track_order":
		return e.handleTrackOrders(ctx, session)
	case kw == "find pharmacy" || id == "find_pharmacy":
		return e.handleFindPharmacy(ctx, session)
	case kw == "upload prescription" || id == "upload_prescription":
		return e.handleUploadPrescription(ctx, session)
	}

	switch session.CurrentStep {
	case models.StepAwaitingDeliveryDetails:
		return e.handleDeliveryDetails(ctx, session, ev.Text)
	case models.StepConfirmDeliveryAddress:
		return e.handleAddressConfirmation(ctx, session, ev)
	case models.StepAwaitingSearchQuery:
		return e.handleSearchQuery(ctx, session, ev.Text)
	case models.StepAwaitingLocation:
		return e.handleLocationInput(ctx, session, ev)
	}

	if err := e.messenger.SendText(ctx, session.PhoneNumber, fallbackText); err != nil {
		return err
	}
	// Redisplay the main menu, as if the user had greeted us.
	return e.handleGreeting(ctx, session)
}

func isGreeting(kw string) bool {
	return strings.Contains(kw, "hi") ||
		strings.Contains(kw, "hello") ||
		strings.Contains(kw, "start") ||
		kw == "main menu"
}

func prescriptionPending(session *models.Session) bool {
	return session.ContextData.CheckoutInProgress ||
		session.ContextData.AwaitingPrescription != nil ||
		session.CurrentStep == models.StepAwaitingPrescriptionUpload ||
		session.CurrentStep == models.StepAwaitingPrescriptionCheckout
}

func (e *Engine) handleGreeting(ctx context.Context, session *models.Session) error {
	if _, err := e.customers.GetOrCreate(ctx, session.PhoneNumber, nil); err != nil {
		log.Warn().Str("phone", session.PhoneNumber).Err(err).Msg("could not ensure customer profile")
	}

	sections := []services.ListSection{{
		Title: "Main Options",
		Rows: []services.ListRow{
			{ID: "browse_categories", Title: "Browse Categories", Description: "Explore medicines by category"},
			{ID: "search_medicines", Title: "Search Medicines", Description: "Find specific medicines"},
			{ID: "upload_prescription", Title: "Upload Prescription", Description: "Submit your doctor's prescription"},
			{ID: "track_order", Title: "Track Orders", Description: "Check status of your orders"},
			{ID: "find_pharmacy", Title: "Find Pharmacy", Description: "Locate nearby pharmacies"},
		},
	}}
	err := e.messenger.SendList(ctx, session.PhoneNumber,
		"🏥 Welcome to PharmaCare Bot!",
		"How can I help you today? Select an option from the list below:",
		sections)
	if err != nil {
		return err
	}

	session.CurrentStep = models.StepMainMenu
	session.ContextData = models.ContextData{}
	return e.sessions.Update(ctx, session)
}

func (e *Engine) handleBrowseCategories(ctx context.Context, session *models.Session) error {
	categories, err := e.catalog.Categories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return e.messenger.SendText(ctx, session.PhoneNumber, "Sorry, no categories available at the moment.")
	}

	if len(categories) > 10 {
		categories = categories[:10]
	}
	rows := make([]services.ListRow, 0, len(categories))
	for _, category := range categories {
		description := category.Description
		if description == "" {
			description = "Browse " + category.Name + " medicines"
		}
		rows = append(rows, services.ListRow{
			ID:          "cat_" + category.ID,
			Title:       category.Name,
			Description: description,
		})
	}
	err = e.messenger.SendList(ctx, session.PhoneNumber,
		"🏥 Medicine Categories",
		"Select a category to browse medicines:",
		[]services.ListSection{{Title: "Medicine Categories", Rows: rows}})
	if err != nil {
		return err
	}

	session.CurrentStep = models.StepBrowseCategories
	session.ContextData.CurrentCategory = ""
	session.ContextData.SearchQuery = ""
	return e.sessions.Update(ctx, session)
}

func (e *Engine) handleCategorySelection(ctx context.Context, session *models.Session, categoryID string) error {
	if categoryID == "" {
		return e.messenger.SendText(ctx, session.PhoneNumber, "Please select a valid category.")
	}

	medicines, err := e.catalog.MedicinesByCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if len(medicines) == 0 {
		return e.messenger.SendText(ctx, session.PhoneNumber, "No medicines found in this category.")
	}

	err = e.messenger.SendList(ctx, session.PhoneNumber,
		"💊 Available Medicines",
		"Select a medicine to add to cart:",
		[]services.ListSection{{Title: "Available Medicines", Rows: medicineRows(medicines)}})
	if err != nil {
		return err
	}
	err = e.messenger.SendButtons(ctx, session.PhoneNumber,
		"Category Options",
		"What would you like to do next?",
		[]services.Button{
			{ID: "browse_categories", Title: "Change Category"},
			{ID: "search_medicines", Title: "Search Medicines"},
			{ID: "main_menu", Title: "Main Menu"},
		})
	if err != nil {
		return err
	}

	session.CurrentStep = models.StepBrowseMedicines
	session.ContextData.CurrentCategory = categoryID
	return e.sessions.Update(ctx, session)
}

func medicineRows(medicines []models.Medicine) []services.ListRow {
	if len(medicines) > 10 {
		medicines = medicines[:10]
	}
	rows := make([]services.ListRow, 0, len(medicines))
	for _, medicine := range medicines {
		description := fmt.Sprintf("₹%.2f", medicine.UnitPrice())
		if medicine.RequiresPrescription() {
			description += " (Rx Required)"
		}
		rows = append(rows, services.ListRow{
			ID:          "med_" + medicine.ID,
			Title:       medicine.Name,
			Description: description,
		})
	}
	return rows
}

func (e *Engine) handleMedicineSelection(ctx context.Context, session *models.Session, medicineID string) error {
	if medicineID == "" {
		return e.messenger.SendText(ctx, session.PhoneNumber, "Invalid medicine selection.")
	}

	medicine, err := e.catalog.MedicineByID(ctx, medicineID)
	if err != nil {
		return err
	}
	if medicine == nil {
		return e.messenger.SendText(ctx, session.PhoneNumber, "Sorry, medicine not found.")
	}

	inStock := "No"
	if medicine.StockQuantity > 0 {
		inStock = "Yes"
	}
	details := fmt.Sprintf("💊 *%s*\n\nℹ️ %s\n\n💰 Price: ₹%.2f\n📦 In Stock: %s",
		medicine.Name, orDefault(medicine.Description, "No description available"), medicine.UnitPrice(), inStock)
	if medicine.RequiresPrescription() {
		details += "\n📝 *Prescription Required*"
	}
	if err := e.messenger.SendText(ctx, session.PhoneNumber, details); err != nil {
		return err
	}

	buttons := []services.Button{
		{ID: "add_" + medicine.ID, Title: "✅ Add to Cart"},
		{ID: "browse_categories", Title: "🔙 Back to Categories"},
		{ID: "main_menu", Title: "🏠 Main Menu"},
	}
	if medicine.RequiresPrescription() {
		buttons = []services.Button{
			{ID: "add_" + medicine.ID, Title: "✅ Add to Cart"},
			{ID: "order_rx_" + medicine.ID, Title: "📝 Order with Rx"},
			{ID: "main_menu", Title: "🏠 Main Menu"},
		}
	}
	return e.messenger.SendButtons(ctx, session.PhoneNumber,
		"Add to Cart", "Would you like to add this to your cart?", buttons)
}

func (e *Engine) handleAddToCart(ctx context.Context, session *models.Session, medicineID string) error {
	medicine, err := e.catalog.MedicineByID(ctx, medicineID)
	if err != nil {
		return err
	}
	if medicine == nil {
		return e.messenger.SendText(ctx, session.PhoneNumber, "❌ Sorry, we couldn't find that medicine. Please try again.")
	}

	session.ContextData.Cart = AddToCart(session.ContextData.Cart, *medicine)

	err = e.messenger.SendButtons(ctx, session.PhoneNumber,
		"🛒 Cart Updated",
		fmt.Sprintf("✅ Added *%s* to your cart.\n\nWhat would you like to do next?", medicine.Name),
		[]services.Button{
			{ID: "view_cart", Title: "🛒 View Cart"},
			{ID: "browse_categories", Title: "Continue Shopping"},
			{ID: "checkout", Title: "Proceed to Checkout"},
		})
	if err != nil {
		return err
	}
	return e.sessions.Update(ctx, session)
}

// handleOrderWithPrescription starts the single-medicine prescription path:
// the next image adds the medicine to the cart and runs the checkout.
func (e *Engine) handleOrderWithPrescription(ctx context.Context, session *models.Session, medicineID string) error {
	medicine, err := e.catalog.MedicineByID(ctx, medicineID)
	if err != nil {
		return err
	}
	if medicine == nil {
		return e.messenger.SendText(ctx, session.PhoneNumber, "Sorry, medicine not found.")
	}

	err = e.messenger.SendText(ctx, session.PhoneNumber,
		fmt.Sprintf("📄 Please upload a clear photo of your prescription for *%s*.", medicine.Name))
	if err != nil {
		return err
	}

	session.CurrentStep = models.StepAwaitingPrescriptionUpload
	session.ContextData.AwaitingPrescription = medicine
	return e.sessions.Update(ctx, session)
}

func (e *Engine) handleViewCart(ctx context.Context, session *models.Session) error {
	cart := session.ContextData.Cart
	if len(cart) == 0 {
		if err := e.messenger.SendText(ctx, session.PhoneNumber, "Your cart is empty. Start adding some medicines!"); err != nil {
			return err
		}
		return e.sendBrowseOptions(ctx, session.PhoneNumber)
	}

	if err := e.messenger.SendText(ctx, session.PhoneNumber, RenderCart(cart)); err != nil {
		return err
	}
	if RequiresPrescription(cart) {
		notice := "📋 Some items in your cart require a prescription. Please upload a clear photo of your prescription when checking out."
		if err := e.messenger.SendText(ctx, session.PhoneNumber, notice); err != nil {
			return err
		}
	}
	return e.messenger.SendButtons(ctx, session.PhoneNumber,
		"Cart Options", "What would you like to do next?",
		[]services.Button{
			{ID: "checkout", Title: "✅ Checkout"},
			{ID: "clear_cart", Title: "🗑️ Clear Cart"},
			{ID: "browse_categories", Title: "🛍️ Continue Shopping"},
		})
}

func (e *Engine) handleClearCart(ctx context.Context, session *models.Session) error {
	if err := e.messenger.SendText(ctx, session.PhoneNumber, "🛒 Your cart has been cleared."); err != nil {
		return err
	}
	if err := e.sendBrowseOptions(ctx, session.PhoneNumber); err != nil {
		return err
	}

	session.CurrentStep = models.StepBrowseMedicines
	session.ContextData = models.ContextData{}
	return e.sessions.Update(ctx, session)
}

func (e *Engine) handleCheckout(ctx context.Context, session *models.Session) error {
	cart := session.ContextData.Cart
	if len(cart) == 0 {
		return e.messenger.SendText(ctx, session.PhoneNumber, "Your cart is empty. Add some medicines first!")
	}

	session.ContextData.CheckoutInProgress = true

	if RequiresPrescription(cart) {
		notice := "📋 Some items in your cart require a prescription. Please upload a clear photo of your prescription to proceed with checkout."
		if err := e.messenger.SendText(ctx, session.PhoneNumber, notice); err != nil {
			return err
		}
		session.CurrentStep = models.StepAwaitingPrescriptionCheckout
		return e.sessions.Update(ctx, session)
	}
	return e.promptDeliveryDetails(ctx, session)
}

func (e *Engine) promptDeliveryDetails(ctx context.Context, session *models.Session) error {
	instructions := "🚚 *Delivery Details*\n\n" +
		"Please provide your delivery details in the following format:\n\n" +
		"1. Full Name\n2. Complete Address\n3. City\n4. Pincode\n5. Landmark (Optional)\n\n" +
		deliveryExample
	if err := e.messenger.SendText(ctx, session.PhoneNumber, instructions); err != nil {
		return err
	}
	err := e.messenger.SendButtons(ctx, session.PhoneNumber,
		"Delivery Details", "You can also:",
		[]services.Button{{ID: "cancel_checkout", Title: "❌ Cancel Checkout"}})
	if err != nil {
		return err
	}

	session.CurrentStep = models.StepAwaitingDeliveryDetails
	return e.sessions.Update(ctx, session)
}

func (e *Engine) handleDeliveryDetails(ctx context.Context, session *models.Session, text string) error {
	address, err := ParseAddress(text)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			// Re-prompt without changing state.
			return e.messenger.SendText(ctx, session.PhoneNumber, addressRequirements)
		}
		return err
	}

	confirmation := "📦 *Please confirm your delivery address*\n\n" + FormatAddress(address) + "\nIs this address correct?"
	if err := e.messenger.SendText(ctx, session.PhoneNumber, confirmation); err != nil {
		return err
	}
	if err := e.sendAddressConfirmButtons(ctx, session.PhoneNumber); err != nil {
		return err
	}

	session.CurrentStep = models.StepConfirmDeliveryAddress
	session.ContextData.DeliveryAddress = address
	return e.sessions.Update(ctx, session)
}

func (e *Engine) sendAddressConfirmButtons(ctx context.Context, to string) error {
	return e.messenger.SendButtons(ctx, to,
		"Confirm Address", "Is this address correct?",
		[]services.Button{
			{ID: "confirm_address_yes", Title: "✅ Yes, Proceed"},
			{ID: "confirm_address_edit", Title: "✏️ Edit Address"},
		})
}

func (e *Engine) handleAddressConfirmation(ctx context.Context, session *models.Session, ev Event) error {
	switch {
	case ev.ReplyID == "confirm_address_yes" || ev.Keyword() == "yes":
		return e.confirmAddress(ctx, session)
	case ev.ReplyID == "confirm_address_edit" || ev.Keyword() == "edit":
		if err := e.messenger.SendText(ctx, session.PhoneNumber,
			"✏️ Please enter your delivery details again in this format:\n\n"+deliveryExample); err != nil {
			return err
		}
		session.CurrentStep = models.StepAwaitingDeliveryDetails
		session.ContextData.DeliveryAddress = nil
		return e.sessions.Update(ctx, session)
	default:
		if err := e.messenger.SendText(ctx, session.PhoneNumber,
			"Please confirm your address by selecting one of the options below:"); err != nil {
			return err
		}
		return e.sendAddressConfirmButtons(ctx, session.PhoneNumber)
	}
}

func (e *Engine) confirmAddress(ctx context.Context, session *models.Session) error {
	address := session.ContextData.DeliveryAddress
	if address == nil {
		return e.promptDeliveryDetails(ctx, session)
	}

	customer, err := e.customers.GetOrCreate(ctx, session.PhoneNumber, &models.Customer{
		Name:     address.Name,
		Address:  FlattenAddress(address),
		City:     address.City,
		Pincode:  address.Pincode,
		Landmark: address.Landmark,
	})
	if err != nil {
		return err
	}

	session.CurrentStep = models.StepProcessingPayment
	session.ContextData.CustomerInfo = customer

	return e.createOrder(ctx, session, OrderItems(session.ContextData.Cart, session.ContextData.PrescriptionPath), &models.OrderAddress{
		Name:     address.Name,
		Address:  FlattenAddress(address),
		City:     address.City,
		Pincode:  address.Pincode,
		Landmark: address.Landmark,
	})
}

// createOrder places the order and resets the conversation on success. A
// fulfilment failure re-prompts for the address instead of failing the turn.
func (e *Engine) createOrder(ctx context.Context, session *models.Session, items []models.OrderItem, address *models.OrderAddress) error {
	order, err := e.orders.QuickCreate(ctx, session.PhoneNumber, items, address)
	if err != nil {
		var noFulfillment *services.NoFulfillmentError
		if errors.As(err, &noFulfillment) {
			guidance := "❌ We couldn't find a pharmacy servicing your address. Please re-enter your delivery details with a different city or pincode."
			if sendErr := e.messenger.SendText(ctx, session.PhoneNumber, guidance); sendErr != nil {
				return sendErr
			}
			return e.promptDeliveryDetails(ctx, session)
		}
		return err
	}

	confirmation := fmt.Sprintf("✅ Order placed successfully!\n\n📋 Order ID: %s\n💰 Total: ₹%.2f\n\nYour order will be processed within 2 hours.",
		order.OrderID, order.TotalAmount)
	if err := e.messenger.SendText(ctx, session.PhoneNumber, confirmation); err != nil {
		return err
	}
	err = e.messenger.SendButtons(ctx, session.PhoneNumber,
		"Next Steps", "What would you like to do next?",
		[]services.Button{
			{ID: "track_order", Title: "Track Order"},
			{ID: "browse_categories", Title: "Continue Shopping"},
			{ID: "main_menu", Title: "Main Menu"},
		})
	if err != nil {
		return err
	}

	session.CurrentStep = models.StepBrowseMedicines
	session.ContextData = models.ContextData{}
	return e.sessions.Update(ctx, session)
}

func (e *Engine) handleCancelCheckout(ctx context.Context, session *models.Session) error {
	if err := e.messenger.SendText(ctx, session.PhoneNumber, "❌ Checkout cancelled. Your cart has been cleared."); err != nil {
		return err
	}
	if err := e.sendBrowseOptions(ctx, session.PhoneNumber); err != nil {
		return err
	}

	session.CurrentStep = models.StepBrowseMedicines
	session.ContextData = models.ContextData{}
	return e.sessions.Update(ctx, session)
}

// handlePrescriptionImage covers the three prescription flows: a cart
// checkout awaiting a prescription photo, a single medicine ordered with a
// prescription, and a standalone upload for pharmacist review.
func (e *Engine) handlePrescriptionImage(ctx context.Context, session *models.Session, ev Event) error {
	asset, err := e.messenger.DownloadMedia(ctx, ev.MediaID)
	if err != nil {
		return err
	}
	fileName := fmt.Sprintf("prescription_%s.jpg", uuid.NewString())
	path, err := e.pharmacies.UploadPrescription(ctx, session.PhoneNumber, fileName, asset.Data)
	if err != nil {
		return err
	}

	// The single-medicine path joins the cart checkout here: one line,
	// quantity one.
	if medicine := session.ContextData.AwaitingPrescription; medicine != nil {
		session.ContextData.Cart = AddToCart(session.ContextData.Cart, *medicine)
		session.ContextData.AwaitingPrescription = nil
		session.ContextData.CheckoutInProgress = true
	}

	if !session.ContextData.CheckoutInProgress {
		ack := "📄 Prescription received! Our pharmacist will review it and contact you shortly."
		if err := e.messenger.SendText(ctx, session.PhoneNumber, ack); err != nil {
			return err
		}
		if err := e.sendBrowseOptions(ctx, session.PhoneNumber); err != nil {
			return err
		}
		session.CurrentStep = models.StepBrowseMedicines
		return e.sessions.Update(ctx, session)
	}

	cart := session.ContextData.Cart
	if len(cart) == 0 {
		return e.messenger.SendText(ctx, session.PhoneNumber, "Your cart is empty. Add some medicines first!")
	}
	session.ContextData.PrescriptionPath = path

	customer, err := e.customers.GetOrCreate(ctx, session.PhoneNumber, nil)
	if err != nil {
		log.Warn().Str("phone", session.PhoneNumber).Err(err).Msg("could not load customer profile for delivery address")
		customer = nil
	}
	if customer == nil || !customer.HasAddress() {
		ack := "📄 Prescription received! Now we need your delivery address."
		if err := e.messenger.SendText(ctx, session.PhoneNumber, ack); err != nil {
			return err
		}
		return e.promptDeliveryDetails(ctx, session)
	}

	return e.createOrder(ctx, session, OrderItems(cart, path), &models.OrderAddress{
		Name:     customer.Name,
		Address:  customer.Address,
		City:     customer.City,
		Pincode:  customer.Pincode,
		Landmark: customer.Landmark,
	})
}

func (e *Engine) handleSearchMedicines(ctx context.Context, session *models.Session) error {
	prompt := "🔍 What medicine are you looking for?\n\nType the name of the medicine you want to search for."
	if err := e.messenger.SendText(ctx, session.PhoneNumber, prompt); err != nil {
		return err
	}

	session.CurrentStep = models.StepAwaitingSearchQuery
	session.ContextData.SearchQuery = ""
	return e.sessions.Update(ctx, session)
}

func (e *Engine) handleSearchQuery(ctx context.Context, session *models.Session, text string) error {
	query := strings.TrimSpace(text)
	if query == "" {
		return e.messenger.SendText(ctx, session.PhoneNumber, "Please enter a medicine name to search.")
	}

	results, err := e.catalog.Search(ctx, query, 10)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		msg := fmt.Sprintf("No medicines found for %q. Please try a different search term.", query)
		if err := e.messenger.SendText(ctx, session.PhoneNumber, msg); err != nil {
			return err
		}
		return e.messenger.SendButtons(ctx, session.PhoneNumber,
			"Search Options", "What would you like to do?",
			[]services.Button{
				{ID: "search_medicines", Title: "Search Again"},
				{ID: "browse_categories", Title: "Browse Categories"},
				{ID: "main_menu", Title: "Main Menu"},
			})
	}

	err = e.messenger.SendList(ctx, session.PhoneNumber,
		fmt.Sprintf("🔍 Search Results for %q", query),
		"Select a medicine to add to cart:",
		[]services.ListSection{{Title: "Search Results", Rows: medicineRows(results)}})
	if err != nil {
		return err
	}

	session.CurrentStep = models.StepBrowseMedicines
	session.ContextData.SearchQuery = query
	return e.sessions.Update(ctx, session)
}

func (e *Engine) handleTrackOrders(ctx context.Context, session *models.Session) error {
	orders, err := e.orders.ByCustomer(ctx, session.PhoneNumber)
	if err != nil {
		return err
	}

	if len(orders) == 0 {
		if err := e.messenger.SendText(ctx, session.PhoneNumber,
			"📦 No orders found for your number.\n\nWould you like to place an order?"); err != nil {
			return err
		}
		return e.sendBrowseOptions(ctx, session.PhoneNumber)
	}

	if len(orders) > 5 {
		orders = orders[:5]
	}
	var b strings.Builder
	b.WriteString("📦 *Your Recent Orders*\n\n")
	for i, order := range orders {
		pharmacyName := "N/A"
		if order.Pharmacy != nil {
			pharmacyName = order.Pharmacy.Name
		}
		status := orDefault(order.Status, "Processing")
		fmt.Fprintf(&b, "*%d. Order #%s*\n📅 %s\n🏪 Pharmacy: %s\n💰 Total: ₹%.2f\n📦 Status: %s\n\n",
			i+1, order.OrderID, order.CreatedAt.Format("02 Jan 2006"), pharmacyName, order.TotalAmount, status)
	}
	if err := e.messenger.SendText(ctx, session.PhoneNumber, b.String()); err != nil {
		return err
	}
	return e.messenger.SendButtons(ctx, session.PhoneNumber,
		"Next Steps", "What would you like to do next?",
		[]services.Button{
			{ID: "browse_categories", Title: "Browse Categories"},
			{ID: "track_order", Title: "Refresh Orders"},
			{ID: "main_menu", Title: "Main Menu"},
		})
}

func (e *Engine) handleFindPharmacy(ctx context.Context, session *models.Session) error {
	prompt := "📍 Please share your location details:\n\nType your city name or pincode to find nearby pharmacies."
	if err := e.messenger.SendText(ctx, session.PhoneNumber, prompt); err != nil {
		return err
	}

	session.CurrentStep = models.StepAwaitingLocation
	return e.sessions.Update(ctx, session)
}

func (e *Engine) handleLocationInput(ctx context.Context, session *models.Session, ev Event) error {
	var city, pincode, label string
	if ev.Location != nil {
		if err := e.messenger.SendText(ctx, session.PhoneNumber, "Location received! Looking for pharmacies near you..."); err != nil {
			return err
		}
		label = "your location"
	} else {
		location := strings.TrimSpace(ev.Text)
		if location == "" {
			return e.messenger.SendText(ctx, session.PhoneNumber, "Please enter your city name or pincode.")
		}
		label = location
		if isNumeric(location) {
			pincode = location
		} else {
			city = location
		}
	}

	pharmacies, err := e.pharmacies.Nearby(ctx, city, pincode)
	if err != nil {
		return err
	}
	if len(pharmacies) == 0 {
		msg := fmt.Sprintf("No pharmacies found near %q. Please try a different location.", label)
		if err := e.messenger.SendText(ctx, session.PhoneNumber, msg); err != nil {
			return err
		}
		return e.messenger.SendButtons(ctx, session.PhoneNumber,
			"Location Options", "What would you like to do?",
			[]services.Button{
				{ID: "find_pharmacy", Title: "Try Another Location"},
				{ID: "main_menu", Title: "Main Menu"},
			})
	}

	if len(pharmacies) > 5 {
		pharmacies = pharmacies[:5]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🏥 *Pharmacies near %q*:\n\n", label)
	for i, pharmacy := range pharmacies {
		fmt.Fprintf(&b, "*%d. %s*\n   📍 %s\n   📞 %s\n", i+1, pharmacy.Name, pharmacy.Address, pharmacy.Phone)
		if pharmacy.Is24x7 {
			b.WriteString("   🕐 Open 24x7\n")
		}
		b.WriteString("\n")
	}
	if err := e.messenger.SendText(ctx, session.PhoneNumber, b.String()); err != nil {
		return err
	}
	err = e.messenger.SendButtons(ctx, session.PhoneNumber,
		"Pharmacy Options", "What would you like to do?",
		[]services.Button{
			{ID: "browse_categories", Title: "Browse Medicines"},
			{ID: "find_pharmacy", Title: "Find Another Location"},
			{ID: "main_menu", Title: "Main Menu"},
		})
	if err != nil {
		return err
	}

	session.CurrentStep = models.StepBrowseMedicines
	return e.sessions.Update(ctx, session)
}

func (e *Engine) handleUploadPrescription(ctx context.Context, session *models.Session) error {
	instructions := "📄 Please upload a clear photo of your prescription.\n\n" +
		"Make sure the prescription is:\n• Clearly readable\n• From a licensed doctor\n• Not expired\n\n" +
		"After uploading, our pharmacist will review and contact you."
	if err := e.messenger.SendText(ctx, session.PhoneNumber, instructions); err != nil {
		return err
	}

	session.CurrentStep = models.StepAwaitingPrescriptionUpload
	session.ContextData.AwaitingPrescription = nil
	return e.sessions.Update(ctx, session)
}

func (e *Engine) sendBrowseOptions(ctx context.Context, to string) error {
	return e.messenger.SendButtons(ctx, to,
		"What would you like to do?", "Pick an option:",
		[]services.Button{
			{ID: "browse_categories", Title: "Browse Categories"},
			{ID: "search_medicines", Title: "Search Medicines"},
			{ID: "main_menu", Title: "Main Menu"},
		})
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
