package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/pharmacare/whatsapp-bot/internal/apiclient"
	"github.com/pharmacare/whatsapp-bot/internal/models"
)

// NoFulfillmentError means no pharmacy services the delivery address. The
// user should be guided to fix the address rather than retry blindly.
type NoFulfillmentError struct {
	City    string
	Pincode string
}

func (e *NoFulfillmentError) Error() string {
	return fmt.Sprintf("no pharmacy available for city=%q pincode=%q", e.City, e.Pincode)
}

// OrderService creates and lists orders through the backend.
type OrderService struct {
	api        *apiclient.Client
	pharmacies *PharmacyService
	customers  *CustomerService
}

// NewOrderService creates an order service.
func NewOrderService(api *apiclient.Client, pharmacies *PharmacyService, customers *CustomerService) *OrderService {
	return &OrderService{
		api:        api,
		pharmacies: pharmacies,
		customers:  customers,
	}
}

// ByCustomer lists a customer's orders, most recent first per the backend.
func (o *OrderService) ByCustomer(ctx context.Context, phone string) ([]models.Order, error) {
	body, err := o.api.Get(ctx, "/api/orders/customer/"+url.PathEscape(phone)+"/")
	if err != nil {
		return nil, err
	}
	return apiclient.DecodeList[models.Order](body)
}

// QuickCreate resolves a fulfilling pharmacy for the delivery address (the
// first nearby result, no further ranking) and creates the order.
func (o *OrderService) QuickCreate(ctx context.Context, phone string, items []models.OrderItem, address *models.OrderAddress) (*models.Order, error) {
	if _, err := o.customers.GetOrCreate(ctx, phone, nil); err != nil {
		log.Warn().Str("phone", phone).Err(err).Msg("could not ensure customer before order creation")
	}

	var city, pincode string
	if address != nil {
		city = address.City
		pincode = address.Pincode
	}
	pharmacies, err := o.pharmacies.Nearby(ctx, city, pincode)
	if err != nil {
		return nil, err
	}
	if len(pharmacies) == 0 {
		return nil, &NoFulfillmentError{City: city, Pincode: pincode}
	}

	request := models.OrderRequest{
		CustomerPhone:   phone,
		PharmacyID:      pharmacies[0].ID,
		Medicines:       items,
		DeliveryAddress: address,
	}
	body, err := o.api.Request(ctx, http.MethodPost, "/api/orders/quick-create/", request)
	if err != nil {
		return nil, err
	}
	return apiclient.Decode[models.Order](body)
}
