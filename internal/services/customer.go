package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pharmacare/whatsapp-bot/internal/apiclient"
	"github.com/pharmacare/whatsapp-bot/internal/models"
)

// CustomerService manages backend customer profiles keyed by phone number.
type CustomerService struct {
	api *apiclient.Client
}

// NewCustomerService creates a customer service.
func NewCustomerService(api *apiclient.Client) *CustomerService {
	return &CustomerService{api: api}
}

func customerPath(phone string) string {
	return "/api/customers/" + url.PathEscape(phone) + "/"
}

// GetOrCreate fetches the customer for a phone number, creating the record
// on first contact. When updates is non-nil the profile is patched with it.
func (c *CustomerService) GetOrCreate(ctx context.Context, phone string, updates *models.Customer) (*models.Customer, error) {
	body, err := c.api.Get(ctx, customerPath(phone))
	if err != nil {
		if apiclient.IsNotFound(err) {
			return c.create(ctx, phone, updates)
		}
		return nil, err
	}

	if updates != nil {
		updates.PhoneNumber = phone
		patched, err := c.api.Request(ctx, http.MethodPatch, customerPath(phone), updates)
		if err != nil {
			return nil, err
		}
		return apiclient.Decode[models.Customer](patched)
	}
	return apiclient.Decode[models.Customer](body)
}

func (c *CustomerService) create(ctx context.Context, phone string, updates *models.Customer) (*models.Customer, error) {
	record := models.Customer{PhoneNumber: phone}
	if updates != nil {
		record = *updates
		record.PhoneNumber = phone
	}
	body, err := c.api.Request(ctx, http.MethodPost, customerPath(phone), record)
	if err != nil {
		return nil, err
	}
	return apiclient.Decode[models.Customer](body)
}
