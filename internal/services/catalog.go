package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pharmacare/whatsapp-bot/internal/apiclient"
	"github.com/pharmacare/whatsapp-bot/internal/models"
)

// CatalogService reads the medicine catalog from the backend.
type CatalogService struct {
	api *apiclient.Client
}

// NewCatalogService creates a catalog service.
func NewCatalogService(api *apiclient.Client) *CatalogService {
	return &CatalogService{api: api}
}

// Categories lists all catalog categories.
func (c *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	body, err := c.api.Get(ctx, "/api/categories/")
	if err != nil {
		return nil, err
	}
	return apiclient.DecodeList[models.Category](body)
}

// MedicinesByCategory lists the medicines of one category.
func (c *CatalogService) MedicinesByCategory(ctx context.Context, categoryID string) ([]models.Medicine, error) {
	body, err := c.api.Get(ctx, "/api/medicines/?category="+url.QueryEscape(categoryID))
	if err != nil {
		return nil, err
	}
	return apiclient.DecodeList[models.Medicine](body)
}

// Search finds medicines matching a free-text query.
func (c *CatalogService) Search(ctx context.Context, query string, limit int) ([]models.Medicine, error) {
	path := fmt.Sprintf("/api/medicines/search/?q=%s&limit=%d", url.QueryEscape(query), limit)
	body, err := c.api.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return apiclient.DecodeList[models.Medicine](body)
}

// MedicineByID looks up one medicine. A missing id returns (nil, nil).
func (c *CatalogService) MedicineByID(ctx context.Context, id string) (*models.Medicine, error) {
	body, err := c.api.Get(ctx, "/api/medicines/"+url.PathEscape(id)+"/")
	if err != nil {
		if apiclient.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return apiclient.Decode[models.Medicine](body)
}
