package dialogue

import (
	"context"

	"github.com/pharmacare/whatsapp-bot/internal/models"
	"github.com/pharmacare/whatsapp-bot/internal/services"
)

// Messenger sends outbound WhatsApp messages and downloads inbound media.
type Messenger interface {
	SendText(ctx context.Context, to, text string) error
	SendButtons(ctx context.Context, to, header, body string, buttons []services.Button) error
	SendList(ctx context.Context, to, header, body string, sections []services.ListSection) error
	DownloadMedia(ctx context.Context, mediaID string) (*services.MediaAsset, error)
}

// Sessions loads and persists per-user conversation sessions.
type Sessions interface {
	Get(ctx context.Context, phone string) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
}

// Catalog reads the medicine catalog.
type Catalog interface {
	Categories(ctx context.Context) ([]models.Category, error)
	MedicinesByCategory(ctx context.Context, categoryID string) ([]models.Medicine, error)
	Search(ctx context.Context, query string, limit int) ([]models.Medicine, error)
	MedicineByID(ctx context.Context, id string) (*models.Medicine, error)
}

// Orders lists and creates orders.
type Orders interface {
	ByCustomer(ctx context.Context, phone string) ([]models.Order, error)
	QuickCreate(ctx context.Context, phone string, items []models.OrderItem, address *models.OrderAddress) (*models.Order, error)
}

// Pharmacies looks up fulfilment locations and stores prescription uploads.
type Pharmacies interface {
	Nearby(ctx context.Context, city, pincode string) ([]models.Pharmacy, error)
	UploadPrescription(ctx context.Context, phone, fileName string, data []byte) (string, error)
}

// Customers manages backend customer profiles.
type Customers interface {
	GetOrCreate(ctx context.Context, phone string, updates *models.Customer) (*models.Customer, error)
}
