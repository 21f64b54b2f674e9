package storage

import "github.com/pharmacare/whatsapp-bot/internal/models"

// Store defines the interface for local session storage. It backs the
// degraded mode used when the backend session API is unreachable.
type Store interface {
	GetSession(phone string) (*models.Session, error)
	SaveSession(session *models.Session) error
	DeleteSession(phone string) error
}
