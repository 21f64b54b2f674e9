package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/pharmacare/whatsapp-bot/internal/apiclient"
	"github.com/pharmacare/whatsapp-bot/internal/models"
	"github.com/pharmacare/whatsapp-bot/internal/storage"
)

// SessionService owns per-user conversation sessions. The backend is the
// source of truth; when it is unreachable the service synthesizes a local
// fallback session so the conversation can continue degraded.
type SessionService struct {
	api      *apiclient.Client
	fallback storage.Store
}

// NewSessionService creates a session service backed by the commerce API
// with an in-memory fallback store.
func NewSessionService(api *apiclient.Client, fallback storage.Store) *SessionService {
	return &SessionService{
		api:      api,
		fallback: fallback,
	}
}

func sessionPath(phone string) string {
	return fmt.Sprintf("/api/whatsapp-session/%s/", phone)
}

// Get fetches the session for a phone number, creating it on first contact.
// Backend unavailability degrades to a locally-synthesized session instead
// of failing the turn.
func (s *SessionService) Get(ctx context.Context, phone string) (*models.Session, error) {
	body, err := s.api.Get(ctx, sessionPath(phone))
	if err != nil {
		if apiclient.IsNotFound(err) {
			return s.create(ctx, phone)
		}
		if apiclient.IsUnavailable(err) {
			log.Warn().Str("phone", phone).Err(err).Msg("session backend unreachable, using fallback session")
			return s.fallbackSession(phone), nil
		}
		return nil, err
	}

	session, err := apiclient.Decode[models.Session](body)
	if err != nil {
		return nil, err
	}
	if session.PhoneNumber == "" {
		session.PhoneNumber = phone
	}
	if session.CurrentStep == "" {
		session.CurrentStep = models.StepStart
	}
	return session, nil
}

// Update persists a session. Fallback sessions stay local; backend failures
// downgrade the session to fallback rather than losing the turn's progress.
func (s *SessionService) Update(ctx context.Context, session *models.Session) error {
	if session.Fallback {
		return s.fallback.SaveSession(session)
	}

	_, err := s.api.Request(ctx, http.MethodPatch, sessionPath(session.PhoneNumber), session)
	if err != nil {
		if apiclient.IsUnavailable(err) {
			log.Warn().Str("phone", session.PhoneNumber).Err(err).Msg("session backend unreachable, persisting session locally")
			session.Fallback = true
			return s.fallback.SaveSession(session)
		}
		return err
	}
	return nil
}

func (s *SessionService) create(ctx context.Context, phone string) (*models.Session, error) {
	fresh := models.NewSession(phone)
	body, err := s.api.Request(ctx, http.MethodPost, sessionPath(phone), fresh)
	if err != nil {
		if apiclient.IsUnavailable(err) {
			log.Warn().Str("phone", phone).Err(err).Msg("session create failed, using fallback session")
			return s.fallbackSession(phone), nil
		}
		return nil, err
	}

	session, err := apiclient.Decode[models.Session](body)
	if err != nil {
		return nil, err
	}
	if session.PhoneNumber == "" {
		session.PhoneNumber = phone
	}
	if session.CurrentStep == "" {
		session.CurrentStep = models.StepStart
	}
	return session, nil
}

// fallbackSession reuses a previously-saved local session when one exists,
// so degraded conversations keep continuity within the process.
func (s *SessionService) fallbackSession(phone string) *models.Session {
	if existing, err := s.fallback.GetSession(phone); err == nil {
		existing.Fallback = true
		return existing
	}
	session := models.NewSession(phone)
	session.Fallback = true
	return session
}
