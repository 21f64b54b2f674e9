package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacare/whatsapp-bot/internal/models"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	session := models.NewSession("919876543210")
	session.CurrentStep = models.StepMainMenu
	require.NoError(t, store.SaveSession(session))

	loaded, err := store.GetSession("919876543210")
	require.NoError(t, err)
	assert.Equal(t, models.StepMainMenu, loaded.CurrentStep)
}

func TestMemoryStoreMissingSession(t *testing.T) {
	_, err := NewMemoryStore().GetSession("unknown")
	require.Error(t, err)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()

	session := models.NewSession("919876543210")
	require.NoError(t, store.SaveSession(session))

	// Mutating the caller's session must not leak into the store.
	session.CurrentStep = models.StepProcessingPayment

	loaded, err := store.GetSession("919876543210")
	require.NoError(t, err)
	assert.Equal(t, models.StepStart, loaded.CurrentStep)

	loaded.CurrentStep = models.StepBrowseMedicines
	again, err := store.GetSession("919876543210")
	require.NoError(t, err)
	assert.Equal(t, models.StepStart, again.CurrentStep)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.SaveSession(models.NewSession("919876543210")))
	require.NoError(t, store.DeleteSession("919876543210"))

	_, err := store.GetSession("919876543210")
	require.Error(t, err)
}
