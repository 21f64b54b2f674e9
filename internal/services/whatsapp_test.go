package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacare/whatsapp-bot/internal/apiclient"
)

func newWhatsAppService(t *testing.T, baseURL string) *WhatsAppService {
	t.Helper()
	graph, err := apiclient.New(apiclient.Config{
		BaseURL:     baseURL,
		MaxAttempts: 1,
		Backoff:     time.Millisecond,
		Headers:     map[string]string{"Authorization": "Bearer token-123"},
	})
	require.NoError(t, err)
	return NewWhatsAppService(graph, "1234567890")
}

func decodePayload(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	return payload
}

func TestSendTextPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1234567890/messages", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		got = decodePayload(t, r)
		w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	err := newWhatsAppService(t, srv.URL).SendText(context.Background(), "919876543210", "hello")
	require.NoError(t, err)

	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "919876543210", got["to"])
	assert.Equal(t, "text", got["type"])
	text := got["text"].(map[string]any)
	assert.Equal(t, "hello", text["body"])
}

func TestSendButtonsCapsAtThree(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodePayload(t, r)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	buttons := []Button{
		{ID: "a", Title: "A"}, {ID: "b", Title: "B"},
		{ID: "c", Title: "C"}, {ID: "d", Title: "D"},
	}
	err := newWhatsAppService(t, srv.URL).SendButtons(context.Background(), "919876543210", "Header", "Body", buttons)
	require.NoError(t, err)

	interactive := got["interactive"].(map[string]any)
	action := interactive["action"].(map[string]any)
	assert.Len(t, action["buttons"].([]any), 3)
}

func TestSendListTruncatesDescriptions(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodePayload(t, r)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	long := strings.Repeat("x", 100)
	sections := []ListSection{{Title: "S", Rows: []ListRow{{ID: "r1", Title: "Row", Description: long}}}}
	err := newWhatsAppService(t, srv.URL).SendList(context.Background(), "919876543210", "Header", "Body", sections)
	require.NoError(t, err)

	interactive := got["interactive"].(map[string]any)
	action := interactive["action"].(map[string]any)
	section := action["sections"].([]any)[0].(map[string]any)
	row := section["rows"].([]any)[0].(map[string]any)
	assert.Len(t, row["description"].(string), 72)
}

func TestDownloadMediaTwoHops(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/media-1":
			json.NewEncoder(w).Encode(map[string]any{
				"url":       srvURL + "/download/media-1",
				"mime_type": "image/jpeg",
				"file_size": 10,
			})
		case "/download/media-1":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("jpeg-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	asset, err := newWhatsAppService(t, srv.URL).DownloadMedia(context.Background(), "media-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), asset.Data)
	assert.Equal(t, "image/jpeg", asset.ContentType)
	assert.Equal(t, int64(10), asset.Size)
}

func TestTruncateDescription(t *testing.T) {
	assert.Equal(t, "short", TruncateDescription("short"))
	assert.Len(t, TruncateDescription(strings.Repeat("y", 200)), 72)
}
