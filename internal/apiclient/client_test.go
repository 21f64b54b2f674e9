package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:     baseURL,
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestGetSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/categories/", r.URL.Path)
		w.Write([]byte(`[{"id":"1","name":"Pain Relief"}]`))
	}))
	defer srv.Close()

	body, err := newTestClient(t, srv.URL).Get(context.Background(), "/api/categories/")
	require.NoError(t, err)
	assert.Contains(t, string(body), "Pain Relief")
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Get(context.Background(), "/flaky")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Get(context.Background(), "/missing")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, IsNotFound(err))
}

func TestExhaustedRetriesReturnLastError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Get(context.Background(), "/down")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.True(t, IsUnavailable(err))
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(t, srv.URL).Get(context.Background(), "/")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestRequestSendsJSONBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := New(Config{
		BaseURL: srv.URL,
		Headers: map[string]string{"Authorization": "Bearer token-123"},
	})
	require.NoError(t, err)

	_, err = c.Request(context.Background(), http.MethodPost, "/api/orders/quick-create/", map[string]string{"customer_phone": "919876543210"})
	require.NoError(t, err)
}

func TestFetchAbsoluteURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	// Base URL points elsewhere; the absolute media URL must win.
	resource, err := newTestClient(t, "http://unused.invalid").Fetch(context.Background(), srv.URL+"/media/1")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", resource.ContentType)
	assert.Equal(t, int64(10), resource.Size)
	assert.Equal(t, []byte("jpeg-bytes"), resource.Data)
}

func TestUploadMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "919876543210", r.FormValue("customer_phone"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "rx.jpg", header.Filename)

		w.Write([]byte(`{"path":"prescriptions/919876543210/rx.jpg"}`))
	}))
	defer srv.Close()

	body, err := newTestClient(t, srv.URL).Upload(context.Background(),
		"/api/prescriptions/upload/",
		map[string]string{"customer_phone": "919876543210"},
		"file", "rx.jpg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "prescriptions/")
}

func TestDecode(t *testing.T) {
	type medicine struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	m, err := Decode[medicine]([]byte(`{"id":"42","name":"Paracetamol 500mg"}`))
	require.NoError(t, err)
	assert.Equal(t, "42", m.ID)

	_, err = Decode[medicine]([]byte(`not json`))
	require.Error(t, err)
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestDecodeListShapes(t *testing.T) {
	type row struct {
		ID string `json:"id"`
	}

	cases := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"id":"1"},{"id":"2"}]`, 2},
		{"results wrapper", `{"results":[{"id":"1"}]}`, 1},
		{"data wrapper", `{"data":[{"id":"1"}]}`, 1},
		{"unknown shape", `{"something":"else"}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := DecodeList[row]([]byte(tc.body))
			require.NoError(t, err)
			assert.Len(t, rows, tc.want)
		})
	}
}
