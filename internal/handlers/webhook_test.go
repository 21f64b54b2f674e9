package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacare/whatsapp-bot/internal/dialogue"
)

type recordedEvent struct {
	from string
	ev   dialogue.Event
}

type fakeProcessor struct {
	events []recordedEvent
	err    error
}

func (f *fakeProcessor) HandleMessage(ctx context.Context, from string, ev dialogue.Event) error {
	f.events = append(f.events, recordedEvent{from: from, ev: ev})
	return f.err
}

func newWebhookApp(processor *fakeProcessor) *fiber.App {
	app := fiber.New()
	h := NewWebhookHandler("verify-me", processor)
	app.Get("/webhook", h.Verify)
	app.Post("/webhook", h.Receive)
	return app
}

func TestVerifyEchoesChallenge(t *testing.T) {
	app := newWebhookApp(&fakeProcessor{})

	req := httptest.NewRequest("GET", "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(body))
}

func TestVerifyRejectsWrongToken(t *testing.T) {
	app := newWebhookApp(&fakeProcessor{})

	req := httptest.NewRequest("GET", "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

const textDelivery = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "entry-1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "messages": [{
          "from": "919876543210",
          "id": "wamid.1",
          "type": "text",
          "text": {"body": "hi"}
        }]
      }
    }]
  }]
}`

func TestReceiveDispatchesTextMessage(t *testing.T) {
	processor := &fakeProcessor{}
	app := newWebhookApp(processor)

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(textDelivery))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	require.Len(t, processor.events, 1)
	assert.Equal(t, "919876543210", processor.events[0].from)
	assert.Equal(t, "hi", processor.events[0].ev.Text)
}

func TestReceiveAcknowledgesEvenWhenProcessingFails(t *testing.T) {
	processor := &fakeProcessor{err: assert.AnError}
	app := newWebhookApp(processor)

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(textDelivery))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestReceiveAcknowledgesMalformedPayload(t *testing.T) {
	processor := &fakeProcessor{}
	app := newWebhookApp(processor)

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, processor.events)
}

func TestReceiveIgnoresNonMessageChanges(t *testing.T) {
	processor := &fakeProcessor{}
	app := newWebhookApp(processor)

	payload := `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"statuses","value":{}}]}]}`
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, processor.events)
}

func TestIncomingMessageEventMapping(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want dialogue.Event
	}{
		{
			"button reply",
			`{"from":"919876543210","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"view_cart","title":"🛒 View Cart"}}}`,
			dialogue.Event{ReplyID: "view_cart", ReplyTitle: "🛒 View Cart"},
		},
		{
			"list reply",
			`{"from":"919876543210","type":"interactive","interactive":{"type":"list_reply","list_reply":{"id":"cat_1","title":"Pain Relief"}}}`,
			dialogue.Event{ReplyID: "cat_1", ReplyTitle: "Pain Relief"},
		},
		{
			"image",
			`{"from":"919876543210","type":"image","image":{"id":"media-1","mime_type":"image/jpeg"}}`,
			dialogue.Event{MediaID: "media-1"},
		},
		{
			"location",
			`{"from":"919876543210","type":"location","location":{"latitude":12.97,"longitude":77.59}}`,
			dialogue.Event{Location: &dialogue.Location{Latitude: 12.97, Longitude: 77.59}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var msg IncomingMessage
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &msg))
			assert.Equal(t, tc.want, msg.Event())
		})
	}
}
