package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/pharmacare/whatsapp-bot/internal/dialogue"
)

// MessageProcessor consumes one inbound conversational event.
type MessageProcessor interface {
	HandleMessage(ctx context.Context, from string, ev dialogue.Event) error
}

// WebhookHandler terminates the WhatsApp Cloud API webhook: the GET
// verification handshake and the POST message delivery.
type WebhookHandler struct {
	verifyToken string
	processor   MessageProcessor
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(verifyToken string, processor MessageProcessor) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		processor:   processor,
	}
}

// Verify answers the Cloud API subscription handshake. Meta sends
// hub.mode=subscribe with a challenge; we echo the challenge back only when
// the verify token matches.
func (h *WebhookHandler) Verify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		log.Info().Msg("✅ Webhook verified")
		return c.SendString(challenge)
	}

	log.Warn().Str("mode", mode).Msg("webhook verification rejected")
	return c.SendStatus(fiber.StatusForbidden)
}

// Receive ingests a webhook delivery. Every message in the batch is handled
// and the delivery is always acknowledged with 200 so Meta does not retry a
// payload we already consumed.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	var payload WebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Error().Err(err).Msg("invalid webhook payload")
		return c.SendStatus(fiber.StatusOK)
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for _, message := range change.Value.Messages {
				log.Info().Str("phone", message.From).Str("type", message.Type).Msg("📱 Incoming WhatsApp message")
				if err := h.processor.HandleMessage(c.UserContext(), message.From, message.Event()); err != nil {
					log.Error().Str("phone", message.From).Err(err).Msg("message handling failed")
				}
			}
		}
	}

	return c.SendStatus(fiber.StatusOK)
}

// WebhookPayload is the Cloud API webhook envelope.
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				MessagingProduct string            `json:"messaging_product"`
				Messages         []IncomingMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// IncomingMessage is one inbound message inside a webhook delivery.
type IncomingMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image *struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
	} `json:"image,omitempty"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
}

// Event flattens the message into the engine's input shape.
func (m IncomingMessage) Event() dialogue.Event {
	var ev dialogue.Event
	if m.Text != nil {
		ev.Text = m.Text.Body
	}
	if m.Image != nil {
		ev.MediaID = m.Image.ID
	}
	if m.Location != nil {
		ev.Location = &dialogue.Location{
			Latitude:  m.Location.Latitude,
			Longitude: m.Location.Longitude,
		}
	}
	if m.Interactive != nil {
		if m.Interactive.ButtonReply != nil {
			ev.ReplyID = m.Interactive.ButtonReply.ID
			ev.ReplyTitle = m.Interactive.ButtonReply.Title
		}
		if m.Interactive.ListReply != nil {
			ev.ReplyID = m.Interactive.ListReply.ID
			ev.ReplyTitle = m.Interactive.ListReply.Title
		}
	}
	return ev
}
