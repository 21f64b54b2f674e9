package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/pharmacare/whatsapp-bot/internal/apiclient"
)

// Button is one reply button of an interactive message. WhatsApp allows at
// most three per message, titles capped at 20 characters.
type Button struct {
	ID    string
	Title string
}

// ListRow is one selectable row of a list message. Descriptions are capped
// at 72 characters by the provider.
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// ListSection groups list rows under a title.
type ListSection struct {
	Title string
	Rows  []ListRow
}

// MediaAsset is a downloaded provider-hosted media file.
type MediaAsset struct {
	Data        []byte
	ContentType string
	Size        int64
}

const maxListDescription = 72

// WhatsAppService sends messages through the WhatsApp Cloud API and
// downloads inbound media.
type WhatsAppService struct {
	graph         *apiclient.Client
	phoneNumberID string
}

// NewWhatsAppService creates a WhatsApp sender. The graph client must carry
// the bearer token in its headers.
func NewWhatsAppService(graph *apiclient.Client, phoneNumberID string) *WhatsAppService {
	return &WhatsAppService{
		graph:         graph,
		phoneNumberID: phoneNumberID,
	}
}

func (w *WhatsAppService) messagesPath() string {
	return fmt.Sprintf("/%s/messages", w.phoneNumberID)
}

func (w *WhatsAppService) send(ctx context.Context, to string, message map[string]any) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
	}
	for k, v := range message {
		payload[k] = v
	}
	if _, err := w.graph.Request(ctx, http.MethodPost, w.messagesPath(), payload); err != nil {
		log.Error().Str("to", to).Err(err).Msg("failed to send whatsapp message")
		return err
	}
	return nil
}

// SendText sends a plain text message.
func (w *WhatsAppService) SendText(ctx context.Context, to, text string) error {
	return w.send(ctx, to, map[string]any{
		"type": "text",
		"text": map[string]any{"body": text},
	})
}

// SendButtons sends an interactive message with up to three reply buttons.
func (w *WhatsAppService) SendButtons(ctx context.Context, to, header, body string, buttons []Button) error {
	if len(buttons) > 3 {
		buttons = buttons[:3]
	}
	replies := make([]map[string]any, 0, len(buttons))
	for _, b := range buttons {
		replies = append(replies, map[string]any{
			"type": "reply",
			"reply": map[string]any{
				"id":    b.ID,
				"title": b.Title,
			},
		})
	}
	interactive := map[string]any{
		"type":   "button",
		"body":   map[string]any{"text": body},
		"action": map[string]any{"buttons": replies},
	}
	if header != "" {
		interactive["header"] = map[string]any{"type": "text", "text": header}
	}
	return w.send(ctx, to, map[string]any{
		"type":        "interactive",
		"interactive": interactive,
	})
}

// SendList sends an interactive list message.
func (w *WhatsAppService) SendList(ctx context.Context, to, header, body string, sections []ListSection) error {
	rendered := make([]map[string]any, 0, len(sections))
	for _, s := range sections {
		rows := make([]map[string]any, 0, len(s.Rows))
		for _, r := range s.Rows {
			rows = append(rows, map[string]any{
				"id":          r.ID,
				"title":       r.Title,
				"description": TruncateDescription(r.Description),
			})
		}
		rendered = append(rendered, map[string]any{
			"title": s.Title,
			"rows":  rows,
		})
	}
	interactive := map[string]any{
		"type": "list",
		"body": map[string]any{"text": body},
		"action": map[string]any{
			"button":   "Select Option",
			"sections": rendered,
		},
	}
	if header != "" {
		interactive["header"] = map[string]any{"type": "text", "text": header}
	}
	return w.send(ctx, to, map[string]any{
		"type":        "interactive",
		"interactive": interactive,
	})
}

// DownloadMedia resolves a media id to its hosted URL, then fetches the
// bytes together with the declared content type and size.
func (w *WhatsAppService) DownloadMedia(ctx context.Context, mediaID string) (*MediaAsset, error) {
	body, err := w.graph.Get(ctx, "/"+mediaID)
	if err != nil {
		return nil, err
	}
	meta, err := apiclient.Decode[struct {
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
		FileSize int64  `json:"file_size"`
	}](body)
	if err != nil {
		return nil, err
	}

	resource, err := w.graph.Fetch(ctx, meta.URL)
	if err != nil {
		return nil, err
	}
	asset := &MediaAsset{
		Data:        resource.Data,
		ContentType: resource.ContentType,
		Size:        resource.Size,
	}
	if asset.ContentType == "" {
		asset.ContentType = meta.MimeType
	}
	if meta.FileSize > 0 {
		asset.Size = meta.FileSize
	}
	return asset, nil
}

// TruncateDescription caps a list row description at the provider limit.
func TruncateDescription(s string) string {
	if len(s) <= maxListDescription {
		return s
	}
	return s[:maxListDescription]
}
