package dialogue

import "strings"

// Location is a shared GPS coordinate from a location message.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Event is one inbound message, already flattened out of the webhook
// envelope: free text, a button reply, a list reply, an image attachment or
// a location.
type Event struct {
	Text       string
	ReplyID    string
	ReplyTitle string
	MediaID    string
	Location   *Location
}

// IsImage reports whether the event carries an image attachment.
func (e Event) IsImage() bool {
	return e.MediaID != ""
}

// Keyword returns the lower-cased, trimmed text used for command matching:
// the text body when present, otherwise the reply title.
func (e Event) Keyword() string {
	text := e.Text
	if text == "" {
		text = e.ReplyTitle
	}
	return strings.ToLower(strings.TrimSpace(text))
}
