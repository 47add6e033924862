package notification

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// payload mirrors the loosely-typed wire shape. Publishers are not required
// to send any of these fields; everything has a defaulting rule.
type payload struct {
	ID           any    `json:"id"`
	AltID        any    `json:"_id"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Message      string `json:"message"`
	RelatedID    any    `json:"relatedId"`
	RelatedModel string `json:"relatedModel"`
	CreatedAt    string `json:"createdAt"`
}

// Normalize converts a raw inbound payload into a Notification.
//
// Identity is resolved in order: payload id, payload _id, then a synthesized
// local identity. Missing title and content fall back to defaults, createdAt
// falls back to receipt time, and Unread is always true for a live event.
// The payload is never rejected: an unparseable body yields a fully-defaulted
// record so the feed keeps flowing.
func Normalize(raw json.RawMessage) Notification {
	var p payload
	_ = json.Unmarshal(raw, &p)

	id := stringify(p.ID)
	if id == "" {
		id = stringify(p.AltID)
	}
	if id == "" {
		id = synthesizeID()
	}

	title := p.Title
	if title == "" {
		title = DefaultTitle
	}

	content := p.Content
	if content == "" {
		content = p.Message
	}

	createdAt := time.Now()
	if p.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, p.CreatedAt); err == nil {
			createdAt = t
		}
	}

	return Notification{
		ID:           id,
		Type:         p.Type,
		Title:        title,
		Content:      content,
		RelatedID:    stringify(p.RelatedID),
		RelatedModel: p.RelatedModel,
		CreatedAt:    createdAt,
		Unread:       true,
		Raw:          raw,
	}
}

// synthesizeID builds a local identity for payloads without one. The clock
// reading keeps identities sortable by receipt time; the uuid suffix keeps
// two receipts in the same tick distinct.
func synthesizeID() string {
	return fmt.Sprintf("local-%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

// stringify renders the loosely-typed id fields, which arrive as JSON
// strings or numbers depending on the publisher.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
