package notification

import (
	"encoding/json"
	"time"
)

// DefaultTitle is used when an inbound payload carries no title.
const DefaultTitle = "You have a new notification"

// Notification is the canonical record derived from an inbound payload.
type Notification struct {
	ID           string          `json:"id"`
	Type         string          `json:"type,omitempty"`
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	RelatedID    string          `json:"related_id,omitempty"`
	RelatedModel string          `json:"related_model,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	Unread       bool            `json:"unread"`
	Raw          json.RawMessage `json:"-"` // original payload, unknown fields included
}

// Known notification type tags. Unknown tags are passed through untouched;
// they only lose their dedicated presentation style.
const (
	TypeLeaveApproved = "LEAVE_APPROVED"
	TypeLeaveRejected = "LEAVE_REJECTED"
	TypeAnnouncement  = "ANNOUNCEMENT"
	TypePayroll       = "PAYROLL"
	TypeAccount       = "ACCOUNT"
	TypeSystem        = "SYSTEM"
)
