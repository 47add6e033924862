package discord

import (
	"time"
)

// DiscordWebhook contains webhook information for the Discord API.
type DiscordWebhook struct {
	ID    string
	Token string
}

// Config holds Discord client settings.
type Config struct {
	Timeout    time.Duration
	RetryCount int
	RetryDelay time.Duration
}

// DefaultConfig returns the default Discord client settings.
func DefaultConfig() Config {
	return Config{
		Timeout:    10 * time.Second,
		RetryCount: 2,
		RetryDelay: time.Second,
	}
}

// Embed represents a Discord message embed.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField represents a single field inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// WebhookPayload is the request body sent to the webhook endpoint.
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed colors per message severity.
const (
	ColorInfo    = 0x3498db
	ColorSuccess = 0x2ecc71
	ColorWarning = 0xf1c40f
	ColorError   = 0xe74c3c
)

const webhookURL = "https://discord.com/api/webhooks/%s/%s"
