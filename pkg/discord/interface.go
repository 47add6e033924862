package discord

import "context"

// IDiscord sends operational messages to a Discord webhook.
type IDiscord interface {
	SendInfo(ctx context.Context, title, description string) error
	SendWarning(ctx context.Context, title, description string) error
	SendError(ctx context.Context, title, description string, err error) error
	GetWebhookURL() string
	Close() error
}
