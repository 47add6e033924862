package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"hrms-realtime/pkg/log"
)

// Discord is the webhook-backed implementation of IDiscord.
type Discord struct {
	l       log.Logger
	webhook *DiscordWebhook
	config  Config
	client  *http.Client
}

// New creates a new Discord service instance with the provided logger and webhook.
// Logger can be nil, but logging will be skipped if not provided.
func New(l log.Logger, webhook *DiscordWebhook) (*Discord, error) {
	if webhook == nil {
		return nil, errors.New("webhook is required")
	}
	if webhook.ID == "" || webhook.Token == "" {
		return nil, errors.New("webhook ID and token are required")
	}

	config := DefaultConfig()
	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	return &Discord{
		l:       l,
		webhook: webhook,
		config:  config,
		client:  client,
	}, nil
}

// GetWebhookURL returns the Discord webhook URL.
func (d *Discord) GetWebhookURL() string {
	return fmt.Sprintf(webhookURL, d.webhook.ID, d.webhook.Token)
}

// Close closes idle connections in the HTTP client.
func (d *Discord) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

// SendInfo sends an informational embed.
func (d *Discord) SendInfo(ctx context.Context, title, description string) error {
	return d.sendEmbed(ctx, title, description, ColorInfo)
}

// SendWarning sends a warning embed.
func (d *Discord) SendWarning(ctx context.Context, title, description string) error {
	return d.sendEmbed(ctx, title, description, ColorWarning)
}

// SendError sends an error embed, appending err as a field when present.
func (d *Discord) SendError(ctx context.Context, title, description string, err error) error {
	embed := Embed{
		Title:       title,
		Description: description,
		Color:       ColorError,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if err != nil {
		embed.Fields = append(embed.Fields, EmbedField{
			Name:  "Error",
			Value: err.Error(),
		})
	}
	return d.sendWithRetry(ctx, &WebhookPayload{Embeds: []Embed{embed}})
}

func (d *Discord) sendEmbed(ctx context.Context, title, description string, color int) error {
	return d.sendWithRetry(ctx, &WebhookPayload{
		Embeds: []Embed{{
			Title:       title,
			Description: description,
			Color:       color,
			Timestamp:   time.Now().Format(time.RFC3339),
		}},
	})
}

// sendWithRetry sends a request with retry mechanism.
func (d *Discord) sendWithRetry(ctx context.Context, payload *WebhookPayload) error {
	var lastErr error

	for attempt := 0; attempt <= d.config.RetryCount; attempt++ {
		if attempt > 0 {
			if d.l != nil {
				d.l.Infof(ctx, "pkg.discord.sendWithRetry: retrying attempt %d/%d", attempt, d.config.RetryCount)
			}
			time.Sleep(d.config.RetryDelay)
		}

		err := d.sendRequest(ctx, payload)
		if err == nil {
			return nil
		}

		lastErr = err
		if d.l != nil {
			d.l.Warnf(ctx, "pkg.discord.sendWithRetry: attempt %d failed: %v", attempt+1, err)
		}
	}

	return fmt.Errorf("failed after %d attempts, last error: %w", d.config.RetryCount+1, lastErr)
}

// sendRequest sends a request to the Discord webhook.
func (d *Discord) sendRequest(ctx context.Context, payload *WebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.GetWebhookURL(), bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
