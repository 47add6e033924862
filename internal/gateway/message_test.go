package gateway

import (
	"encoding/json"
	"testing"
)

func TestMessageTypeConstants(t *testing.T) {
	if MessageTypeConnected != "connected" {
		t.Errorf("expected 'connected', got '%s'", MessageTypeConnected)
	}
	if MessageTypeNotification != "notification" {
		t.Errorf("expected 'notification', got '%s'", MessageTypeNotification)
	}
}

func TestMessage_JSONRoundtrip(t *testing.T) {
	original, err := NewMessage(MessageTypeNotification, map[string]string{
		"id":    "n1",
		"title": "Leave request approved",
	})
	if err != nil {
		t.Fatalf("failed to create message: %v", err)
	}

	data, err := original.ToJSON()
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	decoded, err := FromJSON(data)
	if err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if decoded.Type != original.Type {
		t.Errorf("Type mismatch: got %s, want %s", decoded.Type, original.Type)
	}

	var payload map[string]string
	if err := json.Unmarshal(decoded.Payload, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload["id"] != "n1" {
		t.Errorf("payload id mismatch: got %s", payload["id"])
	}
	if decoded.Timestamp.IsZero() {
		t.Error("timestamp should survive the roundtrip")
	}
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		message Message
		wantErr bool
	}{
		{
			name: "valid message",
			message: Message{
				Type:    MessageTypeNotification,
				Payload: json.RawMessage(`{}`),
			},
			wantErr: false,
		},
		{
			name: "missing type",
			message: Message{
				Payload: json.RawMessage(`{}`),
			},
			wantErr: true,
		},
		{
			name: "missing payload",
			message: Message{
				Type: MessageTypeNotification,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.message.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
