package notification

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNormalizeFullPayload(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "abc-123",
		"type": "LEAVE_APPROVED",
		"title": "Leave approved",
		"content": "Your leave request was approved",
		"relatedId": "leave-77",
		"relatedModel": "LeaveRequest",
		"createdAt": "2026-03-01T09:30:00Z"
	}`)

	n := Normalize(raw)

	if n.ID != "abc-123" {
		t.Errorf("ID: got %q", n.ID)
	}
	if n.Type != "LEAVE_APPROVED" {
		t.Errorf("Type: got %q", n.Type)
	}
	if n.Title != "Leave approved" {
		t.Errorf("Title: got %q", n.Title)
	}
	if n.Content != "Your leave request was approved" {
		t.Errorf("Content: got %q", n.Content)
	}
	if n.RelatedID != "leave-77" || n.RelatedModel != "LeaveRequest" {
		t.Errorf("related: got %q/%q", n.RelatedID, n.RelatedModel)
	}
	want := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	if !n.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt: got %v", n.CreatedAt)
	}
	if !n.Unread {
		t.Error("Unread should be true")
	}
}

func TestNormalizeMessageFieldAndSynthesizedID(t *testing.T) {
	raw := json.RawMessage(`{"title":"Leave approved","message":"Your leave was approved","type":"LEAVE_APPROVED"}`)

	n := Normalize(raw)

	if n.ID == "" {
		t.Fatal("expected synthesized id")
	}
	if !strings.HasPrefix(n.ID, "local-") {
		t.Errorf("synthesized id should carry the local prefix, got %q", n.ID)
	}
	if n.Content != "Your leave was approved" {
		t.Errorf("Content should fall back to message field, got %q", n.Content)
	}
	if !n.Unread {
		t.Error("Unread should be true")
	}
}

func TestNormalizeAltIDAndNumericID(t *testing.T) {
	n := Normalize(json.RawMessage(`{"_id":"mongo-1"}`))
	if n.ID != "mongo-1" {
		t.Errorf("_id fallback: got %q", n.ID)
	}

	// id takes precedence over _id
	n = Normalize(json.RawMessage(`{"id":"a","_id":"b"}`))
	if n.ID != "a" {
		t.Errorf("id precedence: got %q", n.ID)
	}

	n = Normalize(json.RawMessage(`{"id":42}`))
	if n.ID != "42" {
		t.Errorf("numeric id: got %q", n.ID)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	before := time.Now()
	n := Normalize(json.RawMessage(`{}`))
	after := time.Now()

	if n.Title != DefaultTitle {
		t.Errorf("Title default: got %q", n.Title)
	}
	if n.Content != "" {
		t.Errorf("Content default: got %q", n.Content)
	}
	if n.CreatedAt.Before(before) || n.CreatedAt.After(after) {
		t.Errorf("CreatedAt should default to receipt time, got %v", n.CreatedAt)
	}

	// Garbage input still yields a presentable record.
	n = Normalize(json.RawMessage(`not json at all`))
	if n.ID == "" || n.Title != DefaultTitle || !n.Unread {
		t.Errorf("garbage input: got %+v", n)
	}
}

func TestSynthesizedIdentitiesDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n := Normalize(json.RawMessage(`{"title":"x"}`))
		if seen[n.ID] {
			t.Fatalf("duplicate synthesized id %q", n.ID)
		}
		seen[n.ID] = true
	}
}

func TestNormalizeKeepsRawPayload(t *testing.T) {
	raw := json.RawMessage(`{"id":"abc","custom_field":"kept"}`)
	n := Normalize(raw)

	var echo map[string]any
	if err := json.Unmarshal(n.Raw, &echo); err != nil {
		t.Fatalf("raw not preserved: %v", err)
	}
	if echo["custom_field"] != "kept" {
		t.Error("unknown fields must pass through in Raw")
	}
}
