package repository

import (
	"context"
	"time"

	"hrms-realtime/pkg/paginator"
)

//go:generate mockery --name Repository
type Repository interface {
	Create(ctx context.Context, opts CreateOptions) (Record, error)
	Get(ctx context.Context, accountID string, opts GetOptions) ([]Record, paginator.Paginator, error)
	UnreadCount(ctx context.Context, accountID string) (int64, error)
	MarkRead(ctx context.Context, accountID, id string) (Record, error)
	MarkAllRead(ctx context.Context, accountID string) (int64, error)
}

// Record is a stored notification row.
type Record struct {
	ID           string     `db:"id"`
	AccountID    string     `db:"account_id"`
	Type         string     `db:"type"`
	Title        string     `db:"title"`
	Content      string     `db:"content"`
	RelatedID    string     `db:"related_id"`
	RelatedModel string     `db:"related_model"`
	Unread       bool       `db:"unread"`
	CreatedAt    time.Time  `db:"created_at"`
	ReadAt       *time.Time `db:"read_at"`
}
