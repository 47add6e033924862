package repository

import (
	"hrms-realtime/pkg/paginator"
)

// Filter contains filtering options for notification queries.
type Filter struct {
	Types  []string
	Unread *bool
}

// CreateOptions contains options for persisting a notification.
type CreateOptions struct {
	Record Record
}

// GetOptions contains options for paginated notification listing.
type GetOptions struct {
	Filter        Filter
	PaginateQuery paginator.PaginateQuery
}
