package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hrms-realtime/internal/notification/repository"
	"hrms-realtime/pkg/paginator"
	postgresPkg "hrms-realtime/pkg/postgre"
)

// notificationItem is the API representation of a stored notification
type notificationItem struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	RelatedID    string     `json:"related_id,omitempty"`
	RelatedModel string     `json:"related_model,omitempty"`
	Unread       bool       `json:"unread"`
	CreatedAt    time.Time  `json:"created_at"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
}

func newNotificationItem(rec repository.Record) notificationItem {
	return notificationItem{
		ID:           rec.ID,
		Type:         rec.Type,
		Title:        rec.Title,
		Content:      rec.Content,
		RelatedID:    rec.RelatedID,
		RelatedModel: rec.RelatedModel,
		Unread:       rec.Unread,
		CreatedAt:    rec.CreatedAt,
		ReadAt:       rec.ReadAt,
	}
}

type listNotificationsQuery struct {
	paginator.PaginateQuery
	Unread *bool  `form:"unread"`
	Type   string `form:"type"`
}

// ListNotifications returns the account's notification history, newest
// first.
func (h *Handler) ListNotifications(c *gin.Context) {
	accountID, err := h.authenticate(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var q listNotificationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}

	opts := repository.GetOptions{
		PaginateQuery: q.PaginateQuery,
		Filter: repository.Filter{
			Unread: q.Unread,
		},
	}
	if q.Type != "" {
		opts.Filter.Types = []string{q.Type}
	}

	recs, pag, err := h.repo.Get(c.Request.Context(), accountID, opts)
	if err != nil {
		h.logger.Errorf(context.Background(), "internal.gateway.Handler.ListNotifications.Get: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}

	items := make([]notificationItem, len(recs))
	for i, rec := range recs {
		items[i] = newNotificationItem(rec)
	}

	c.JSON(http.StatusOK, gin.H{
		"data": items,
		"meta": pag.ToResponse(),
	})
}

// UnreadCount returns the number of unread notifications for the account.
func (h *Handler) UnreadCount(c *gin.Context) {
	accountID, err := h.authenticate(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	count, err := h.repo.UnreadCount(c.Request.Context(), accountID)
	if err != nil {
		h.logger.Errorf(context.Background(), "internal.gateway.Handler.UnreadCount.UnreadCount: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"unread_count": count,
	})
}

// MarkRead marks one notification as read.
func (h *Handler) MarkRead(c *gin.Context) {
	accountID, err := h.authenticate(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if !postgresPkg.IsValidUUID(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}

	rec, err := h.repo.MarkRead(c.Request.Context(), accountID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		h.logger.Errorf(context.Background(), "internal.gateway.Handler.MarkRead.MarkRead: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notification read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": newNotificationItem(rec),
	})
}

// MarkAllRead marks every unread notification for the account as read.
func (h *Handler) MarkAllRead(c *gin.Context) {
	accountID, err := h.authenticate(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.repo.MarkAllRead(c.Request.Context(), accountID)
	if err != nil {
		h.logger.Errorf(context.Background(), "internal.gateway.Handler.MarkAllRead.MarkAllRead: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notifications read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"updated": updated,
	})
}
