package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hrms-realtime/internal/notification/repository"
	"hrms-realtime/pkg/paginator"
	postgresPkg "hrms-realtime/pkg/postgre"
)

func (r *implRepository) Create(ctx context.Context, opts repository.CreateOptions) (repository.Record, error) {
	rec := opts.Record
	if rec.ID == "" {
		rec.ID = postgresPkg.NewUUID()
	} else if err := postgresPkg.IsUUID(rec.ID); err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.Create.IsUUID: %v", err)
		return repository.Record{}, err
	}
	if err := postgresPkg.IsUUID(rec.AccountID); err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.Create.IsUUID: %v", err)
		return repository.Record{}, err
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.clock()
	}
	rec.Unread = true
	rec.ReadAt = nil

	const q = `
		INSERT INTO notifications
			(id, account_id, type, title, content, related_id, related_model, unread, created_at)
		VALUES
			(:id, :account_id, :type, :title, :content, :related_id, :related_model, :unread, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, q, rec); err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.Create.NamedExecContext: %v", err)
		return repository.Record{}, err
	}

	return rec, nil
}

func (r *implRepository) Get(ctx context.Context, accountID string, opts repository.GetOptions) ([]repository.Record, paginator.Paginator, error) {
	where, args, err := r.buildGetQuery(ctx, accountID, opts)
	if err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.Get.buildGetQuery: %v", err)
		return nil, paginator.Paginator{}, err
	}

	var total int64
	countQ := fmt.Sprintf("SELECT COUNT(*) FROM notifications WHERE %s", where)
	if err := r.db.GetContext(ctx, &total, countQ, args...); err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.Get.Count: %v", err)
		return nil, paginator.Paginator{}, err
	}

	pq := opts.PaginateQuery
	pq.Adjust()

	listQ := fmt.Sprintf(
		"SELECT * FROM notifications WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		where, pq.Limit, pq.Offset(),
	)
	recs := []repository.Record{}
	if err := r.db.SelectContext(ctx, &recs, listQ, args...); err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.Get.SelectContext: %v", err)
		return nil, paginator.Paginator{}, err
	}

	return recs, paginator.Paginator{
		Total:       total,
		Count:       int64(len(recs)),
		PerPage:     pq.Limit,
		CurrentPage: pq.Page,
	}, nil
}

func (r *implRepository) UnreadCount(ctx context.Context, accountID string) (int64, error) {
	if err := postgresPkg.IsUUID(accountID); err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.UnreadCount.IsUUID: %v", err)
		return 0, err
	}

	var count int64
	const q = "SELECT COUNT(*) FROM notifications WHERE account_id = $1 AND unread = TRUE"
	if err := r.db.GetContext(ctx, &count, q, accountID); err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.UnreadCount.GetContext: %v", err)
		return 0, err
	}

	return count, nil
}

func (r *implRepository) MarkRead(ctx context.Context, accountID, id string) (repository.Record, error) {
	if err := postgresPkg.IsUUID(id); err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.MarkRead.IsUUID: %v", err)
		return repository.Record{}, err
	}
	if err := postgresPkg.IsUUID(accountID); err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.MarkRead.IsUUID: %v", err)
		return repository.Record{}, err
	}

	const q = `
		UPDATE notifications
		SET unread = FALSE, read_at = $1
		WHERE id = $2 AND account_id = $3
		RETURNING *`
	var rec repository.Record
	if err := r.db.GetContext(ctx, &rec, q, r.clock(), id, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.Record{}, repository.ErrNotFound
		}
		r.l.Errorf(ctx, "internal.notification.repository.postgres.MarkRead.GetContext: %v", err)
		return repository.Record{}, err
	}

	return rec, nil
}

func (r *implRepository) MarkAllRead(ctx context.Context, accountID string) (int64, error) {
	if err := postgresPkg.IsUUID(accountID); err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.MarkAllRead.IsUUID: %v", err)
		return 0, err
	}

	const q = `
		UPDATE notifications
		SET unread = FALSE, read_at = $1
		WHERE account_id = $2 AND unread = TRUE`
	res, err := r.db.ExecContext(ctx, q, r.clock(), accountID)
	if err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.MarkAllRead.ExecContext: %v", err)
		return 0, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.MarkAllRead.RowsAffected: %v", err)
		return 0, err
	}

	return rows, nil
}
