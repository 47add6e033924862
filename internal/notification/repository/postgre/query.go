package postgres

import (
	"context"
	"fmt"
	"strings"

	"hrms-realtime/internal/notification/repository"
	postgresPkg "hrms-realtime/pkg/postgre"
)

// buildGetQuery assembles the WHERE clause shared by Get and its count
// query. Placeholders start at $2; $1 is always the account id.
func (r *implRepository) buildGetQuery(ctx context.Context, accountID string, opts repository.GetOptions) (string, []any, error) {
	if err := postgresPkg.IsUUID(accountID); err != nil {
		r.l.Errorf(ctx, "internal.notification.repository.postgres.buildGetQuery.IsUUID: %v", err)
		return "", nil, err
	}

	clauses := []string{"account_id = $1"}
	args := []any{accountID}

	if len(opts.Filter.Types) > 0 {
		ph := make([]string, len(opts.Filter.Types))
		for i, typ := range opts.Filter.Types {
			args = append(args, typ)
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("type IN (%s)", strings.Join(ph, ", ")))
	}

	if opts.Filter.Unread != nil {
		args = append(args, *opts.Filter.Unread)
		clauses = append(clauses, fmt.Sprintf("unread = $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args, nil
}
