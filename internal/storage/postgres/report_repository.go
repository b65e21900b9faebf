package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketbay/ticketing/internal/domain"
)

type ReportRepository struct {
	q querier
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{q: querier{pool: pool}}
}

// CountOrdersForEvent counts every order placed against the named event's
// ticket types, and the cancelled subset.
func (r *ReportRepository) CountOrdersForEvent(ctx context.Context, eventName string) (total, cancelled int, err error) {
	const query = `
SELECT
	COUNT(o.id),
	COUNT(o.id) FILTER (WHERE o.status = 'cancelled')
FROM orders o
JOIN ticket_types tt ON tt.id = o.ticket_type_id
JOIN events e ON e.id = tt.event_id
WHERE e.name = $1`
	if err := r.q.queryRow(ctx, query, eventName).Scan(&total, &cancelled); err != nil {
		return 0, 0, fmt.Errorf("count orders for event: %w", err)
	}
	return total, cancelled, nil
}

// DailyCancelledQuantities sums cancelled quantities per UTC calendar day in
// ascending date order.
func (r *ReportRepository) DailyCancelledQuantities(ctx context.Context) ([]domain.DailyCancellations, error) {
	const query = `
SELECT (created_at AT TIME ZONE 'UTC')::date AS day, SUM(quantity)::bigint
FROM orders
WHERE status = 'cancelled'
GROUP BY day
ORDER BY day ASC`
	rows, err := r.q.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("daily cancellations: %w", err)
	}
	defer rows.Close()

	var days []domain.DailyCancellations
	for rows.Next() {
		var d domain.DailyCancellations
		var qty int64
		if err := rows.Scan(&d.Date, &qty); err != nil {
			return nil, fmt.Errorf("scan daily cancellations: %w", err)
		}
		d.Quantity = int(qty)
		days = append(days, d)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate daily cancellations: %w", rows.Err())
	}
	return days, nil
}
