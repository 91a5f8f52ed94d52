package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domorder "example.com/map-storefront/internal/domain/order"
)

const pendingColumns = `session_id, image_data, city_name, state_name, theme_name, status, failed_step, attempts, last_error, created_at, updated_at`

type PendingOrderRepository struct {
	pool *pgxpool.Pool
}

func NewPendingOrderRepository(pool *pgxpool.Pool) *PendingOrderRepository {
	return &PendingOrderRepository{pool: pool}
}

func (r *PendingOrderRepository) Put(ctx context.Context, p *domorder.PendingOrder) error {
	if p == nil || p.SessionID == "" {
		return domorder.ErrEmptySessionID
	}
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = p.CreatedAt
	}
	_, err := r.pool.Exec(ctx, `
        INSERT INTO pending_orders (`+pendingColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (session_id) DO UPDATE SET
            image_data = EXCLUDED.image_data,
            city_name = EXCLUDED.city_name,
            state_name = EXCLUDED.state_name,
            theme_name = EXCLUDED.theme_name,
            status = EXCLUDED.status,
            failed_step = EXCLUDED.failed_step,
            attempts = EXCLUDED.attempts,
            last_error = EXCLUDED.last_error,
            updated_at = EXCLUDED.updated_at
    `, p.SessionID, p.ImageDataURL, p.Design.CityName, p.Design.StateName, p.Design.ThemeName,
		string(p.Status), string(p.FailedStep), p.Attempts, p.LastError, p.CreatedAt, updated)
	return err
}

func (r *PendingOrderRepository) Get(ctx context.Context, sessionID string) (*domorder.PendingOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pendingColumns+` FROM pending_orders WHERE session_id = $1`, sessionID)
	p, err := scanPending(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domorder.ErrPendingOrderNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PendingOrderRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pending_orders WHERE session_id = $1`, sessionID)
	return err
}

func (r *PendingOrderRepository) List(ctx context.Context) ([]*domorder.PendingOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+pendingColumns+` FROM pending_orders ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domorder.PendingOrder
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PendingOrderRepository) DeleteStale(ctx context.Context, cutoff, failedCutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
        DELETE FROM pending_orders
        WHERE (status <> $1 AND created_at < $2)
           OR (status = $1 AND updated_at < $3)
    `, string(domorder.PendingNeedsRetry), cutoff, failedCutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanPending(row pgx.Row) (*domorder.PendingOrder, error) {
	var (
		p      domorder.PendingOrder
		status string
		step   string
	)
	if err := row.Scan(&p.SessionID, &p.ImageDataURL, &p.Design.CityName, &p.Design.StateName, &p.Design.ThemeName,
		&status, &step, &p.Attempts, &p.LastError, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = domorder.PendingStatus(status)
	p.FailedStep = domorder.Step(step)
	return &p, nil
}

type CompletedOrderRepository struct {
	pool *pgxpool.Pool
}

func NewCompletedOrderRepository(pool *pgxpool.Pool) *CompletedOrderRepository {
	return &CompletedOrderRepository{pool: pool}
}

func (r *CompletedOrderRepository) Put(ctx context.Context, c *domorder.CompletedOrder) error {
	if c == nil || c.SessionID == "" {
		return domorder.ErrEmptySessionID
	}
	_, err := r.pool.Exec(ctx, `
        INSERT INTO completed_orders (session_id, mockup_url, fulfillment_order_id, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (session_id) DO UPDATE SET
            mockup_url = EXCLUDED.mockup_url,
            fulfillment_order_id = EXCLUDED.fulfillment_order_id,
            created_at = EXCLUDED.created_at
    `, c.SessionID, c.MockupURL, c.FulfillmentOrderID, c.CreatedAt)
	return err
}

func (r *CompletedOrderRepository) Get(ctx context.Context, sessionID string) (*domorder.CompletedOrder, error) {
	var c domorder.CompletedOrder
	err := r.pool.QueryRow(ctx, `
        SELECT session_id, mockup_url, fulfillment_order_id, created_at
        FROM completed_orders WHERE session_id = $1
    `, sessionID).Scan(&c.SessionID, &c.MockupURL, &c.FulfillmentOrderID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domorder.ErrCompletedOrderNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CompletedOrderRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM completed_orders WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
