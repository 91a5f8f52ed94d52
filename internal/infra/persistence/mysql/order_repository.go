package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domorder "example.com/map-storefront/internal/domain/order"
)

// pendingColumns is the column order scanPending expects.
const pendingColumns = `session_id, image_data, city_name, state_name, theme_name, status, failed_step, attempts, last_error, created_at, updated_at`

type PendingOrderRepository struct {
	db *sql.DB
}

func NewPendingOrderRepository(db *sql.DB) *PendingOrderRepository {
	return &PendingOrderRepository{db: db}
}

func (r *PendingOrderRepository) Put(ctx context.Context, p *domorder.PendingOrder) error {
	if p == nil || p.SessionID == "" {
		return domorder.ErrEmptySessionID
	}
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = p.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO pending_orders (`+pendingColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            image_data = VALUES(image_data),
            city_name = VALUES(city_name),
            state_name = VALUES(state_name),
            theme_name = VALUES(theme_name),
            status = VALUES(status),
            failed_step = VALUES(failed_step),
            attempts = VALUES(attempts),
            last_error = VALUES(last_error),
            updated_at = VALUES(updated_at)
    `, p.SessionID, p.ImageDataURL, p.Design.CityName, p.Design.StateName, p.Design.ThemeName,
		p.Status, p.FailedStep, p.Attempts, p.LastError, p.CreatedAt.UTC(), updated.UTC())
	return err
}

func (r *PendingOrderRepository) Get(ctx context.Context, sessionID string) (*domorder.PendingOrder, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+pendingColumns+`
        FROM pending_orders WHERE session_id = ?
    `, sessionID)

	p, err := scanPending(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domorder.ErrPendingOrderNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PendingOrderRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_orders WHERE session_id = ?`, sessionID)
	return err
}

func (r *PendingOrderRepository) List(ctx context.Context) ([]*domorder.PendingOrder, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+pendingColumns+`
        FROM pending_orders
        ORDER BY created_at ASC
    `)
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
	res, err := r.db.ExecContext(ctx, `
        DELETE FROM pending_orders
        WHERE (status <> ? AND created_at < ?)
           OR (status = ? AND updated_at < ?)
    `, domorder.PendingNeedsRetry, cutoff.UTC(), domorder.PendingNeedsRetry, failedCutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPending(s scanner) (*domorder.PendingOrder, error) {
	var p domorder.PendingOrder
	if err := s.Scan(&p.SessionID, &p.ImageDataURL, &p.Design.CityName, &p.Design.StateName, &p.Design.ThemeName,
		&p.Status, &p.FailedStep, &p.Attempts, &p.LastError, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

type CompletedOrderRepository struct {
	db *sql.DB
}

func NewCompletedOrderRepository(db *sql.DB) *CompletedOrderRepository {
	return &CompletedOrderRepository{db: db}
}

func (r *CompletedOrderRepository) Put(ctx context.Context, c *domorder.CompletedOrder) error {
	if c == nil || c.SessionID == "" {
		return domorder.ErrEmptySessionID
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO completed_orders (session_id, mockup_url, fulfillment_order_id, created_at)
        VALUES (?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            mockup_url = VALUES(mockup_url),
            fulfillment_order_id = VALUES(fulfillment_order_id),
            created_at = VALUES(created_at)
    `, c.SessionID, c.MockupURL, c.FulfillmentOrderID, c.CreatedAt.UTC())
	return err
}

func (r *CompletedOrderRepository) Get(ctx context.Context, sessionID string) (*domorder.CompletedOrder, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT session_id, mockup_url, fulfillment_order_id, created_at
        FROM completed_orders WHERE session_id = ?
    `, sessionID)

	var c domorder.CompletedOrder
	if err := row.Scan(&c.SessionID, &c.MockupURL, &c.FulfillmentOrderID, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domorder.ErrCompletedOrderNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CompletedOrderRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM completed_orders WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
