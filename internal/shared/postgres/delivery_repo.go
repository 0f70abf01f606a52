package postgres

import (
	"context"
	"errors"

	"github.com/goodslice/pizza-fulfillment/internal/domain/delivery"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/jackc/pgx/v5"
)

// DeliveryRepo persists the delivery service's local aggregate.
type DeliveryRepo struct{}

// NewDeliveryRepo constructs a new DeliveryRepo.
func NewDeliveryRepo() ports.DeliveryRepository {
	return &DeliveryRepo{}
}

func (r *DeliveryRepo) Add(ctx context.Context, d *delivery.Delivery) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO deliveries (order_id, driver, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, d.OrderID, d.Driver, d.State, d.CreatedAt, d.UpdatedAt)
	return mapDuplicate(err)
}

func (r *DeliveryRepo) Retrieve(ctx context.Context, orderID string) (*delivery.Delivery, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var d delivery.Delivery
	err = tx.QueryRow(ctx, `
		SELECT order_id, driver, state, created_at, updated_at
		FROM deliveries
		WHERE order_id = $1
	`, orderID).Scan(&d.OrderID, &d.Driver, &d.State, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &d, nil
}

func (r *DeliveryRepo) Update(ctx context.Context, d *delivery.Delivery) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE deliveries
		SET driver = $1, state = $2, updated_at = $3
		WHERE order_id = $4
	`, d.Driver, d.State, d.UpdatedAt, d.OrderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// ListAwaiting returns deliveries with no driver yet, oldest first.
func (r *DeliveryRepo) ListAwaiting(ctx context.Context) ([]delivery.Delivery, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT order_id, driver, state, created_at, updated_at
		FROM deliveries
		WHERE state = $1
		ORDER BY created_at ASC
	`, delivery.StateAwaitingDriver)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []delivery.Delivery
	for rows.Next() {
		var d delivery.Delivery
		if err := rows.Scan(&d.OrderID, &d.Driver, &d.State, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	return out, rows.Err()
}
