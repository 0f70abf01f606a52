package postgres

import (
	"context"
	"errors"

	"github.com/goodslice/pizza-fulfillment/internal/domain/orders"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

// OrdersRepo implements persistence for the Order aggregate using pgx. Items
// and history travel as JSONB next to the lifecycle columns.
type OrdersRepo struct{}

// NewOrdersRepo constructs a new OrdersRepo.
func NewOrdersRepo() ports.OrderRepository {
	return &OrdersRepo{}
}

// Add inserts the order. A duplicate identifier maps to ports.ErrDuplicate.
func (r *OrdersRepo) Add(ctx context.Context, order *orders.Order) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, type, status, items, history, assigned_driver, completed_on, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		order.ID,
		order.CustomerID,
		order.Type,
		order.Status,
		order.Items,
		order.History,
		order.AssignedDriver,
		order.CompletedOn,
		order.CreatedAt,
		order.UpdatedAt,
	)
	return mapDuplicate(err)
}

// Retrieve loads an order by its identifier.
func (r *OrdersRepo) Retrieve(ctx context.Context, orderID string) (*orders.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var order orders.Order
	err = tx.QueryRow(ctx, `
		SELECT id, customer_id, type, status, items, history, assigned_driver, completed_on, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(
		&order.ID, &order.CustomerID, &order.Type, &order.Status,
		&order.Items, &order.History, &order.AssignedDriver, &order.CompletedOn,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// Update persists the whole aggregate state.
func (r *OrdersRepo) Update(ctx context.Context, order *orders.Order) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $1, items = $2, history = $3, assigned_driver = $4, completed_on = $5, updated_at = $6
		WHERE id = $7
	`,
		order.Status,
		order.Items,
		order.History,
		order.AssignedDriver,
		order.CompletedOn,
		order.UpdatedAt,
		order.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// mapDuplicate converts a unique-violation into the port-level sentinel.
func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ports.ErrDuplicate
	}
	return err
}
