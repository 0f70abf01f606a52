package postgres

import (
	"context"
	"errors"

	"github.com/goodslice/pizza-fulfillment/internal/domain/kitchen"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/jackc/pgx/v5"
)

// KitchenRepo persists the kitchen Request aggregate. The primary key on
// order_id enforces at most one request per order; the duplicate therefore
// surfaces as ports.ErrDuplicate and creation stays idempotent.
type KitchenRepo struct{}

// NewKitchenRepo constructs a new KitchenRepo.
func NewKitchenRepo() ports.KitchenRepository {
	return &KitchenRepo{}
}

func (r *KitchenRepo) Add(ctx context.Context, req *kitchen.Request) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO kitchen_requests (order_id, stage, recipes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, req.OrderID, req.Stage, req.Recipes, req.CreatedAt, req.UpdatedAt)
	return mapDuplicate(err)
}

func (r *KitchenRepo) Retrieve(ctx context.Context, orderID string) (*kitchen.Request, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var req kitchen.Request
	err = tx.QueryRow(ctx, `
		SELECT order_id, stage, recipes, created_at, updated_at
		FROM kitchen_requests
		WHERE order_id = $1
	`, orderID).Scan(&req.OrderID, &req.Stage, &req.Recipes, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &req, nil
}

func (r *KitchenRepo) Update(ctx context.Context, req *kitchen.Request) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE kitchen_requests
		SET stage = $1, updated_at = $2
		WHERE order_id = $3
	`, req.Stage, req.UpdatedAt, req.OrderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}
