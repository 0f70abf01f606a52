package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/goodslice/pizza-fulfillment/internal/domain/loyalty"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/jackc/pgx/v5"
)

// LoyaltyRepo persists the points ledger plus the applied-event log keyed by
// (customer, source event). Accrual handlers check the log before applying,
// so a redelivered accrual event cannot double-credit.
type LoyaltyRepo struct{}

// NewLoyaltyRepo constructs a new LoyaltyRepo.
func NewLoyaltyRepo() ports.LoyaltyRepository {
	return &LoyaltyRepo{}
}

func (r *LoyaltyRepo) Add(ctx context.Context, a *loyalty.Account) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO loyalty_accounts (customer_id, points_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`, a.CustomerID, a.PointsBalance, a.CreatedAt, a.UpdatedAt)
	return mapDuplicate(err)
}

func (r *LoyaltyRepo) Retrieve(ctx context.Context, customerID string) (*loyalty.Account, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var a loyalty.Account
	err = tx.QueryRow(ctx, `
		SELECT customer_id, points_balance, created_at, updated_at
		FROM loyalty_accounts
		WHERE customer_id = $1
	`, loyalty.NormalizeCustomerID(customerID)).Scan(&a.CustomerID, &a.PointsBalance, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func (r *LoyaltyRepo) Update(ctx context.Context, a *loyalty.Account) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE loyalty_accounts
		SET points_balance = $1, updated_at = $2
		WHERE customer_id = $3
	`, a.PointsBalance, a.UpdatedAt, a.CustomerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// HasAppliedEvent reports whether the source event was already credited.
func (r *LoyaltyRepo) HasAppliedEvent(ctx context.Context, customerID, sourceEventID string) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM loyalty_applied_events
			WHERE customer_id = $1 AND source_event_id = $2
		)
	`, loyalty.NormalizeCustomerID(customerID), sourceEventID).Scan(&exists)
	return exists, err
}

// RecordAppliedEvent marks the source event as credited, in the same
// transaction as the balance write.
func (r *LoyaltyRepo) RecordAppliedEvent(ctx context.Context, customerID, sourceEventID string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO loyalty_applied_events (customer_id, source_event_id, applied_at)
		VALUES ($1, $2, $3)
	`, loyalty.NormalizeCustomerID(customerID), sourceEventID, time.Now().UTC())
	return mapDuplicate(err)
}
