package loyalty

import (
	"errors"
	"strings"
	"time"

	"github.com/goodslice/pizza-fulfillment/internal/domain/orders"
)

// ErrInsufficientPoints is a business rejection: the spend would drive the
// balance negative. The ledger must be left unchanged.
var ErrInsufficientPoints = errors.New("loyalty: insufficient points")

// NormalizeCustomerID upper-cases a customer identifier for lookups. The
// ledger and the cache projection are both keyed by the normalized form.
func NormalizeCustomerID(customerID string) string {
	return strings.ToUpper(strings.TrimSpace(customerID))
}

// Account is a customer's points ledger. The persisted account is
// authoritative; the cached projection is best-effort and must never decide
// a spend.
type Account struct {
	CustomerID    string
	PointsBalance int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAccount creates an empty ledger for a customer. Accounts are created
// lazily on the first accrual.
func NewAccount(customerID string, now time.Time) *Account {
	return &Account{
		CustomerID: NormalizeCustomerID(customerID),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Accrue adds points for an order: the monetary value rounded up to the
// nearest whole point. Returns the points earned.
func (a *Account) Accrue(orderValue orders.Money, now time.Time) int64 {
	earned := orderValue.CeilPoints()
	a.PointsBalance += earned
	a.UpdatedAt = now
	return earned
}

// Spend subtracts points, failing with ErrInsufficientPoints when the balance
// cannot cover it.
func (a *Account) Spend(points int64, now time.Time) error {
	if points > a.PointsBalance {
		return ErrInsufficientPoints
	}
	a.PointsBalance -= points
	a.UpdatedAt = now
	return nil
}
