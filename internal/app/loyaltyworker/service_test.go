package loyaltyworker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodslice/pizza-fulfillment/internal/domain/loyalty"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
)

type fakeUOW struct{}

func (fakeUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type appliedKey struct {
	customerID    string
	sourceEventID string
}

type fakeLoyaltyRepo struct {
	accounts map[string]*loyalty.Account
	applied  map[appliedKey]bool
}

func newFakeLoyaltyRepo() *fakeLoyaltyRepo {
	return &fakeLoyaltyRepo{
		accounts: map[string]*loyalty.Account{},
		applied:  map[appliedKey]bool{},
	}
}

func (r *fakeLoyaltyRepo) Add(_ context.Context, a *loyalty.Account) error {
	if _, ok := r.accounts[a.CustomerID]; ok {
		return ports.ErrDuplicate
	}
	r.accounts[a.CustomerID] = a
	return nil
}

func (r *fakeLoyaltyRepo) Retrieve(_ context.Context, customerID string) (*loyalty.Account, error) {
	a, ok := r.accounts[customerID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return a, nil
}

func (r *fakeLoyaltyRepo) Update(_ context.Context, a *loyalty.Account) error {
	if _, ok := r.accounts[a.CustomerID]; !ok {
		return ports.ErrNotFound
	}
	r.accounts[a.CustomerID] = a
	return nil
}

func (r *fakeLoyaltyRepo) HasAppliedEvent(_ context.Context, customerID, sourceEventID string) (bool, error) {
	return r.applied[appliedKey{customerID, sourceEventID}], nil
}

func (r *fakeLoyaltyRepo) RecordAppliedEvent(_ context.Context, customerID, sourceEventID string) error {
	r.applied[appliedKey{customerID, sourceEventID}] = true
	return nil
}

type fakeCache struct {
	balances map[string]int64
	failGet  bool
}

func newFakeCache() *fakeCache { return &fakeCache{balances: map[string]int64{}} }

func (c *fakeCache) SetBalance(_ context.Context, customerID string, balance int64) error {
	c.balances[customerID] = balance
	return nil
}

func (c *fakeCache) GetBalance(_ context.Context, customerID string) (int64, bool, error) {
	if c.failGet {
		return 0, false, errors.New("redis down")
	}
	b, ok := c.balances[customerID]
	return b, ok, nil
}

type published struct {
	eventType string
	payload   any
}

type fakePublisher struct {
	events []published
}

func (p *fakePublisher) Publish(_ context.Context, eventType string, payload any) error {
	p.events = append(p.events, published{eventType: eventType, payload: payload})
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeLoyaltyRepo, *fakeCache, *fakePublisher) {
	t.Helper()
	repo := newFakeLoyaltyRepo()
	cache := newFakeCache()
	pub := &fakePublisher{}
	svc := New(fakeUOW{}, repo, cache, pub, logger.NewLogger("loyalty-test"))
	return svc, repo, cache, pub
}

func completedEvent(orderID string, value float64) events.OrderCompleted {
	return events.OrderCompleted{
		OrderIdentifier:    orderID,
		CustomerIdentifier: "james",
		OrderValue:         value,
	}
}

func TestAccrualRoundsUpAndCreatesAccount(t *testing.T) {
	svc, repo, cache, pub := newTestService(t)

	err := svc.HandleOrderCompleted(context.Background(), "evt-1", completedEvent("ORD1001", 56.67))
	require.NoError(t, err)

	account := repo.accounts["JAMES"]
	require.NotNil(t, account, "account is created lazily on first accrual")
	assert.Equal(t, int64(57), account.PointsBalance)
	assert.Equal(t, int64(57), cache.balances["JAMES"])

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeLoyaltyPointsUpdated, pub.events[0].eventType)
	payload := pub.events[0].payload.(events.LoyaltyPointsUpdated)
	assert.Equal(t, "JAMES", payload.CustomerIdentifier)
	assert.Equal(t, float64(57), payload.PointsTotal)
}

func TestRedeliveredCompletedEventAccruesOnce(t *testing.T) {
	svc, repo, _, pub := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleOrderCompleted(ctx, "evt-1", completedEvent("ORD1001", 56.67)))
	require.NoError(t, svc.HandleOrderCompleted(ctx, "evt-1", completedEvent("ORD1001", 56.67)))

	assert.Equal(t, int64(57), repo.accounts["JAMES"].PointsBalance)
	assert.Len(t, pub.events, 1, "the duplicate must not re-announce")
}

func TestDistinctOrdersBothAccrue(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleOrderCompleted(ctx, "evt-1", completedEvent("ORD1001", 56.67)))
	require.NoError(t, svc.HandleOrderCompleted(ctx, "evt-2", completedEvent("ORD1002", 10.00)))

	assert.Equal(t, int64(67), repo.accounts["JAMES"].PointsBalance)
}

func TestSpendDeductsAgainstStore(t *testing.T) {
	svc, repo, cache, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.HandleOrderCompleted(ctx, "evt-1", completedEvent("ORD1001", 56.67)))

	balance, err := svc.Spend(ctx, "james", 20)
	require.NoError(t, err)
	assert.Equal(t, int64(37), balance)
	assert.Equal(t, int64(37), repo.accounts["JAMES"].PointsBalance)
	assert.Equal(t, int64(37), cache.balances["JAMES"])
}

func TestOverdrawnSpendFailsWithoutMutation(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.HandleOrderCompleted(ctx, "evt-1", completedEvent("ORD1001", 56.67)))
	_, err := svc.Spend(ctx, "james", 20)
	require.NoError(t, err)

	_, err = svc.Spend(ctx, "james", 1000)
	assert.ErrorIs(t, err, loyalty.ErrInsufficientPoints)
	assert.Equal(t, int64(37), repo.accounts["JAMES"].PointsBalance)
}

func TestSpendIgnoresStaleCache(t *testing.T) {
	svc, _, cache, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.HandleOrderCompleted(ctx, "evt-1", completedEvent("ORD1001", 10.00)))

	// a stale, inflated projection must not let the spend through
	cache.balances["JAMES"] = 1000

	_, err := svc.Spend(ctx, "james", 500)
	assert.ErrorIs(t, err, loyalty.ErrInsufficientPoints)
}

func TestBalanceReadsCacheFirst(t *testing.T) {
	svc, _, cache, _ := newTestService(t)
	cache.balances["JAMES"] = 42

	balance, err := svc.Balance(context.Background(), "james")
	require.NoError(t, err)
	assert.Equal(t, int64(42), balance)
}

func TestBalanceFallsBackToStoreOnCacheFailure(t *testing.T) {
	svc, _, cache, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.HandleOrderCompleted(ctx, "evt-1", completedEvent("ORD1001", 56.67)))
	cache.failGet = true

	balance, err := svc.Balance(ctx, "james")
	require.NoError(t, err)
	assert.Equal(t, int64(57), balance)
}

func TestBalanceForUnknownCustomerIsZero(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	balance, err := svc.Balance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, balance)
}
