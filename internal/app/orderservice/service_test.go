package orderservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodslice/pizza-fulfillment/internal/domain/kitchen"
	"github.com/goodslice/pizza-fulfillment/internal/domain/orders"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
)

type fakeUOW struct{}

func (fakeUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeOrderRepo struct {
	orders map[string]*orders.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*orders.Order{}}
}

func (r *fakeOrderRepo) Add(_ context.Context, o *orders.Order) error {
	if _, ok := r.orders[o.ID]; ok {
		return ports.ErrDuplicate
	}
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) Retrieve(_ context.Context, orderID string) (*orders.Order, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) Update(_ context.Context, o *orders.Order) error {
	if _, ok := r.orders[o.ID]; !ok {
		return ports.ErrNotFound
	}
	r.orders[o.ID] = o
	return nil
}

type fakeRecipes struct {
	recipes map[string]kitchen.RecipeSnapshot
}

func (r *fakeRecipes) GetRecipe(_ context.Context, recipeID string) (*kitchen.RecipeSnapshot, error) {
	snap, ok := r.recipes[recipeID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &snap, nil
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

func (p *fakePublisher) byType(eventType string) []published {
	var out []published
	for _, e := range p.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeCache struct {
	balances map[string]int64
}

func newFakeCache() *fakeCache { return &fakeCache{balances: map[string]int64{}} }

func (c *fakeCache) SetBalance(_ context.Context, customerID string, balance int64) error {
	c.balances[customerID] = balance
	return nil
}

func (c *fakeCache) GetBalance(_ context.Context, customerID string) (int64, bool, error) {
	b, ok := c.balances[customerID]
	return b, ok, nil
}

func newTestService(t *testing.T) (*Service, *fakeOrderRepo, *fakePublisher, *fakeCache) {
	t.Helper()
	repo := newFakeOrderRepo()
	pub := &fakePublisher{}
	cache := newFakeCache()
	recipes := &fakeRecipes{recipes: map[string]kitchen.RecipeSnapshot{
		"margherita": {RecipeID: "margherita", Name: "Margherita", Price: 1099},
		"pepperoni":  {RecipeID: "pepperoni", Name: "Pepperoni", Price: 1299},
	}}
	svc := New(fakeUOW{}, repo, recipes, pub, cache, logger.NewLogger("orders-test"))
	return svc, repo, pub, cache
}

func createSubmitted(t *testing.T, svc *Service, typ orders.OrderType) *orders.Order {
	t.Helper()
	order, err := svc.CreateOrder(context.Background(), ports.CreateOrderCommand{
		CustomerID: "JAMES",
		Type:       typ,
		Items:      []ports.ItemInput{{RecipeID: "margherita", Quantity: 2}},
	})
	require.NoError(t, err)
	order, err = svc.SubmitOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, orders.StatusSubmitted, order.Status)
	return order
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, ports.CreateOrderCommand{Type: orders.OrderTypePickup, Items: []ports.ItemInput{{RecipeID: "margherita", Quantity: 1}}})
	assert.Error(t, err)

	_, err = svc.CreateOrder(ctx, ports.CreateOrderCommand{CustomerID: "JAMES", Type: "courier", Items: []ports.ItemInput{{RecipeID: "margherita", Quantity: 1}}})
	assert.Error(t, err)

	_, err = svc.CreateOrder(ctx, ports.CreateOrderCommand{CustomerID: "JAMES", Type: orders.OrderTypePickup})
	assert.Error(t, err)

	_, err = svc.CreateOrder(ctx, ports.CreateOrderCommand{CustomerID: "JAMES", Type: orders.OrderTypePickup, Items: []ports.ItemInput{{RecipeID: "calzone", Quantity: 1}}})
	assert.Error(t, err, "unknown recipe must fail the create")
}

func TestSubmitOrderPublishesConfirmedOnce(t *testing.T) {
	svc, _, pub, _ := newTestService(t)
	order := createSubmitted(t, svc, orders.OrderTypeDelivery)

	confirmed := pub.byType(events.TypeOrderConfirmed)
	require.Len(t, confirmed, 1)
	payload := confirmed[0].payload.(events.OrderConfirmed)
	assert.Equal(t, order.ID, payload.OrderIdentifier)
	assert.Equal(t, "delivery", payload.OrderType)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, "margherita", payload.Items[0].RecipeIdentifier)
	assert.Equal(t, 2, payload.Items[0].Quantity)

	// resubmit is a no-op and must not re-announce
	_, err := svc.SubmitOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, pub.byType(events.TypeOrderConfirmed), 1)
}

func TestAddItemAfterSubmitFails(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	order := createSubmitted(t, svc, orders.OrderTypeDelivery)

	_, err := svc.AddItem(context.Background(), order.ID, ports.ItemInput{RecipeID: "pepperoni", Quantity: 1})
	assert.ErrorIs(t, err, orders.ErrItemsLocked)
}

func TestKitchenStageDrivesStatus(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	order := createSubmitted(t, svc, orders.OrderTypeDelivery)
	ctx := context.Background()
	stage := events.KitchenStage{OrderIdentifier: order.ID, KitchenIdentifier: "main"}

	require.NoError(t, svc.HandleKitchenStage(ctx, events.TypeOrderPreparing, stage))
	assert.Equal(t, orders.StatusPreparing, repo.orders[order.ID].Status)

	// out-of-order stage is swallowed, not surfaced
	require.NoError(t, svc.HandleKitchenStage(ctx, events.TypeOrderQualityChecked, stage))
	assert.Equal(t, orders.StatusPreparing, repo.orders[order.ID].Status)

	require.NoError(t, svc.HandleKitchenStage(ctx, events.TypeOrderPrepComplete, stage))
	require.NoError(t, svc.HandleKitchenStage(ctx, events.TypeOrderBakeComplete, stage))
	require.NoError(t, svc.HandleKitchenStage(ctx, events.TypeOrderQualityChecked, stage))
	assert.Equal(t, orders.StatusQualityChecked, repo.orders[order.ID].Status)
}

func TestKitchenStageForUnknownOrderSurfacesError(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	err := svc.HandleKitchenStage(context.Background(), events.TypeOrderPreparing,
		events.KitchenStage{OrderIdentifier: "missing"})
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestDriverDeliveredPublishesCompletedExactlyOnce(t *testing.T) {
	svc, repo, pub, _ := newTestService(t)
	order := createSubmitted(t, svc, orders.OrderTypeDelivery)
	ctx := context.Background()
	stage := events.KitchenStage{OrderIdentifier: order.ID, KitchenIdentifier: "main"}

	require.NoError(t, svc.HandleKitchenStage(ctx, events.TypeOrderPreparing, stage))
	require.NoError(t, svc.HandleKitchenStage(ctx, events.TypeOrderPrepComplete, stage))
	require.NoError(t, svc.HandleKitchenStage(ctx, events.TypeOrderBakeComplete, stage))
	require.NoError(t, svc.HandleKitchenStage(ctx, events.TypeOrderQualityChecked, stage))

	driver := events.DriverOrder{OrderIdentifier: order.ID, DriverName: "james"}
	require.NoError(t, svc.HandleDriverEvent(ctx, events.TypeDriverAssignedOrder, driver))
	require.NoError(t, svc.HandleDriverEvent(ctx, events.TypeDriverCollectedOrder, driver))
	require.NoError(t, svc.HandleDriverEvent(ctx, events.TypeDriverDeliveredOrder, driver))

	stored := repo.orders[order.ID]
	assert.Equal(t, orders.StatusCompleted, stored.Status)
	assert.Nil(t, stored.AssignedDriver)
	require.NotNil(t, stored.CompletedOn)

	completed := pub.byType(events.TypeOrderCompleted)
	require.Len(t, completed, 1)
	payload := completed[0].payload.(events.OrderCompleted)
	assert.Equal(t, "JAMES", payload.CustomerIdentifier)
	assert.InDelta(t, 21.98, payload.OrderValue, 0.001)

	// redelivered delivered event: acked as no-op, no second accrual trigger
	require.NoError(t, svc.HandleDriverEvent(ctx, events.TypeDriverDeliveredOrder, driver))
	assert.Len(t, pub.byType(events.TypeOrderCompleted), 1)
}

func TestCollectOrderPublishesCompleted(t *testing.T) {
	svc, repo, pub, _ := newTestService(t)
	order := createSubmitted(t, svc, orders.OrderTypePickup)
	ctx := context.Background()
	stage := events.KitchenStage{OrderIdentifier: order.ID, KitchenIdentifier: "main"}

	require.NoError(t, svc.HandleKitchenStage(ctx, events.TypeOrderPreparing, stage))
	require.NoError(t, svc.HandleKitchenStage(ctx, events.TypeOrderPrepComplete, stage))
	require.NoError(t, svc.HandleKitchenStage(ctx, events.TypeOrderBakeComplete, stage))
	require.NoError(t, svc.HandleKitchenStage(ctx, events.TypeOrderQualityChecked, stage))
	assert.Equal(t, orders.StatusAwaitingCollection, repo.orders[order.ID].Status)

	collected, err := svc.CollectOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCollected, collected.Status)
	assert.Len(t, pub.byType(events.TypeOrderCompleted), 1)

	// collecting again changes nothing
	_, err = svc.CollectOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, pub.byType(events.TypeOrderCompleted), 1)
}

func TestHandleLoyaltyUpdatedRefreshesCache(t *testing.T) {
	svc, _, _, cache := newTestService(t)

	err := svc.HandleLoyaltyUpdated(context.Background(), events.LoyaltyPointsUpdated{
		CustomerIdentifier: "JAMES",
		PointsTotal:        57,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(57), cache.balances["JAMES"])
}
