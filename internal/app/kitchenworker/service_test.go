package kitchenworker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodslice/pizza-fulfillment/internal/domain/kitchen"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
)

type fakeUOW struct{}

func (fakeUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeKitchenRepo struct {
	requests map[string]*kitchen.Request
}

func newFakeKitchenRepo() *fakeKitchenRepo {
	return &fakeKitchenRepo{requests: map[string]*kitchen.Request{}}
}

func (r *fakeKitchenRepo) Add(_ context.Context, req *kitchen.Request) error {
	if _, ok := r.requests[req.OrderID]; ok {
		return ports.ErrDuplicate
	}
	r.requests[req.OrderID] = req
	return nil
}

func (r *fakeKitchenRepo) Retrieve(_ context.Context, orderID string) (*kitchen.Request, error) {
	req, ok := r.requests[orderID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return req, nil
}

func (r *fakeKitchenRepo) Update(_ context.Context, req *kitchen.Request) error {
	if _, ok := r.requests[req.OrderID]; !ok {
		return ports.ErrNotFound
	}
	r.requests[req.OrderID] = req
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

func newTestService(t *testing.T) (*Service, *fakeKitchenRepo, *fakePublisher) {
	t.Helper()
	repo := newFakeKitchenRepo()
	pub := &fakePublisher{}
	recipes := &fakeRecipes{recipes: map[string]kitchen.RecipeSnapshot{
		"margherita": {RecipeID: "margherita", Name: "Margherita", Price: 1099},
		"pepperoni":  {RecipeID: "pepperoni", Name: "Pepperoni", Price: 1299},
	}}
	svc := New(fakeUOW{}, repo, recipes, pub, logger.NewLogger("kitchen-test"), "main")
	return svc, repo, pub
}

func confirmedEvent(orderID string) events.OrderConfirmed {
	return events.OrderConfirmed{
		OrderIdentifier: orderID,
		OrderType:       "delivery",
		Items:           []events.OrderItemLine{{RecipeIdentifier: "margherita", Quantity: 2}},
	}
}

func TestHandleOrderConfirmedCreatesRequestAndAnnounces(t *testing.T) {
	svc, repo, pub := newTestService(t)

	require.NoError(t, svc.HandleOrderConfirmed(context.Background(), confirmedEvent("ORD1001")))

	req := repo.requests["ORD1001"]
	require.NotNil(t, req)
	assert.Equal(t, kitchen.StagePreparing, req.Stage)
	require.Len(t, req.Recipes, 1)
	assert.Equal(t, "Margherita", req.Recipes[0].Name)

	require.Len(t, pub.byType(events.TypeKitchenOrderConfirmed), 1)
	preparing := pub.byType(events.TypeOrderPreparing)
	require.Len(t, preparing, 1)
	payload := preparing[0].payload.(events.KitchenStage)
	assert.Equal(t, "ORD1001", payload.OrderIdentifier)
	assert.Equal(t, "main", payload.KitchenIdentifier)
}

func TestDuplicateConfirmedEventKeepsSingleRequest(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleOrderConfirmed(ctx, confirmedEvent("ORD1001")))
	require.NoError(t, svc.HandleOrderConfirmed(ctx, confirmedEvent("ORD1001")))

	assert.Len(t, repo.requests, 1)
	// the duplicate must not re-announce the preparing stage
	assert.Len(t, pub.byType(events.TypeOrderPreparing), 1)
	assert.Len(t, pub.byType(events.TypeKitchenOrderConfirmed), 1)
}

func TestUnknownRecipeAbortsRequestCreation(t *testing.T) {
	svc, repo, pub := newTestService(t)

	evt := events.OrderConfirmed{
		OrderIdentifier: "ORD1002",
		Items: []events.OrderItemLine{
			{RecipeIdentifier: "margherita", Quantity: 1},
			{RecipeIdentifier: "calzone", Quantity: 1},
		},
	}
	err := svc.HandleOrderConfirmed(context.Background(), evt)
	require.Error(t, err)

	assert.Empty(t, repo.requests, "partial requests must not be stored")
	assert.Empty(t, pub.events)
}

func TestStageCommandsAdvanceAndAnnounce(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.HandleOrderConfirmed(ctx, confirmedEvent("ORD1001")))

	require.NoError(t, svc.MarkPrepComplete(ctx, "ORD1001"))
	assert.Equal(t, kitchen.StagePrepComplete, repo.requests["ORD1001"].Stage)
	require.Len(t, pub.byType(events.TypeOrderPrepComplete), 1)

	require.NoError(t, svc.MarkBakeComplete(ctx, "ORD1001"))
	require.NoError(t, svc.MarkQualityChecked(ctx, "ORD1001"))
	assert.Equal(t, kitchen.StageQualityChecked, repo.requests["ORD1001"].Stage)
	require.Len(t, pub.byType(events.TypeOrderQualityChecked), 1)
}

func TestDuplicateStageCommandDoesNotReAnnounce(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.HandleOrderConfirmed(ctx, confirmedEvent("ORD1001")))
	require.NoError(t, svc.MarkPrepComplete(ctx, "ORD1001"))

	require.NoError(t, svc.MarkPrepComplete(ctx, "ORD1001"))
	assert.Len(t, pub.byType(events.TypeOrderPrepComplete), 1)
}

func TestStageCommandForUnknownOrderFails(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.MarkPrepComplete(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}
