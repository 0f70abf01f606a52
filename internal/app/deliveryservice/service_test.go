package deliveryservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodslice/pizza-fulfillment/internal/domain/delivery"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
)

type fakeUOW struct{}

func (fakeUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeDeliveryRepo struct {
	deliveries map[string]*delivery.Delivery
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{deliveries: map[string]*delivery.Delivery{}}
}

func (r *fakeDeliveryRepo) Add(_ context.Context, d *delivery.Delivery) error {
	if _, ok := r.deliveries[d.OrderID]; ok {
		return ports.ErrDuplicate
	}
	r.deliveries[d.OrderID] = d
	return nil
}

func (r *fakeDeliveryRepo) Retrieve(_ context.Context, orderID string) (*delivery.Delivery, error) {
	d, ok := r.deliveries[orderID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return d, nil
}

func (r *fakeDeliveryRepo) Update(_ context.Context, d *delivery.Delivery) error {
	if _, ok := r.deliveries[d.OrderID]; !ok {
		return ports.ErrNotFound
	}
	r.deliveries[d.OrderID] = d
	return nil
}

func (r *fakeDeliveryRepo) ListAwaiting(_ context.Context) ([]delivery.Delivery, error) {
	var out []delivery.Delivery
	for _, d := range r.deliveries {
		if d.State == delivery.StateAwaitingDriver {
			out = append(out, *d)
		}
	}
	return out, nil
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

func newTestService(t *testing.T) (*Service, *fakeDeliveryRepo, *fakePublisher) {
	t.Helper()
	repo := newFakeDeliveryRepo()
	pub := &fakePublisher{}
	svc := New(fakeUOW{}, repo, pub, logger.NewLogger("delivery-test"))
	return svc, repo, pub
}

func register(t *testing.T, svc *Service, orderID string) {
	t.Helper()
	require.NoError(t, svc.HandleQualityChecked(context.Background(), events.KitchenStage{
		OrderIdentifier:   orderID,
		KitchenIdentifier: "main",
	}))
}

func TestQualityCheckedRegistersDelivery(t *testing.T) {
	svc, repo, _ := newTestService(t)
	register(t, svc, "DELIVER7543")

	d := repo.deliveries["DELIVER7543"]
	require.NotNil(t, d)
	assert.Equal(t, delivery.StateAwaitingDriver, d.State)
}

func TestDuplicateQualityCheckedIsNoOp(t *testing.T) {
	svc, repo, _ := newTestService(t)
	register(t, svc, "DELIVER7543")
	register(t, svc, "DELIVER7543")

	assert.Len(t, repo.deliveries, 1)
}

func TestAssignDriverAnnouncesAssignment(t *testing.T) {
	svc, repo, pub := newTestService(t)
	register(t, svc, "DELIVER7543")

	require.NoError(t, svc.AssignDriver(context.Background(), "DELIVER7543", "james"))

	d := repo.deliveries["DELIVER7543"]
	assert.Equal(t, delivery.StateAssigned, d.State)
	assert.Equal(t, "james", d.Driver)

	assigned := pub.byType(events.TypeDriverAssignedOrder)
	require.Len(t, assigned, 1)
	payload := assigned[0].payload.(events.DriverOrder)
	assert.Equal(t, "DELIVER7543", payload.OrderIdentifier)
	assert.Equal(t, "james", payload.DriverName)
}

func TestFullDriverHandOff(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()
	register(t, svc, "DELIVER7543")

	require.NoError(t, svc.AssignDriver(ctx, "DELIVER7543", "james"))
	require.NoError(t, svc.MarkCollected(ctx, "DELIVER7543"))
	require.NoError(t, svc.MarkDelivered(ctx, "DELIVER7543"))

	assert.Equal(t, delivery.StateDelivered, repo.deliveries["DELIVER7543"].State)
	require.Len(t, pub.byType(events.TypeDriverCollectedOrder), 1)
	delivered := pub.byType(events.TypeDriverDeliveredOrder)
	require.Len(t, delivered, 1)
	assert.Equal(t, "james", delivered[0].payload.(events.DriverOrder).DriverName)
}

func TestCollectBeforeAssignDoesNotAnnounce(t *testing.T) {
	svc, repo, pub := newTestService(t)
	register(t, svc, "DELIVER7543")

	require.NoError(t, svc.MarkCollected(context.Background(), "DELIVER7543"))
	assert.Equal(t, delivery.StateAwaitingDriver, repo.deliveries["DELIVER7543"].State)
	assert.Empty(t, pub.byType(events.TypeDriverCollectedOrder))
}

func TestSecondAssignKeepsFirstDriver(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()
	register(t, svc, "DELIVER7543")
	require.NoError(t, svc.AssignDriver(ctx, "DELIVER7543", "james"))

	require.NoError(t, svc.AssignDriver(ctx, "DELIVER7543", "maria"))
	assert.Equal(t, "james", repo.deliveries["DELIVER7543"].Driver)
	assert.Len(t, pub.byType(events.TypeDriverAssignedOrder), 1)
}

func TestAssignUnknownOrderFails(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.AssignDriver(context.Background(), "missing", "james")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestListAwaitingFiltersAssigned(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "DELIVER7543")
	register(t, svc, "DELIVER7544")
	require.NoError(t, svc.AssignDriver(ctx, "DELIVER7543", "james"))

	awaiting, err := svc.ListAwaiting(ctx)
	require.NoError(t, err)
	require.Len(t, awaiting, 1)
	assert.Equal(t, "DELIVER7544", awaiting[0].OrderID)
}
