package kitchenworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodslice/pizza-fulfillment/internal/domain/kitchen"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
)

// Service implements ports.KitchenService: idempotent request creation from
// the confirmed event, then strictly forward stage advancement.
type Service struct {
	uow       ports.UnitOfWork
	repo      ports.KitchenRepository
	recipes   ports.RecipeLookup
	publisher ports.Publisher
	logger    *logger.Logger
	kitchenID string

	now func() time.Time
}

var _ ports.KitchenService = (*Service)(nil)

// New creates the kitchen service. kitchenID identifies this kitchen in the
// stage events it publishes.
func New(uow ports.UnitOfWork, repo ports.KitchenRepository, recipes ports.RecipeLookup, publisher ports.Publisher, logger *logger.Logger, kitchenID string) *Service {
	return &Service{
		uow:       uow,
		repo:      repo,
		recipes:   recipes,
		publisher: publisher,
		logger:    logger,
		kitchenID: kitchenID,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleOrderConfirmed creates the preparation request for a confirmed order.
// Creation is all-or-nothing: any unresolved recipe aborts and the event is
// retried. A request that already exists makes the event a dropped duplicate.
func (service *Service) HandleOrderConfirmed(ctx context.Context, evt events.OrderConfirmed) error {
	var created bool

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		_, err := service.repo.Retrieve(txCtx, evt.OrderIdentifier)
		if err == nil {
			// duplicate confirmed event; nothing to do
			return nil
		}
		if !errors.Is(err, ports.ErrNotFound) {
			return err
		}

		recipes := make([]kitchen.RecipeSnapshot, 0, len(evt.Items))
		for _, item := range evt.Items {
			snap, err := service.recipes.GetRecipe(txCtx, item.RecipeIdentifier)
			if err != nil {
				return fmt.Errorf("resolve recipe %q: %w", item.RecipeIdentifier, err)
			}
			recipes = append(recipes, *snap)
		}

		req := kitchen.NewRequest(evt.OrderIdentifier, recipes, service.now())
		if err := service.repo.Add(txCtx, req); err != nil {
			if errors.Is(err, ports.ErrDuplicate) {
				// lost a create race; the other consumer's request stands
				return nil
			}
			return err
		}

		created = true
		return nil
	})
	if err != nil {
		return err
	}
	if !created {
		service.logger.Debug(ctx, "kitchen_request_exists", "Duplicate confirmed event dropped", map[string]any{
			"order_id": evt.OrderIdentifier,
		})
		return nil
	}

	service.publish(ctx, events.TypeKitchenOrderConfirmed, events.KitchenOrderConfirmed{
		OrderIdentifier: evt.OrderIdentifier,
	})
	service.publish(ctx, events.TypeOrderPreparing, events.KitchenStage{
		OrderIdentifier:   evt.OrderIdentifier,
		KitchenIdentifier: service.kitchenID,
	})

	service.logger.Info(ctx, "kitchen_request_created", "Preparation started", map[string]any{
		"order_id":      evt.OrderIdentifier,
		"recipes_count": len(evt.Items),
	})
	return nil
}

// MarkPrepComplete advances the pipeline and announces it.
func (service *Service) MarkPrepComplete(ctx context.Context, orderID string) error {
	return service.advance(ctx, orderID, kitchen.StagePrepComplete, events.TypeOrderPrepComplete)
}

// MarkBakeComplete advances the pipeline and announces it.
func (service *Service) MarkBakeComplete(ctx context.Context, orderID string) error {
	return service.advance(ctx, orderID, kitchen.StageBakeComplete, events.TypeOrderBakeComplete)
}

// MarkQualityChecked finishes the pipeline and announces it.
func (service *Service) MarkQualityChecked(ctx context.Context, orderID string) error {
	return service.advance(ctx, orderID, kitchen.StageQualityChecked, events.TypeOrderQualityChecked)
}

// advance applies the forward-only stage guard; duplicates are no-ops. The
// stage event publishes only after the commit.
func (service *Service) advance(ctx context.Context, orderID string, stage kitchen.Stage, eventType string) error {
	var advanced bool

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		req, err := service.repo.Retrieve(txCtx, orderID)
		if err != nil {
			return err
		}
		if advanced = req.Advance(stage, service.now()); !advanced {
			return nil
		}
		return service.repo.Update(txCtx, req)
	})
	if err != nil {
		return err
	}
	if !advanced {
		service.logger.Debug(ctx, "stage_noop", "Stage signal did not match pipeline position", map[string]any{
			"order_id": orderID,
			"stage":    string(stage),
		})
		return nil
	}

	service.publish(ctx, eventType, events.KitchenStage{
		OrderIdentifier:   orderID,
		KitchenIdentifier: service.kitchenID,
	})
	return nil
}

func (service *Service) publish(ctx context.Context, eventType string, payload any) {
	if err := service.publisher.Publish(ctx, eventType, payload); err != nil {
		service.logger.Error(ctx, "event_publish_failed", "Failed to publish "+eventType, err)
	}
}
