package loyaltyworker

import (
	"context"
	"errors"
	"time"

	"github.com/goodslice/pizza-fulfillment/internal/domain/loyalty"
	"github.com/goodslice/pizza-fulfillment/internal/domain/orders"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
)

// Service implements ports.LoyaltyService. Accrual is deduplicated per source
// event inside the balance transaction; the Redis projection is refreshed
// best-effort after every committed balance change.
type Service struct {
	uow       ports.UnitOfWork
	repo      ports.LoyaltyRepository
	cache     ports.BalanceCache
	publisher ports.Publisher
	logger    *logger.Logger

	now func() time.Time
}

var _ ports.LoyaltyService = (*Service)(nil)

func New(uow ports.UnitOfWork, repo ports.LoyaltyRepository, cache ports.BalanceCache, publisher ports.Publisher, logger *logger.Logger) *Service {
	return &Service{
		uow:       uow,
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleOrderCompleted accrues points for a completed order. The applied-event
// record commits with the balance, so a redelivered event finds the record and
// drops out without accruing twice. Accounts are created on first accrual.
func (service *Service) HandleOrderCompleted(ctx context.Context, sourceEventID string, evt events.OrderCompleted) error {
	customerID := loyalty.NormalizeCustomerID(evt.CustomerIdentifier)

	var (
		applied bool
		earned  int64
		balance int64
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		seen, err := service.repo.HasAppliedEvent(txCtx, customerID, sourceEventID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}

		account, err := service.repo.Retrieve(txCtx, customerID)
		if errors.Is(err, ports.ErrNotFound) {
			account = loyalty.NewAccount(customerID, service.now())
			if err := service.repo.Add(txCtx, account); err != nil && !errors.Is(err, ports.ErrDuplicate) {
				return err
			}
		} else if err != nil {
			return err
		}

		earned = account.Accrue(orders.NewMoneyFromFloat2(evt.OrderValue), service.now())
		if err := service.repo.Update(txCtx, account); err != nil {
			return err
		}
		if err := service.repo.RecordAppliedEvent(txCtx, customerID, sourceEventID); err != nil {
			return err
		}

		applied = true
		balance = account.PointsBalance
		return nil
	})
	if err != nil {
		return err
	}
	if !applied {
		service.logger.Debug(ctx, "accrual_duplicate", "Completed event already applied", map[string]any{
			"customer_id":     customerID,
			"source_event_id": sourceEventID,
		})
		return nil
	}

	service.refreshCache(ctx, customerID, balance)
	service.publishUpdated(ctx, customerID, balance)

	service.logger.Info(ctx, "points_accrued", "Loyalty points accrued", map[string]any{
		"customer_id":   customerID,
		"order_id":      evt.OrderIdentifier,
		"points_earned": earned,
		"points_total":  balance,
	})
	return nil
}

// Spend deducts points against the authoritative store. The cache is never
// consulted for the decision.
func (service *Service) Spend(ctx context.Context, customerID string, points int64) (int64, error) {
	customerID = loyalty.NormalizeCustomerID(customerID)

	var balance int64
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		account, err := service.repo.Retrieve(txCtx, customerID)
		if err != nil {
			return err
		}
		if err := account.Spend(points, service.now()); err != nil {
			return err
		}
		if err := service.repo.Update(txCtx, account); err != nil {
			return err
		}
		balance = account.PointsBalance
		return nil
	})
	if err != nil {
		return 0, err
	}

	service.refreshCache(ctx, customerID, balance)
	service.publishUpdated(ctx, customerID, balance)
	return balance, nil
}

// Balance reads the cached projection first and falls back to the store on a
// miss, repopulating the cache on the way out.
func (service *Service) Balance(ctx context.Context, customerID string) (int64, error) {
	customerID = loyalty.NormalizeCustomerID(customerID)

	if balance, ok, err := service.cache.GetBalance(ctx, customerID); err != nil {
		service.logger.Warn(ctx, "balance_cache_read_failed", "Falling back to store", map[string]any{
			"customer_id": customerID,
			"error":       err.Error(),
		})
	} else if ok {
		return balance, nil
	}

	var balance int64
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		account, err := service.repo.Retrieve(txCtx, customerID)
		if errors.Is(err, ports.ErrNotFound) {
			// no account yet means zero points, not an error
			return nil
		}
		if err != nil {
			return err
		}
		balance = account.PointsBalance
		return nil
	})
	if err != nil {
		return 0, err
	}

	service.refreshCache(ctx, customerID, balance)
	return balance, nil
}

func (service *Service) refreshCache(ctx context.Context, customerID string, balance int64) {
	if err := service.cache.SetBalance(ctx, customerID, balance); err != nil {
		service.logger.Warn(ctx, "balance_cache_write_failed", "Cache refresh failed", map[string]any{
			"customer_id": customerID,
			"error":       err.Error(),
		})
	}
}

func (service *Service) publishUpdated(ctx context.Context, customerID string, balance int64) {
	err := service.publisher.Publish(ctx, events.TypeLoyaltyPointsUpdated, events.LoyaltyPointsUpdated{
		CustomerIdentifier: customerID,
		PointsTotal:        float64(balance),
	})
	if err != nil {
		service.logger.Error(ctx, "event_publish_failed", "Failed to publish "+events.TypeLoyaltyPointsUpdated, err)
	}
}
