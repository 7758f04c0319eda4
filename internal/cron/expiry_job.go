package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/winimarket/winimarket-backend/pkg/config"
	"github.com/winimarket/winimarket-backend/pkg/db/models"
	"github.com/winimarket/winimarket-backend/pkg/logger"
)

type pendingOrderReader interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type orderExpirer interface {
	Expire(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// ExpiryJobParams configure the stale pending order sweep.
type ExpiryJobParams struct {
	Logger  *logger.Logger
	Reader  pendingOrderReader
	Expirer orderExpirer
	Config  config.OrdersConfig
	Now     func() time.Time
}

type expiryJob struct {
	logg    *logger.Logger
	reader  pendingOrderReader
	expirer orderExpirer
	ttl     time.Duration
	now     func() time.Time
}

// NewExpiryJob builds the job that cancels orders left unpaid past the
// pending TTL. Each order is expired in its own transaction, so one
// failure does not block the rest of the batch.
func NewExpiryJob(params ExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("pending order reader required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	if params.Config.PendingTTL <= 0 {
		return nil, fmt.Errorf("pending ttl must be positive, got %s", params.Config.PendingTTL)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &expiryJob{
		logg:    params.Logger,
		reader:  params.Reader,
		expirer: params.Expirer,
		ttl:     params.Config.PendingTTL,
		now:     now,
	}, nil
}

func (j *expiryJob) Name() string { return "order-expiry" }

func (j *expiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.reader.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	expired := 0
	var errs []error
	for _, order := range stale {
		ok, err := j.expirer.Expire(ctx, order.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if ok {
			expired++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(stale),
		"expired":    expired,
	})
	j.logg.Info(logCtx, "expiry sweep finished")
	return multierr.Combine(errs...)
}
