package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/rentiva/rentiva-backend/pkg/logger"
)

type stalePendingCanceller interface {
	CancelStalePending(ctx context.Context, cutoff time.Time) (int, error)
}

type pendingTTLProvider interface {
	PendingOrderTTL() time.Duration
}

// OrderTTLJobParams configure the pending order scheduler.
type OrderTTLJobParams struct {
	Logger   *logger.Logger
	Orders   stalePendingCanceller
	Settings pendingTTLProvider
}

// NewOrderTTLJob builds the job that cancels orders left unpaid past the
// configured pending TTL and restores their reserved stock.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	return &orderTTLJob{
		logg:     params.Logger,
		orders:   params.Orders,
		settings: params.Settings,
		now:      time.Now,
	}, nil
}

type orderTTLJob struct {
	logg     *logger.Logger
	orders   stalePendingCanceller
	settings pendingTTLProvider
	now      func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.settings.PendingOrderTTL())
	cancelled, err := j.orders.CancelStalePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cancel stale pending orders: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "count", cancelled), "stale pending order sweep complete")
	return nil
}
