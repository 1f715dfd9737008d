package cron

import (
	"context"
	"fmt"

	"github.com/rentiva/rentiva-backend/pkg/logger"
)

type quotationExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// NewQuotationExpiryJob builds the job that sweeps quotations past their
// validity window. Expiry is also applied lazily on read; the sweep keeps
// listings and vendor dashboards honest between reads.
func NewQuotationExpiryJob(logg *logger.Logger, quotations quotationExpirer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if quotations == nil {
		return nil, fmt.Errorf("quotations service required")
	}
	return &quotationExpiryJob{logg: logg, quotations: quotations}, nil
}

type quotationExpiryJob struct {
	logg       *logger.Logger
	quotations quotationExpirer
}

func (j *quotationExpiryJob) Name() string { return "quotation-expiry" }

func (j *quotationExpiryJob) Run(ctx context.Context) error {
	expired, err := j.quotations.ExpireDue(ctx)
	if err != nil {
		return fmt.Errorf("expire due quotations: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "count", expired), "quotation expiry sweep complete")
	return nil
}
