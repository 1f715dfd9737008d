package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	expired int
	err     error
	calls   int
}

func (f *fakeExpirer) ExpireDue(context.Context) (int, error) {
	f.calls++
	return f.expired, f.err
}

type fakeCanceller struct {
	cancelled int
	err       error
	cutoffs   []time.Time
}

func (f *fakeCanceller) CancelStalePending(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.cancelled, f.err
}

type fakeTTL struct {
	ttl time.Duration
}

func (f fakeTTL) PendingOrderTTL() time.Duration { return f.ttl }

func TestQuotationExpiryJobSweeps(t *testing.T) {
	expirer := &fakeExpirer{expired: 3}
	job, err := NewQuotationExpiryJob(testLogger(), expirer)
	require.NoError(t, err)

	assert.Equal(t, "quotation-expiry", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, expirer.calls)

	expirer.err = errors.New("db gone")
	require.Error(t, job.Run(context.Background()))
}

func TestOrderTTLJobUsesConfiguredCutoff(t *testing.T) {
	canceller := &fakeCanceller{cancelled: 2}
	jobIface, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger:   testLogger(),
		Orders:   canceller,
		Settings: fakeTTL{ttl: 240 * time.Hour},
	})
	require.NoError(t, err)

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	job, ok := jobIface.(*orderTTLJob)
	require.True(t, ok)
	job.now = func() time.Time { return now }

	assert.Equal(t, "order-ttl", job.Name())
	require.NoError(t, job.Run(context.Background()))
	require.Len(t, canceller.cutoffs, 1)
	assert.Equal(t, now.Add(-240*time.Hour), canceller.cutoffs[0])
}

func TestOrderTTLJobPropagatesErrors(t *testing.T) {
	canceller := &fakeCanceller{err: errors.New("boom")}
	job, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger:   testLogger(),
		Orders:   canceller,
		Settings: fakeTTL{ttl: time.Hour},
	})
	require.NoError(t, err)
	require.Error(t, job.Run(context.Background()))
}
