package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

// counterValue sums the data points of a counter whose attributes include all of attrs.
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if hasAttributes(dp.Attributes, attrs) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAttributes(set attribute.Set, attrs []attribute.KeyValue) bool {
	for _, kv := range attrs {
		v, ok := set.Value(kv.Key)
		if !ok || v.Emit() != kv.Value.Emit() {
			return false
		}
	}
	return true
}

func TestTelemetry_OperationOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	f := newFixture(t, nil, WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))))
	f.addBorrower(t, 1, true)
	f.addBorrower(t, 2, true)
	title := f.addTitle(t, "Dune", 1)

	f.checkout(t, 1, title.ID)
	_, err := f.lending.Checkout(context.Background(), domain.CheckoutCommand{BorrowerID: 2, TitleID: title.ID})
	require.ErrorIs(t, err, domain.ErrNoCopyAvailable)
	_, err = f.lending.Checkout(context.Background(), domain.CheckoutCommand{})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	op := attribute.String("operation", opCheckout)
	assert.Equal(t, int64(1), counterValue(t, reader, OperationsMetric, op, attribute.String("outcome", OutcomeSuccess)))
	assert.Equal(t, int64(1), counterValue(t, reader, OperationsMetric, op, attribute.String("outcome", OutcomeRejected)))
	assert.Equal(t, int64(1), counterValue(t, reader, OperationsMetric, op, attribute.String("outcome", OutcomeInvalid)))
}

func TestTelemetry_RetriesAndNotifications(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	repo := &faultyRepo{lockConflicts: 2}
	f := newFixture(t, repo, WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))))
	repo.inner = f.store
	f.addBorrower(t, 1, true)
	f.addBorrower(t, 2, true)
	title := f.addTitle(t, "Dune", 1)

	loan := f.checkout(t, 1, title.ID)
	assert.Equal(t, int64(2), counterValue(t, reader, RetriesMetric, attribute.String("operation", opCheckout)))

	_, err := f.queue.Reserve(context.Background(), domain.ReserveCommand{BorrowerID: 2, TitleID: title.ID})
	require.NoError(t, err)
	f.notifier.failWith(errors.New("unreachable"))
	_, err = f.lending.Return(context.Background(), domain.ReturnCommand{BorrowerID: 1, CopyID: loan.CopyID})
	require.NoError(t, err)

	assert.Equal(t, int64(1), counterValue(t, reader, NotificationsMetric,
		attribute.String("kind", string(domain.NoticeReservationAvailable)),
		attribute.String("outcome", OutcomeError),
	))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Outcome(nil))
	assert.Equal(t, OutcomeInvalid, Outcome(domain.ErrInvalidArgument))
	assert.Equal(t, OutcomeRejected, Outcome(domain.ErrLoanOverdue))
	assert.Equal(t, OutcomeError, Outcome(errors.New("connection reset")))
}
