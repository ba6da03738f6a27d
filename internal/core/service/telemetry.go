package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/lending-engine/internal/core/domain"
)

const instrumentationName = "github.com/rl1809/lending-engine/internal/core/service"

const (
	// OperationsMetric counts lending operations by operation and outcome.
	OperationsMetric = "lending_operations_total"

	// NotificationsMetric counts notice hand-offs by kind and outcome.
	NotificationsMetric = "lending_notifications_total"

	// RetriesMetric counts unit-of-work retries after optimistic lock conflicts.
	RetriesMetric = "lending_retries_total"

	// OverdueLoansMetric counts overdue loans seen by sweeps.
	OverdueLoansMetric = "lending_sweep_overdue_loans_total"
)

const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

const (
	opCheckout = "checkout"
	opRenew    = "renew"
	opReturn   = "return"
	opReserve  = "reserve"
	opSweep    = "sweep"
)

type telemetry struct {
	tracer        trace.Tracer
	operations    metric.Int64Counter
	notifications metric.Int64Counter
	retries       metric.Int64Counter
	overdue       metric.Int64Counter
}

func newTelemetry(o options) *telemetry {
	meter := o.meterProvider.Meter(instrumentationName)
	t := &telemetry{tracer: o.tracerProvider.Tracer(instrumentationName)}

	// Instrument creation only fails on invalid names, all of which are constants here.
	t.operations, _ = meter.Int64Counter(OperationsMetric,
		metric.WithDescription("Lending operations by operation and outcome"))
	t.notifications, _ = meter.Int64Counter(NotificationsMetric,
		metric.WithDescription("Notices handed to the notifier by kind and outcome"))
	t.retries, _ = meter.Int64Counter(RetriesMetric,
		metric.WithDescription("Unit-of-work retries after optimistic lock conflicts"))
	t.overdue, _ = meter.Int64Counter(OverdueLoansMetric,
		metric.WithDescription("Overdue loans found by sweeps"))
	return t
}

func (t *telemetry) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "lending."+op)
}

func (t *telemetry) end(ctx context.Context, span trace.Span, op string, err error) {
	defer span.End()

	outcome := Outcome(err)
	t.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
	if err != nil {
		span.RecordError(err)
		if outcome == OutcomeError {
			span.SetStatus(codes.Error, err.Error())
		}
	}
}

func (t *telemetry) recordNotification(ctx context.Context, kind domain.NoticeKind, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	t.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("outcome", outcome),
	))
}

func (t *telemetry) retryObserver(ctx context.Context, op string) RetryOption {
	return withRetryObserver(func(int, error) {
		t.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	})
}

var rejections = []error{
	domain.ErrMembershipInactive,
	domain.ErrBorrowerNotFound,
	domain.ErrTitleNotFound,
	domain.ErrCopyNotFound,
	domain.ErrNoCopyAvailable,
	domain.ErrBorrowLimitExceeded,
	domain.ErrDuplicateActiveLoan,
	domain.ErrLoanNotFound,
	domain.ErrLoanOverdue,
	domain.ErrNoOpenLoan,
	domain.ErrCopiesAvailable,
	domain.ErrDuplicateReservation,
	domain.ErrTitleHasLoans,
	domain.ErrDuplicateRequest,
}

// IsRejection reports whether err is a precondition failure rather than an infrastructure error.
func IsRejection(err error) bool {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Outcome classifies err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrInvalidArgument):
		return OutcomeInvalid
	case IsRejection(err):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
