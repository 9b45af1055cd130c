package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the domain counters. All methods are safe on a nil receiver
// so components can run without metrics in tests.
type Metrics struct {
	expensesCreated metric.Int64Counter
	splitsSettled   metric.Int64Counter
	remindersSent   metric.Int64Counter
	remindersFailed metric.Int64Counter
	notifications   metric.Int64Counter
	dialogErrors    metric.Int64Counter
}

// NewMetrics registers the counters on the global meter provider.
// Instruments created before Setup are delegated to the real provider once it
// is installed.
func NewMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter(instrumentationName))
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m    Metrics
		errs []error
	)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}

	m.expensesCreated = counter("splitbot.expenses.created", "Expenses recorded")
	m.splitsSettled = counter("splitbot.splits.settled", "Splits moved from pending to paid")
	m.remindersSent = counter("splitbot.reminders.sent", "Reminder messages delivered")
	m.remindersFailed = counter("splitbot.reminders.failed", "Reminder messages that could not be delivered")
	m.notifications = counter("splitbot.notifications", "Participant notifications by outcome")
	m.dialogErrors = counter("splitbot.dialog.errors", "Dialog actions rejected")

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

// ExpenseCreated counts a newly written expense with its split count.
func (m *Metrics) ExpenseCreated(ctx context.Context, splits int) {
	if m == nil {
		return
	}
	m.expensesCreated.Add(ctx, 1, metric.WithAttributes(attribute.Int("splits", splits)))
}

// SplitSettled counts a pending to paid transition.
func (m *Metrics) SplitSettled(ctx context.Context) {
	if m == nil {
		return
	}
	m.splitsSettled.Add(ctx, 1)
}

// Reminders records the outcome of one reminder run.
func (m *Metrics) Reminders(ctx context.Context, sent, failed int) {
	if m == nil {
		return
	}
	m.remindersSent.Add(ctx, int64(sent))
	m.remindersFailed.Add(ctx, int64(failed))
}

// Notification counts one participant notification.
func (m *Metrics) Notification(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", ok)))
}

// DialogError counts a rejected dialog action by reason.
func (m *Metrics) DialogError(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.dialogErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
