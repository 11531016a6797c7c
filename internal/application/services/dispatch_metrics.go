package services

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type dispatchInstruments struct {
	alertsRaised     metric.Int64Counter
	alertsCancelled  metric.Int64Counter
	fanoutSize       metric.Int64Histogram
	responses        metric.Int64Counter
	snapshotFailures metric.Int64Counter
}

var (
	dispatchMetrics     dispatchInstruments
	dispatchMetricsOnce sync.Once
	dispatchMetricsInit bool
)

func ensureDispatchMetrics() {
	dispatchMetricsOnce.Do(func() {
		meter := otel.Meter("github.com/zatekoja/firstresponder/backend/dispatch")

		alertsRaised, err := meter.Int64Counter(
			"dispatch.alerts.raised",
			metric.WithDescription("Number of SOS alerts raised"),
		)
		if err != nil {
			return
		}
		alertsCancelled, err := meter.Int64Counter(
			"dispatch.alerts.cancelled",
			metric.WithDescription("Number of SOS alerts cancelled"),
		)
		if err != nil {
			return
		}
		fanoutSize, err := meter.Int64Histogram(
			"dispatch.fanout.size",
			metric.WithDescription("Responders notified per alert"),
		)
		if err != nil {
			return
		}
		responses, err := meter.Int64Counter(
			"dispatch.responses.recorded",
			metric.WithDescription("Responder decisions recorded"),
		)
		if err != nil {
			return
		}
		snapshotFailures, err := meter.Int64Counter(
			"dispatch.snapshot.degraded",
			metric.WithDescription("Alert views served from placeholders because the store failed"),
		)
		if err != nil {
			return
		}

		dispatchMetrics = dispatchInstruments{
			alertsRaised:     alertsRaised,
			alertsCancelled:  alertsCancelled,
			fanoutSize:       fanoutSize,
			responses:        responses,
			snapshotFailures: snapshotFailures,
		}
		dispatchMetricsInit = true
	})
}

func recordAlertRaised(ctx context.Context, simulated bool) {
	ensureDispatchMetrics()
	if !dispatchMetricsInit {
		return
	}
	dispatchMetrics.alertsRaised.Add(ctx, 1, metric.WithAttributes(attribute.Bool("dispatch.simulated", simulated)))
}

func recordAlertCancelled(ctx context.Context, changed bool) {
	ensureDispatchMetrics()
	if !dispatchMetricsInit {
		return
	}
	dispatchMetrics.alertsCancelled.Add(ctx, 1, metric.WithAttributes(attribute.Bool("dispatch.changed", changed)))
}

func recordFanout(ctx context.Context, notified int) {
	ensureDispatchMetrics()
	if !dispatchMetricsInit {
		return
	}
	dispatchMetrics.fanoutSize.Record(ctx, int64(notified))
}

func recordResponse(ctx context.Context, decision string) {
	ensureDispatchMetrics()
	if !dispatchMetricsInit {
		return
	}
	dispatchMetrics.responses.Add(ctx, 1, metric.WithAttributes(attribute.String("dispatch.decision", decision)))
}

func recordDegradedSnapshot(ctx context.Context) {
	ensureDispatchMetrics()
	if !dispatchMetricsInit {
		return
	}
	dispatchMetrics.snapshotFailures.Add(ctx, 1)
}
