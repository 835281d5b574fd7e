// Package metrics defines the queue engine's OpenTelemetry instruments.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Basantgrg924/QueueSystem/pkg/telemetry"
)

// Metrics holds the engine's instruments. A nil *Metrics is safe to use;
// every method is a no-op on nil so tests and disabled deployments can
// pass nothing.
type Metrics struct {
	tokensIssued        *telemetry.Counter
	admissionRejected   *telemetry.Counter
	transitions         *telemetry.Counter
	allocationConflicts *telemetry.Counter
	reconcileDrift      *telemetry.Counter
	admissionDuration   *telemetry.Histogram
	queueDepth          *telemetry.UpDownCounter
}

// New creates the engine's metric instruments
func New() (*Metrics, error) {
	tokensIssued, err := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "queue_tokens_issued_total",
		Description: "Tokens issued, by queue",
	})
	if err != nil {
		return nil, err
	}
	admissionRejected, err := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "queue_admission_rejected_total",
		Description: "Admissions rejected, by cause",
	})
	if err != nil {
		return nil, err
	}
	transitions, err := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "queue_token_transitions_total",
		Description: "Token status transitions, by target status",
	})
	if err != nil {
		return nil, err
	}
	allocationConflicts, err := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "queue_allocation_conflicts_total",
		Description: "Token number allocation conflicts that triggered a retry",
	})
	if err != nil {
		return nil, err
	}
	reconcileDrift, err := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "queue_reconcile_drift_total",
		Description: "Occupancy reconciliations that corrected a drifted count",
	})
	if err != nil {
		return nil, err
	}
	admissionDuration, err := telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "queue_admission_duration_seconds",
		Description: "Admission latency in seconds",
		Unit:        "s",
	})
	if err != nil {
		return nil, err
	}
	queueDepth, err := telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "queue_depth",
		Description: "Active tokens per queue",
	})
	if err != nil {
		return nil, err
	}

	return &Metrics{
		tokensIssued:        tokensIssued,
		admissionRejected:   admissionRejected,
		transitions:         transitions,
		allocationConflicts: allocationConflicts,
		reconcileDrift:      reconcileDrift,
		admissionDuration:   admissionDuration,
		queueDepth:          queueDepth,
	}, nil
}

func (m *Metrics) TokenIssued(ctx context.Context, queueID string) {
	if m == nil {
		return
	}
	m.tokensIssued.Inc(ctx, attribute.String("queue_id", queueID))
}

func (m *Metrics) AdmissionRejected(ctx context.Context, queueID, cause string) {
	if m == nil {
		return
	}
	m.admissionRejected.Inc(ctx,
		attribute.String("queue_id", queueID),
		attribute.String("cause", cause),
	)
}

func (m *Metrics) Transition(ctx context.Context, queueID, target string) {
	if m == nil {
		return
	}
	m.transitions.Inc(ctx,
		attribute.String("queue_id", queueID),
		attribute.String("target", target),
	)
}

func (m *Metrics) AllocationConflict(ctx context.Context, queueID string) {
	if m == nil {
		return
	}
	m.allocationConflicts.Inc(ctx, attribute.String("queue_id", queueID))
}

func (m *Metrics) ReconcileDrift(ctx context.Context, queueID string) {
	if m == nil {
		return
	}
	m.reconcileDrift.Inc(ctx, attribute.String("queue_id", queueID))
}

func (m *Metrics) AdmissionObserved(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.admissionDuration.Record(ctx, seconds)
}

func (m *Metrics) QueueDepthChanged(ctx context.Context, queueID string, delta int64) {
	if m == nil {
		return
	}
	m.queueDepth.Add(ctx, delta, attribute.String("queue_id", queueID))
}
