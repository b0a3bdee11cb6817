package task

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/trezcool/kazi/core/task"

var (
	tracer = otel.Tracer(instrumentationName)

	tasksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kazi",
		Name:      "tasks_created_total",
		Help:      "Tasks created and fully fanned out, by kind.",
	}, []string{"kind"})

	fanoutRecipients = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kazi",
		Name:      "fanout_recipients",
		Help:      "Number of deliveries materialized per task.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	fanoutCompensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kazi",
		Name:      "fanout_compensations_total",
		Help:      "Compensating actions run after a failed fan-out, by step and outcome.",
	}, []string{"step", "outcome"})

	deliveryTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kazi",
		Name:      "delivery_transitions_total",
		Help:      "Delivery status changes, by source and target status.",
	}, []string{"from", "to"})
)

func observeCompensation(step string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	fanoutCompensations.WithLabelValues(step, outcome).Inc()
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err (if any) on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
