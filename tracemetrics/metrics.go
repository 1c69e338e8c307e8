// Package tracemetrics provides the OpenTelemetry instruments for the
// fueled spine: merge throughput, fuel expenditure, pending-batch depth,
// and per-layer occupancy, plus the provider bootstrap that exports them
// over OTLP or scrapes them through a Prometheus registry.
package tracemetrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/tracelib"
	"github.com/Sumatoshi-tech/tracelib/pkg/safeconv"
	"github.com/Sumatoshi-tech/tracelib/spine"
	"github.com/Sumatoshi-tech/tracelib/tracelog"
)

const (
	metricBatchesInserted = "tracelib.batches.inserted.total"
	metricBatchUpdates    = "tracelib.batch.updates.total"
	metricMergesStarted   = "tracelib.merges.started.total"
	metricMergesCompleted = "tracelib.merges.completed.total"
	metricFuelSpent       = "tracelib.fuel.spent.total"
	metricPendingBatches  = "tracelib.batches.pending"
	metricLayerOccupancy  = "tracelib.layer.occupancy"

	attrOperator = "operator"
	attrScale    = "scale"
	attrLayer    = "layer"
	attrState    = "state"
)

// SpineMetrics holds the OTel instruments for one or more spine instances.
type SpineMetrics struct {
	batchesInserted metric.Int64Counter
	batchUpdates    metric.Int64Counter
	mergesStarted   metric.Int64Counter
	mergesCompleted metric.Int64Counter
	fuelSpent       metric.Int64Counter
	pendingBatches  metric.Int64UpDownCounter
}

// NewSpineMetrics creates the spine metric instruments from the given meter.
func NewSpineMetrics(mt metric.Meter) (*SpineMetrics, error) {
	inserted, err := mt.Int64Counter(metricBatchesInserted,
		metric.WithDescription("Total number of batches inserted into the spine"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBatchesInserted, err)
	}

	updates, err := mt.Int64Counter(metricBatchUpdates,
		metric.WithDescription("Total number of updates carried by inserted batches"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBatchUpdates, err)
	}

	started, err := mt.Int64Counter(metricMergesStarted,
		metric.WithDescription("Total number of layer merges initiated"),
		metric.WithUnit("{merge}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMergesStarted, err)
	}

	completed, err := mt.Int64Counter(metricMergesCompleted,
		metric.WithDescription("Total number of layer merges completed"),
		metric.WithUnit("{merge}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMergesCompleted, err)
	}

	fuel, err := mt.Int64Counter(metricFuelSpent,
		metric.WithDescription("Total merge fuel spent, in comparisons"),
		metric.WithUnit("{comparison}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFuelSpent, err)
	}

	pending, err := mt.Int64UpDownCounter(metricPendingBatches,
		metric.WithDescription("Number of batches pinned behind the distinguish frontier"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPendingBatches, err)
	}

	return &SpineMetrics{
		batchesInserted: inserted,
		batchUpdates:    updates,
		mergesStarted:   started,
		mergesCompleted: completed,
		fuelSpent:       fuel,
		pendingBatches:  pending,
	}, nil
}

// RecordBatch records the insertion of one batch.
func (sm *SpineMetrics) RecordBatch(ctx context.Context, ev tracelog.BatchEvent) {
	attrs := metric.WithAttributes(
		attribute.Int64(attrOperator, safeconv.SafeInt64(ev.Operator)),
	)

	sm.batchesInserted.Add(ctx, 1, attrs)
	sm.batchUpdates.Add(ctx, int64(ev.Length), attrs)
}

// RecordMerge records the initiation or completion of a layer merge.
func (sm *SpineMetrics) RecordMerge(ctx context.Context, ev tracelog.MergeEvent) {
	attrs := metric.WithAttributes(
		attribute.Int64(attrOperator, safeconv.SafeInt64(ev.Operator)),
		attribute.Int(attrScale, ev.Scale),
	)

	if ev.Complete {
		sm.mergesCompleted.Add(ctx, 1, attrs)
	} else {
		sm.mergesStarted.Add(ctx, 1, attrs)
	}
}

// RecordFuel records fuel spent on merge work. The embedding runtime calls
// this with the difference between granted and remaining fuel around
// ApplyFuel or Exert.
func (sm *SpineMetrics) RecordFuel(ctx context.Context, operator uint64, spent int64) {
	sm.fuelSpent.Add(ctx, spent, metric.WithAttributes(
		attribute.Int64(attrOperator, safeconv.SafeInt64(operator)),
	))
}

// TrackPending increments the pending-batch gauge and returns a function
// to decrement it once the batch clears the distinguish frontier.
func (sm *SpineMetrics) TrackPending(ctx context.Context, operator uint64) func() {
	attrs := metric.WithAttributes(
		attribute.Int64(attrOperator, safeconv.SafeInt64(operator)),
	)
	sm.pendingBatches.Add(ctx, 1, attrs)

	return func() {
		sm.pendingBatches.Add(ctx, -1, attrs)
	}
}

// RegisterLayerOccupancy registers an observable gauge reporting the
// accounted length of every spine layer, labeled by layer index and state.
// describe is polled at collection time; it is typically a bound
// Spine.Describe. The returned registration can be unregistered when the
// spine is dropped.
func RegisterLayerOccupancy(
	mt metric.Meter, operator uint64, describe func() []spine.LayerStat,
) (metric.Registration, error) {
	gauge, err := mt.Int64ObservableGauge(metricLayerOccupancy,
		metric.WithDescription("Accounted updates per spine layer"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricLayerOccupancy, err)
	}

	reg, err := mt.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		for i, stat := range describe() {
			obs.ObserveInt64(gauge, int64(stat.Len), metric.WithAttributes(
				attribute.Int64(attrOperator, safeconv.SafeInt64(operator)),
				attribute.Int(attrLayer, i),
				attribute.String(attrState, stat.State),
			))
		}

		return nil
	}, gauge)
	if err != nil {
		return nil, fmt.Errorf("register %s callback: %w", metricLayerOccupancy, err)
	}

	return reg, nil
}

// observedLogger tees spine events to an inner logger and to metrics.
type observedLogger struct {
	inner   tracelib.Logger
	metrics *SpineMetrics
}

// NewObservedLogger wraps inner so every BatchEvent and MergeEvent the
// spine emits is also counted by sm. inner may be nil, in which case
// events are counted but not logged.
func NewObservedLogger(inner tracelib.Logger, sm *SpineMetrics) tracelib.Logger {
	return &observedLogger{inner: inner, metrics: sm}
}

func (ol *observedLogger) LogBatch(ctx context.Context, ev tracelog.BatchEvent) {
	ol.metrics.RecordBatch(ctx, ev)

	if ol.inner != nil {
		ol.inner.LogBatch(ctx, ev)
	}
}

func (ol *observedLogger) LogMerge(ctx context.Context, ev tracelog.MergeEvent) {
	ol.metrics.RecordMerge(ctx, ev)

	if ol.inner != nil {
		ol.inner.LogMerge(ctx, ev)
	}
}
