package bufferpool

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/Blackdeer1524/HeapDB/src/pkg/utils"
)

// poolMetrics counts cache traffic. With no meter provider installed the
// global meter is a no-op.
type poolMetrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
}

func newPoolMetrics() *poolMetrics {
	meter := otel.Meter("github.com/Blackdeer1524/HeapDB/src/bufferpool")

	return &poolMetrics{
		hits: utils.Must(meter.Int64Counter(
			"bufferpool.hits",
			metric.WithDescription("pages served from the cache"),
		)),
		misses: utils.Must(meter.Int64Counter(
			"bufferpool.misses",
			metric.WithDescription("pages fetched from disk"),
		)),
		evictions: utils.Must(meter.Int64Counter(
			"bufferpool.evictions",
			metric.WithDescription("clean pages evicted to make room"),
		)),
	}
}

func (pm *poolMetrics) hit() {
	pm.hits.Add(context.Background(), 1)
}

func (pm *poolMetrics) miss() {
	pm.misses.Add(context.Background(), 1)
}

func (pm *poolMetrics) eviction() {
	pm.evictions.Add(context.Background(), 1)
}
