package tree

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	TreeStatsName = "xtree"
)

var (
	rotateLeftAttrs  = metric.WithAttributeSet(attribute.NewSet(attribute.String("xtree.rotation.dir", Left.String())))
	rotateRightAttrs = metric.WithAttributeSet(attribute.NewSet(attribute.String("xtree.rotation.dir", Right.String())))
)

func statsMeter(kind, name string, mp ...metric.MeterProvider) metric.Meter {
	meterName := fmt.Sprintf("%s/%s/%s", TreeStatsName, kind, name)
	if len(mp) > 0 && mp[0] != nil {
		return mp[0].Meter(meterName)
	}
	return otel.Meter(meterName)
}

type avlTreeStats struct {
	insertCount    metric.Int64Counter
	duplicateCount metric.Int64Counter
	rotationCount  metric.Int64Counter
	nodeCount      metric.Int64UpDownCounter
}

func (stats *avlTreeStats) IncreaseInsertCount() {
	if stats == nil {
		return
	}
	stats.insertCount.Add(context.Background(), 1)
	stats.nodeCount.Add(context.Background(), 1)
}

func (stats *avlTreeStats) IncreaseDuplicateCount() {
	if stats == nil {
		return
	}
	stats.duplicateCount.Add(context.Background(), 1)
}

func (stats *avlTreeStats) IncreaseRotationCount(dir Direction) {
	if stats == nil {
		return
	}
	switch dir {
	case Left:
		stats.rotationCount.Add(context.Background(), 1, rotateLeftAttrs)
	case Right:
		stats.rotationCount.Add(context.Background(), 1, rotateRightAttrs)
	default:
	}
}

func (stats *avlTreeStats) RecordNodeCount(delta int64) {
	if stats == nil {
		return
	}
	stats.nodeCount.Add(context.Background(), delta)
}

func newAVLTreeStats(name string, mp ...metric.MeterProvider) *avlTreeStats {
	meter := statsMeter("avl", name, mp...)
	return &avlTreeStats{
		insertCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xtree.avl.insert.count",
			metric.WithDescription("The number of values linked into the avl tree."),
		)),
		duplicateCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xtree.avl.duplicate.count",
			metric.WithDescription("The number of discarded duplicate values."),
		)),
		rotationCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xtree.avl.rotation.count",
			metric.WithDescription("The number of single rotations, a double rotation counts twice."),
		)),
		nodeCount: lo.Must[metric.Int64UpDownCounter](meter.Int64UpDownCounter(
			"xtree.avl.node.count",
			metric.WithDescription("The number of nodes in the avl tree."),
		)),
	}
}

type maxHeapStats struct {
	insertCount  metric.Int64Counter
	extractCount metric.Int64Counter
	siftSwaps    metric.Int64Histogram
	nodeCount    metric.Int64UpDownCounter
}

func (stats *maxHeapStats) IncreaseInsertCount(swaps int64) {
	if stats == nil {
		return
	}
	stats.insertCount.Add(context.Background(), 1)
	stats.nodeCount.Add(context.Background(), 1)
	stats.siftSwaps.Record(context.Background(), swaps)
}

func (stats *maxHeapStats) IncreaseExtractCount(swaps int64) {
	if stats == nil {
		return
	}
	stats.extractCount.Add(context.Background(), 1)
	stats.nodeCount.Add(context.Background(), -1)
	stats.siftSwaps.Record(context.Background(), swaps)
}

func (stats *maxHeapStats) RecordNodeCount(delta int64) {
	if stats == nil {
		return
	}
	stats.nodeCount.Add(context.Background(), delta)
}

func newMaxHeapStats(name string, mp ...metric.MeterProvider) *maxHeapStats {
	meter := statsMeter("heap", name, mp...)
	return &maxHeapStats{
		insertCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xtree.heap.insert.count",
			metric.WithDescription("The number of values pushed into the max-heap."),
		)),
		extractCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xtree.heap.extract.count",
			metric.WithDescription("The number of extracted max values."),
		)),
		siftSwaps: lo.Must[metric.Int64Histogram](meter.Int64Histogram(
			"xtree.heap.sift.swaps",
			metric.WithDescription("The value swaps of a single sift-up or sift-down."),
		)),
		nodeCount: lo.Must[metric.Int64UpDownCounter](meter.Int64UpDownCounter(
			"xtree.heap.node.count",
			metric.WithDescription("The number of nodes in the max-heap."),
		)),
	}
}
