package observability

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	// Component-specific metrics
	componentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "respawn",
			Subsystem: "component",
			Name:      "operation_duration_seconds",
			Help:      "Duration of component operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"component", "name", "operation", "status"},
	)

	componentThroughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "respawn",
			Subsystem: "component",
			Name:      "throughput_ops_per_second",
			Help:      "Current throughput in operations per second",
		},
		[]string{"component", "name", "operation"},
	)

	componentOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "respawn",
			Subsystem: "component",
			Name:      "operations_total",
			Help:      "Total number of operations performed",
		},
		[]string{"component", "name", "operation", "status"},
	)

	componentBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "respawn",
			Subsystem: "component",
			Name:      "batch_size",
			Help:      "Size of batches processed",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000},
		},
		[]string{"component", "name", "operation"},
	)

	componentErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "respawn",
			Subsystem: "component",
			Name:      "errors_total",
			Help:      "Total number of component errors",
		},
		[]string{"component", "name", "operation", "error_type"},
	)

	componentInstances = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "respawn",
			Subsystem: "component",
			Name:      "active_instances",
			Help:      "Number of live instances held by a component",
		},
		[]string{"component", "name"},
	)

	// General metrics
	generalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "respawn",
			Subsystem: "observability",
			Name:      "operation_duration_seconds",
			Help:      "Duration of operations in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"operation", "component", "status"},
	)

	generalGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "respawn",
			Subsystem: "observability",
			Name:      "gauge_value",
			Help:      "General gauge values",
		},
		[]string{"metric", "component"},
	)
)

// MetricsCollector provides high-performance metrics collection
type MetricsCollector struct {
	component string
	name      string
	mutex     sync.RWMutex

	// Cached label values for performance
	labelCache map[string][]string
}

// NewMetricsCollector creates a new metrics collector for a component
func NewMetricsCollector(component, name string) *MetricsCollector {
	return &MetricsCollector{
		component:  component,
		name:       name,
		labelCache: make(map[string][]string),
	}
}

// RecordDuration records a duration metric with labels
func (mc *MetricsCollector) RecordDuration(operation string, duration time.Duration, status string) {
	labels := mc.getLabels(operation, status)
	componentDuration.WithLabelValues(labels...).Observe(duration.Seconds())
}

// RecordThroughput records a throughput metric
func (mc *MetricsCollector) RecordThroughput(operation string, opsPerSecond float64) {
	componentThroughput.WithLabelValues(mc.component, mc.name, operation).Set(opsPerSecond)
}

// RecordOperations increments the operations counter
func (mc *MetricsCollector) RecordOperations(operation string, count int, status string) {
	componentOperations.WithLabelValues(mc.component, mc.name, operation, status).Add(float64(count))
}

// RecordBatchSize records the size of a processed batch
func (mc *MetricsCollector) RecordBatchSize(operation string, size int) {
	componentBatchSize.WithLabelValues(mc.component, mc.name, operation).Observe(float64(size))
}

// RecordError increments the error counter
func (mc *MetricsCollector) RecordError(operation string, errorType string) {
	componentErrors.WithLabelValues(mc.component, mc.name, operation, errorType).Inc()
}

// SetActiveInstances sets the number of live instances
func (mc *MetricsCollector) SetActiveInstances(count int) {
	componentInstances.WithLabelValues(mc.component, mc.name).Set(float64(count))
}

// getLabels returns cached label values for performance
func (mc *MetricsCollector) getLabels(operation, status string) []string {
	key := operation + ":" + status

	mc.mutex.RLock()
	if labels, exists := mc.labelCache[key]; exists {
		mc.mutex.RUnlock()
		return labels
	}
	mc.mutex.RUnlock()

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	// Double-check after acquiring write lock
	if labels, exists := mc.labelCache[key]; exists {
		return labels
	}

	labels := []string{mc.component, mc.name, operation, status}
	mc.labelCache[key] = labels
	return labels
}

// RecordDuration records a general duration metric (used by tracing.go)
func RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	// Convert labels map to slice
	labelValues := make([]string, 0, len(labels))

	// Fixed order: operation, component, status
	operation := labels["operation"]
	if operation == "" {
		operation = metricName
	}

	component := labels["component"]
	if component == "" {
		component = "unknown"
	}

	status := labels["status"]
	if status == "" {
		status = "unknown"
	}

	labelValues = append(labelValues, operation, component, status)

	generalDuration.WithLabelValues(labelValues...).Observe(duration.Seconds())
}

// RecordGauge records a general gauge metric (used by tracing.go)
func RecordGauge(metricName string, value float64, labels map[string]string) {
	// Convert labels map to slice
	labelValues := make([]string, 0, 2)

	// Fixed order: metric, component
	metric := metricName
	component := labels["component"]
	if component == "" {
		component = "unknown"
	}

	labelValues = append(labelValues, metric, component)

	generalGauge.WithLabelValues(labelValues...).Set(value)
}

// PerformanceTracker tracks performance metrics over time
type PerformanceTracker struct {
	collector  *MetricsCollector
	operation  string
	startTime  time.Time
	opsStart   int64 //nolint:unused // Reserved for baseline performance tracking
	opsCurrent int64
	errors     int64
	mutex      sync.RWMutex
}

// NewPerformanceTracker creates a new performance tracker
func NewPerformanceTracker(collector *MetricsCollector, operation string) *PerformanceTracker {
	return &PerformanceTracker{
		collector: collector,
		operation: operation,
		startTime: time.Now(),
	}
}

// RecordProcessed increments the processed operation count
func (pt *PerformanceTracker) RecordProcessed(count int) {
	pt.mutex.Lock()
	pt.opsCurrent += int64(count)
	pt.mutex.Unlock()

	pt.collector.RecordOperations(pt.operation, count, "success")
}

// RecordError increments the error count
func (pt *PerformanceTracker) RecordError(errorType string) {
	pt.mutex.Lock()
	pt.errors++
	pt.mutex.Unlock()

	pt.collector.RecordError(pt.operation, errorType)
}

// GetCurrentThroughput calculates and returns current throughput
func (pt *PerformanceTracker) GetCurrentThroughput() float64 {
	pt.mutex.RLock()
	elapsed := time.Since(pt.startTime).Seconds()
	ops := pt.opsCurrent
	pt.mutex.RUnlock()

	if elapsed == 0 {
		return 0
	}

	throughput := float64(ops) / elapsed
	pt.collector.RecordThroughput(pt.operation, throughput)

	return throughput
}

// GetStats returns current performance statistics
func (pt *PerformanceTracker) GetStats() PerformanceStats {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	elapsed := time.Since(pt.startTime)
	throughput := float64(pt.opsCurrent) / elapsed.Seconds()

	return PerformanceStats{
		Operation:  pt.operation,
		Duration:   elapsed,
		Operations: pt.opsCurrent,
		Throughput: throughput,
		Errors:     pt.errors,
		ErrorRate:  float64(pt.errors) / float64(pt.opsCurrent),
	}
}

// PerformanceStats contains performance statistics
type PerformanceStats struct {
	Operation  string
	Duration   time.Duration
	Operations int64
	Throughput float64
	Errors     int64
	ErrorRate  float64
}

// LogStats logs the performance statistics
func (ps PerformanceStats) LogStats(logger *zap.Logger) {
	logger.Info("performance stats",
		zap.String("operation", ps.Operation),
		zap.Duration("duration", ps.Duration),
		zap.Int64("operations", ps.Operations),
		zap.Float64("throughput_ops", ps.Throughput),
		zap.Int64("errors", ps.Errors),
		zap.Float64("error_rate", ps.ErrorRate),
	)
}

// ComponentMetrics provides a unified interface for component metrics
type ComponentMetrics struct {
	Collector *MetricsCollector
	Tracer    *PoolTracer
	Logger    *zap.Logger
}

// NewComponentMetrics creates a unified metrics interface for a component
func NewComponentMetrics(component, name string) *ComponentMetrics {
	return &ComponentMetrics{
		Collector: NewMetricsCollector(component, name),
		Tracer:    NewPoolTracer(component, name),
		Logger: GetLogger().With(
			zap.String("component", component),
			zap.String("name", name),
		),
	}
}

// TrackOperation provides a convenient way to track an operation with metrics and tracing
func (cm *ComponentMetrics) TrackOperation(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()

	// Start tracing
	ctx, span := cm.Tracer.StartSpan(ctx, operation)
	defer span.End()

	// Execute operation
	err := fn()

	// Record metrics
	duration := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
		cm.Collector.RecordError(operation, "execution_error")
		span.SetAttribute("error", true)
		span.SetAttribute("error.message", err.Error())
	}

	cm.Collector.RecordDuration(operation, duration, status)

	// Log result
	if err != nil {
		cm.Logger.Error("operation failed",
			zap.String("operation", operation),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	} else {
		cm.Logger.Debug("operation completed",
			zap.String("operation", operation),
			zap.Duration("duration", duration),
		)
	}

	return err
}

// ScenarioMetrics provides metrics for scenario runs
type ScenarioMetrics struct {
	Collector *MetricsCollector
	Logger    *zap.Logger

	// Counters
	spawned   int64
	released  int64
	prewarmed int64
	errors    int64

	// Timing
	startTime  time.Time
	lastUpdate time.Time

	// Mutex for thread safety
	mu sync.RWMutex
}

// NewScenarioMetrics creates a new scenario metrics tracker
func NewScenarioMetrics(scenarioName string) *ScenarioMetrics {
	return &ScenarioMetrics{
		Collector:  NewMetricsCollector("scenario", scenarioName),
		Logger:     GetLogger().With(zap.String("scenario", scenarioName)),
		startTime:  time.Now(),
		lastUpdate: time.Now(),
	}
}

// RecordSpawned increments the spawned instance counter
func (sm *ScenarioMetrics) RecordSpawned() {
	sm.mu.Lock()
	sm.spawned++
	sm.lastUpdate = time.Now()
	sm.mu.Unlock()

	sm.Collector.RecordOperations("spawn", 1, "success")
}

// RecordReleased increments the released instance counter
func (sm *ScenarioMetrics) RecordReleased() {
	sm.mu.Lock()
	sm.released++
	sm.lastUpdate = time.Now()
	sm.mu.Unlock()

	sm.Collector.RecordOperations("release", 1, "success")
}

// RecordPrewarmed increments the prewarmed instance counter
func (sm *ScenarioMetrics) RecordPrewarmed(count int) {
	sm.mu.Lock()
	sm.prewarmed += int64(count)
	sm.lastUpdate = time.Now()
	sm.mu.Unlock()

	sm.Collector.RecordOperations("prewarm", count, "success")
	sm.Collector.RecordBatchSize("prewarm", count)
}

// RecordError increments the error counter
func (sm *ScenarioMetrics) RecordError(operation, errorType string) {
	sm.mu.Lock()
	sm.errors++
	sm.lastUpdate = time.Now()
	sm.mu.Unlock()

	sm.Collector.RecordError(operation, errorType)
}

// GetStats returns current scenario statistics
func (sm *ScenarioMetrics) GetStats() map[string]interface{} {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	elapsed := time.Since(sm.startTime)
	throughput := float64(sm.spawned) / elapsed.Seconds()

	return map[string]interface{}{
		"spawned":         sm.spawned,
		"released":        sm.released,
		"prewarmed":       sm.prewarmed,
		"errors":          sm.errors,
		"elapsed_seconds": elapsed.Seconds(),
		"throughput_ops":  throughput,
		"last_update":     sm.lastUpdate,
	}
}
