// Package observability provides comprehensive monitoring, tracing, and logging for respawn
package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global tracer instance
	tracer trace.Tracer

	// Global meter instance
	meter metric.Meter

	// Global logger instance
	logger *zap.Logger

	// Initialization lock
	initOnce sync.Once
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRate   float64
	ExporterType   string // "stdout"
	ExporterURL    string
	BatchTimeout   time.Duration
	MaxExportBatch int
	MaxQueueSize   int
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Namespace       string
	Subsystem       string
	PrometheusPush  bool
	PushGateway     string
	PushInterval    time.Duration
	HistogramBounds []float64
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       zapcore.Level
	Format      string // "json", "console"
	OutputPaths []string
	ErrorPaths  []string
	Sampling    *zap.SamplingConfig
	Development bool
}

// ObservabilityConfig contains all observability configuration
type ObservabilityConfig struct {
	Tracing TracingConfig
	Metrics MetricsConfig
	Logging LoggingConfig
}

// Initialize sets up the observability framework
func Initialize(config ObservabilityConfig) error {
	var err error

	initOnce.Do(func() {
		// Initialize tracing
		err = initTracing(config.Tracing)
		if err != nil {
			return
		}

		// Initialize metrics
		err = initMetrics(config.Metrics)
		if err != nil {
			return
		}

		// Initialize logging
		err = initLogging(config.Logging)
		if err != nil {
			return
		}

		// Set up global propagators
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	})

	return err
}

// GetTracer returns the global tracer
func GetTracer() trace.Tracer {
	return tracer
}

// GetMeter returns the global meter
func GetMeter() metric.Meter {
	return meter
}

// GetLogger returns the global logger. Before Initialize it falls back to
// the zap global, so constructors that attach component fields work in
// any initialization order.
func GetLogger() *zap.Logger {
	if logger == nil {
		return zap.L()
	}
	return logger
}

// activeTracer returns the initialized tracer, falling back to the global
// provider so spans work before Initialize.
func activeTracer() trace.Tracer {
	if tracer == nil {
		return otel.Tracer("respawn")
	}
	return tracer
}

// Span represents a tracing span with performance optimizations
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// NewSpan creates a new optimized span
func NewSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	ctx, span := activeTracer().Start(ctx, operationName)

	return ctx, &Span{
		span:      span,
		startTime: time.Now(),
	}
}

// SetAttribute adds an attribute to the span (batched for performance)
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetStatus sets the span status
func (s *Span) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

// End ends the span and records metrics
func (s *Span) End() {
	// Batch set attributes for performance
	if len(s.attributes) > 0 {
		s.span.SetAttributes(s.attributes...)
	}

	// Record duration metric
	duration := time.Since(s.startTime)
	RecordDuration("span_duration", duration, map[string]string{
		"operation": s.span.SpanContext().SpanID().String(),
	})

	s.span.End()
}

// PoolTracer provides pooling-specific tracing utilities
type PoolTracer struct {
	component string
	name      string
	tracer    trace.Tracer
}

// NewPoolTracer creates a new pool tracer
func NewPoolTracer(component, name string) *PoolTracer {
	return &PoolTracer{
		component: component,
		name:      name,
		tracer:    activeTracer(),
	}
}

// StartSpan starts a component-specific span
func (pt *PoolTracer) StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	operationName := fmt.Sprintf("%s.%s.%s", pt.component, pt.name, operation)
	ctx, span := NewSpan(ctx, operationName)

	// Add component-specific attributes
	span.SetAttribute("pool.component", pt.component)
	span.SetAttribute("pool.name", pt.name)
	span.SetAttribute("pool.operation", operation)

	return ctx, span
}

// TraceSpawn traces a single spawn or release cycle
func (pt *PoolTracer) TraceSpawn(ctx context.Context, key string, operation string, fn func() error) error {
	ctx, span := pt.StartSpan(ctx, operation)
	defer span.End()

	span.SetAttribute("spawn.key", key)
	span.SetAttribute("spawn.operation", operation)

	start := time.Now()
	err := fn()
	duration := time.Since(start)

	// Record metrics
	RecordDuration("spawn_cycle_duration", duration, map[string]string{
		"component": pt.component,
		"name":      pt.name,
		"operation": operation,
		"status":    getStatus(err),
	})

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttribute("error", true)
		span.SetAttribute("error.message", err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return err
}

// TraceBatch traces a batched operation such as a warmup or replay window
func (pt *PoolTracer) TraceBatch(ctx context.Context, batchSize int, operation string, fn func() error) error {
	ctx, span := pt.StartSpan(ctx, operation)
	defer span.End()

	span.SetAttribute("batch.size", batchSize)
	span.SetAttribute("batch.operation", operation)

	start := time.Now()
	err := fn()
	duration := time.Since(start)

	// Calculate throughput
	throughput := float64(batchSize) / duration.Seconds()

	// Record metrics
	RecordDuration("batch_duration", duration, map[string]string{
		"component": pt.component,
		"name":      pt.name,
		"operation": operation,
		"status":    getStatus(err),
	})

	RecordGauge("batch_throughput", throughput, map[string]string{
		"component": pt.component,
		"name":      pt.name,
		"operation": operation,
	})

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttribute("error", true)
		span.SetAttribute("error.message", err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttribute("batch.throughput", throughput)
	}

	return err
}

// getStatus returns status string for metrics
func getStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
