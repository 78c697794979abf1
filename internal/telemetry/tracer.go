// Package telemetry wires OpenTelemetry tracing for tool calls and HTTP requests.
package telemetry

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	tracerName         = "devtools-hub"
	defaultServiceName = "devtools-hub"

	// Span attribute size limits
	defaultMaxAttributeSize = 4096
	minAttributeSize        = 1024
	maxAttributeSize        = 65536
)

// Span and attribute names shared by the server and web surfaces.
const (
	SpanNameToolExecute = "devtools.tool.execute"
	SpanNameHTTPRequest = "devtools.http.request"

	AttrToolName      = "devtools.tool.name"
	AttrToolArguments = "devtools.tool.arguments"
	AttrToolTruncated = "devtools.tool.arguments.truncated"
	AttrToolSuccess   = "devtools.tool.result.success"
	AttrToolError     = "devtools.tool.result.error"
	AttrSessionID     = "devtools.session.id"
	AttrTransport     = "devtools.transport"
	AttrHTTPRoute     = "http.route"
	AttrHTTPMethod    = "http.method"
	AttrHTTPStatus    = "http.status_code"
)

type contextKey string

const sessionIDKey contextKey = "devtools.session.id"

// tracerState is the process-wide tracing setup guarded by mu
type tracerState struct {
	mu       sync.RWMutex
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	skip     map[string]bool
}

var state tracerState

func (s *tracerState) useNoop() {
	s.tracer = noop.NewTracerProvider().Tracer(tracerName)
	s.provider = nil
}

type logErrorHandler struct {
	logger *logrus.Logger
}

// Handle sends SDK export errors to the log file; stdio must stay clean
func (h logErrorHandler) Handle(err error) {
	if err != nil {
		h.logger.WithError(err).Debug("otel sdk error")
	}
}

// InitTracer installs a tracer provider exporting over OTLP/HTTP when
// OTEL_EXPORTER_OTLP_ENDPOINT is set, and a noop tracer otherwise.
// The returned shutdown function is never nil.
func InitTracer(logger *logrus.Logger, version string) (func() error, error) {
	state.mu.Lock()
	defer state.mu.Unlock()

	nothing := func() error { return nil }
	state.skip = tracingSkipList()

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	switch {
	case strings.EqualFold(os.Getenv("OTEL_SDK_DISABLED"), "true"):
		logger.Debug("tracing disabled by OTEL_SDK_DISABLED")
		state.useNoop()
		return nothing, nil
	case endpoint == "":
		state.useNoop()
		return nothing, nil
	}

	if proto := os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"); proto != "" && !strings.HasPrefix(proto, "http") {
		logger.WithField("protocol", proto).Warn("Only http/protobuf OTLP export is available, ignoring protocol")
	}
	otel.SetErrorHandler(logErrorHandler{logger: logger})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		state.useNoop()
		return nothing, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(envOr("OTEL_SERVICE_NAME", defaultServiceName)),
			semconv.ServiceVersionKey.String(version),
			attribute.String("deployment.environment", deploymentEnvironment()),
		),
	)
	if err != nil {
		logger.WithError(err).Warn("Falling back to the default trace resource")
		res = resource.Default()
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFromEnv(logger)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	state.provider = provider
	state.tracer = provider.Tracer(tracerName)
	logger.WithField("endpoint", endpoint).Info("Tracing enabled")

	return func() error {
		state.mu.Lock()
		defer state.mu.Unlock()
		if state.provider == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := state.provider.Shutdown(ctx)
		state.useNoop()
		if err != nil {
			return fmt.Errorf("shutdown tracer provider: %w", err)
		}
		return nil
	}, nil
}

// GetTracer returns the active tracer; before InitTracer that is a noop tracer
func GetTracer() trace.Tracer {
	state.mu.RLock()
	defer state.mu.RUnlock()
	if state.tracer == nil {
		return noop.NewTracerProvider().Tracer(tracerName)
	}
	return state.tracer
}

// IsEnabled reports whether spans leave the process
func IsEnabled() bool {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.provider != nil
}

// IsToolTracingDisabled reports whether DEVTOOLS_TRACING_DISABLED_TOOLS lists the tool
func IsToolTracingDisabled(toolName string) bool {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.skip[toolName]
}

func GenerateSessionID() string {
	return uuid.NewString()
}

func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// StartToolSpan opens a span for one tool call; close it with EndToolSpan.
// Arguments are sanitised and cut to DEVTOOLS_TRACING_MAX_ATTRIBUTE_SIZE.
func StartToolSpan(ctx context.Context, toolName string, args map[string]any) (context.Context, trace.Span) {
	if !IsEnabled() || IsToolTracingDisabled(toolName) {
		return ctx, trace.SpanFromContext(ctx)
	}

	attrs := []attribute.KeyValue{attribute.String(AttrToolName, toolName)}
	if id := SessionIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String(AttrSessionID, id))
	}
	argText := SanitiseArguments(args)
	if limit := maxAttributeSizeFromEnv(); len(argText) > limit {
		argText = TruncateString(argText, limit)
		attrs = append(attrs, attribute.Bool(AttrToolTruncated, true))
	}
	attrs = append(attrs, attribute.String(AttrToolArguments, argText))

	return GetTracer().Start(ctx, SpanNameToolExecute,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

func EndToolSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	defer span.End()

	if err == nil {
		span.SetAttributes(attribute.Bool(AttrToolSuccess, true))
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetAttributes(attribute.Bool(AttrToolSuccess, false), attribute.String(AttrToolError, err.Error()))
	span.SetStatus(codes.Error, err.Error())
}

func tracingSkipList() map[string]bool {
	skip := map[string]bool{}
	for _, name := range strings.Split(os.Getenv("DEVTOOLS_TRACING_DISABLED_TOOLS"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			skip[name] = true
		}
	}
	return skip
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// deploymentEnvironment checks the usual env vars, then OTEL_RESOURCE_ATTRIBUTES
func deploymentEnvironment() string {
	if env := cmp.Or(os.Getenv("ENVIRONMENT"), os.Getenv("ENV"), os.Getenv("DEPLOYMENT_ENV")); env != "" {
		return env
	}
	for _, attr := range strings.Split(os.Getenv("OTEL_RESOURCE_ATTRIBUTES"), ",") {
		if key, value, ok := strings.Cut(attr, "="); ok && strings.TrimSpace(key) == "deployment.environment" {
			return strings.TrimSpace(value)
		}
	}
	return "development"
}

func samplerFromEnv(logger *logrus.Logger) sdktrace.Sampler {
	ratio := parseRatio(os.Getenv("OTEL_TRACES_SAMPLER_ARG"), 1)
	samplers := map[string]sdktrace.Sampler{
		"":                         sdktrace.AlwaysSample(),
		"always_on":                sdktrace.AlwaysSample(),
		"always_off":               sdktrace.NeverSample(),
		"traceidratio":             sdktrace.TraceIDRatioBased(ratio),
		"parentbased_always_on":    sdktrace.ParentBased(sdktrace.AlwaysSample()),
		"parentbased_always_off":   sdktrace.ParentBased(sdktrace.NeverSample()),
		"parentbased_traceidratio": sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio)),
	}
	name := os.Getenv("OTEL_TRACES_SAMPLER")
	if sampler, ok := samplers[name]; ok {
		return sampler
	}
	logger.WithField("sampler", name).Warn("Unknown OTEL_TRACES_SAMPLER, sampling everything")
	return sdktrace.AlwaysSample()
}

// parseRatio reads a sampling ratio, clamped to [0, 1]
func parseRatio(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return min(max(f, 0), 1)
}

func maxAttributeSizeFromEnv() int {
	size, err := strconv.Atoi(os.Getenv("DEVTOOLS_TRACING_MAX_ATTRIBUTE_SIZE"))
	if err != nil {
		return defaultMaxAttributeSize
	}
	return min(max(size, minAttributeSize), maxAttributeSize)
}
