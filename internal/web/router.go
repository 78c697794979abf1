// Package web serves the HTTP API next to the MCP transports: QR images, conversions,
// the tool catalogue, the sitemap and per-user history.
package web

import (
	"net/http"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/catalog"
	"github.com/devtoolshub/devtools-hub/internal/history"
	"github.com/devtoolshub/devtools-hub/internal/identity"
	"github.com/devtoolshub/devtools-hub/internal/qr"
	"github.com/devtoolshub/devtools-hub/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRequestTimeout bounds every /api request
const DefaultRequestTimeout = 30 * time.Second

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// Options configure NewRouter. Only Logger and Renderer are required.
type Options struct {
	Logger   *logrus.Logger
	Renderer *qr.Renderer
	// Resolver attaches the caller identity; nil leaves every request anonymous
	Resolver *identity.Resolver
	// Recorder stores history; nil answers the history endpoints with 503
	Recorder *history.Recorder

	SiteURL    string
	JSONIndent int
	QRDefaults qr.Options

	// RateLimit is the sustained requests per second per client IP; zero disables limiting
	RateLimit float64
	RateBurst int

	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP. Only set it when a
	// reverse proxy overwrites those headers; otherwise clients pick their own IP.
	TrustProxy bool

	// MCP is mounted at each of MCPPaths, outside the request timeout
	MCP      http.Handler
	MCPPaths []string
	// AuthToken, when set, protects the MCP paths with a bearer token
	AuthToken func(http.Handler) http.Handler

	Now func() time.Time
}

type handlers struct {
	opts Options
}

// NewRouter builds the HTTP handler
func NewRouter(opts Options) http.Handler {
	if opts.SiteURL == "" {
		opts.SiteURL = catalog.DefaultBaseURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &handlers{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	if opts.Resolver != nil {
		r.Use(opts.Resolver.Middleware)
	}

	r.Get("/sitemap.xml", h.sitemap)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(DefaultRequestTimeout))
		if opts.RateLimit > 0 {
			r.Use(newIPRateLimiter(opts.RateLimit, opts.RateBurst, opts.Logger).Middleware)
		}

		r.Get("/qr", h.qrImage)
		r.Post("/generate-qr", h.generateQR)
		r.Post("/convert", h.convert)
		r.Post("/save-data", h.saveData)
		r.Get("/get-data", h.getData)
		r.Get("/tools", h.listTools)
		r.Get("/tools/{slug}", h.tool)
	})

	if opts.MCP != nil {
		mcpHandler := opts.MCP
		if opts.AuthToken != nil {
			mcpHandler = opts.AuthToken(mcpHandler)
		}
		for _, path := range opts.MCPPaths {
			r.Handle(path, mcpHandler)
		}
	}

	return r
}

// requestLogger logs each request at debug level and wraps it in a span
func requestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := telemetry.GetTracer().Start(r.Context(), telemetry.SpanNameHTTPRequest,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String(telemetry.AttrHTTPMethod, r.Method),
					attribute.String(telemetry.AttrHTTPRoute, r.URL.Path),
				),
			)
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			span.SetAttributes(attribute.Int(telemetry.AttrHTTPStatus, status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}

			logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"url":        telemetry.SanitiseURL(r.URL.String()),
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(ctx),
			}).Debug("HTTP request")
		})
	}
}
