package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/identity"
	"github.com/devtoolshub/devtools-hub/internal/telemetry"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

// Transport names accepted by --transport
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
	TransportHTTP  = "http"
)

// SSE endpoint paths, relative to the server root
const (
	SSEPath     = "/sse"
	MessagePath = "/message"
)

// HTTPOptions configures the network transports
type HTTPOptions struct {
	BaseURL        string
	Port           string
	EndpointPath   string
	SessionTimeout time.Duration
	Resolver       *identity.Resolver
}

// ServeStdio serves srv on stdin/stdout until the input closes or the process is
// signalled. Every call carries the static identity, if one is configured.
func ServeStdio(srv *mcpserver.MCPServer, resolver *identity.Resolver, logger *logrus.Logger) error {
	sessionID := telemetry.GenerateSessionID()
	logger.WithField("session", sessionID).Debug("Starting stdio server")

	return mcpserver.ServeStdio(srv,
		mcpserver.WithErrorLogger(log.New(logger.WriterLevel(logrus.ErrorLevel), "", 0)),
		mcpserver.WithStdioContextFunc(func(ctx context.Context) context.Context {
			ctx = telemetry.ContextWithSessionID(ctx, sessionID)
			return resolver.Static(ctx)
		}),
	)
}

// NewSSEHandler returns the legacy SSE transport. It answers on SSEPath and MessagePath.
func NewSSEHandler(srv *mcpserver.MCPServer, opts HTTPOptions, logger *logrus.Logger) *mcpserver.SSEServer {
	return mcpserver.NewSSEServer(srv,
		mcpserver.WithBaseURL(fmt.Sprintf("%s:%s", opts.BaseURL, opts.Port)),
		mcpserver.WithSSEEndpoint(SSEPath),
		mcpserver.WithMessageEndpoint(MessagePath),
		mcpserver.WithSSEContextFunc(mcpserver.SSEContextFunc(HTTPContext(opts.Resolver, logger))),
	)
}

// NewStreamableHandler returns the Streamable HTTP transport for mounting at
// opts.EndpointPath
func NewStreamableHandler(srv *mcpserver.MCPServer, opts HTTPOptions, logger *logrus.Logger) *mcpserver.StreamableHTTPServer {
	serverOpts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath(opts.EndpointPath),
		mcpserver.WithHTTPContextFunc(HTTPContext(opts.Resolver, logger)),
		mcpserver.WithLogger(&logrusAdapter{logger: logger}),
	}

	heartbeatInterval := 30 * time.Second
	if opts.SessionTimeout > 0 {
		serverOpts = append(serverOpts, mcpserver.WithSessionIdManager(NewTimeoutSessionManager(opts.SessionTimeout, logger)))
		heartbeatInterval = opts.SessionTimeout / 4
	}
	serverOpts = append(serverOpts, mcpserver.WithHeartbeatInterval(heartbeatInterval))
	logger.Infof("Heartbeat interval: %v", heartbeatInterval)

	return mcpserver.NewStreamableHTTPServer(srv, serverOpts...)
}

// ListenAndServe runs handler on addr until ctx is cancelled, then shuts down gracefully
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *logrus.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	logger.Infof("Listening on %s", addr)

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
		return err
	}

	logger.Info("HTTP server stopped gracefully")
	return nil
}

// logrusAdapter adapts logrus.Logger to the mcp-go util.Logger interface
type logrusAdapter struct {
	logger *logrus.Logger
}

func (l *logrusAdapter) Infof(format string, args ...any) {
	l.logger.Infof(format, args...)
}

func (l *logrusAdapter) Errorf(format string, args ...any) {
	l.logger.Errorf(format, args...)
}
