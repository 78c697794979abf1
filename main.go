package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	devcli "github.com/devtoolshub/devtools-hub/internal/cli"
	"github.com/devtoolshub/devtools-hub/internal/config"
	"github.com/devtoolshub/devtools-hub/internal/history"
	"github.com/devtoolshub/devtools-hub/internal/identity"
	"github.com/devtoolshub/devtools-hub/internal/qr"
	"github.com/devtoolshub/devtools-hub/internal/registry"
	"github.com/devtoolshub/devtools-hub/internal/server"
	"github.com/devtoolshub/devtools-hub/internal/telemetry"
	"github.com/devtoolshub/devtools-hub/internal/tools"
	"github.com/devtoolshub/devtools-hub/internal/web"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	// Import all tool packages to register them
	_ "github.com/devtoolshub/devtools-hub/internal/imports"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Global resources that need cleanup. Atomic so signal handling and cleanup never race.
var (
	debugLogFile atomic.Pointer[os.File]
	isStdioMode  atomic.Bool
	historyStore atomic.Pointer[history.Store]
)

const (
	// DefaultMemoryLimit is the default soft memory limit for the Go runtime (1GB)
	DefaultMemoryLimit = 1024 * 1024 * 1024

	memoryLimitEnvVar = "DEVTOOLS_HUB_MEMORY_LIMIT"
)

// parseLogLevel parses LOG_LEVEL, defaulting to warn when unset or invalid
func parseLogLevel() logrus.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.WarnLevel
	}
}

// setMemoryLimit configures the Go runtime soft memory limit
func setMemoryLimit() {
	var memLimit int64 = DefaultMemoryLimit
	if s := os.Getenv(memoryLimitEnvVar); s != "" {
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil && parsed > 0 {
			memLimit = parsed
		}
	}
	debug.SetMemoryLimit(memLimit)
}

func main() {
	setMemoryLimit()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Discard output until the transport is known
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(parseLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// .env must be loaded before flags read their environment sources
	config.LoadDotEnv(logger)
	registry.Init(logger)

	defer performCleanup(logger)

	app := &cli.Command{
		Name:    config.AppName,
		Usage:   "Developer conversion tools over MCP, HTTP and the command line",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		Flags:   rootFlags(),
		Commands: []*cli.Command{
			convertCommand(logger),
			detectCommand(logger),
			qrCommand(logger),
			historyCommand(logger),
			sitemapCommand(logger),
			configValidateCommand(logger),
			toolsCommand(logger),
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("%s version %s\n", config.AppName, Version)
					fmt.Printf("Commit: %s\n", Commit)
					fmt.Printf("Built: %s\n", BuildDate)
					return nil
				},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServer(ctx, cfg, cmd.String("auth-token"), logger)
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		// stdio carries the protocol; nothing may be written there
		if !isStdioMode.Load() {
			devcli.PrintError(os.Stderr, err)
		}
		performCleanup(logger)
		os.Exit(1)
	}
}

func rootFlags() []cli.Flag {
	defaults := config.Default()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "transport",
			Aliases: []string{"t"},
			Value:   defaults.Server.Transport,
			Usage:   "Transport type (stdio, sse, or http)",
			Sources: cli.EnvVars("DEVTOOLS_TRANSPORT"),
		},
		&cli.StringFlag{
			Name:    "port",
			Value:   defaults.Server.Port,
			Usage:   "Port for the HTTP transports and web API",
			Sources: cli.EnvVars("DEVTOOLS_PORT", "PORT"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Value:   defaults.Server.BaseURL,
			Usage:   "Base URL advertised by the SSE transport",
			Sources: cli.EnvVars("DEVTOOLS_BASE_URL"),
		},
		&cli.StringFlag{
			Name:    "endpoint-path",
			Value:   defaults.Server.EndpointPath,
			Usage:   "Endpoint path for the Streamable HTTP transport",
			Sources: cli.EnvVars("DEVTOOLS_ENDPOINT_PATH"),
		},
		&cli.DurationFlag{
			Name:    "session-timeout",
			Value:   defaults.Server.SessionTimeout,
			Usage:   "Idle timeout for Streamable HTTP sessions",
			Sources: cli.EnvVars("DEVTOOLS_SESSION_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:    "auth-token",
			Usage:   "Bearer token required on the MCP endpoints (optional)",
			Sources: cli.EnvVars("DEVTOOLS_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML config file (default: ~/.devtools-hub/config.yaml)",
			Sources: cli.EnvVars("DEVTOOLS_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "user-email",
			Usage:   "Identity used for conversion history when no token is presented",
			Sources: cli.EnvVars("DEVTOOLS_USER_EMAIL"),
		},
		&cli.BoolFlag{
			Name:    "history",
			Usage:   "Save successful conversions to history",
			Sources: cli.EnvVars("DEVTOOLS_HISTORY"),
		},
		&cli.StringFlag{
			Name:    "history-backend",
			Value:   defaults.History.Backend,
			Usage:   "History storage backend (file or sqlite)",
			Sources: cli.EnvVars("DEVTOOLS_HISTORY_BACKEND"),
		},
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "HMAC secret for verifying bearer tokens",
			Sources: cli.EnvVars("DEVTOOLS_JWT_SECRET", "JWT_SECRET"),
		},
		&cli.StringFlag{
			Name:    "jwks-url",
			Usage:   "JWKS URL for verifying RS256 bearer tokens",
			Sources: cli.EnvVars("DEVTOOLS_JWKS_URL"),
		},
		&cli.StringFlag{
			Name:    "issuer",
			Usage:   "Required token issuer (optional)",
			Sources: cli.EnvVars("DEVTOOLS_JWT_ISSUER"),
		},
		&cli.StringFlag{
			Name:    "audience",
			Usage:   "Required token audience (optional)",
			Sources: cli.EnvVars("DEVTOOLS_JWT_AUDIENCE"),
		},
		&cli.FloatFlag{
			Name:    "rate-limit",
			Value:   defaults.Server.RateLimit,
			Usage:   "Sustained web API requests per second per client (0 disables)",
			Sources: cli.EnvVars("DEVTOOLS_RATE_LIMIT"),
		},
		&cli.IntFlag{
			Name:    "rate-burst",
			Value:   defaults.Server.RateBurst,
			Usage:   "Web API request burst per client",
			Sources: cli.EnvVars("DEVTOOLS_RATE_BURST"),
		},
		&cli.BoolFlag{
			Name:    "trust-proxy",
			Usage:   "Take the client IP from X-Forwarded-For when behind a reverse proxy",
			Sources: cli.EnvVars("DEVTOOLS_TRUST_PROXY"),
		},
		&cli.StringFlag{
			Name:    "site-url",
			Value:   defaults.Server.SiteURL,
			Usage:   "Public base URL used in the sitemap",
			Sources: cli.EnvVars("DEVTOOLS_SITE_URL"),
		},
	}
}

// loadConfig reads the config file and applies every flag or environment variable
// that was set, so the precedence is flag > env > file > default
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("transport") {
		cfg.Server.Transport = cmd.String("transport")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = cmd.String("port")
	}
	if cmd.IsSet("base-url") {
		cfg.Server.BaseURL = cmd.String("base-url")
	}
	if cmd.IsSet("endpoint-path") {
		cfg.Server.EndpointPath = cmd.String("endpoint-path")
	}
	if cmd.IsSet("session-timeout") {
		cfg.Server.SessionTimeout = cmd.Duration("session-timeout")
	}
	if cmd.IsSet("rate-limit") {
		cfg.Server.RateLimit = cmd.Float("rate-limit")
	}
	if cmd.IsSet("rate-burst") {
		cfg.Server.RateBurst = cmd.Int("rate-burst")
	}
	if cmd.IsSet("trust-proxy") {
		cfg.Server.TrustProxy = cmd.Bool("trust-proxy")
	}
	if cmd.IsSet("site-url") {
		cfg.Server.SiteURL = cmd.String("site-url")
	}
	if cmd.IsSet("user-email") {
		cfg.Identity.UserEmail = cmd.String("user-email")
	}
	if cmd.IsSet("history") {
		cfg.History.Enabled = cmd.Bool("history")
	}
	if cmd.IsSet("history-backend") {
		cfg.History.Backend = cmd.String("history-backend")
	}
	if cmd.IsSet("jwt-secret") {
		cfg.Identity.JWTSecret = cmd.String("jwt-secret")
	}
	if cmd.IsSet("jwks-url") {
		cfg.Identity.JWKSURL = cmd.String("jwks-url")
	}
	if cmd.IsSet("issuer") {
		cfg.Identity.Issuer = cmd.String("issuer")
	}
	if cmd.IsSet("audience") {
		cfg.Identity.Audience = cmd.String("audience")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// configureLogging sends logs to ~/.devtools-hub/logs/devtools-hub.log. stdio mode
// never falls back to stderr and logs at warn or above.
func configureLogging(logger *logrus.Logger, transport string) {
	stdio := transport == server.TransportStdio
	isStdioMode.Store(stdio)

	level := parseLogLevel()
	if stdio && level > logrus.WarnLevel {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	logrus.SetLevel(level)

	file, err := openLogFile()
	switch {
	case err == nil:
		debugLogFile.Store(file)
		logger.SetOutput(file)
		logrus.SetOutput(file)
		logger.WithField("level", level.String()).Debug("Logging configured")
	case stdio:
		logger.SetOutput(io.Discard)
		logrus.SetOutput(io.Discard)
	default:
		logger.SetOutput(os.Stderr)
		logrus.SetOutput(os.Stderr)
	}
}

func openLogFile() (*os.File, error) {
	stateDir, err := config.StateDir()
	if err != nil {
		return nil, err
	}
	logDir := filepath.Join(stateDir, "logs")
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(logDir, config.AppName+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

// newResolver builds the identity resolver: bearer tokens when a key is configured,
// else the static --user-email identity
func newResolver(cfg *config.Config, logger *logrus.Logger) (*identity.Resolver, error) {
	idCfg := identity.Config{
		Secret:   cfg.Identity.JWTSecret,
		JWKSURL:  cfg.Identity.JWKSURL,
		Issuer:   cfg.Identity.Issuer,
		Audience: cfg.Identity.Audience,
	}
	var validator *identity.Validator
	if idCfg.Enabled() {
		v, err := identity.NewValidator(idCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to configure token validation: %w", err)
		}
		validator = v
	}
	return identity.NewResolver(validator, identity.Static(cfg.Identity.UserEmail), logger), nil
}

func openHistory(cfg *config.Config, logger *logrus.Logger) (*history.Recorder, error) {
	store, err := history.Open(history.Options{
		Backend:       history.Backend(cfg.History.Backend),
		Dir:           cfg.History.Path,
		MaxSizeBytes:  cfg.History.MaxSizeBytes,
		RetentionDays: cfg.History.RetentionDays,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	historyStore.Store(&store)
	return history.NewRecorder(store, logger), nil
}

// initShared sets up the resources every command shares: logging, the tool cache and
// the tool error log. mode is the server transport, or "cli" for a subcommand.
func initShared(mode string, cfg *config.Config, logger *logrus.Logger) {
	configureLogging(logger, mode)
	registry.SetCache(cache.NewCache(cfg.QR.CacheTTL))

	if err := tools.InitErrorLog(logger); err != nil {
		logger.WithError(err).Warn("Failed to initialise tool error logger")
	}
}

func runServer(ctx context.Context, cfg *config.Config, authToken string, logger *logrus.Logger) error {
	transport := cfg.Server.Transport
	initShared(transport, cfg, logger)

	if transport != server.TransportStdio {
		logger.Infof("Starting %s version %s (commit: %s, built: %s)", config.AppName, Version, Commit, BuildDate)
	}

	shutdownTracer, err := telemetry.InitTracer(logger, Version)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialise tracing")
	} else {
		defer func() {
			if err := shutdownTracer(); err != nil {
				logger.WithError(err).Debug("Tracer shutdown failed")
			}
		}()
	}

	resolver, err := newResolver(cfg, logger)
	if err != nil {
		return err
	}

	var recorder *history.Recorder
	if cfg.History.Enabled {
		recorder, err = openHistory(cfg, logger)
		if err != nil {
			return err
		}
		registry.SetRecorder(recorder)
	}

	mcpSrv := server.New(Version, transport, logger)

	opts := server.HTTPOptions{
		BaseURL:        cfg.Server.BaseURL,
		Port:           cfg.Server.Port,
		EndpointPath:   cfg.Server.EndpointPath,
		SessionTimeout: cfg.Server.SessionTimeout,
		Resolver:       resolver,
	}

	webOpts := web.Options{
		Logger:     logger,
		Renderer:   qr.NewRenderer(registry.GetCache(), logger),
		Resolver:   resolver,
		Recorder:   recorder,
		SiteURL:    cfg.Server.SiteURL,
		JSONIndent: cfg.JSON.Indent,
		QRDefaults: qrDefaults(cfg),
		RateLimit:  cfg.Server.RateLimit,
		RateBurst:  cfg.Server.RateBurst,
		TrustProxy: cfg.Server.TrustProxy,
		AuthToken:  server.RequireToken(authToken, logger),
	}

	logger.WithField("transport", transport).Debug("Starting server")
	switch transport {
	case server.TransportStdio:
		return server.ServeStdio(mcpSrv, resolver, logger)
	case server.TransportSSE:
		webOpts.MCP = server.NewSSEHandler(mcpSrv, opts, logger)
		webOpts.MCPPaths = []string{server.SSEPath, server.MessagePath}
	case server.TransportHTTP:
		webOpts.MCP = server.NewStreamableHandler(mcpSrv, opts, logger)
		webOpts.MCPPaths = []string{cfg.Server.EndpointPath}
	default:
		return fmt.Errorf("unsupported transport: %s", transport)
	}

	if authToken != "" {
		logger.Info("Bearer token required on MCP endpoints")
	}
	return server.ListenAndServe(ctx, ":"+cfg.Server.Port, web.NewRouter(webOpts), logger)
}

func qrDefaults(cfg *config.Config) qr.Options {
	margin := cfg.QR.Margin
	return qr.Options{
		Level:  cfg.QR.ECC,
		Size:   cfg.QR.Size,
		Margin: &margin,
		Style:  cfg.QR.Style,
	}
}

var cleanupDone atomic.Bool

// performCleanup releases global resources once
func performCleanup(logger *logrus.Logger) {
	if !cleanupDone.CompareAndSwap(false, true) {
		return
	}

	if store := historyStore.Load(); store != nil {
		if err := (*store).Close(); err != nil {
			logger.WithError(err).Warn("Failed to close history store")
		}
	}

	if errorLog := tools.GetErrorLog(); errorLog != nil {
		if err := errorLog.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close tool error logger")
		}
	}

	// Closed last: the steps above may still log to it
	if file := debugLogFile.Load(); file != nil {
		_ = file.Close()
	}
}
