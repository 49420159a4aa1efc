// Package app wires configuration, the Futuur API client, the tools and the MCP host together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/RobinCoderZhao/futuur-mcp/internal/journal"
	"github.com/RobinCoderZhao/futuur-mcp/internal/metrics"
	"github.com/RobinCoderZhao/futuur-mcp/internal/tools"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/marketapi"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/mcpserver"
)

// Name is the MCP server name reported to clients.
const Name = "futuur-mcp"

// App is a fully wired server.
type App struct {
	Config      *Config
	Credentials *marketapi.CredentialStore
	Classifier  *marketapi.Classifier
	Builder     *marketapi.Builder
	Client      *marketapi.Client
	Server      *mcpserver.Server
	Metrics     *metrics.Metrics
	Journal     *journal.Journal

	logger *slog.Logger
}

// Options carries what New cannot read from Config.
type Options struct {
	// ConfigPath is re-read on credential reloads. Empty means environment only.
	ConfigPath string
	Version    string
	Logger     *slog.Logger
	// HTTPClient overrides the outbound client; nil means one with Config.API.Timeout.
	HTTPClient *http.Client
}

// New builds the App. The journal is opened only when cfg.Journal.Path is set.
func New(ctx context.Context, cfg *Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	classifier, err := marketapi.NewClassifier(cfg.API.PublicPrefixes)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	source := CredentialSource(opts.ConfigPath)
	if opts.ConfigPath == "" {
		creds := cfg.Credentials()
		if creds.Complete() {
			source = marketapi.StaticSource(creds)
		}
	}
	store := marketapi.NewCredentialStore(source)

	builder, err := marketapi.NewBuilder(marketapi.BuilderConfig{
		BaseURL:   cfg.API.BaseURL,
		UserAgent: userAgent(cfg.API.UserAgent, opts.Version),
	}, store, classifier)
	if err != nil {
		return nil, fmt.Errorf("builder: %w", err)
	}

	a := &App{
		Config:      cfg,
		Credentials: store,
		Classifier:  classifier,
		Builder:     builder,
		Metrics:     metrics.New(),
		logger:      logger,
	}

	observers := []marketapi.Observer{a.Metrics, marketapi.ObserverFunc(a.logRequest)}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(ctx, cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		a.Journal = j
		observers = append(observers, j)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.API.Timeout}
	}
	a.Client = marketapi.NewClient(builder, marketapi.NewInvoker(httpClient, marketapi.WithObserver(marketapi.Observers(observers...))))

	a.Server = mcpserver.New(Name, opts.Version, mcpserver.WithLogger(logger))
	a.Server.Use(mcpserver.RecoveryMiddleware())
	a.Server.Use(mcpserver.LoggingMiddleware(logger))
	a.Server.RegisterTools(tools.New(a.Client, tools.Options{Locale: cfg.Render.Locale})...)

	if _, err := store.Load(); err != nil {
		logger.Warn("Futuur credentials missing; authenticated tools will fail until they are configured", "error", err)
	}
	return a, nil
}

func userAgent(configured, version string) string {
	if configured == "" {
		configured = Name
	}
	if version == "" || version == "dev" {
		return configured
	}
	return configured + "/" + version
}

// logRequest never logs header values.
func (a *App) logRequest(ctx context.Context, ev marketapi.RequestEvent) {
	attrs := []any{
		"method", ev.Method,
		"endpoint", ev.Endpoint,
		"class", ev.Class.String(),
		"status", ev.StatusCode,
		"duration", ev.Duration,
	}
	if tool := mcpserver.ToolNameFromContext(ctx); tool != "" {
		attrs = append(attrs, "tool", tool)
	}
	if ev.Err != nil {
		a.logger.Warn("futuur request failed", append(attrs, "outcome", marketapi.Outcome(ev.Err), "error", ev.Err)...)
		return
	}
	a.logger.Debug("futuur request", attrs...)
}

// ReloadCredentials re-reads the credential source.
func (a *App) ReloadCredentials() error {
	if err := a.Credentials.Reload(); err != nil {
		return err
	}
	if _, err := a.Credentials.Load(); err != nil {
		a.logger.Warn("credentials reloaded but incomplete", "error", err)
		return nil
	}
	a.logger.Info("credentials reloaded")
	return nil
}

// Serve runs the configured transport until ctx is cancelled. SIGHUP reloads credentials.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				if err := a.ReloadCredentials(); err != nil {
					a.logger.Error("credential reload failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		// The stdio transport ends on EOF; stop the reload loop with it.
		defer stop()
		switch a.Config.Server.Transport {
		case TransportHTTP:
			var opts []mcpserver.HTTPOption
			opts = append(opts, mcpserver.WithMetricsHandler(a.Metrics.Handler()))
			if a.Config.Server.AuthSecret != "" {
				opts = append(opts, mcpserver.WithAuthSecret([]byte(a.Config.Server.AuthSecret)))
			} else {
				a.logger.Warn("HTTP transport has no auth secret; anyone who can reach it can trade")
			}
			return a.Server.RunHTTP(ctx, a.Config.Server.Addr, opts...)
		default:
			err := a.Server.RunStdio(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	})

	return g.Wait()
}

// Close releases the journal.
func (a *App) Close() error {
	if a.Journal != nil {
		return a.Journal.Close()
	}
	return nil
}
