package app

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/busybody/framework/config"
	"github.com/km-arc/busybody/framework/container"
	"github.com/km-arc/busybody/framework/metrics"
	"github.com/km-arc/busybody/framework/providers"
	"github.com/km-arc/busybody/framework/routing"
)

// Application wires the framework providers into one scope and serves HTTP.
type Application struct {
	scope     *container.Scope
	Providers *container.ProviderRegistry

	mountOnce sync.Once
}

// New creates an application on the Global scope.
func New(envFiles ...string) *Application {
	return NewIn(container.Global(), &providers.ConfigServiceProvider{EnvFiles: envFiles})
}

// NewIn creates an application on s, configured by cp. Request handlers
// resolve from their task scope and then Global, so an application that
// serves HTTP belongs on Global.
func NewIn(s *container.Scope, cp *providers.ConfigServiceProvider) *Application {
	registry := container.NewProviderRegistry(s)
	app := &Application{scope: s, Providers: registry}

	// registering framework providers cannot fail before Boot
	ctx := context.Background()
	_ = registry.Register(ctx, cp)
	_ = registry.Register(ctx, &providers.LoggingServiceProvider{})
	_ = registry.Register(ctx, &providers.MetricsServiceProvider{})
	_ = registry.Register(ctx, &providers.RoutingServiceProvider{})

	return app
}

// Scope returns the scope the application registers into.
func (a *Application) Scope() *container.Scope { return a.scope }

// Register adds a ServiceProvider to the application.
func (a *Application) Register(ctx context.Context, provider container.ServiceProvider) error {
	return a.Providers.Register(ctx, provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot(ctx context.Context) error {
	return a.Providers.Boot(ctx)
}

// Config resolves *config.Config from the container.
func (a *Application) Config() *config.Config {
	return container.MustGet[*config.Config](context.Background(), a.scope)
}

// Logger resolves *zap.Logger from the container.
func (a *Application) Logger() *zap.Logger {
	return container.MustGet[*zap.Logger](context.Background(), a.scope)
}

// Router resolves *routing.Router from the container.
func (a *Application) Router() *routing.Router {
	return container.MustGet[*routing.Router](context.Background(), a.scope)
}

// Metrics resolves *metrics.Collector from the container.
func (a *Application) Metrics() *metrics.Collector {
	return container.MustGet[*metrics.Collector](context.Background(), a.scope)
}

// Handler returns the router, with the metrics endpoint mounted when
// metrics are enabled.
func (a *Application) Handler() http.Handler {
	router := a.Router()
	a.mountOnce.Do(func() {
		if cfg := a.Config(); cfg.Metrics.Enabled {
			router.Handle(cfg.Metrics.Path, a.Metrics().Handler())
		}
	})
	return router
}

// Run boots the application (if needed) and serves HTTP until ctx is done,
// then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	if !a.Providers.Booted() {
		if err := a.Boot(ctx); err != nil {
			return err
		}
	}
	cfg := a.Config()
	logger := a.Logger()

	srv := &http.Server{Addr: cfg.Addr(), Handler: a.Handler()}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server started",
			zap.String("app", cfg.App.Name),
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Env),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config().App.Debug }
