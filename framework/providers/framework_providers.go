package providers

import (
	"context"

	"go.uber.org/zap"

	"github.com/km-arc/busybody/framework/config"
	"github.com/km-arc/busybody/framework/container"
	"github.com/km-arc/busybody/framework/logging"
	"github.com/km-arc/busybody/framework/metrics"
	"github.com/km-arc/busybody/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration.
//
// Bound types:
//   - *config.Config
//
// When File is set it is read as YAML under the .env layer.
type ConfigServiceProvider struct {
	container.BaseProvider
	File     string
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(s *container.Scope) {
	file, envFiles := p.File, p.EnvFiles
	container.RegisterResolverOnce(s, func(context.Context, *container.Scope) (*config.Config, error) {
		if file != "" {
			return config.LoadYAML(file, envFiles...)
		}
		return config.Load(envFiles...), nil
	})
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider builds the zap logger from config and hands it to
// the container for its own diagnostics.
//
// Bound types:
//   - *zap.Logger
type LoggingServiceProvider struct {
	container.BaseProvider
}

func (p *LoggingServiceProvider) Register(s *container.Scope) {
	container.RegisterResolverOnce(s, func(ctx context.Context, s *container.Scope) (*zap.Logger, error) {
		cfg, err := container.Require[*config.Config](ctx, s)
		if err != nil {
			return nil, err
		}
		return logging.New(cfg.Log)
	})
}

func (p *LoggingServiceProvider) Boot(ctx context.Context, s *container.Scope) error {
	l, err := container.Require[*zap.Logger](ctx, s)
	if err != nil {
		return err
	}
	container.SetLogger(l)
	return nil
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider exports container activity to Prometheus when
// metrics are enabled.
//
// Bound types:
//   - *metrics.Collector
type MetricsServiceProvider struct {
	container.BaseProvider
}

func (p *MetricsServiceProvider) Register(s *container.Scope) {
	container.RegisterResolverOnce(s, func(context.Context, *container.Scope) (*metrics.Collector, error) {
		return metrics.New(), nil
	})
}

func (p *MetricsServiceProvider) Boot(ctx context.Context, s *container.Scope) error {
	cfg, err := container.Require[*config.Config](ctx, s)
	if err != nil || !cfg.Metrics.Enabled {
		return err
	}
	m, err := container.Require[*metrics.Collector](ctx, s)
	if err != nil {
		return err
	}
	container.SetObserver(m)
	return nil
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router. It is deferred: nothing
// is built until the router is first resolved.
//
// Bound types:
//   - *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) IsDeferred() bool { return true }

func (p *RoutingServiceProvider) Provides() []container.TypeKey {
	return []container.TypeKey{container.KeyOf[*routing.Router]()}
}

func (p *RoutingServiceProvider) Register(s *container.Scope) {
	container.RegisterResolverOnce(s, func(ctx context.Context, s *container.Scope) (*routing.Router, error) {
		l, _, err := container.Get[*zap.Logger](ctx, s)
		if err != nil {
			return nil, err
		}
		return routing.New(l), nil
	})
}
