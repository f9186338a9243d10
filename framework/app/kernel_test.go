package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"

	"github.com/km-arc/busybody/framework/app"
	"github.com/km-arc/busybody/framework/config"
	"github.com/km-arc/busybody/framework/container"
	"github.com/km-arc/busybody/framework/metrics"
	"github.com/km-arc/busybody/framework/routing"
)

type greeting string

// newTestApp builds an application on Global, which is where request task
// scopes fall back to, and forgets everything it bound afterwards.
func newTestApp(t *testing.T) *app.Application {
	t.Helper()
	env := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(env, []byte("APP_ENV=testing\n"), 0o600))
	t.Cleanup(func() {
		ctx, g := context.Background(), container.Global()
		_, _, _ = container.Forget[*config.Config](ctx, g)
		_, _, _ = container.Forget[*zap.Logger](ctx, g)
		_, _, _ = container.Forget[*metrics.Collector](ctx, g)
		_, _, _ = container.Forget[*routing.Router](ctx, g)
		_, _, _ = container.Forget[greeting](ctx, g)
		os.Unsetenv("APP_ENV")
		container.SetLogger(nil)
		container.SetObserver(nil)
	})
	return app.New(env)
}

type greetingProvider struct {
	container.BaseProvider
}

func (p *greetingProvider) Register(s *container.Scope) {
	container.Set(s, greeting("hello"))
}

func TestApplication_BootAndServe(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	require.NoError(t, a.Register(ctx, &greetingProvider{}))
	require.NoError(t, a.Boot(ctx))

	assert.True(t, a.IsTesting())
	assert.False(t, a.IsProduction())

	a.Router().Get("/greet", func(g greeting) (string, error) { return string(g), nil })

	h := a.Handler()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/greet", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":"hello"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `busybody_resolutions_total{outcome="fallback",scope="task"}`)

	// mounting happens once
	assert.NotPanics(t, func() { a.Handler() })
}

func TestApplication_MetricsDisabled(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "false")
	ctx := context.Background()
	a := newTestApp(t)
	require.NoError(t, a.Boot(ctx))

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestApplication_RunStopsWithContext(t *testing.T) {
	t.Setenv("APP_PORT", "0")
	a := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.Run(ctx))
	assert.True(t, a.Providers.Booted())
}

func TestApplication_RunReportsBootError(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	a := newTestApp(t)
	assert.Error(t, a.Run(context.Background()))
}
