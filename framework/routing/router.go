package routing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	gohttp "github.com/km-arc/busybody/framework/http"
)

// Router wraps chi.Router. Every request runs as its own task, so handlers
// can resolve per-request values from their task scope.
type Router struct {
	mux chi.Router
}

// New creates a Router with the default stack: request id, real IP, access
// log, panic recovery and the per-request task scope.
func New(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(TaskScope)
	return &Router{mux: r}
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

// Handlers may be an http.Handler, a func(http.ResponseWriter, *http.Request)
// or any function gohttp.Adapt accepts.

func (r *Router) Get(pattern string, h any)    { r.mux.Get(pattern, handlerFor(h)) }
func (r *Router) Post(pattern string, h any)   { r.mux.Post(pattern, handlerFor(h)) }
func (r *Router) Put(pattern string, h any)    { r.mux.Put(pattern, handlerFor(h)) }
func (r *Router) Patch(pattern string, h any)  { r.mux.Patch(pattern, handlerFor(h)) }
func (r *Router) Delete(pattern string, h any) { r.mux.Delete(pattern, handlerFor(h)) }

// Any registers a handler for all common HTTP methods.
func (r *Router) Any(pattern string, h any) {
	hf := handlerFor(h)
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"} {
		r.mux.Method(m, pattern, hf)
	}
}

// Handle mounts an http.Handler for every method on pattern.
func (r *Router) Handle(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func handlerFor(h any) http.HandlerFunc {
	switch h := h.(type) {
	case http.HandlerFunc:
		return h
	case func(http.ResponseWriter, *http.Request):
		return h
	case http.Handler:
		return h.ServeHTTP
	case nil:
		panic("routing: nil handler")
	}
	return gohttp.Inject(h)
}

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing the parent's prefix.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(&Router{mux: mx})
	})
}

// Prefix creates a sub-router with a URL prefix.
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(&Router{mux: mx})
	})
}

// ── Middleware ───────────────────────────────────────────────────────────────

// Middleware adds one or more middleware to the router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL param.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler so Router can be passed to http.Server.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the underlying http.Handler (for testing etc.).
func (r *Router) Handler() http.Handler {
	return r.mux
}
