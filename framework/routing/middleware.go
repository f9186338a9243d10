package routing

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/km-arc/busybody/framework/container"
	gohttp "github.com/km-arc/busybody/framework/http"
)

// TaskScope runs each request as a new task. The task scope is seeded with
// the *http.Request, its *gohttp.Request wrapper and a gohttp.RequestID, and
// is torn down when the handler returns.
func TaskScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := container.RunTask(r.Context(), func(ctx context.Context) error {
			s, err := container.NewTaskScope(ctx)
			if err != nil {
				return err
			}
			defer s.Release()

			r = r.WithContext(gohttp.WithScope(ctx, s))
			container.Set(s, r)
			container.Set(s, gohttp.NewRequest(r))
			container.Set(s, requestID(ctx))

			next.ServeHTTP(w, r)
			return nil
		})
		if err != nil {
			// only reachable with a TaskIdentifier that does not recognize WithTask
			gohttp.NewResponse(w).ServerError()
		}
	})
}

func requestID(ctx context.Context) gohttp.RequestID {
	if id := middleware.GetReqID(ctx); id != "" {
		return gohttp.RequestID(id)
	}
	return gohttp.RequestID(uuid.NewString())
}

// AccessLog logs one line per request with zap.
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
