package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/km-arc/busybody/framework/app"
	"github.com/km-arc/busybody/framework/container"
	gohttp "github.com/km-arc/busybody/framework/http"
	"github.com/km-arc/busybody/framework/routing"
)

// DiscountTable maps discount codes to a rate in [0, 1].
type DiscountTable map[string]float64

// Amount is the order amount of the current request, in cents.
type Amount int64

// Discount is the rate that applies to the current request.
type Discount float64

// PricingProvider binds the discount table once and derives per-request
// values from the request itself.
type PricingProvider struct {
	container.BaseProvider
}

func (p *PricingProvider) Register(s *container.Scope) {
	container.RegisterResolverOnce(s, func(context.Context, *container.Scope) (DiscountTable, error) {
		return DiscountTable{"SUMMER": 0.25, "STAFF": 0.5}, nil
	})
}

// requestPricing seeds Amount and Discount into the request's task scope.
func requestPricing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s := gohttp.ScopeFrom(ctx)
		req := gohttp.NewRequest(r)

		amount, err := strconv.ParseInt(req.Query("amount", "0"), 10, 64)
		if err != nil || amount < 0 {
			gohttp.NewResponse(w).BadRequest("amount must be a non-negative integer")
			return
		}
		table, err := container.Require[DiscountTable](ctx, s)
		if err != nil {
			gohttp.NewResponse(w).ServerError()
			return
		}
		container.Apply(s,
			container.Instance(Amount(amount)),
			container.Instance(Discount(table[req.Query("code")])),
		)
		next.ServeHTTP(w, r)
	})
}

type quote struct {
	RequestID gohttp.RequestID `json:"request_id"`
	Amount    Amount           `json:"amount"`
	Discount  Discount         `json:"discount"`
	Total     Amount           `json:"total"`
}

func main() {
	application := app.New() // loads .env automatically

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Register(ctx, &PricingProvider{}); err != nil {
		panic(err)
	}
	if err := application.Boot(ctx); err != nil {
		panic(err)
	}
	logger := application.Logger()
	r := application.Router()

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		gohttp.NewResponse(w).Success(map[string]any{"message": "busybody pricing"})
	})

	r.Prefix("/api/v1", func(api *routing.Router) {
		api.Middleware(requestPricing)

		// GET /api/v1/quote?amount=1200&code=SUMMER
		api.Get("/quote", func(id gohttp.RequestID, a Amount, d Discount) quote {
			return quote{
				RequestID: id,
				Amount:    a,
				Discount:  d,
				Total:     a - Amount(float64(a)*float64(d)),
			}
		})

		// GET /api/v1/discounts/{code}
		api.Get("/discounts/{code}", func(req *gohttp.Request, table DiscountTable) (Discount, error) {
			rate, ok := table[req.RouteParam("code")]
			if !ok {
				return 0, gohttp.Errorf(http.StatusNotFound, "unknown discount code %q", req.RouteParam("code"))
			}
			return Discount(rate), nil
		})
	})

	if err := application.Run(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
