// Package http provides request and response helpers and the adapter that
// lets route handlers declare their dependencies as parameters.
//
// # Request
//
//	req := gohttp.NewRequest(r)
//
//	var payload struct {
//	    Amount int64 `json:"amount"`
//	}
//	if err := req.Bind(&payload); err != nil { ... }
//
//	code := req.Query("code", "NONE")
//	id   := req.RouteParam("id")
//
// # Response
//
//	res := gohttp.NewResponse(w)
//	res.Success(quote)            // 200 {"data": quote}
//	res.Error(http.StatusConflict, "already priced")
//
// # Injection
//
// Handlers run inside the task scope of their request, so anything the
// scope (or Global) can resolve can be a parameter:
//
//	router.Get("/quote/{id}", gohttp.Inject(func(req *gohttp.Request, repo QuoteRepo) (Quote, error) {
//	    return repo.Find(req.RouteParam("id"))
//	}))
package http
