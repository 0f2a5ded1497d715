package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitByIP bounds a route to requestLimit requests per window per client
// IP, responding with this API's failure shape when exceeded. The limiter is
// checked before any handler side effects, so a throttled request touches
// neither the gateway nor the database.
func RateLimitByIP(requestLimit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success": false, "message": "Too many STK push requests. Please try again later."}`))
		}),
	)
}
