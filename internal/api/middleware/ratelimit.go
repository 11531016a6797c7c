package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

// NewRateLimiter builds a limiter from a formatted rate such as "120-M".
// A nil store keeps counters in process memory.
func NewRateLimiter(rate string, store limiter.Store) (*limiter.Limiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = memory.NewStore()
	}
	return limiter.New(store, r), nil
}

// RateLimitMiddleware limits requests per signed-in profile, or per client IP
// for anonymous callers
func RateLimitMiddleware(l *limiter.Limiter) func(http.Handler) http.Handler {
	mw := stdlib.NewMiddleware(l,
		stdlib.WithKeyGetter(rateLimitKey(l)),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "too many requests, please slow down")
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			log.Warn().Err(err).Msg("Rate limiter store failed")
			writeError(w, http.StatusServiceUnavailable, "rate limiter unavailable")
		}),
	)
	return mw.Handler
}

func rateLimitKey(l *limiter.Limiter) func(r *http.Request) string {
	return func(r *http.Request) string {
		if session, ok := entities.SessionFrom(r.Context()); ok && session.ProfileID() != "" {
			return "profile:" + session.ProfileID()
		}
		return "ip:" + l.GetIPKey(r)
	}
}
