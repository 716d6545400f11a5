package restapi

import (
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"tripsearch.onebusaway.org/internal/app"
)

// RestAPI serves the HTTP surface of the trip search service.
type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
}

// NewRestAPI creates the API and its per-key rate limiter. Call Shutdown to
// stop the limiter's cleanup goroutine.
func NewRestAPI(application *app.Application) *RestAPI {
	return &RestAPI{
		Application: application,
		rateLimiter: NewRateLimitMiddleware(application.Config.RateLimit, time.Second, nil, application.Clock),
	}
}

// SetRoutes registers every endpoint on mux.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", api.healthHandler)

	mux.Handle("POST /api/trip-search", api.keyed(0, http.HandlerFunc(api.tripSearchHandler)))
	mux.Handle("GET /api/current-time", api.keyed(30, http.HandlerFunc(api.currentTimeHandler)))

	if api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}
}

// keyed wraps an API endpoint: key check, rate limit, gzip, then caching.
func (api *RestAPI) keyed(cacheSeconds int, handler http.Handler) http.Handler {
	cached := CacheControlMiddleware(cacheSeconds, handler)
	return api.requireAPIKey(api.rateLimiter.Handler()(gzhttp.GzipHandler(cached)))
}

func (api *RestAPI) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.sendUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (api *RestAPI) Shutdown() {
	api.rateLimiter.Stop()
}
