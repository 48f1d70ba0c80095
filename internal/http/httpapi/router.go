package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"textvision/internal/http/handlers"
	"textvision/internal/infra"
	"textvision/internal/middleware"
)

// Options wires the cross-cutting pieces of the router.
type Options struct {
	JWTSecret      string
	DefaultLocale  string
	CountryLookup  middleware.CountryLookup
	AllowedOrigins []string
	RateLimit      int
	Logger         infra.Logger
	// Static serves stored assets below /static when set.
	Static http.Handler
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/readyz", app.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if opts.Static != nil {
		r.Method(http.MethodGet, "/static/*", opts.Static)
	}

	r.Route("/v1/contents", func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret, func(w http.ResponseWriter, r *http.Request, _ error) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","code":401,"message":"invalid or missing token"}`))
		}))

		r.Get("/", app.ListContents)
		r.Get("/quota", app.GetQuota)
		r.Get("/recent", app.RecentContents)
		r.Get("/{id}", app.GetContent)
		r.Delete("/batch", app.BatchDeleteContents)
		r.Delete("/{id}", app.DeleteContent)
		r.With(rateLimit(opts.RateLimit)).Post("/generate", app.GenerateContent)
	})

	return r
}

func rateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(perMinute, time.Minute)
}
