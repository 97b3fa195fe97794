package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shivanand-hulikatti/event-checkout/internal/metrics"
)

// RouterConfig collects what the router needs besides the handlers.
type RouterConfig struct {
	Environment    string
	AllowedOrigins []string
	SecureCookies  bool
	Logger         *slog.Logger
}

// NewRouter builds the chi router with the global middleware stack.
func NewRouter(events *EventHandler, co *CheckoutHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(CORS(cfg.Environment, cfg.AllowedOrigins))

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/calendars", events.CreateCalendar)

	r.Route("/events", func(r chi.Router) {
		r.Post("/", events.CreateEvent)
		r.Get("/", events.ListEvents)
		r.Route("/{eventID}", func(r chi.Router) {
			r.Get("/", events.GetEvent)
			r.Get("/availability", events.Availability)
			r.Get("/registrations", events.ListRegistrations)

			r.Group(func(r chi.Router) {
				r.Use(Session(cfg.SecureCookies))
				r.Get("/checkout", co.Checkout)
				r.Post("/checkout", co.Checkout)
				r.Get("/checkout/{step}", co.Checkout)
				r.Post("/checkout/{step}", co.Checkout)
			})
		})
	})

	r.With(Session(cfg.SecureCookies)).Get("/checkout/complete", co.Complete)
	r.Post("/registrations/{uuid}/unsubscribe", events.Unsubscribe)
	r.Post("/admin/sweep", events.Sweep)

	return r
}
