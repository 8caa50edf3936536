package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/safar/go-bookstore/internal/health"
	"github.com/safar/go-bookstore/internal/service"
)

type Handler struct {
	svc *service.Service
	log *log.Entry
}

func NewHandler(svc *service.Service, logger *log.Entry) *Handler {
	return &Handler{svc: svc, log: logger.WithField("component", "http")}
}

// NewRouter mounts the API under /api next to the health endpoints.
func NewRouter(h *Handler, checks *health.Handler, timeout time.Duration) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(h.log), middleware.Recoverer)
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.Get("/healthz", health.LivenessHandler)
	if checks != nil {
		r.Get("/readyz", checks.ReadinessHandler)
		r.Get("/health", checks.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/books", func(r chi.Router) {
			r.Get("/", h.listBooks)
			r.Post("/", h.createBook)
			r.Get("/{id}", h.getBook)
			r.Put("/{id}", h.updateBook)
			r.Delete("/{id}", h.deleteBook)
		})
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.listCustomers)
			r.Post("/", h.createCustomer)
			r.Get("/email/{email}", h.getCustomerByEmail)
			r.Get("/{id}", h.getCustomer)
			r.Put("/{id}", h.updateCustomer)
			r.Delete("/{id}", h.deleteCustomer)
			r.Put("/{id}/status", h.updateCustomerStatus)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Get("/customer/{customerId}", h.listOrdersByCustomer)
			r.Get("/status/{status}", h.listOrdersByStatus)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}", h.updateOrder)
			r.Delete("/{id}", h.deleteOrder)
			r.Post("/{id}/items", h.addOrderItem)
			r.Put("/{id}/status", h.updateOrderStatus)
		})
	})
	return r
}

func requestLogger(entry *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			entry.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
