package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	// Dashboard page and static assets (embedded filesystem)
	if h.templates != nil {
		r.Get("/", h.handleIndex)
	}
	if h.staticServer != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", h.staticServer))
	}

	// WebSocket refresh push
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	// Ticket API
	r.Get("/api/tickets", h.handleGetTickets)
	r.Get("/api/tickets/seat/{seatNumber}", h.handleGetSeatTickets)
	r.Put("/api/tickets/{id}/approve", h.handleApproveTicket)

	// QR code pointing browsers at this dashboard
	r.Get("/api/qr", h.handleDashboardQR)

	return r
}
