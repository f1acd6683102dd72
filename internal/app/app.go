// Package app wires the seat board's dependencies together.
package app

import (
	"fmt"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ymurata/seatboard/internal/config"
	"github.com/ymurata/seatboard/internal/handlers"
	"github.com/ymurata/seatboard/internal/logger"
	"github.com/ymurata/seatboard/internal/services"
	"github.com/ymurata/seatboard/internal/websocket"
	"github.com/ymurata/seatboard/pkg/redmine"
)

// App holds all application dependencies
type App struct {
	log      logger.Logger
	handlers *handlers.Handlers
	hub      *websocket.Hub
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg *config.Config, client redmine.Client, templatesFS, staticFS fs.FS) (*App, error) {
	tickets := services.NewTicketService(log, client, cfg.TrackerID, cfg.PendingStatusID, cfg.ApprovedStatusID)

	hub := websocket.New(log)
	hub.Start()

	staticServer := handlers.NewStaticServer(staticFS)

	h, err := handlers.New(tickets, templatesFS, staticServer, hub, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		log:      log,
		handlers: h,
		hub:      hub,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Run starts the HTTP server
func (a *App) Run(addr string) error {
	a.log.Info("Server starting", "addr", addr)
	return http.ListenAndServe(addr, a.Router())
}
