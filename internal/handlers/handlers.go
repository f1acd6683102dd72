package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/ymurata/seatboard/internal/services"
	"github.com/ymurata/seatboard/internal/websocket"
)

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// Templates holds all parsed HTML templates
type Templates struct {
	Index *template.Template
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Tickets      services.TicketServicer
	Hub          *websocket.Hub
	Log          HTTPLogger
	templates    *Templates
	staticServer http.Handler
}

// New creates a new Handlers instance with all dependencies
func New(
	tickets services.TicketServicer,
	templatesFS fs.FS,
	staticServer http.Handler,
	hub *websocket.Hub,
	log HTTPLogger,
) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return &Handlers{
		Tickets:      tickets,
		Hub:          hub,
		Log:          log,
		templates:    templates,
		staticServer: staticServer,
	}, nil
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// NewForTesting creates a Handlers instance without templates or hub, for
// exercising the API endpoints in tests.
func NewForTesting(tickets services.TicketServicer) *Handlers {
	return &Handlers{
		Tickets: tickets,
		Log:     NoopHTTPLogger{},
	}
}

func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	index, err := template.ParseFS(templatesFS, "index.html")
	if err != nil {
		return nil, err
	}
	return &Templates{Index: index}, nil
}
