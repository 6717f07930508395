// internal/handlers/routes.go
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/mickarin/internal/game"
	"github.com/jason-s-yu/mickarin/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Server exposes the engine over HTTP and websockets.
type Server struct {
	mgr            *game.Manager
	hub            *Hub
	logger         *logrus.Logger
	publicURL      string
	originPatterns []string

	ctx    context.Context // cancelled by Close; ends every websocket
	cancel context.CancelFunc
}

type ServerOption func(*Server)

// WithPublicURL sets the base URL encoded in invite QR codes.
func WithPublicURL(u string) ServerOption {
	return func(s *Server) { s.publicURL = u }
}

// WithOriginPatterns restricts which browser origins may open a websocket.
func WithOriginPatterns(patterns ...string) ServerOption {
	return func(s *Server) { s.originPatterns = patterns }
}

// NewServer wires mgr and hub together. mgr must have been built with
// hub.Send as its SendFunc.
func NewServer(mgr *game.Manager, hub *Hub, logger *logrus.Logger, opts ...ServerOption) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		mgr:            mgr,
		hub:            hub,
		logger:         logger,
		originPatterns: []string{"*"},
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(s.logger))

	r.Get("/", PingHandler)
	r.Get("/ws", s.GameWSHandler)
	r.Get("/games/{code}/qr", s.QRHandler)
	return r
}

// Close ends every open websocket.
func (s *Server) Close() {
	s.cancel()
}

// PingHandler answers health checks.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}
