// Package server exposes a tiny operator-facing debug HTTP server over the
// completion engine's live state: the current session id, whether it's
// primed, and the controller's generation counter. It is not part of the
// completion/chat wire contract — just an introspection aid.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pxlapp/sqlcopilot/internal/controller"
	"github.com/pxlapp/sqlcopilot/internal/session"
)

// Server holds the HTTP router and the live session/controller it reports
// on.
type Server struct {
	router chi.Router
	sess   *session.Session
	ctrl   *controller.Controller
}

// New creates a Server wired to report on sess and ctrl, and returns it
// ready to use as an http.Handler.
func New(sess *session.Session, ctrl *controller.Controller) *Server {
	s := &Server{sess: sess, ctrl: ctrl}
	s.routes()
	return s
}

// routes builds the chi router with all middleware and route definitions.
func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/debug/session", s.handleDebugSession)

	s.router = r
}

// ServeHTTP makes Server satisfy the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
