// v1
// internal/httpapi/server.go
package httpapi

import (
	"context"
	"net/http"
	"os"

	"log/slog"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Server owns the HTTP listener lifecycle. The router is wrapped with a
// permissive CORS layer for the dashboard and an Apache-style access log on
// stdout so request traces sit next to the structured daemon log.
type Server struct {
	lg   *slog.Logger
	http *http.Server
}

// NewServer binds the router to the supplied address.
func NewServer(bind string, lg *slog.Logger, router *mux.Router) *Server {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPut, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	logged := handlers.LoggingHandler(os.Stdout, cors(router))
	return &Server{
		lg:   lg,
		http: &http.Server{Addr: bind, Handler: logged},
	}
}

// Start blocks in ListenAndServe until the listener fails or Stop drains it.
func (s *Server) Start() error {
	s.lg.Info("http server starting", "bind", s.http.Addr)
	return s.http.ListenAndServe()
}

// Stop shuts the listener down, honoring the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.lg.Info("http server stopping")
	return s.http.Shutdown(ctx)
}
