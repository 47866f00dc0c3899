package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with the timeouts this service needs. Writes
// get enough headroom for an upload whose rows all wait on slow services.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}
