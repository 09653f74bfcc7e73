// Package httpserver builds the API server with the timeouts the service
// runs with in production.
package httpserver

import (
	"net/http"
	"time"
)

// New wires the handler into a server. Enrichment requests fan out to the
// registries and can legitimately run long, so there is no blanket write
// timeout; the header read timeout still bounds slow clients.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
