package httpserver

import (
	"net/http"
	"time"
)

// DefaultReadHeaderTimeout applies when the caller passes zero.
const DefaultReadHeaderTimeout = 5 * time.Second

// New builds an HTTP server with sane defaults for this project.
func New(addr string, handler http.Handler, readHeaderTimeout time.Duration) *http.Server {
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = DefaultReadHeaderTimeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
