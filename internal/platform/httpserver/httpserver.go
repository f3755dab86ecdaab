package httpserver

import (
	"net/http"
	"time"

	"docufind/internal/platform/config"
)

// New builds the API server. Writes get extra room over the per-request
// timeout so a timed-out handler can still send its error response.
func New(cfg config.Server, handler http.Handler) *http.Server {
	write := cfg.RequestTimeout + 10*time.Second
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
