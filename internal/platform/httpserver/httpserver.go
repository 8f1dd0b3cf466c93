// Package httpserver builds the API's http.Server from configuration.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"taskflow/internal/platform/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
	// Slack between the per-request deadline and the socket write deadline,
	// so a timed-out handler can still write its error body.
	writeSlack = 5 * time.Second
)

// New returns a server whose read and write deadlines follow the configured
// request timeout. Server-level errors go to logger at error level.
func New(cfg config.Server, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + writeSlack,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}
