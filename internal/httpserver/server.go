package httpserver

import (
	"net/http"
	"time"

	"github.com/rs/cors"
)

// NewServer wraps handler with CORS for the public marketing origins.
func NewServer(addr string, handler http.Handler, allowedOrigins []string) *http.Server {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return &http.Server{
		Addr:              addr,
		Handler:           c.Handler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
