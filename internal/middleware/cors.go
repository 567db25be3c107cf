package middleware

import (
	"net/http"

	"dress-rental/internal/config"

	"github.com/rs/cors"
)

// exposedHeaders are response headers browser clients need to read:
// the request id for support tickets, the download filename, and the
// report bundle outcome.
var exposedHeaders = []string{
	RequestIDHeader,
	"Content-Disposition",
	"X-Archive-Location",
	"X-Failed-Reports",
}

func corsOptions(cfg *config.Config) cors.Options {
	return cors.Options{
		AllowedOrigins:   cfg.Server.CorsAllowedOrigins,
		AllowedMethods:   cfg.Server.CorsAllowedMethods,
		AllowedHeaders:   cfg.Server.CorsAllowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}
}

// NewCORS wraps the whole router so preflight requests are answered
// before route matching.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	return cors.New(corsOptions(cfg)).Handler
}
