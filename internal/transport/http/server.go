package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stayhq/presence-server/internal/config"
	"github.com/stayhq/presence-server/internal/gateway"
	"github.com/stayhq/presence-server/internal/status"
)

// NewServer builds the HTTP server: health check, the websocket endpoint and
// the status lookup API.
func NewServer(gw *gateway.Gateway, statuses status.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/ws", NewWSHandler(gw, logger).Handle)
	router.GET("/api/status", NewStatusHandlers(statuses, logger).Search)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

// LoggerMiddleware logs HTTP requests after completion. The websocket
// endpoint is skipped; a single log line per hours-long connection carries no
// information and the ws handler logs its own lifecycle.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.URL.Path == "/ws" {
			return
		}
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
