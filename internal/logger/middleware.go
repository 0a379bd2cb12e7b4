package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RequestLogger логирует каждый HTTP запрос: метод, путь, статус, длительность
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		var msg string
		switch {
		case status >= 500:
			msg = "server error"
		case status >= 400:
			msg = "client error"
		default:
			msg = "request completed"
		}

		logEntry := log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration_ms", duration).
			Int("bytes", c.Writer.Size()).
			Str("ip", c.ClientIP())

		// Помечаем медленные запросы
		if duration > 100*time.Millisecond {
			logEntry = logEntry.Str("slow", "true")
		}

		if status >= 400 && status < 500 {
			logEntry = logEntry.Str("error_type", "client_error")
		}
		if status >= 500 {
			logEntry = logEntry.Str("error_type", "server_error")
		}

		logEntry.Msg(msg)
	}
}
