package statusapi

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger is a Gin middleware that logs every request through logger,
// with method, path, client IP, status code, and latency. A nil logger
// defaults to a "[diagnostics-api] "-prefixed logger on stderr,
// matching the component-prefixed loggers the rest of the tree passes
// to its collaborators (spec §9).
func Logger(logger *log.Logger) gin.HandlerFunc {
	logger = defaultLogger(logger)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Printf("%s %s %s | %d | %s",
			c.Request.Method,
			c.Request.URL.Path,
			c.ClientIP(),
			c.Writer.Status(),
			time.Since(start),
		)
	}
}

// Recovery recovers from a panic in a later handler, logs it through
// logger, and aborts the request with a 500 JSON error. It does not use
// gin.Recovery.
func Recovery(logger *log.Logger) gin.HandlerFunc {
	logger = defaultLogger(logger)
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Printf("panic recovered: %v", err)
				c.AbortWithStatusJSON(500, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

func defaultLogger(logger *log.Logger) *log.Logger {
	if logger != nil {
		return logger
	}
	return log.New(log.Writer(), "[diagnostics-api] ", log.LstdFlags)
}
