// Package middleware holds gin middleware shared by the kiosk's HTTP
// surfaces (setup portal and device console).
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/muurk/autoprint/internal/logging"
)

// RequestLogger logs every request once it has been served
func RequestLogger(component string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.LogHTTPRequest(component, c.ClientIP(), c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
