package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/nulzo/ollama-openai-proxy/internal/proxyerr"
)

// ContextKeyCorrelationID is where the per-request tracking id lives in
// the gin context.
const ContextKeyCorrelationID = "correlation_id"

// Correlation resolves the inbound tracking id (or mints one) and echoes
// it back in the response header so clients can reference it.
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := proxyerr.FromHeaders(c.Request.Header)
		c.Set(ContextKeyCorrelationID, id)
		c.Header(proxyerr.HeaderCorrelationID, id)
		c.Next()
	}
}

// CorrelationID reads the tracking id stored by the Correlation
// middleware, minting one if the middleware did not run.
func CorrelationID(c *gin.Context) string {
	if id, ok := c.Get(ContextKeyCorrelationID); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return proxyerr.GenerateCorrelationID()
}
