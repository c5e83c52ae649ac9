package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
)

// requestContext returns the inbound request context, falling back to a
// background context when the handler is exercised without a request.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}
